//go:build windows

package process

// Fifo falls back to Subst semantics on Windows, which has no named-pipe
// equivalent in the FIFO sense hsab needs (spec §4.7).
func (e *Engine) Fifo() (string, error) {
	return e.Subst("")
}
