//go:build !windows

package process

import (
	"fmt"
	"os"
	"syscall"
)

// Fifo creates a named pipe and returns its path; the caller is
// responsible for writing the block's output into it once a reader opens
// it (spec §4.7 `fifo`).
func (e *Engine) Fifo() (string, error) {
	e.mu.Lock()
	e.substCount++
	n := e.substCount
	e.mu.Unlock()
	path := fmt.Sprintf("%shsab_fifo_%d_%d", os.TempDir()+string(os.PathSeparator), os.Getpid(), n)
	if err := syscall.Mkfifo(path, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
