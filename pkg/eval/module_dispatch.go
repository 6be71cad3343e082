// `.import` dispatch (spec C10), bridging into pkg/module.
package eval

import (
	"os"

	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/module"
	"github.com/hsab-shell/hsab/pkg/parser"
	"github.com/hsab-shell/hsab/pkg/value"
)

// execImport implements `"path" .import` / `"path" alias .import` (spec
// §4.10). Like the string-arg builtins, it greedily pops up to two
// coercible operands in LIFO order: one operand is the path, two means
// `alias path` (alias pushed last, closest to the `.import` keyword).
func (ev *Evaluator) execImport() error {
	first, err := ev.Pop(".import")
	if err != nil {
		return err
	}
	if !first.Coercible() {
		return errtype.TypeMismatch("coercible path/alias", value.TypeOf(first))
	}
	path := first.AsArg()
	alias := ""
	if second, ok := ev.Peek(0); ok && second.Coercible() && second.Tag != value.TagBlock && second.Tag != value.TagMarker {
		ev.Pop(".import")
		alias = path
		path = second.AsArg()
	}
	home, _ := os.UserHomeDir()
	canonical, err := module.Resolve(path, ev.Cwd(), home)
	if err != nil {
		return errtype.Io(err)
	}
	if ev.Modules.AlreadyLoaded(canonical) {
		return nil
	}
	ev.Modules.MarkLoaded(canonical)

	src, err := module.ReadSource(canonical)
	if err != nil {
		return errtype.Io(err)
	}
	ns := module.Namespace(canonical, alias)

	before, beforeDefs := snapshotNames(ev.definitions)
	exprs, err := parseSource(src)
	if err != nil {
		return errtype.Exec(err.Error())
	}
	if err := ev.Run(exprs); err != nil {
		return err
	}
	after, _ := snapshotNames(ev.definitions)

	plan := module.ComputeRenamePlan(ns, before, after)
	for _, name := range plan.Drop {
		delete(ev.definitions, name)
	}
	for name, renamed := range plan.Rename {
		ev.definitions[renamed] = ev.definitions[name]
		if prior, had := beforeDefs[name]; had {
			ev.definitions[name] = prior
		} else {
			delete(ev.definitions, name)
		}
	}
	return nil
}

// snapshotNames captures both the name set (for module.ComputeRenamePlan)
// and a value copy of every pre-existing definition, so a name that gets
// moved to its namespaced key during import can have its prior definition
// (if any) restored afterward instead of just deleted.
func snapshotNames(m map[string]value.Value) (map[string]bool, map[string]value.Value) {
	names := make(map[string]bool, len(m))
	defs := make(map[string]value.Value, len(m))
	for k, v := range m {
		names[k] = true
		defs[k] = v
	}
	return names, defs
}

// parseSource parses every line of a module's source into one flat
// expression sequence.
func parseSource(src string) ([]parser.Expr, error) {
	var out []parser.Expr
	for _, line := range splitLines(src) {
		exprs, err := parser.Parse(line)
		if err != nil {
			return nil, err
		}
		out = append(out, exprs...)
	}
	return out, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
