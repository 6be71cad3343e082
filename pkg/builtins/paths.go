package builtins

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/value"
)

func registerPaths(r *Registry) {
	r.strArg("path-join", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) == 0 {
			return nil, 0, errtype.StackUnderflow("path-join")
		}
		rev := make([]string, len(args))
		for i, a := range args {
			rev[len(args)-1-i] = a
		}
		return []value.Value{value.Literal(filepath.Join(rev...))}, len(args), nil
	})

	r.strArg("suffix", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 2 {
			return nil, 0, errtype.StackUnderflow("suffix")
		}
		return []value.Value{value.Literal(args[1] + args[0])}, 2, nil
	})

	r.strArg("dirname", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 1 {
			return nil, 0, errtype.StackUnderflow("dirname")
		}
		return []value.Value{value.Literal(filepath.Dir(args[0]))}, 1, nil
	})

	r.strArg("basename", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 1 {
			return nil, 0, errtype.StackUnderflow("basename")
		}
		return []value.Value{value.Literal(filepath.Base(args[0]))}, 1, nil
	})

	r.strArg("path-resolve", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 1 {
			return nil, 0, errtype.StackUnderflow("path-resolve")
		}
		p := expandTilde(args[0], h.Getenv("HOME"))
		if !filepath.IsAbs(p) {
			p = filepath.Join(h.Cwd(), p)
		}
		return []value.Value{value.Literal(filepath.Clean(p))}, 1, nil
	})

	r.strArg("realpath", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 1 {
			return nil, 0, errtype.StackUnderflow("realpath")
		}
		abs, err := filepath.Abs(expandTilde(args[0], h.Getenv("HOME")))
		if err != nil {
			return nil, 0, errtype.Io(err)
		}
		real, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return []value.Value{value.Literal(abs)}, 1, nil
		}
		return []value.Value{value.Literal(real)}, 1, nil
	})

	r.strArg("reext", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 2 {
			return nil, 0, errtype.StackUnderflow("reext")
		}
		p := args[1]
		ext := args[0]
		base := strings.TrimSuffix(p, filepath.Ext(p))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		return []value.Value{value.Literal(base + ext)}, 2, nil
	})

	r.strArg("extname", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 1 {
			return nil, 0, errtype.StackUnderflow("extname")
		}
		return []value.Value{value.Literal(filepath.Ext(args[0]))}, 1, nil
	})

	r.strArg("glob", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 1 {
			return nil, 0, errtype.StackUnderflow("glob")
		}
		matches, err := filepath.Glob(args[0])
		if err != nil {
			return nil, 0, errtype.Io(err)
		}
		items := make([]value.Value, len(matches))
		for i, m := range matches {
			items[i] = value.Literal(m)
		}
		return []value.Value{value.List(items)}, 1, nil
	})

	r.strArg("ls", func(h Host, args []string) ([]value.Value, int, error) {
		dir := "."
		consumed := 0
		if len(args) > 0 {
			dir = args[0]
			consumed = 1
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, consumed, errtype.Io(err)
		}
		items := make([]value.Value, len(entries))
		for i, e := range entries {
			items[i] = value.Literal(e.Name())
		}
		return []value.Value{value.List(items)}, consumed, nil
	})

	r.strArg("which", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 1 {
			return nil, 0, errtype.StackUnderflow("which")
		}
		path, err := exec.LookPath(args[0])
		if err != nil {
			return []value.Value{value.Nil()}, 1, nil
		}
		return []value.Value{value.Literal(path)}, 1, nil
	})
}

func expandTilde(p, home string) string {
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") && home != "" {
		return filepath.Join(home, p[2:])
	}
	return p
}
