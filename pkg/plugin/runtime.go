// Per-plugin wazero lifecycle (spec §4.11 step 4 "Load in that order"):
// compile, instantiate with WASI, run optional init/cleanup hooks, and
// dispatch calls per the "Dispatch protocol". Grounded on host.rs's
// per-plugin module/store/instance bookkeeping, translated onto wazero's
// compiled-module/instantiated-module split.
package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// scratchOffset is a fixed guest-memory offset reserved for the dispatch
// protocol's cmd/args buffers. Plugins built against the ABI must leave
// this region unused by their own allocator; it is documented as part of
// the plugin contract rather than negotiated at call time.
const scratchOffset = 1 << 20 // 1 MiB mark, past typical static data

// instance is one loaded plugin: its manifest, the wazero runtime it owns
// (one per plugin so unload can simply close it), and the instantiated
// module used for calls.
type instance struct {
	dir      string
	manifest Manifest
	env      *pluginEnv
	runtime  wazero.Runtime
	module   api.Module
}

func loadInstance(ctx context.Context, dir string, m Manifest, wasmBytes []byte) (*instance, error) {
	rt := wazero.NewRuntime(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, &Error{Kind: KindInstantiation, Message: fmt.Sprintf("wasi setup for %s: %v", m.Plugin.Name, err)}
	}

	env := newPluginEnv(m.Config)
	if err := registerHostModule(ctx, rt, env); err != nil {
		rt.Close(ctx)
		return nil, &Error{Kind: KindInstantiation, Message: fmt.Sprintf("env imports for %s: %v", m.Plugin.Name, err)}
	}

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		rt.Close(ctx)
		return nil, &Error{Kind: KindCompilation, Message: fmt.Sprintf("%s: %v", m.Plugin.Name, err)}
	}

	cfg := wazero.NewModuleConfig().WithName(m.Plugin.Name)
	if m.WASI.InheritStdout {
		cfg = cfg.WithStdout(os.Stdout)
	}
	if m.WASI.InheritStderr {
		cfg = cfg.WithStderr(os.Stderr)
	}
	if m.WASI.InheritStdin {
		cfg = cfg.WithStdin(os.Stdin)
	}
	if m.WASI.InheritArgs {
		cfg = cfg.WithArgs(m.Plugin.Name)
	}
	if m.WASI.InheritEnv {
		for _, kv := range os.Environ() {
			if k, v, ok := strings.Cut(kv, "="); ok {
				cfg = cfg.WithEnv(k, v)
			}
		}
	}

	fsConfig := wazero.NewFSConfig()
	for _, p := range m.WASI.Preopens {
		fsConfig = fsConfig.WithDirMount(p.Host, p.Guest)
	}
	cfg = cfg.WithFSConfig(fsConfig)

	mod, err := rt.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		rt.Close(ctx)
		return nil, &Error{Kind: KindInstantiation, Message: fmt.Sprintf("%s: %v", m.Plugin.Name, err)}
	}

	inst := &instance{dir: dir, manifest: m, env: env, runtime: rt, module: mod}

	if initFn := mod.ExportedFunction("hsab_plugin_init"); initFn != nil {
		if _, err := initFn.Call(ctx); err != nil {
			inst.close(ctx)
			return nil, &Error{Kind: KindInstantiation, Message: fmt.Sprintf("%s init: %v", m.Plugin.Name, err)}
		}
	}
	return inst, nil
}

func (in *instance) close(ctx context.Context) {
	if fn := in.module.ExportedFunction("hsab_plugin_cleanup"); fn != nil {
		_, _ = fn.Call(ctx)
	}
	_ = in.runtime.Close(ctx)
}

// writeScratch places b at a fixed offset inside the guest's memory,
// growing it first if the guest hasn't allocated that far itself. Two
// calls (cmd then args) use back-to-back halves of the scratch region so
// neither overwrites the other within a single dispatch.
func writeScratch(mem api.Memory, half int, b []byte) (uint32, uint32, error) {
	const halfSize = 512 * 1024
	if len(b) > halfSize {
		return 0, 0, fmt.Errorf("plugin call payload of %d bytes exceeds scratch capacity", len(b))
	}
	offset := uint32(scratchOffset + half*halfSize)
	needed := offset + uint32(len(b))
	if needed > mem.Size() {
		grow := (needed - mem.Size() + 65535) / 65536
		if _, ok := mem.Grow(grow); !ok {
			return 0, 0, fmt.Errorf("failed to grow guest memory for plugin call")
		}
	}
	if !mem.Write(offset, b) {
		return 0, 0, fmt.Errorf("failed to write plugin call payload")
	}
	return offset, uint32(len(b)), nil
}

// call implements the dispatch protocol (spec §4.11 steps c-f): encode the
// greedily-collected args as a JSON array, invoke the exported handler
// with (cmd_ptr, cmd_len, args_ptr, args_len), and return its i32 result
// as the command's exit code. The plugin stack (env.stack) was already
// mirrored in by the caller before this runs, and is read back by the
// caller afterward.
func (in *instance) call(ctx context.Context, handlerName, cmd string, args []string) (int32, error) {
	fn := in.module.ExportedFunction(handlerName)
	if fn == nil {
		return 0, &Error{Kind: KindCommandNotFound, Message: fmt.Sprintf("export %q not found in %s", handlerName, in.manifest.Plugin.Name)}
	}

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return 0, &Error{Kind: KindCallFailed, Message: err.Error()}
	}

	mem := in.module.Memory()
	cmdPtr, cmdLen, err := writeScratch(mem, 0, []byte(cmd))
	if err != nil {
		return 0, &Error{Kind: KindCallFailed, Message: err.Error()}
	}
	argsPtr, argsLen, err := writeScratch(mem, 1, argsJSON)
	if err != nil {
		return 0, &Error{Kind: KindCallFailed, Message: err.Error()}
	}

	results, err := fn.Call(ctx, uint64(cmdPtr), uint64(cmdLen), uint64(argsPtr), uint64(argsLen))
	if err != nil {
		return 0, &Error{Kind: KindCallFailed, Message: fmt.Sprintf("%s: %v", cmd, err)}
	}
	var code int32
	if len(results) > 0 {
		code = int32(results[0])
	}
	return code, nil
}
