// ABI host-function registrations (spec §4.11 "ABI"): the "env" module
// wazero exposes to every guest. Grounded on imports.rs's PluginEnv shape,
// translated from wasmer-style raw pointers to wazero's api.Module memory
// accessors.
package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/hsab-shell/hsab/pkg/value"
)

// pluginEnv is the host-side state one plugin instance's imports close
// over: a mirror of the evaluator stack (mutex-guarded, since hot reload
// and concurrent calls can race), the plugin's own merged config, its
// working directory, and where prints land.
type pluginEnv struct {
	mu     sync.Mutex
	stack  []value.Value
	cwd    string
	config map[string]interface{}
	stdout *os.File
	stderr *os.File

	lastPrint string // last hsab_print payload, for tests
}

func newPluginEnv(config map[string]interface{}) *pluginEnv {
	cwd, _ := os.Getwd()
	return &pluginEnv{cwd: cwd, config: config, stdout: os.Stdout, stderr: os.Stderr}
}

func (e *pluginEnv) push(v value.Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stack = append(e.stack, v)
}

func (e *pluginEnv) pop() (value.Value, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.stack) == 0 {
		return value.Value{}, false
	}
	n := len(e.stack) - 1
	v := e.stack[n]
	e.stack = e.stack[:n]
	return v, true
}

func (e *pluginEnv) peek(index int) (value.Value, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := len(e.stack) - 1 - index
	if i < 0 || i >= len(e.stack) {
		return value.Value{}, false
	}
	return e.stack[i], true
}

func (e *pluginEnv) len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.stack)
}

// readGuestString reads a length-prefixed byte range out of guest linear
// memory, capped at maxLen.
func readGuestString(mod api.Module, ptr, length uint32, maxLen uint32) (string, bool) {
	if length > maxLen {
		length = maxLen
	}
	b, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return "", false
	}
	return string(b), true
}

// writeGuestString writes s into guest memory at ptr, truncated to the
// guest-provided max_len, and returns the number of bytes written.
func writeGuestString(mod api.Module, ptr uint32, maxLen uint32, s string) uint32 {
	b := []byte(s)
	if uint32(len(b)) > maxLen {
		b = b[:maxLen]
	}
	if !mod.Memory().Write(ptr, b) {
		return 0
	}
	return uint32(len(b))
}

// registerHostModule builds the "env" host module exposing the ABI table
// for a single plugin's env. One host module instance is built per plugin
// since each closes over its own pluginEnv.
func registerHostModule(ctx context.Context, rt wazero.Runtime, env *pluginEnv) error {
	builder := rt.NewHostModuleBuilder("env")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ptr, length uint32) {
		s, ok := readGuestString(mod, ptr, length, maxStringLen)
		if !ok {
			return
		}
		env.push(value.Literal(s))
	}).Export("hsab_stack_push_string")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, n float64) {
		env.push(value.Number(n))
	}).Export("hsab_stack_push_number")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, b int32) {
		env.push(value.Bool(b != 0))
	}).Export("hsab_stack_push_bool")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context) {
		env.push(value.Nil())
	}).Export("hsab_stack_push_null")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ptr, length uint32) {
		s, ok := readGuestString(mod, ptr, length, maxJSONLen)
		if !ok {
			return
		}
		v, err := jsonToValue(s)
		if err != nil {
			return
		}
		env.push(v)
	}).Export("hsab_stack_push_json")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, outPtr, maxLen uint32) uint32 {
		v, ok := env.pop()
		if !ok {
			return 0
		}
		return writeGuestString(mod, outPtr, maxLen, v.AsArg())
	}).Export("hsab_stack_pop_string")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context) float64 {
		v, ok := env.pop()
		if !ok {
			return 0
		}
		return v.Num()
	}).Export("hsab_stack_pop_number")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context) int32 {
		v, ok := env.pop()
		if !ok {
			return 0
		}
		if v.Truthy() {
			return 1
		}
		return 0
	}).Export("hsab_stack_pop_bool")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, outPtr, maxLen uint32) uint32 {
		v, ok := env.pop()
		if !ok {
			return 0
		}
		s, err := valueToJSON(v)
		if err != nil {
			return 0
		}
		return writeGuestString(mod, outPtr, maxLen, s)
	}).Export("hsab_stack_pop_json")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context) int32 {
		return int32(env.len())
	}).Export("hsab_stack_len")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, index int32, outPtr, maxLen uint32) uint32 {
		v, ok := env.peek(int(index))
		if !ok {
			return 0
		}
		s, err := valueToJSON(v)
		if err != nil {
			return 0
		}
		return writeGuestString(mod, outPtr, maxLen, s)
	}).Export("hsab_stack_peek_json")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, namePtr, nameLen, outPtr, maxLen uint32) uint32 {
		name, ok := readGuestString(mod, namePtr, nameLen, maxStringLen)
		if !ok {
			return 0
		}
		val, ok := os.LookupEnv(name)
		if !ok {
			return 0
		}
		return writeGuestString(mod, outPtr, maxLen, val)
	}).Export("hsab_env_get")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, namePtr, nameLen, valPtr, valLen uint32) int32 {
		name, ok := readGuestString(mod, namePtr, nameLen, maxStringLen)
		if !ok {
			return 0
		}
		val, ok := readGuestString(mod, valPtr, valLen, maxStringLen)
		if !ok {
			return 0
		}
		if err := os.Setenv(name, val); err != nil {
			return 0
		}
		return 1
	}).Export("hsab_env_set")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, outPtr, maxLen uint32) uint32 {
		return writeGuestString(mod, outPtr, maxLen, env.cwd)
	}).Export("hsab_cwd")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ptr, length uint32) int32 {
		dir, ok := readGuestString(mod, ptr, length, maxStringLen)
		if !ok {
			return 0
		}
		if _, err := os.Stat(dir); err != nil {
			return 0
		}
		env.cwd = dir
		return 1
	}).Export("hsab_chdir")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ptr, length uint32) {
		s, ok := readGuestString(mod, ptr, length, maxStringLen)
		if !ok {
			return
		}
		env.mu.Lock()
		env.lastPrint = s
		env.mu.Unlock()
		fmt.Fprint(env.stdout, s)
	}).Export("hsab_print")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ptr, length uint32) {
		s, ok := readGuestString(mod, ptr, length, maxStringLen)
		if !ok {
			return
		}
		fmt.Fprint(env.stderr, s)
	}).Export("hsab_eprint")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, keyPtr, keyLen, outPtr, maxLen uint32) uint32 {
		key, ok := readGuestString(mod, keyPtr, keyLen, maxStringLen)
		if !ok {
			return 0
		}
		v, ok := env.config[key]
		if !ok {
			return 0
		}
		b, err := json.Marshal(v)
		if err != nil {
			return 0
		}
		return writeGuestString(mod, outPtr, maxLen, string(b))
	}).Export("hsab_config_get")

	_, err := builder.Instantiate(ctx)
	return err
}
