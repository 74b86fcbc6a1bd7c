package script

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/keymacro/internal/app"
)

// DefaultTimeout bounds a single DoFile or DoString call.
const DefaultTimeout = 30 * time.Second

// Runner executes Lua scripts against a Simulator.
//
// gopher-lua's LState is not goroutine-safe; the mutex serializes calls
// made from Go.
type Runner struct {
	mu sync.Mutex

	L       *lua.LState
	sim     *app.Simulator
	log     *app.Logger
	timeout time.Duration
	closed  bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used by keymacro.log.
func WithLogger(l *app.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithTimeout sets the per-call execution timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// NewRunner creates a sandboxed Lua state bound to sim.
func NewRunner(sim *app.Simulator, opts ...Option) *Runner {
	r := &Runner{
		sim:     sim,
		log:     app.NullLogger,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	L.PreloadModule(ModuleName, r.loader)
	restrictRequire(L)

	// Also expose the module as a global.
	L.Push(L.NewFunction(r.loader))
	L.Call(0, 1)
	L.SetGlobal(ModuleName, L.Get(-1))
	L.Pop(1)

	r.L = L
	return r
}

// openSafeLibraries opens only side-effect free libraries.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// restrictRequire limits require to preloaded and built-in modules and
// disables loading from disk.
func restrictRequire(L *lua.LState) {
	pkg, ok := L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return
	}
	L.SetField(pkg, "path", lua.LString(""))
	L.SetField(pkg, "cpath", lua.LString(""))

	allowed := map[string]bool{
		ModuleName: true,
		"string":   true,
		"table":    true,
		"math":     true,
	}
	original := L.GetGlobal("require")
	L.SetGlobal("require", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if !allowed[name] {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		L.Push(original)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		return 1
	}))
}

// DoFile executes the Lua file at path.
func (r *Runner) DoFile(ctx context.Context, path string) error {
	return r.do(ctx, func() error { return r.L.DoFile(path) })
}

// DoString executes a chunk of Lua code.
func (r *Runner) DoString(ctx context.Context, code string) error {
	return r.do(ctx, func() error { return r.L.DoString(code) })
}

func (r *Runner) do(ctx context.Context, fn func() error) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRunnerClosed
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	r.L.SetContext(ctx)
	defer r.L.RemoveContext()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("lua panic: %v", rec)
		}
	}()

	if err := fn(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Close releases the Lua state.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.L.Close()
	return nil
}
