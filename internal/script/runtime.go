package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/ttycore/internal/logging"
	"github.com/dshills/ttycore/internal/terminal"
	"github.com/dshills/ttycore/internal/tty"
)

// DefaultTimeout bounds a single script run.
const DefaultTimeout = 5 * time.Second

// Host is the system a script drives.
type Host interface {
	Terminals() *terminal.Registry
	TTYs() *tty.Manager
}

// Runtime is a Lua interpreter bound to a Host. Runs are serialized; the
// underlying LState is never used from two goroutines at once.
type Runtime struct {
	mu      sync.Mutex
	L       *lua.LState
	host    Host
	out     io.Writer
	logger  *logrus.Entry
	timeout time.Duration
	sandbox bool
	closed  bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithOutput sets where print writes. The default discards output.
func WithOutput(w io.Writer) Option {
	return func(r *Runtime) {
		if w != nil {
			r.out = w
		}
	}
}

// WithTimeout bounds each run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runtime) {
		if d >= 0 {
			r.timeout = d
		}
	}
}

// WithSandbox restricts scripts to the safe standard libraries.
func WithSandbox(enabled bool) Option {
	return func(r *Runtime) { r.sandbox = enabled }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a runtime for host.
func New(host Host, opts ...Option) *Runtime {
	r := &Runtime{
		host:    host,
		out:     io.Discard,
		logger:  logging.Discard(),
		timeout: DefaultTimeout,
		sandbox: true,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.sandbox {
		r.L = lua.NewState(lua.Options{SkipOpenLibs: true})
		openSafeLibraries(r.L)
		for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
			r.L.SetGlobal(name, lua.LNil)
		}
	} else {
		r.L = lua.NewState()
	}
	r.L.SetGlobal("print", r.L.NewFunction(r.print))
	r.register()
	return r
}

func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// DoString runs a chunk of Lua source.
func (r *Runtime) DoString(ctx context.Context, code string) error {
	return r.run(ctx, "chunk", func() error { return r.L.DoString(code) })
}

// DoFile runs a Lua file.
func (r *Runtime) DoFile(ctx context.Context, path string) error {
	return r.run(ctx, path, func() error { return r.L.DoFile(path) })
}

// Call calls a global Lua function with string arguments and returns its
// results converted to strings.
func (r *Runtime) Call(ctx context.Context, fn string, args ...string) ([]string, error) {
	var out []string
	err := r.run(ctx, fn, func() error {
		f := r.L.GetGlobal(fn)
		if f.Type() != lua.LTFunction {
			return fmt.Errorf("%q is not a function (got %s)", fn, f.Type())
		}
		top := r.L.GetTop()
		r.L.Push(f)
		for _, a := range args {
			r.L.Push(lua.LString(a))
		}
		if err := r.L.PCall(len(args), lua.MultRet, nil); err != nil {
			return err
		}
		n := r.L.GetTop() - top
		for i := 1; i <= n; i++ {
			out = append(out, lua.LVAsString(r.L.Get(top+i)))
		}
		r.L.Pop(n)
		return nil
	})
	return out, err
}

// Close releases the interpreter.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.L.Close()
}

func (r *Runtime) run(ctx context.Context, name string, fn func() error) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	r.L.SetContext(ctx)
	defer r.L.RemoveContext()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("lua panic: %v", p)
		}
	}()

	start := time.Now()
	err = fn()
	log := r.logger.WithFields(logrus.Fields{"script": name, "elapsed": time.Since(start)})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%s: %w", name, ErrTimeout)
		}
		log.WithError(err).Warn("script failed")
		return err
	}
	log.Debug("script finished")
	return nil
}

func (r *Runtime) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, n)
	for i := 1; i <= n; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	line := strings.Join(parts, "\t")
	r.logger.WithField("output", line).Debug("script print")
	fmt.Fprintln(r.out, line)
	return 0
}
