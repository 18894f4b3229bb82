//go:build (linux || darwin) && amd64

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ebitengine/purego"
	"github.com/xyproto/jitcalc/internal/engine"
)

// NativeBackend JIT-compiles functions to x86-64 machine code and calls them directly
type NativeBackend struct{}

// NewNativeBackend returns the native backend if the host can run it
func NewNativeBackend() (*NativeBackend, error) {
	if p := engine.HostPlatform(); !p.SupportsNativeJIT() {
		return nil, fmt.Errorf("native code generation is not supported on %s", p.FullString())
	}
	return &NativeBackend{}, nil
}

func (*NativeBackend) Name() string { return BackendNative }

func (*NativeBackend) NewEngine(m *Module) (Engine, error) {
	if m == nil {
		return nil, errors.New("native: nil module")
	}
	return &nativeEngine{
		module: m,
		pages:  make(map[string]*CodePage),
		funcs:  make(map[string]JITFunc),
	}, nil
}

type nativeEngine struct {
	module *Module
	pages  map[string]*CodePage
	funcs  map[string]JITFunc
	closed bool
}

func (e *nativeEngine) GetFunction(name string) (JITFunc, error) {
	if e.closed {
		return nil, errors.New("native: engine is closed")
	}
	if f, ok := e.funcs[name]; ok {
		return f, nil
	}

	fn, err := lookupFunction(e.module, name)
	if err != nil {
		return nil, err
	}
	code, err := LowerToX86(fn)
	if err != nil {
		return nil, err
	}

	page, err := AllocateCodePage(len(code))
	if err != nil {
		return nil, err
	}
	if err := page.LoadCode(code); err != nil {
		page.Free()
		return nil, err
	}

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "native: @%s is %d bytes at 0x%x\n", name, len(code), page.Address())
	}

	var f func() int64
	purego.RegisterFunc(&f, page.Address())

	e.pages[name] = page
	e.funcs[name] = f
	return f, nil
}

func (e *nativeEngine) Close() error {
	var errs []error
	for name, page := range e.pages {
		if err := page.Free(); err != nil {
			errs = append(errs, fmt.Errorf("@%s: %w", name, err))
		}
	}
	e.pages = nil
	e.funcs = nil
	e.closed = true
	return errors.Join(errs...)
}
