package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/xyproto/jitcalc/internal/engine"
)

// JITFunc is the calling convention of every compiled line: no arguments, one i64 result
type JITFunc func() int64

// Backend turns verified IR into something that can be called
type Backend interface {
	Name() string
	// NewEngine creates an execution engine for one module.
	// Functions are compiled lazily by Engine.GetFunction.
	NewEngine(m *Module) (Engine, error)
}

// Engine compiles the functions of one module and owns the resulting code
type Engine interface {
	// GetFunction compiles the named function and resolves its entry point
	GetFunction(name string) (JITFunc, error)
	// Close releases everything GetFunction produced. Calling a JITFunc after Close is invalid.
	Close() error
}

// Backend names accepted by NewBackend
const (
	BackendAuto   = "auto"
	BackendNative = "native"
	BackendVM     = "vm"
)

// NewBackend returns the backend with the given name.
// "auto" picks native code on platforms that support it and the bytecode VM elsewhere.
func NewBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendAuto:
		platform := engine.HostPlatform()
		if platform.SupportsNativeJIT() {
			b, err := NewNativeBackend()
			if err == nil {
				return b, nil
			}
			if VerboseMode {
				fmt.Fprintf(os.Stderr, "native backend unavailable on %s: %v\n", platform, err)
			}
		}
		return NewVMBackend(), nil
	case BackendNative:
		b, err := NewNativeBackend()
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendVM:
		return NewVMBackend(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (supported: %s, %s, %s)", name, BackendAuto, BackendNative, BackendVM)
	}
}

// lookupFunction finds a function that is ready to be lowered
func lookupFunction(m *Module, name string) (*Function, error) {
	fn := m.NamedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("function %q not found in module %q", name, m.Name)
	}
	if err := fn.Verify(); err != nil {
		return nil, fmt.Errorf("function %q: %w", name, err)
	}
	return fn, nil
}
