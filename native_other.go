//go:build !((linux || darwin) && amd64)

package main

import (
	"fmt"

	"github.com/xyproto/jitcalc/internal/engine"
)

// NativeBackend is unavailable on this platform
type NativeBackend struct{}

// NewNativeBackend always fails here; NewBackend("auto") falls back to the VM
func NewNativeBackend() (*NativeBackend, error) {
	return nil, fmt.Errorf("native code generation is not supported on %s", engine.HostPlatform().FullString())
}

func (*NativeBackend) Name() string { return BackendNative }

func (*NativeBackend) NewEngine(*Module) (Engine, error) {
	return nil, fmt.Errorf("native code generation is not supported on %s", engine.HostPlatform().FullString())
}
