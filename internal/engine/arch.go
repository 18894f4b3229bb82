// Package engine describes the host platforms the calculator can generate native code for.
package engine

import (
	"fmt"
	"runtime"
	"strings"
)

// Arch is a CPU architecture
type Arch int

const (
	ArchUnknown Arch = iota
	ArchX86_64
	ArchARM64
	ArchRiscv64
)

func (a Arch) String() string {
	switch a {
	case ArchX86_64:
		return "x86_64"
	case ArchARM64:
		return "aarch64"
	case ArchRiscv64:
		return "riscv64"
	default:
		return "unknown"
	}
}

// ParseArch parses an architecture string (like GOARCH values)
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(s) {
	case "x86_64", "amd64", "x86-64":
		return ArchX86_64, nil
	case "aarch64", "arm64":
		return ArchARM64, nil
	case "riscv64", "riscv", "rv64":
		return ArchRiscv64, nil
	default:
		return ArchUnknown, fmt.Errorf("unsupported architecture: %s", s)
	}
}

// OS is an operating system
type OS int

const (
	OSUnknown OS = iota
	OSLinux
	OSDarwin
	OSFreeBSD
	OSWindows
)

func (o OS) String() string {
	switch o {
	case OSLinux:
		return "linux"
	case OSDarwin:
		return "darwin"
	case OSFreeBSD:
		return "freebsd"
	case OSWindows:
		return "windows"
	default:
		return "unknown"
	}
}

// ParseOS parses an OS string (like GOOS values)
func ParseOS(s string) (OS, error) {
	switch strings.ToLower(s) {
	case "linux":
		return OSLinux, nil
	case "darwin", "macos":
		return OSDarwin, nil
	case "freebsd":
		return OSFreeBSD, nil
	case "windows", "win":
		return OSWindows, nil
	default:
		return OSUnknown, fmt.Errorf("unsupported OS: %s", s)
	}
}

// Platform is an architecture and OS pair
type Platform struct {
	Arch Arch
	OS   OS
}

// HostPlatform returns the platform this process runs on.
// Unknown GOARCH/GOOS values map to ArchUnknown/OSUnknown.
func HostPlatform() Platform {
	arch, _ := ParseArch(runtime.GOARCH)
	goos, _ := ParseOS(runtime.GOOS)
	return Platform{Arch: arch, OS: goos}
}

// SupportsNativeJIT reports whether machine code can be generated, mapped
// and called on this platform.
func (p Platform) SupportsNativeJIT() bool {
	return p.Arch == ArchX86_64 && (p.OS == OSLinux || p.OS == OSDarwin)
}

func (p Platform) String() string {
	return fmt.Sprintf("%s-%s", p.Arch, p.OS)
}

// FullString returns a detailed platform string
func (p Platform) FullString() string {
	return fmt.Sprintf("%s on %s", p.Arch, p.OS)
}
