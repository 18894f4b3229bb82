//go:build linux || darwin || freebsd

package main

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// CodePage is an anonymous memory mapping holding machine code.
// It is writable while code is copied in and executable afterwards, never both.
type CodePage struct {
	mem  []byte
	size int
}

// AllocateCodePage maps enough whole pages to hold size bytes
func AllocateCodePage(size int) (*CodePage, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid code size %d", size)
	}
	pageSize := unix.Getpagesize()
	allocSize := ((size + pageSize - 1) / pageSize) * pageSize

	mem, err := unix.Mmap(-1, 0, allocSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap failed: %w", err)
	}
	return &CodePage{mem: mem, size: allocSize}, nil
}

// LoadCode copies code into the page and flips it to read+execute
func (page *CodePage) LoadCode(code []byte) error {
	if page.mem == nil {
		return fmt.Errorf("code page is released")
	}
	if len(code) > page.size {
		return fmt.Errorf("code size %d exceeds page size %d", len(code), page.size)
	}
	copy(page.mem, code)
	if err := unix.Mprotect(page.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("mprotect failed: %w", err)
	}
	return nil
}

// Address returns the address of the first byte of the page
func (page *CodePage) Address() uintptr {
	if page.mem == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(&page.mem[0]))
}

// Free unmaps the page. Freeing twice is a no-op.
func (page *CodePage) Free() error {
	if page.mem == nil {
		return nil
	}
	err := unix.Munmap(page.mem)
	page.mem = nil
	if err != nil {
		return fmt.Errorf("munmap failed: %w", err)
	}
	return nil
}
