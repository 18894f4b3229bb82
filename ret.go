package main

import (
	"fmt"
	"os"

	"github.com/xyproto/jitcalc/internal/engine"
)

// Ret generates a return instruction
func (o *Out) Ret() {
	switch o.arch {
	case engine.ArchX86_64:
		o.retX86()
	default:
		o.unsupported("ret")
	}
}

// x86-64 RET (near return)
func (o *Out) retX86() {
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "ret:")
	}

	o.Write(0xC3)

	if VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}
