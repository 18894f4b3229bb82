package main

import (
	"fmt"
	"os"

	"github.com/xyproto/jitcalc/internal/engine"
)

// DivReg generates an unsigned DIV src: rdx:rax / src, quotient in rax, remainder in rdx.
// The caller must zero rdx first; DIV faults on a zero divisor.
func (o *Out) DivReg(src string) {
	switch o.arch {
	case engine.ArchX86_64:
		o.divX86Reg(src)
	default:
		o.unsupported("div")
	}
}

// x86-64 DIV (unsigned division)
func (o *Out) divX86Reg(src string) {
	srcReg, ok := o.reg(src)
	if !ok {
		return
	}

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "div %s:", src)
	}

	// DIV r/m64 (opcode 0xF7 /6)
	rex := uint8(0x48)
	if (srcReg.Encoding & 8) != 0 {
		rex |= 0x01 // REX.B
	}
	o.Write(rex)
	o.Write(0xF7)
	o.Write(0xF0 | (srcReg.Encoding & 7))

	if VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}
