package main

import (
	"fmt"
	"os"

	"github.com/xyproto/jitcalc/internal/engine"
)

// XorRegWithReg generates XOR dst, src. XOR reg, reg is the usual way to zero a register.
func (o *Out) XorRegWithReg(dst, src string) {
	switch o.arch {
	case engine.ArchX86_64:
		o.xorX86RegWithReg(dst, src)
	default:
		o.unsupported("xor")
	}
}

func (o *Out) xorX86RegWithReg(dst, src string) {
	dstReg, dstOk := o.reg(dst)
	srcReg, srcOk := o.reg(src)
	if !dstOk || !srcOk {
		return
	}

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "xor %s, %s:", dst, src)
	}

	// XOR r/m64, r64 (0x31)
	o.rmX86(0x31, dstReg, srcReg)

	if VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}
