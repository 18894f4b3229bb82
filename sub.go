package main

import (
	"fmt"
	"os"

	"github.com/xyproto/jitcalc/internal/engine"
)

// SubRegFromReg generates SUB dst, src (dst = dst - src)
func (o *Out) SubRegFromReg(dst, src string) {
	switch o.arch {
	case engine.ArchX86_64:
		o.subX86RegFromReg(dst, src)
	default:
		o.unsupported("sub")
	}
}

// x86-64 SUB reg, reg
func (o *Out) subX86RegFromReg(dst, src string) {
	dstReg, dstOk := o.reg(dst)
	srcReg, srcOk := o.reg(src)
	if !dstOk || !srcOk {
		return
	}

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "sub %s, %s:", dst, src)
	}

	// SUB r/m64, r64 (0x29)
	o.rmX86(0x29, dstReg, srcReg)

	if VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}
