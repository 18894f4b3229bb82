package main

import (
	"fmt"
	"os"

	"github.com/xyproto/jitcalc/internal/engine"
)

// AddRegToReg generates ADD dst, src (dst = dst + src)
func (o *Out) AddRegToReg(dst, src string) {
	switch o.arch {
	case engine.ArchX86_64:
		o.addX86RegToReg(dst, src)
	default:
		o.unsupported("add")
	}
}

// x86-64 ADD reg, reg
func (o *Out) addX86RegToReg(dst, src string) {
	dstReg, dstOk := o.reg(dst)
	srcReg, srcOk := o.reg(src)
	if !dstOk || !srcOk {
		return
	}

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "add %s, %s:", dst, src)
	}

	// ADD r/m64, r64 (0x01)
	o.rmX86(0x01, dstReg, srcReg)

	if VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}
