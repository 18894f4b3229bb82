package main

import (
	"fmt"
	"os"

	"github.com/xyproto/jitcalc/internal/engine"
)

// TestRegWithReg generates TEST a, b (sets ZF when a & b == 0)
func (o *Out) TestRegWithReg(a, b string) {
	switch o.arch {
	case engine.ArchX86_64:
		o.testX86RegWithReg(a, b)
	default:
		o.unsupported("test")
	}
}

func (o *Out) testX86RegWithReg(a, b string) {
	aReg, aOk := o.reg(a)
	bReg, bOk := o.reg(b)
	if !aOk || !bOk {
		return
	}

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "test %s, %s:", a, b)
	}

	// TEST r/m64, r64 (0x85)
	o.rmX86(0x85, aReg, bReg)

	if VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// Cmove - Conditional Move if Equal (ZF=1)
// cmove dst, src
func (o *Out) Cmove(dst, src string) {
	switch o.arch {
	case engine.ArchX86_64:
		o.cmoveX86(dst, src)
	default:
		o.unsupported("cmove")
	}
}

func (o *Out) cmoveX86(dst, src string) {
	dstReg, dstOk := o.reg(dst)
	srcReg, srcOk := o.reg(src)
	if !dstOk || !srcOk {
		return
	}

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "cmove %s, %s:", dst, src)
	}

	// REX prefix for 64-bit operation
	rex := uint8(0x48)
	if (dstReg.Encoding & 8) != 0 {
		rex |= 0x04 // REX.R
	}
	if (srcReg.Encoding & 8) != 0 {
		rex |= 0x01 // REX.B
	}
	o.Write(rex)

	// 0F 44 - CMOVE opcode
	o.Write(0x0F)
	o.Write(0x44)

	// ModR/M: 11 (register direct) | reg (dst) | r/m (src)
	o.Write(0xC0 | ((dstReg.Encoding & 7) << 3) | (srcReg.Encoding & 7))

	if VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}
