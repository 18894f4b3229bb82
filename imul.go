package main

import (
	"fmt"
	"os"

	"github.com/xyproto/jitcalc/internal/engine"
)

// ImulRegWithReg generates IMUL dst, src (dst = dst * src).
// The low 64 bits of the product are the same for signed and unsigned multiplication.
func (o *Out) ImulRegWithReg(dst, src string) {
	switch o.arch {
	case engine.ArchX86_64:
		o.imulX86RegWithReg(dst, src)
	default:
		o.unsupported("imul")
	}
}

func (o *Out) imulX86RegWithReg(dst, src string) {
	dstReg, dstOk := o.reg(dst)
	srcReg, srcOk := o.reg(src)
	if !dstOk || !srcOk {
		return
	}

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "imul %s, %s:", dst, src)
	}

	// IMUL r64, r/m64 (0F AF /r): reg is the destination here
	rex := uint8(0x48)
	if (dstReg.Encoding & 8) != 0 {
		rex |= 0x04 // REX.R
	}
	if (srcReg.Encoding & 8) != 0 {
		rex |= 0x01 // REX.B
	}
	o.Write(rex)
	o.Write(0x0F)
	o.Write(0xAF)
	o.Write(0xC0 | ((dstReg.Encoding & 7) << 3) | (srcReg.Encoding & 7))

	if VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}
