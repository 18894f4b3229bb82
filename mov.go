package main

import (
	"fmt"
	"math"
	"os"

	"github.com/xyproto/jitcalc/internal/engine"
)

// Out emits instructions for one architecture into a code buffer.
// Invalid operands do not panic; the first problem is kept and reported by Err.
type Out struct {
	arch   engine.Arch
	writer *BufferWrapper
	err    error
}

// NewOut creates an emitter for arch
func NewOut(arch engine.Arch) *Out {
	return &Out{arch: arch, writer: NewBufferWrapper()}
}

func (o *Out) Write(b uint8) {
	o.writer.Write(b)
}

// Bytes returns the code emitted so far
func (o *Out) Bytes() []byte {
	return o.writer.Bytes()
}

// Err returns the first emission error
func (o *Out) Err() error {
	return o.err
}

func (o *Out) fail(format string, args ...any) {
	if o.err == nil {
		o.err = fmt.Errorf(format, args...)
	}
}

func (o *Out) unsupported(mnemonic string) {
	o.fail("%s is not implemented for %s", mnemonic, o.arch)
}

// reg resolves a register name, recording an error when it is unknown
func (o *Out) reg(name string) (Register, bool) {
	r, ok := GetRegister(o.arch, name)
	if !ok {
		o.fail("unknown %s register %q", o.arch, name)
	}
	return r, ok
}

// MovRegToReg generates MOV dst, src
func (o *Out) MovRegToReg(dst, src string) {
	switch o.arch {
	case engine.ArchX86_64:
		o.movX86RegToReg(dst, src)
	default:
		o.unsupported("mov")
	}
}

// MovImmToReg loads a 64-bit immediate into dst
func (o *Out) MovImmToReg(dst string, imm int64) {
	switch o.arch {
	case engine.ArchX86_64:
		o.movX86ImmToReg(dst, imm)
	default:
		o.unsupported("mov")
	}
}

// x86-64 MOV reg, reg
func (o *Out) movX86RegToReg(dst, src string) {
	dstReg, dstOk := o.reg(dst)
	srcReg, srcOk := o.reg(src)
	if !dstOk || !srcOk {
		return
	}

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "mov %s, %s:", dst, src)
	}

	// MOV r/m64, r64 (0x89)
	o.rmX86(0x89, dstReg, srcReg)

	if VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// x86-64 MOV reg, imm
func (o *Out) movX86ImmToReg(dst string, imm int64) {
	dstReg, ok := o.reg(dst)
	if !ok {
		return
	}

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "mov %s, %d:", dst, imm)
	}

	rex := uint8(0x48)
	if (dstReg.Encoding & 8) != 0 {
		rex |= 0x01 // REX.B
	}
	o.Write(rex)

	if imm >= math.MinInt32 && imm <= math.MaxInt32 {
		// MOV r/m64, imm32 (sign-extended): C7 /0
		o.Write(0xC7)
		o.Write(0xC0 | (dstReg.Encoding & 7))
		o.writer.Write4u(uint32(int32(imm)))
	} else {
		// MOVABS r64, imm64: B8+r
		o.Write(0xB8 + (dstReg.Encoding & 7))
		o.writer.Write8u(uint64(imm))
	}

	if VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}

// rmX86 writes REX.W, opcode and a register-direct ModR/M byte for
// "op r/m64, r64" forms, where dst is the r/m operand and src the reg operand
func (o *Out) rmX86(opcode uint8, dst, src Register) {
	rex := uint8(0x48)
	if (dst.Encoding & 8) != 0 {
		rex |= 0x01 // REX.B
	}
	if (src.Encoding & 8) != 0 {
		rex |= 0x04 // REX.R
	}
	o.Write(rex)
	o.Write(opcode)
	// ModR/M: 11 (register direct) | reg (src) | r/m (dst)
	o.Write(0xC0 | ((src.Encoding & 7) << 3) | (dst.Encoding & 7))
}
