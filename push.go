package main

import (
	"fmt"
	"os"

	"github.com/xyproto/jitcalc/internal/engine"
)

// PUSH/POP keep live intermediate results on the machine stack

// PushReg pushes a register value onto the stack
func (o *Out) PushReg(reg string) {
	switch o.arch {
	case engine.ArchX86_64:
		o.pushPopX86("push", 0x50, reg)
	default:
		o.unsupported("push")
	}
}

// PopReg pops a value from the stack into a register
func (o *Out) PopReg(reg string) {
	switch o.arch {
	case engine.ArchX86_64:
		o.pushPopX86("pop", 0x58, reg)
	default:
		o.unsupported("pop")
	}
}

// PUSH is 0x50+reg and POP is 0x58+reg; R8-R15 need REX.B
func (o *Out) pushPopX86(mnemonic string, base uint8, reg string) {
	regInfo, ok := o.reg(reg)
	if !ok {
		return
	}

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "%s %s:", mnemonic, reg)
	}

	if regInfo.Encoding >= 8 {
		o.Write(0x41) // REX.B
	}
	o.Write(base + (regInfo.Encoding & 7))

	if VerboseMode {
		fmt.Fprintln(os.Stderr)
	}
}
