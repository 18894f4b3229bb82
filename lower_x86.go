package main

import (
	"fmt"
	"os"

	"github.com/xyproto/jitcalc/internal/engine"
)

// lower_x86.go - IR to x86-64 machine code
//
// The verifier guarantees operands are consumed in LIFO order, so live results
// sit on the machine stack. The most recent result stays in rax and is only
// pushed when an instruction does not consume it. Instructions load the right
// operand into rcx and the left operand into rax, leaving the result in rax.
//
// Generated code follows the System V AMD64 convention for a nullary function
// returning an integer: result in rax, only caller-saved registers (rax, rcx,
// rdx, rsi) clobbered, stack balanced on return. rsi is callee-saved on Win64,
// so the code is not valid there.

// LowerToX86 lowers a verified function to position-independent x86-64 code
func LowerToX86(fn *Function) ([]byte, error) {
	bb := fn.EntryBlock()
	if bb == nil {
		return nil, fmt.Errorf("function @%s has no body", fn.Name)
	}

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "lowering @%s to x86_64:\n", fn.Name)
	}

	o := NewOut(engine.ArchX86_64)
	stack := NewStackValidator()
	var pending *Value // result currently held in rax and not yet pushed

	for _, inst := range bb.Instructions {
		switch inst.Op {
		case OpRet:
			v := inst.Operands[0]
			switch {
			case v.IsConst():
				if pending != nil {
					return nil, fmt.Errorf("%%%s is still live at ret", pending.Name())
				}
				o.MovImmToReg("rax", v.SExtValue())
			case v != pending:
				o.PopReg("rax")
				stack.Pop("rax")
			}
			pending = nil
			stack.Validate(0, "ret")
			o.Ret()

		case OpAdd, OpSub, OpMul, OpUDiv:
			lhs, rhs := inst.Operands[0], inst.Operands[1]
			consumesPending := pending != nil && (rhs == pending || (rhs.IsConst() && lhs == pending))
			if pending != nil && !consumesPending {
				o.PushReg("rax")
				stack.Push("rax")
				pending = nil
			}

			// Right operand into rcx, without disturbing a left operand already in rax
			switch {
			case rhs.IsConst():
				o.MovImmToReg("rcx", rhs.SExtValue())
			case rhs == pending:
				o.MovRegToReg("rcx", "rax")
			default:
				o.PopReg("rcx")
				stack.Pop("rcx")
			}

			// Left operand into rax
			switch {
			case lhs.IsConst():
				o.MovImmToReg("rax", lhs.SExtValue())
			case lhs == pending:
				// already there
			default:
				o.PopReg("rax")
				stack.Pop("rax")
			}

			switch inst.Op {
			case OpAdd:
				o.AddRegToReg("rax", "rcx")
			case OpSub:
				o.SubRegFromReg("rax", "rcx")
			case OpMul:
				o.ImulRegWithReg("rax", "rcx")
			case OpUDiv:
				emitUDivX86(o)
			}
			pending = inst.Result

		default:
			return nil, fmt.Errorf("cannot lower %s to x86_64", inst.Op)
		}
	}

	if err := o.Err(); err != nil {
		return nil, err
	}
	if err := stack.Err(); err != nil {
		return nil, fmt.Errorf("@%s: %w", fn.Name, err)
	}
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "@%s: %d bytes, %d stack slot(s)\n", fn.Name, len(o.Bytes()), stack.MaxDepth())
	}
	return o.Bytes(), nil
}

// emitUDivX86 computes rax = rax / rcx, unsigned.
// A zero divisor would fault, so it is replaced by 1 and the dividend by 0
// without branching: x / 0 evaluates to 0, as AArch64 UDIV defines it.
func emitUDivX86(o *Out) {
	o.XorRegWithReg("rdx", "rdx")
	o.MovImmToReg("rsi", 1)
	o.TestRegWithReg("rcx", "rcx")
	o.Cmove("rax", "rdx")
	o.Cmove("rcx", "rsi")
	o.DivReg("rcx")
}
