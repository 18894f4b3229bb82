package main

import (
	"fmt"
)

// Verify checks the structural rules every backend relies on:
//   - the function returns i64 and has exactly one, terminated basic block
//   - nothing follows the terminator
//   - result names are non-empty and unique
//   - every instruction result is consumed exactly once, and operands are
//     consumed in LIFO order: the right operand is the most recent live
//     result, the left operand the one below it
//
// The last rule is what lets the backends keep live values on a plain stack.
func (fn *Function) Verify() error {
	if fn.ReturnType != Int64Type() {
		return fmt.Errorf("function @%s: return type %s is not i64", fn.Name, fn.ReturnType)
	}
	if len(fn.Blocks) != 1 {
		return fmt.Errorf("function @%s: expected exactly one basic block, found %d", fn.Name, len(fn.Blocks))
	}
	bb := fn.Blocks[0]
	if bb.Parent() != fn {
		return fmt.Errorf("function @%s: block %q has a different parent", fn.Name, bb.Name)
	}
	if bb.Terminator() == nil {
		return fmt.Errorf("function @%s: block %q does not end in a terminator", fn.Name, bb.Name)
	}

	var (
		names    = make(map[string]bool)
		defined  = make(map[*Value]bool)
		consumed = make(map[*Value]bool)
		live     []*Value
	)

	consume := func(inst *Instruction, v *Value) error {
		if v.isConst {
			return nil
		}
		switch {
		case !defined[v]:
			return fmt.Errorf("%q uses %s before it is defined", inst, v)
		case consumed[v]:
			return fmt.Errorf("%q uses %s more than once", inst, v)
		case len(live) == 0 || live[len(live)-1] != v:
			return fmt.Errorf("%q consumes %s out of order", inst, v)
		}
		live = live[:len(live)-1]
		consumed[v] = true
		return nil
	}

	last := len(bb.Instructions) - 1
	for i, inst := range bb.Instructions {
		if inst.block != bb {
			return fmt.Errorf("instruction %d (%s) is not owned by block %q", i, inst.Op, bb.Name)
		}
		if inst.Op.IsTerminator() && i != last {
			return fmt.Errorf("terminator %q is followed by %d instructions", inst, last-i)
		}

		switch inst.Op {
		case OpRet:
			if len(inst.Operands) != 1 {
				return fmt.Errorf("ret takes one operand, found %d", len(inst.Operands))
			}
			v := inst.Operands[0]
			if v.typ != fn.ReturnType {
				return fmt.Errorf("ret type %s does not match function type %s", v.typ, fn.ReturnType)
			}
			if err := consume(inst, v); err != nil {
				return err
			}
		case OpAdd, OpSub, OpMul, OpUDiv:
			if len(inst.Operands) != 2 {
				return fmt.Errorf("%s takes two operands, found %d", inst.Op, len(inst.Operands))
			}
			lhs, rhs := inst.Operands[0], inst.Operands[1]
			if lhs.typ != rhs.typ {
				return fmt.Errorf("%q mixes %s and %s", inst, lhs.typ, rhs.typ)
			}
			if inst.Result == nil || inst.Result.def != inst {
				return fmt.Errorf("%s instruction %d has no result", inst.Op, i)
			}
			if inst.Name == "" {
				return fmt.Errorf("%s instruction %d has no name", inst.Op, i)
			}
			if names[inst.Name] {
				return fmt.Errorf("duplicate value name %%%s", inst.Name)
			}
			names[inst.Name] = true
			if err := consume(inst, rhs); err != nil {
				return err
			}
			if err := consume(inst, lhs); err != nil {
				return err
			}
			defined[inst.Result] = true
			live = append(live, inst.Result)
		default:
			return fmt.Errorf("unknown opcode %d", inst.Op)
		}
	}

	if len(live) != 0 {
		return fmt.Errorf("%d result(s) never used, first is %s", len(live), live[0])
	}
	return nil
}
