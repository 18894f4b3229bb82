package main

import (
	"errors"
	"fmt"
	"os"
)

// vm.go - bytecode backend
//
// Used where native code cannot be mapped and called. A verified function is
// a tree (every result is consumed exactly once), so a post-order walk from the
// returned value yields a program for a plain operand stack. Arithmetic matches
// the native backend bit for bit: wrapping add/sub/mul, unsigned division, and
// a zero divisor produces 0.

const (
	opHalt uint8 = iota
	opConst
	opAdd
	opSub
	opMul
	opUDiv
	opRet
)

var (
	errVMStackUnderflow = errors.New("vm: stack underflow")
	errVMNoReturn       = errors.New("vm: program ended without ret")
)

var vmOpNames = map[uint8]string{
	opHalt:  "HALT",
	opConst: "CONST",
	opAdd:   "ADD",
	opSub:   "SUB",
	opMul:   "MUL",
	opUDiv:  "UDIV",
	opRet:   "RET",
}

// Bytecode is the lowered form of one function.
// Each instruction is op<<24 | arg, arg indexes Constants for opConst.
type Bytecode struct {
	Instructions []uint32
	Constants    []int64
	MaxStack     int
}

func (bc *Bytecode) String() string {
	s := ""
	for i, instr := range bc.Instructions {
		op := uint8(instr >> 24)
		arg := instr & 0x00FFFFFF
		if op == opConst {
			s += fmt.Sprintf("%04d %s %d\n", i, vmOpNames[op], bc.Constants[arg])
		} else {
			s += fmt.Sprintf("%04d %s\n", i, vmOpNames[op])
		}
	}
	return s
}

// LowerToBytecode lowers a verified function
func LowerToBytecode(fn *Function) (*Bytecode, error) {
	bb := fn.EntryBlock()
	if bb == nil {
		return nil, fmt.Errorf("function @%s has no body", fn.Name)
	}
	ret := bb.Terminator()
	if ret == nil || ret.Op != OpRet {
		return nil, fmt.Errorf("function @%s does not end in ret", fn.Name)
	}

	bc := &Bytecode{}
	depth := 0
	var emit func(v *Value) error
	emit = func(v *Value) error {
		if v.IsConst() {
			if len(bc.Constants) >= 1<<24 {
				return fmt.Errorf("too many constants in @%s", fn.Name)
			}
			bc.Instructions = append(bc.Instructions, uint32(opConst)<<24|uint32(len(bc.Constants)))
			bc.Constants = append(bc.Constants, v.SExtValue())
			depth++
			bc.MaxStack = max(bc.MaxStack, depth)
			return nil
		}
		inst := v.def
		if err := emit(inst.Operands[0]); err != nil {
			return err
		}
		if err := emit(inst.Operands[1]); err != nil {
			return err
		}
		var op uint8
		switch inst.Op {
		case OpAdd:
			op = opAdd
		case OpSub:
			op = opSub
		case OpMul:
			op = opMul
		case OpUDiv:
			op = opUDiv
		default:
			return fmt.Errorf("cannot lower %s", inst.Op)
		}
		bc.Instructions = append(bc.Instructions, uint32(op)<<24)
		depth--
		return nil
	}

	if err := emit(ret.Operands[0]); err != nil {
		return nil, err
	}
	bc.Instructions = append(bc.Instructions, uint32(opRet)<<24)
	return bc, nil
}

// Machine executes Bytecode
type Machine struct {
	Stack []int64
	SP    int
}

// Run executes bc until RET and returns the popped value
func (m *Machine) Run(bc *Bytecode) (int64, error) {
	if cap(m.Stack) < bc.MaxStack {
		m.Stack = make([]int64, bc.MaxStack)
	}
	m.Stack = m.Stack[:cap(m.Stack)]
	sp := 0

	for _, instr := range bc.Instructions {
		op := uint8(instr >> 24)
		arg := instr & 0x00FFFFFF

		if op != opConst && op != opHalt {
			need := 2
			if op == opRet {
				need = 1
			}
			if sp < need {
				m.SP = sp
				return 0, errVMStackUnderflow
			}
		}

		switch op {
		case opHalt:
			m.SP = sp
			return 0, errVMNoReturn
		case opConst:
			m.Stack[sp] = bc.Constants[arg]
			sp++
		case opAdd:
			m.Stack[sp-2] += m.Stack[sp-1]
			sp--
		case opSub:
			m.Stack[sp-2] -= m.Stack[sp-1]
			sp--
		case opMul:
			m.Stack[sp-2] *= m.Stack[sp-1]
			sp--
		case opUDiv:
			m.Stack[sp-2] = udiv(m.Stack[sp-2], m.Stack[sp-1])
			sp--
		case opRet:
			sp--
			m.SP = sp
			return m.Stack[sp], nil
		default:
			m.SP = sp
			return 0, fmt.Errorf("vm: unknown opcode %d", op)
		}
	}
	m.SP = sp
	return 0, errVMNoReturn
}

// udiv divides the two's complement bit patterns as unsigned numbers.
// A zero divisor yields 0, like the native lowering.
func udiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return int64(uint64(a) / uint64(b))
}

// VMBackend interprets bytecode
type VMBackend struct{}

// NewVMBackend creates the bytecode backend
func NewVMBackend() *VMBackend {
	return &VMBackend{}
}

func (*VMBackend) Name() string { return BackendVM }

func (*VMBackend) NewEngine(m *Module) (Engine, error) {
	if m == nil {
		return nil, errors.New("vm: nil module")
	}
	return &vmEngine{module: m, programs: make(map[string]*Bytecode)}, nil
}

type vmEngine struct {
	module   *Module
	programs map[string]*Bytecode
	closed   bool
}

func (e *vmEngine) GetFunction(name string) (JITFunc, error) {
	if e.closed {
		return nil, errors.New("vm: engine is closed")
	}
	bc, ok := e.programs[name]
	if !ok {
		fn, err := lookupFunction(e.module, name)
		if err != nil {
			return nil, err
		}
		bc, err = LowerToBytecode(fn)
		if err != nil {
			return nil, err
		}
		if VerboseMode {
			fmt.Fprintf(os.Stderr, "vm: @%s lowered to %d instructions\n%s", name, len(bc.Instructions), bc)
		}
		e.programs[name] = bc
	}
	return func() int64 {
		var m Machine
		v, err := m.Run(bc)
		if err != nil {
			// Only reachable if lowering produced a malformed program
			panic(err)
		}
		return v
	}, nil
}

func (e *vmEngine) Close() error {
	e.programs = nil
	e.closed = true
	return nil
}
