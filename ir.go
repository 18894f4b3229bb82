package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ir.go - the SSA-style intermediate representation the parser emits into
//
// The shapes follow LLVM: a Module owns Functions, a Function owns BasicBlocks,
// a BasicBlock owns Instructions, and a Builder appends instructions at an
// insertion point. Values are opaque handles: either an integer constant or
// the result of one instruction. The builder never folds constants, so every
// arithmetic production becomes exactly one instruction.

var (
	errNoInsertBlock   = errors.New("builder has no insertion block")
	errBlockTerminated = errors.New("insertion block already has a terminator")
	errNilOperand      = errors.New("nil operand")
)

// IntType is a fixed-width integer type
type IntType struct {
	Bits int
}

// Int64Type is the only type the calculator computes with
func Int64Type() IntType {
	return IntType{Bits: 64}
}

func (t IntType) String() string {
	return "i" + strconv.Itoa(t.Bits)
}

// ConstInt creates a constant of this type, truncated to the type's width
func (t IntType) ConstInt(v uint64) *Value {
	if t.Bits < 64 {
		v &= (uint64(1) << t.Bits) - 1
	}
	return &Value{typ: t, isConst: true, constVal: v}
}

// Opcode identifies an instruction
type Opcode int

const (
	OpAdd Opcode = iota
	OpSub
	OpMul
	OpUDiv
	OpRet
)

func (op Opcode) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpUDiv:
		return "udiv"
	case OpRet:
		return "ret"
	default:
		return "unknown"
	}
}

// IsTerminator reports whether op ends a basic block
func (op Opcode) IsTerminator() bool {
	return op == OpRet
}

// Value is a handle to a computed quantity: a constant or an instruction result
type Value struct {
	typ      IntType
	isConst  bool
	constVal uint64
	def      *Instruction // defining instruction, nil for constants
}

// Type returns the value's type
func (v *Value) Type() IntType {
	return v.typ
}

// IsConst reports whether the value is known at compile time
func (v *Value) IsConst() bool {
	return v.isConst
}

// ZExtValue returns the zero-extended constant value. Only valid for constants.
func (v *Value) ZExtValue() uint64 {
	return v.constVal
}

// SExtValue returns the sign-extended constant value. Only valid for constants.
func (v *Value) SExtValue() int64 {
	if v.typ.Bits < 64 && v.constVal&(uint64(1)<<(v.typ.Bits-1)) != 0 {
		return int64(v.constVal | ^((uint64(1) << v.typ.Bits) - 1))
	}
	return int64(v.constVal)
}

// Name returns the label of the defining instruction, or "" for constants
func (v *Value) Name() string {
	if v.def == nil {
		return ""
	}
	return v.def.Name
}

// String renders the value as an instruction operand
func (v *Value) String() string {
	if v.isConst {
		return strconv.FormatInt(v.SExtValue(), 10)
	}
	return "%" + v.Name()
}

// Instruction is one operation in a basic block
type Instruction struct {
	Op       Opcode
	Name     string   // result label, empty for ret
	Operands []*Value // lhs, rhs for binary operations; the returned value for ret
	Result   *Value   // nil for ret
	block    *BasicBlock
}

func (inst *Instruction) String() string {
	if inst.Op == OpRet {
		if len(inst.Operands) == 0 {
			return "ret void"
		}
		v := inst.Operands[0]
		return fmt.Sprintf("ret %s %s", v.typ, v)
	}
	ops := make([]string, len(inst.Operands))
	for i, v := range inst.Operands {
		ops[i] = v.String()
	}
	return fmt.Sprintf("%%%s = %s %s %s", inst.Name, inst.Op, inst.Result.typ, strings.Join(ops, ", "))
}

// BasicBlock is a straight-line sequence of instructions ending in a terminator
type BasicBlock struct {
	Name         string
	Instructions []*Instruction
	parent       *Function
}

// Parent returns the function the block belongs to
func (bb *BasicBlock) Parent() *Function {
	return bb.parent
}

// Terminator returns the last instruction if it ends the block, or nil
func (bb *BasicBlock) Terminator() *Instruction {
	if len(bb.Instructions) == 0 {
		return nil
	}
	last := bb.Instructions[len(bb.Instructions)-1]
	if !last.Op.IsTerminator() {
		return nil
	}
	return last
}

// Function is a nullary function returning ReturnType
type Function struct {
	Name       string
	ReturnType IntType
	Blocks     []*BasicBlock
	module     *Module
}

// AppendBasicBlock adds a new, empty block at the end of the function
func (fn *Function) AppendBasicBlock(name string) *BasicBlock {
	bb := &BasicBlock{Name: name, parent: fn}
	fn.Blocks = append(fn.Blocks, bb)
	return bb
}

// EntryBlock returns the first block, or nil
func (fn *Function) EntryBlock() *BasicBlock {
	if len(fn.Blocks) == 0 {
		return nil
	}
	return fn.Blocks[0]
}

func (fn *Function) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "define %s @%s() {\n", fn.ReturnType, fn.Name)
	for i, bb := range fn.Blocks {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(bb.Name)
		sb.WriteString(":\n")
		for _, inst := range bb.Instructions {
			sb.WriteString("  ")
			sb.WriteString(inst.String())
			sb.WriteString("\n")
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

// Module is the unit handed to an execution engine
type Module struct {
	Name      string
	Functions []*Function
}

// NewModule creates an empty module
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// AddFunction declares a new nullary function returning ret
func (m *Module) AddFunction(name string, ret IntType) *Function {
	fn := &Function{Name: name, ReturnType: ret, module: m}
	m.Functions = append(m.Functions, fn)
	return fn
}

// NamedFunction returns the function called name, or nil
func (m *Module) NamedFunction(name string) *Function {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// Dispose drops every function so nothing built for one line survives into the next
func (m *Module) Dispose() {
	for _, fn := range m.Functions {
		fn.module = nil
		fn.Blocks = nil
	}
	m.Functions = nil
}

func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; ModuleID = '%s'\n", m.Name)
	for _, fn := range m.Functions {
		sb.WriteString("\n")
		sb.WriteString(fn.String())
	}
	return sb.String()
}

// Builder appends instructions at the end of a basic block
type Builder struct {
	block *BasicBlock
}

// NewBuilder creates a builder without an insertion point
func NewBuilder() *Builder {
	return &Builder{}
}

// PositionAtEnd moves the insertion point to the end of bb
func (b *Builder) PositionAtEnd(bb *BasicBlock) {
	b.block = bb
}

// BuildAdd emits lhs + rhs
func (b *Builder) BuildAdd(lhs, rhs *Value, name string) (*Value, error) {
	return b.buildBinary(OpAdd, lhs, rhs, name)
}

// BuildSub emits lhs - rhs
func (b *Builder) BuildSub(lhs, rhs *Value, name string) (*Value, error) {
	return b.buildBinary(OpSub, lhs, rhs, name)
}

// BuildMul emits lhs * rhs
func (b *Builder) BuildMul(lhs, rhs *Value, name string) (*Value, error) {
	return b.buildBinary(OpMul, lhs, rhs, name)
}

// BuildUDiv emits lhs / rhs, treating both operands as unsigned
func (b *Builder) BuildUDiv(lhs, rhs *Value, name string) (*Value, error) {
	return b.buildBinary(OpUDiv, lhs, rhs, name)
}

// BuildRet emits the terminator returning v
func (b *Builder) BuildRet(v *Value) (*Instruction, error) {
	if v == nil {
		return nil, errNilOperand
	}
	return b.insert(&Instruction{Op: OpRet, Operands: []*Value{v}})
}

func (b *Builder) buildBinary(op Opcode, lhs, rhs *Value, name string) (*Value, error) {
	if lhs == nil || rhs == nil {
		return nil, errNilOperand
	}
	if lhs.typ != rhs.typ {
		return nil, fmt.Errorf("%s operand types differ: %s and %s", op, lhs.typ, rhs.typ)
	}
	inst := &Instruction{Op: op, Name: name, Operands: []*Value{lhs, rhs}}
	inst.Result = &Value{typ: lhs.typ, def: inst}
	if _, err := b.insert(inst); err != nil {
		return nil, err
	}
	return inst.Result, nil
}

func (b *Builder) insert(inst *Instruction) (*Instruction, error) {
	if b.block == nil {
		return nil, errNoInsertBlock
	}
	if b.block.Terminator() != nil {
		return nil, errBlockTerminated
	}
	inst.block = b.block
	b.block.Instructions = append(b.block.Instructions, inst)
	return inst, nil
}
