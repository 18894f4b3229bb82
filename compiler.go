package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// compiler.go - single-pass expression compiler
//
// Grammar:
//
//	expression = term { ("+" | "-") term }
//	term       = factor { ("*" | "/") factor }
//	factor     = "(" expression ")" | digit { digit }
//
// Each parse function emits IR as soon as it recognizes its production and
// returns the handle of the value it computed. There is no syntax tree.

// Compiler turns one line at a time into a native function and runs it.
// A Compiler is not safe for concurrent use; give each goroutine its own.
type Compiler struct {
	backend    Backend
	tmpCounter int

	irOut   io.Writer
	printIR bool
	dumpIR  bool
}

// NewCompiler creates a compiler that executes through backend
func NewCompiler(backend Backend) *Compiler {
	return &Compiler{backend: backend, irOut: os.Stderr}
}

// Backend returns the backend lines are executed with
func (c *Compiler) Backend() Backend {
	return c.backend
}

// SetIROutput controls printing (LLVM-like text) and dumping (go-spew) of each line's IR
func (c *Compiler) SetIROutput(w io.Writer, printIR, dumpIR bool) {
	if w != nil {
		c.irOut = w
	}
	c.printIR = printIR
	c.dumpIR = dumpIR
}

// PrintIR reports whether IR text is printed before execution
func (c *Compiler) PrintIR() bool {
	return c.printIR
}

// ResetCounter restarts temporary value numbering. Run calls it for every line.
func (c *Compiler) ResetCounter() {
	c.tmpCounter = 0
}

func (c *Compiler) genTmpName(prefix string) string {
	name := prefix + "_" + strconv.Itoa(c.tmpCounter)
	c.tmpCounter++
	return name
}

// Run compiles line into a nullary i64 function, JIT-compiles it and calls it.
// Either the whole pipeline succeeds or nothing is executed.
func (c *Compiler) Run(line string) (int64, error) {
	c.ResetCounter()
	src := strings.TrimSpace(line)

	module := NewModule("calculator")
	defer module.Dispose()

	ee, err := c.backend.NewEngine(module)
	if err != nil {
		return 0, runtimeError(c.backend.Name()+" backend initialization failed", err)
	}
	defer func() {
		if err := ee.Close(); err != nil && VerboseMode {
			fmt.Fprintf(os.Stderr, "releasing compiled code: %v\n", err)
		}
	}()

	fn := module.AddFunction("main", Int64Type())
	entry := fn.AppendBasicBlock("entry")
	builder := NewBuilder()
	builder.PositionAtEnd(entry)

	cur := NewCursor(src)
	value, err := c.parseExpression(cur, builder)
	if err != nil {
		return 0, withSource(err, src)
	}

	// Anything left over means the expression ended early
	cur.SkipWhitespace()
	if r, ok := cur.Peek(); ok {
		if isValidChar(r) {
			err = syntaxError(cur.Column(), "incomplete expression, trailing character '%c'", r)
		} else {
			err = syntaxError(cur.Column(), "invalid trailing character '%c'", r)
		}
		return 0, withSource(err, src)
	}

	if _, err := builder.BuildRet(value); err != nil {
		return 0, runtimeError("failed to generate return instruction", err)
	}
	if err := fn.Verify(); err != nil {
		return 0, runtimeError("invalid IR generated", err)
	}

	if c.printIR {
		fmt.Fprint(c.irOut, fn.String())
	}
	if c.dumpIR {
		spew.Fdump(c.irOut, fn)
	}

	jitFunc, err := ee.GetFunction(fn.Name)
	if err != nil {
		return 0, runtimeError("JIT compilation failed", err)
	}
	return jitFunc(), nil
}

// parseExpression handles + and -, the lowest precedence level
func (c *Compiler) parseExpression(cur *Cursor, b *Builder) (*Value, error) {
	value, err := c.parseTerm(cur, b)
	if err != nil {
		return nil, err
	}

	for {
		cur.SkipWhitespace()
		op, ok := cur.Peek()
		if !ok || (op != '+' && op != '-') {
			return value, nil
		}
		cur.Advance()

		rhs, err := c.parseTerm(cur, b)
		if err != nil {
			return nil, err
		}
		if op == '+' {
			value, err = b.BuildAdd(value, rhs, c.genTmpName("add_tmp"))
		} else {
			value, err = b.BuildSub(value, rhs, c.genTmpName("sub_tmp"))
		}
		if err != nil {
			return nil, runtimeError("failed to emit instruction", err)
		}
	}
}

// parseTerm handles * and /, one level above parseExpression
func (c *Compiler) parseTerm(cur *Cursor, b *Builder) (*Value, error) {
	value, err := c.parseFactor(cur, b)
	if err != nil {
		return nil, err
	}

	for {
		cur.SkipWhitespace()
		op, ok := cur.Peek()
		if !ok || (op != '*' && op != '/') {
			return value, nil
		}
		cur.Advance()

		cur.SkipWhitespace()
		column := cur.Column()
		rhs, err := c.parseFactor(cur, b)
		if err != nil {
			return nil, err
		}
		if op == '*' {
			value, err = b.BuildMul(value, rhs, c.genTmpName("mul_tmp"))
		} else {
			// Only a literal zero is caught here. A divisor that evaluates to
			// zero at run time, such as (2-2), is not detected.
			if rhs.IsConst() && rhs.ZExtValue() == 0 {
				return nil, &CalcError{
					Category: CategoryZeroDivision,
					Message:  "division by zero",
					Location: SourceLocation{Column: column},
				}
			}
			value, err = b.BuildUDiv(value, rhs, c.genTmpName("div_tmp"))
		}
		if err != nil {
			return nil, runtimeError("failed to emit instruction", err)
		}
	}
}

// parseFactor handles parenthesized expressions and integer literals
func (c *Compiler) parseFactor(cur *Cursor, b *Builder) (*Value, error) {
	cur.SkipWhitespace()

	ch, ok := cur.Peek()
	if !ok {
		return nil, syntaxError(cur.Column(), "unexpected end of expression")
	}

	switch {
	case ch == '(':
		cur.Advance()
		inner, err := c.parseExpression(cur, b)
		if err != nil {
			return nil, err
		}
		cur.SkipWhitespace()
		if r, ok := cur.Peek(); !ok || r != ')' {
			return nil, syntaxError(cur.Column(), "missing closing parenthesis ')'")
		}
		cur.Advance()
		cur.SkipWhitespace()
		return inner, nil

	case isASCIIDigit(ch):
		column := cur.Column()
		var digits strings.Builder
		for {
			r, ok := cur.Peek()
			if !ok || !isASCIIDigit(r) {
				break
			}
			digits.WriteRune(r)
			cur.Advance()
		}
		literal := digits.String()
		n, err := strconv.ParseInt(literal, 10, 64)
		if err != nil {
			return nil, &CalcError{
				Category: CategoryValue,
				Message:  fmt.Sprintf("invalid literal for int() with base 10: '%s'", literal),
				Location: SourceLocation{Column: column, Length: len(literal)},
			}
		}
		return Int64Type().ConstInt(uint64(n)), nil

	default:
		err := syntaxError(cur.Column(), "invalid character '%c' (only 0-9, +, -, *, /, () are allowed)", ch)
		if ch == '-' {
			err.Context.HelpText = "there is no unary minus, write a negative number as (0 - n)"
		}
		return nil, err
	}
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// isValidChar reports whether r belongs to the calculator's alphabet
func isValidChar(r rune) bool {
	return isASCIIDigit(r) || strings.ContainsRune("+-*/()", r)
}

// withSource attaches the compiled line to a CalcError for caret diagnostics
func withSource(err error, src string) error {
	var ce *CalcError
	if errors.As(err, &ce) && ce.Context.SourceLine == "" {
		ce.Context.SourceLine = src
	}
	return err
}
