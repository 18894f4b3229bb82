package main

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"
)

// availableBackends returns the VM and, where the host supports it, the native backend
func availableBackends() []Backend {
	backends := []Backend{NewVMBackend()}
	if nb, err := NewNativeBackend(); err == nil {
		backends = append(backends, nb)
	}
	return backends
}

func forEachBackend(t *testing.T, f func(t *testing.T, c *Compiler)) {
	t.Helper()
	for _, b := range availableBackends() {
		t.Run(b.Name(), func(t *testing.T) {
			f(t, NewCompiler(b))
		})
	}
}

func TestRunArithmetic(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want int64
	}{
		{"precedence", "2 + 3 * 4", 14},
		{"parentheses", "(2 + 3) * 4", 20},
		{"integer division", "10 / 3", 3},
		{"single literal", "7", 7},
		{"left associative subtraction", "1 - 2 - 3", -4},
		{"left associative division", "100 / 10 / 5", 2},
		{"two products", "2 * 3 + 4 * 5", 26},
		{"mixed", "1+2*3-4/2", 5},
		{"nested mixed", "3*(4+5)-6/2", 24},
		{"redundant parentheses", "((((42))))", 42},
		{"both operands computed", "(1 + 2) * (3 + 4)", 21},
		{"zero dividend", "0 / 5", 0},
		{"leading zeros", "007 + 0003", 10},
		{"surrounding whitespace", "   12   ", 12},
		{"max int64", "9223372036854775807", math.MaxInt64},
		{"wrapping add", "9223372036854775807 + 1", math.MinInt64},
		{"wrapping mul", "4611686018427387904 * 2", math.MinInt64},
		{"negative result", "0 - 1", -1},
		{"large constant operand", "9000000000 - 8999999999", 1},
	}

	forEachBackend(t, func(t *testing.T, c *Compiler) {
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := c.Run(tt.expr)
				if err != nil {
					t.Fatalf("Run(%q) error: %v", tt.expr, err)
				}
				if got != tt.want {
					t.Errorf("Run(%q) = %d, want %d", tt.expr, got, tt.want)
				}
			})
		}
	})
}

// Division is emitted as an unsigned instruction: negative operands are
// divided as their two's complement bit patterns.
func TestRunUnsignedDivision(t *testing.T) {
	tests := []struct {
		expr string
		want int64
	}{
		// (2^64 - 6) / 2
		{"(0 - 6) / 2", 9223372036854775805},
		// (2^64 - 1) / 1 keeps every bit
		{"(0 - 1) / 1", -1},
		// (2^64 - 7) / (2^64 - 2) is 0, not 3
		{"(0 - 7) / (0 - 2)", 0},
		// 6 / (2^64 - 3) is 0, not -2
		{"6 / (0 - 3)", 0},
	}

	forEachBackend(t, func(t *testing.T, c *Compiler) {
		for _, tt := range tests {
			got, err := c.Run(tt.expr)
			if err != nil {
				t.Fatalf("Run(%q) error: %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Run(%q) = %d, want %d", tt.expr, got, tt.want)
			}
		}
	})
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		category ErrorCategory
		message  string
	}{
		{"literal zero divisor", "5 / 0", CategoryZeroDivision, "ZeroDivisionError: division by zero"},
		{"parenthesized zero divisor", "5 / (0)", CategoryZeroDivision, "ZeroDivisionError: division by zero"},
		{"multi digit zero divisor", "5 / 000", CategoryZeroDivision, "ZeroDivisionError: division by zero"},
		{"end of expression", "2 +", CategorySyntax, "SyntaxError: unexpected end of expression"},
		{"empty line", "", CategorySyntax, "SyntaxError: unexpected end of expression"},
		{"whitespace line", " \t ", CategorySyntax, "SyntaxError: unexpected end of expression"},
		{"invalid operator", "2 ^ 3", CategorySyntax, "SyntaxError: invalid trailing character '^'"},
		{"invalid factor", "x", CategorySyntax, "SyntaxError: invalid character 'x' (only 0-9, +, -, *, /, () are allowed)"},
		{"no unary minus", "-1", CategorySyntax, "SyntaxError: invalid character '-' (only 0-9, +, -, *, /, () are allowed)"},
		{"doubled operator", "2 ++ 3", CategorySyntax, "SyntaxError: invalid character '+' (only 0-9, +, -, *, /, () are allowed)"},
		{"bare closing paren", ")", CategorySyntax, "SyntaxError: invalid character ')' (only 0-9, +, -, *, /, () are allowed)"},
		{"unclosed paren", "(1 + 2", CategorySyntax, "SyntaxError: missing closing parenthesis ')'"},
		{"unclosed nested paren", "(((1)", CategorySyntax, "SyntaxError: missing closing parenthesis ')'"},
		{"extra closing paren", "1 + 2)", CategorySyntax, "SyntaxError: incomplete expression, trailing character ')'"},
		{"two numbers", "1 2", CategorySyntax, "SyntaxError: incomplete expression, trailing character '2'"},
		{"trailing garbage", "1 + 2 abc", CategorySyntax, "SyntaxError: invalid trailing character 'a'"},
		{"literal too large", "9223372036854775808", CategoryValue, "ValueError: invalid literal for int() with base 10: '9223372036854775808'"},
		{"literal far too large", "1 + 99999999999999999999999", CategoryValue, "ValueError: invalid literal for int() with base 10: '99999999999999999999999'"},
	}

	forEachBackend(t, func(t *testing.T, c *Compiler) {
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := c.Run(tt.expr)
				if err == nil {
					t.Fatalf("Run(%q) = %d, want error", tt.expr, got)
				}
				if !IsCategory(err, tt.category) {
					t.Errorf("Run(%q) error %v is not a %s", tt.expr, err, tt.category)
				}
				if err.Error() != tt.message {
					t.Errorf("Run(%q) error = %q, want %q", tt.expr, err.Error(), tt.message)
				}
			})
		}
	})
}

// Only literal zero divisors are rejected. A divisor that becomes zero at run
// time reaches the division instruction, which is defined to produce 0.
func TestRunDynamicZeroDivisorIsNotDetected(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *Compiler) {
		for _, expr := range []string{"5 / (2 - 2)", "5 / (1 - 1) + 3", "(7 * 0) / (3 * 0)"} {
			got, err := c.Run(expr)
			if err != nil {
				t.Fatalf("Run(%q) error: %v", expr, err)
			}
			want := int64(0)
			if strings.HasSuffix(expr, "+ 3") {
				want = 3
			}
			if got != want {
				t.Errorf("Run(%q) = %d, want %d", expr, got, want)
			}
		}
	})
}

func TestRunErrorLocation(t *testing.T) {
	c := NewCompiler(NewVMBackend())
	_, err := c.Run("  12 + x")

	var ce *CalcError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CalcError, got %T", err)
	}
	// Input is trimmed before compiling, so columns refer to "12 + x"
	if ce.Location.Column != 6 {
		t.Errorf("column = %d, want 6", ce.Location.Column)
	}
	if ce.Context.SourceLine != "12 + x" {
		t.Errorf("source line = %q", ce.Context.SourceLine)
	}
}

func TestWhitespaceInsensitivity(t *testing.T) {
	expressions := [][]string{
		{"2", "+", "3", "*", "4"},
		{"(", "2", "+", "3", ")", "*", "4"},
		{"100", "/", "(", "7", "-", "2", ")", "-", "(", "(", "1", ")", ")"},
		{"9", "*", "(", "8", "-", "(", "7", "/", "2", ")", ")", "+", "6"},
	}
	spaces := []string{"", " ", "  ", "\t", "\n", " \t\n ", "\u00a0", "\u3000"}
	rng := rand.New(rand.NewSource(67))

	forEachBackend(t, func(t *testing.T, c *Compiler) {
		for _, tokens := range expressions {
			want, err := c.Run(strings.Join(tokens, ""))
			if err != nil {
				t.Fatalf("Run(%q) error: %v", strings.Join(tokens, ""), err)
			}
			for i := 0; i < 25; i++ {
				var sb strings.Builder
				for _, tok := range tokens {
					sb.WriteString(spaces[rng.Intn(len(spaces))])
					sb.WriteString(tok)
				}
				sb.WriteString(spaces[rng.Intn(len(spaces))])
				expr := sb.String()

				got, err := c.Run(expr)
				if err != nil {
					t.Fatalf("Run(%q) error: %v", expr, err)
				}
				if got != want {
					t.Errorf("Run(%q) = %d, want %d", expr, got, want)
				}
			}
		}
	})
}

func TestLiteralRange(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *Compiler) {
		for _, lit := range []string{"9223372036854775808", "18446744073709551615", "18446744073709551616", strings.Repeat("9", 40)} {
			if _, err := c.Run(lit); !IsCategory(err, CategoryValue) {
				t.Errorf("Run(%q) error = %v, want a ValueError", lit, err)
			}
			if _, err := c.Run("1 + " + lit); !IsCategory(err, CategoryValue) {
				t.Errorf("Run(1 + %q) error = %v, want a ValueError", lit, err)
			}
		}
	})
}

func TestDeepNesting(t *testing.T) {
	const depth = 300

	forEachBackend(t, func(t *testing.T, c *Compiler) {
		plain := strings.Repeat("(", depth) + "1" + strings.Repeat(")", depth)
		if got, err := c.Run(plain); err != nil || got != 1 {
			t.Errorf("plain nesting = %d, %v; want 1", got, err)
		}

		// Every level adds one instruction that consumes the level below it
		sum := "1"
		for i := 0; i < depth; i++ {
			sum = "(" + sum + " + 1)"
		}
		if got, err := c.Run(sum); err != nil || got != depth+1 {
			t.Errorf("left nested sum = %d, %v; want %d", got, err, depth+1)
		}

		// Every level leaves a product live while the inner level runs
		deep := "1"
		for i := 0; i < depth; i++ {
			deep = "2 * 1 + (" + deep + ")"
		}
		if got, err := c.Run(deep); err != nil || got != 2*depth+1 {
			t.Errorf("right nested sum = %d, %v; want %d", got, err, 2*depth+1)
		}

		unmatched := strings.Repeat("(", depth) + "1" + strings.Repeat(")", depth-1)
		if _, err := c.Run(unmatched); err == nil || !strings.Contains(err.Error(), "missing closing parenthesis") {
			t.Errorf("unmatched nesting error = %v", err)
		}
	})
}

func TestCounterIsolation(t *testing.T) {
	var ir bytes.Buffer
	c := NewCompiler(NewVMBackend())
	c.SetIROutput(&ir, true, false)

	if got, err := c.Run("1+1"); err != nil || got != 2 {
		t.Fatalf("Run(1+1) = %d, %v", got, err)
	}
	first := ir.String()
	ir.Reset()

	if got, err := c.Run("2+2"); err != nil || got != 4 {
		t.Fatalf("Run(2+2) = %d, %v", got, err)
	}
	second := ir.String()

	if !strings.Contains(first, "%add_tmp_0 = add i64 1, 1") {
		t.Errorf("first IR:\n%s", first)
	}
	if !strings.Contains(second, "%add_tmp_0 = add i64 2, 2") {
		t.Errorf("second IR does not restart numbering:\n%s", second)
	}
	if strings.Contains(second, "add_tmp_1") {
		t.Errorf("second IR leaked a counter value:\n%s", second)
	}
}

func TestResetCounter(t *testing.T) {
	c := NewCompiler(NewVMBackend())
	if name := c.genTmpName("add_tmp"); name != "add_tmp_0" {
		t.Errorf("first name = %q", name)
	}
	if name := c.genTmpName("mul_tmp"); name != "mul_tmp_1" {
		t.Errorf("second name = %q", name)
	}
	c.ResetCounter()
	if name := c.genTmpName("div_tmp"); name != "div_tmp_0" {
		t.Errorf("name after reset = %q", name)
	}
}

func TestPrintIR(t *testing.T) {
	var ir bytes.Buffer
	c := NewCompiler(NewVMBackend())
	c.SetIROutput(&ir, true, false)

	if _, err := c.Run("2 + 3 * 4 / 5"); err != nil {
		t.Fatal(err)
	}
	want := `define i64 @main() {
entry:
  %mul_tmp_0 = mul i64 3, 4
  %div_tmp_1 = udiv i64 %mul_tmp_0, 5
  %add_tmp_2 = add i64 2, %div_tmp_1
  ret i64 %add_tmp_2
}
`
	if ir.String() != want {
		t.Errorf("IR =\n%s\nwant\n%s", ir.String(), want)
	}
}

func TestPrintIRSkippedOnError(t *testing.T) {
	var ir bytes.Buffer
	c := NewCompiler(NewVMBackend())
	c.SetIROutput(&ir, true, true)

	if _, err := c.Run("2 + "); err == nil {
		t.Fatal("expected error")
	}
	if ir.Len() != 0 {
		t.Errorf("IR printed for a failed line:\n%s", ir.String())
	}
}

func TestDumpIR(t *testing.T) {
	var ir bytes.Buffer
	c := NewCompiler(NewVMBackend())
	c.SetIROutput(&ir, false, true)

	if _, err := c.Run("6 * 7"); err != nil {
		t.Fatal(err)
	}
	out := ir.String()
	for _, want := range []string{"Function", "mul_tmp_0", "entry"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump does not mention %q:\n%s", want, out)
		}
	}
}

// Compilers share nothing, so independent compilers can run in parallel
func TestParallelCompilers(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *Compiler) {
		backend := c.Backend()
		var g errgroup.Group
		for i := 0; i < 8; i++ {
			g.Go(func() error {
				own := NewCompiler(backend)
				for n := int64(1); n <= 50; n++ {
					expr := strings.Repeat("1 + ", int(n)) + "0"
					got, err := own.Run(expr)
					if err != nil {
						return err
					}
					if got != n {
						return errors.New("wrong result for " + expr)
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatal(err)
		}
	})
}

type failingBackend struct {
	engineErr error
	lookupErr error
}

func (b *failingBackend) Name() string { return "failing" }

func (b *failingBackend) NewEngine(m *Module) (Engine, error) {
	if b.engineErr != nil {
		return nil, b.engineErr
	}
	return &failingEngine{err: b.lookupErr}, nil
}

type failingEngine struct {
	err    error
	closed bool
}

func (e *failingEngine) GetFunction(string) (JITFunc, error) { return nil, e.err }
func (e *failingEngine) Close() error                        { e.closed = true; return nil }

func TestRunBackendFailures(t *testing.T) {
	initErr := errors.New("no memory")
	c := NewCompiler(&failingBackend{engineErr: initErr})
	_, err := c.Run("1")
	if !IsCategory(err, CategoryRuntime) || !errors.Is(err, initErr) {
		t.Errorf("engine failure error = %v", err)
	}

	lookupErr := errors.New("symbol not found")
	c = NewCompiler(&failingBackend{lookupErr: lookupErr})
	_, err = c.Run("1 + 1")
	if !IsCategory(err, CategoryRuntime) || !errors.Is(err, lookupErr) {
		t.Errorf("lookup failure error = %v", err)
	}
	if !strings.HasPrefix(err.Error(), "RuntimeError: JIT compilation failed") {
		t.Errorf("lookup failure message = %q", err.Error())
	}

	// A failed line leaves nothing behind for the next one
	c = NewCompiler(NewVMBackend())
	if _, err := c.Run("1 +"); err == nil {
		t.Fatal("expected error")
	}
	if got, err := c.Run("1 + 1"); err != nil || got != 2 {
		t.Errorf("Run after failure = %d, %v", got, err)
	}
}
