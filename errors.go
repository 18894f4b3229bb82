package main

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory classifies why a line could not be evaluated
type ErrorCategory int

const (
	CategorySyntax ErrorCategory = iota
	CategoryValue
	CategoryZeroDivision
	// CategoryRuntime covers verification, JIT and entry point failures.
	// These point at a compiler or backend bug, never at the input.
	CategoryRuntime
)

func (c ErrorCategory) String() string {
	switch c {
	case CategorySyntax:
		return "SyntaxError"
	case CategoryValue:
		return "ValueError"
	case CategoryZeroDivision:
		return "ZeroDivisionError"
	case CategoryRuntime:
		return "RuntimeError"
	default:
		return "Error"
	}
}

// SourceLocation is a 1-based column in the input line, 0 when unknown
type SourceLocation struct {
	Column int
	Length int // Length of the problematic text
}

// ErrorContext provides additional context for an error
type ErrorContext struct {
	SourceLine string
	HelpText   string
}

// CalcError is the single error type returned by Compiler.Run
type CalcError struct {
	Category ErrorCategory
	Message  string
	Location SourceLocation
	Context  ErrorContext
	Err      error // wrapped backend error, if any
}

func (e *CalcError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *CalcError) Unwrap() error {
	return e.Err
}

// Format returns the error with the source line and a caret under the offending column
func (e *CalcError) Format(useColor bool) string {
	var sb strings.Builder

	if useColor {
		sb.WriteString("\033[1;31m") // Bold red
	}
	sb.WriteString(e.Category.String())
	sb.WriteString(": ")
	if useColor {
		sb.WriteString("\033[0m")
	}
	sb.WriteString(e.Message)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	sb.WriteString("\n")

	if e.Context.SourceLine != "" && e.Location.Column > 0 {
		sb.WriteString("  | ")
		sb.WriteString(e.Context.SourceLine)
		sb.WriteString("\n  | ")
		sb.WriteString(strings.Repeat(" ", e.Location.Column-1))
		if useColor {
			sb.WriteString("\033[1;31m")
		}
		if e.Location.Length > 1 {
			sb.WriteString(strings.Repeat("^", e.Location.Length))
		} else {
			sb.WriteString("^")
		}
		if useColor {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	if e.Context.HelpText != "" {
		if useColor {
			sb.WriteString("\033[1;36m") // Bold cyan
		}
		sb.WriteString("   note: ")
		if useColor {
			sb.WriteString("\033[0m")
		}
		sb.WriteString(e.Context.HelpText)
		sb.WriteString("\n")
	}

	return sb.String()
}

// IsCategory reports whether err is a *CalcError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	var ce *CalcError
	return errors.As(err, &ce) && ce.Category == category
}

func syntaxError(column int, format string, args ...any) *CalcError {
	return &CalcError{
		Category: CategorySyntax,
		Message:  fmt.Sprintf(format, args...),
		Location: SourceLocation{Column: column},
	}
}

func runtimeError(message string, err error) *CalcError {
	return &CalcError{
		Category: CategoryRuntime,
		Message:  message,
		Err:      err,
	}
}
