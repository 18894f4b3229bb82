// stack_validator.go - Track spills to the machine stack during lowering
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// StackValidator tracks push/pop operations to ensure a balanced stack
type StackValidator struct {
	depth      int      // Current stack depth (in 8-byte words)
	maxDepth   int      // Deepest point reached
	operations []string // History of operations for error reports
	err        error    // First imbalance
}

func NewStackValidator() *StackValidator {
	return &StackValidator{
		operations: make([]string, 0, 16),
	}
}

func (sv *StackValidator) Push(reg string) {
	sv.depth++
	sv.maxDepth = max(sv.maxDepth, sv.depth)
	sv.operations = append(sv.operations, fmt.Sprintf("push %s (depth=%d)", reg, sv.depth))
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "STACK: push %s, depth now %d\n", reg, sv.depth)
	}
}

func (sv *StackValidator) Pop(reg string) {
	if sv.depth <= 0 {
		sv.fail("stack underflow: pop %s with depth %d", reg, sv.depth)
		return
	}
	sv.depth--
	sv.operations = append(sv.operations, fmt.Sprintf("pop %s (depth=%d)", reg, sv.depth))
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "STACK: pop %s, depth now %d\n", reg, sv.depth)
	}
}

// Validate records an error unless the current depth is want
func (sv *StackValidator) Validate(want int, label string) {
	if sv.depth != want {
		sv.fail("stack imbalance at %s: expected depth %d, got %d", label, want, sv.depth)
	}
}

func (sv *StackValidator) fail(format string, args ...any) {
	if sv.err != nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	start := max(len(sv.operations)-10, 0)
	if recent := sv.operations[start:]; len(recent) > 0 {
		msg += " (recent: " + strings.Join(recent, ", ") + ")"
	}
	sv.err = errors.New(msg)
}

// MaxDepth is the largest number of values spilled at once
func (sv *StackValidator) MaxDepth() int {
	return sv.maxDepth
}

// Err returns the first imbalance found
func (sv *StackValidator) Err() error {
	return sv.err
}
