package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/peterh/liner"
	"github.com/xyproto/jitcalc/internal/engine"
)

// cli.go - the interactive session
//
// Reads one line at a time, compiles and runs it, and prints either the
// result or the error. A failing line never ends the session.

const prompt = ">>> "

var metaCommands = []string{":help", ":ir", ":backend", ":quit"}

// Session drives a Compiler from a line-oriented input
type Session struct {
	compiler *Compiler
	cfg      Config
	in       io.Reader
	out      io.Writer
	failed   int
}

// NewSession creates a session reading from in and printing to out
func NewSession(compiler *Compiler, cfg Config, in io.Reader, out io.Writer) *Session {
	return &Session{compiler: compiler, cfg: cfg, in: in, out: out}
}

// Banner returns the startup line, e.g. "Jitcalc 1.0.0 on linux"
func Banner() string {
	return fmt.Sprintf("%s %s on %s", capitalizeFirst(projectName), projectVersion, osDisplayName(runtime.GOOS))
}

// osDisplayName names the operating system the way users know it
func osDisplayName(goos string) string {
	if goos == "darwin" {
		return "macos"
	}
	return goos
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// Run processes input until EOF or exit/quit and returns the process exit code.
// In batch mode the code is 1 if any line failed.
func (s *Session) Run() int {
	if !s.cfg.Batch {
		fmt.Fprintln(s.out, Banner())
	}

	if f, ok := s.in.(*os.File); ok && !s.cfg.Batch && isTerminal(f) {
		s.runLiner()
	} else {
		s.runScanner()
	}

	if s.cfg.Batch && s.failed > 0 {
		return 1
	}
	return 0
}

// runLiner reads from a terminal with line editing and history
func (s *Session) runLiner() {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if s.cfg.HistoryFile != "" {
		if f, err := os.Open(s.cfg.HistoryFile); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(s.cfg.HistoryFile); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			// Ctrl-D or a closed terminal
			fmt.Fprintln(s.out)
			return
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if s.HandleLine(line) {
			return
		}
	}
}

// runScanner reads from a pipe or file
func (s *Session) runScanner() {
	scanner := bufio.NewScanner(s.in)
	for {
		if !s.cfg.Batch {
			fmt.Fprint(s.out, prompt)
		}
		if !scanner.Scan() {
			if !s.cfg.Batch {
				fmt.Fprintln(s.out)
			}
			if err := scanner.Err(); err != nil {
				fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			}
			return
		}
		if s.HandleLine(scanner.Text()) {
			return
		}
	}
}

// HandleLine evaluates one line and prints the outcome. It returns true when the session should end.
func (s *Session) HandleLine(line string) bool {
	expr := strings.TrimSpace(line)
	if expr == "" {
		return false
	}
	if strings.EqualFold(expr, "exit") || strings.EqualFold(expr, "quit") {
		return true
	}
	if strings.HasPrefix(expr, ":") {
		return s.handleCommand(expr)
	}

	s.compiler.ResetCounter()
	result, err := s.compiler.Run(expr)
	if err != nil {
		s.failed++
		s.report(err)
		return false
	}
	fmt.Fprintln(s.out, result)
	return false
}

func (s *Session) report(err error) {
	var ce *CalcError
	if !s.cfg.Batch && errors.As(err, &ce) {
		fmt.Fprint(s.out, ce.Format(s.cfg.UseColor))
		return
	}
	fmt.Fprintln(s.out, err)
}

func (s *Session) handleCommand(cmd string) bool {
	switch strings.ToLower(cmd) {
	case ":quit":
		return true
	case ":help":
		fmt.Fprintln(s.out, "Enter an integer expression using 0-9, +, -, *, / and parentheses.")
		fmt.Fprintln(s.out, "Commands: :ir (toggle IR printing), :backend, :quit")
	case ":ir":
		s.cfg.PrintIR = !s.compiler.PrintIR()
		s.compiler.SetIROutput(s.out, s.cfg.PrintIR, s.cfg.DumpIR)
		state := "off"
		if s.cfg.PrintIR {
			state = "on"
		}
		fmt.Fprintf(s.out, "IR printing %s\n", state)
	case ":backend":
		fmt.Fprintf(s.out, "%s (%s)\n", s.compiler.Backend().Name(), engine.HostPlatform().FullString())
	default:
		if suggestion, ok := engine.ClosestMatch(strings.ToLower(cmd), metaCommands, 2); ok {
			fmt.Fprintf(s.out, "unknown command %s, did you mean %s?\n", cmd, suggestion)
		} else {
			fmt.Fprintf(s.out, "unknown command %s, type :help\n", cmd)
		}
	}
	return false
}

// isTerminal reports whether f is an interactive character device
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0 && liner.TerminalSupported()
}
