package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// An interactive integer calculator that JIT-compiles every line to machine code

const (
	projectName    = "jitcalc"
	projectVersion = "1.0.0"
	versionString  = projectName + " " + projectVersion
)

// VerboseMode enables diagnostic traces on stderr
var VerboseMode bool

func main() {
	cfg := ConfigFromEnv()

	var backendFlag = flag.String("backend", cfg.Backend, "execution backend (auto, native, vm)")
	var codeFlag = flag.String("c", "", "evaluate one expression and exit")
	var batchFlag = flag.Bool("b", false, "batch mode: read expressions from stdin without prompts")
	var printIRFlag = flag.Bool("ir", cfg.PrintIR, "print the IR of every line before running it")
	var dumpFlag = flag.Bool("dump", false, "dump the IR data structures of every line")
	var noColorFlag = flag.Bool("nocolor", false, "disable colored error messages")
	var versionShort = flag.Bool("V", false, "print version information and exit")
	var version = flag.Bool("version", false, "print version information and exit")
	var verbose = flag.Bool("v", false, "verbose mode (trace lowering and emitted machine code)")
	var verboseLong = flag.Bool("verbose", false, "verbose mode (trace lowering and emitted machine code)")
	flag.Parse()

	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	if *version || *versionShort {
		fmt.Println(versionString)
		os.Exit(0)
	}

	cfg.Backend = *backendFlag
	cfg.Batch = *batchFlag
	cfg.PrintIR = *printIRFlag
	cfg.DumpIR = *dumpFlag
	cfg.applyVerboseFlags(setFlags, *verbose, *verboseLong)
	if *noColorFlag {
		cfg.UseColor = false
	}

	// Set global verbosity flag (use whichever was specified)
	VerboseMode = cfg.Verbose

	backend, err := NewBackend(cfg.Backend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "using %s backend\n", backend.Name())
	}

	compiler := NewCompiler(backend)
	compiler.SetIROutput(os.Stderr, cfg.PrintIR, cfg.DumpIR)

	// jitcalc -c "1+2" or jitcalc 1 + 2
	expr := *codeFlag
	if expr == "" && flag.NArg() > 0 {
		expr = strings.Join(flag.Args(), " ")
	}
	if expr != "" {
		result, err := compiler.Run(expr)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(result)
		return
	}

	session := NewSession(compiler, cfg, os.Stdin, os.Stdout)
	os.Exit(session.Run())
}
