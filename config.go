package main

import (
	"os"
	"path/filepath"

	"github.com/xyproto/env/v2"
)

const historyFilename = ".jitcalc_history"

// Config holds the session settings. Environment variables provide the
// defaults and command line flags override them.
type Config struct {
	Backend     string // auto, native or vm
	Verbose     bool
	PrintIR     bool
	DumpIR      bool
	Batch       bool // read stdin without prompts or line editing
	UseColor    bool
	HistoryFile string // empty disables history
}

// ConfigFromEnv reads JITCALC_BACKEND, JITCALC_VERBOSE, JITCALC_PRINT_IR,
// JITCALC_HISTORY and NO_COLOR. The env cache is reloaded first, so values
// set after an earlier call are seen.
func ConfigFromEnv() Config {
	env.Load()
	return Config{
		Backend:     env.Str("JITCALC_BACKEND", BackendAuto),
		Verbose:     env.Bool("JITCALC_VERBOSE"),
		PrintIR:     env.Bool("JITCALC_PRINT_IR"),
		UseColor:    env.Str("NO_COLOR") == "",
		HistoryFile: env.Str("JITCALC_HISTORY", defaultHistoryFile()),
	}
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFilename)
}

// applyVerboseFlags lets -v/-verbose override JITCALC_VERBOSE in both directions.
// set holds the names of the flags given on the command line.
func (cfg *Config) applyVerboseFlags(set map[string]bool, short, long bool) {
	if set["v"] || set["verbose"] {
		cfg.Verbose = short || long
	}
}
