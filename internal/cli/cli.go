package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// Commands supported by the tool.
const (
	CommandList   = "list"
	CommandErrors = "errors"
	CommandWatch  = "watch"
)

// ExitError carries a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}

// Config is the parsed command line.
type Config struct {
	Root      string
	Command   string
	LogFormat string
	LogLevel  string
}

// Parse processes command-line arguments. The boolean is true when the
// program should exit cleanly without running a command (help, no command).
func Parse(args []string, output io.Writer) (*Config, bool, error) {
	flagSet := flag.NewFlagSet("naclws", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `naclws - inspect and watch a configuration workspace.

Usage:
  naclws [options] <command>

Commands:
  list      print every merged element identity
  errors    print parse and merge errors; exits 1 when any exist
  watch     follow external file edits and print the resulting changes

Options:
`)
		flagSet.PrintDefaults()
	}

	rootFlag := flagSet.String("C", ".", "Workspace root directory.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	command := flagSet.Arg(0)
	switch command {
	case CommandList, CommandErrors, CommandWatch:
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", command)}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	return &Config{
		Root:      *rootFlag,
		Command:   command,
		LogFormat: logFormat,
		LogLevel:  logLevel,
	}, false, nil
}
