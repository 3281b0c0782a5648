// File: cmd/scalpel-webdriver/main.go
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/xkilldash9x/scalpel-webdriver/cmd"
	"github.com/xkilldash9x/scalpel-webdriver/internal/observability"
)

const panicLogFile = "panic.log"

// Function variables for mocking in tests.
var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
)

func main() {
	defer handlePanic()

	// Cancel running lookups on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 {
		if err := cmd.Execute(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				osExit(0)
			} else {
				osExit(1)
			}
		}
		return
	}

	if err := runInteractive(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error reading from stdin:", err)
		osExit(1)
	}
}

// runInteractive reads one command line at a time and runs it against a
// fresh command tree, until EOF or "exit".
func runInteractive(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "scalpel-webdriver > ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		executeInteractiveCommand(ctx, line, out)
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

// executeInteractiveCommand runs one line. Errors and panics are reported
// without leaving the shell.
func executeInteractiveCommand(ctx context.Context, line string, out io.Writer) {
	rootCmd := cmd.NewRootCommand()
	rootCmd.SetArgs(strings.Fields(line))
	rootCmd.SetOut(out)

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Error: command panicked: %v\n", r)
		}
	}()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
}

// handlePanic writes the panic and its stack to panicLogFile and exits
// non-zero.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	panicMessage := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := osWriteFile(panicLogFile, []byte(panicMessage), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", panicMessage)
		osExit(1)
		return
	}
	fmt.Fprintf(os.Stderr, "CRASH DETECTED. Details logged to %s\n", panicLogFile)
	osExit(1)
}
