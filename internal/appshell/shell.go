// Package appshell runs a command under a signal-aware context and turns
// its result into the process exit status.
package appshell

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Runner is a whole command line: it returns the exit code.
type Runner func(ctx context.Context, argv []string, stdout, stderr io.Writer) int

// Main runs run with os.Args and exits. SIGINT and SIGTERM cancel the
// context so the run can write its partial results; a second signal kills
// the process.
func Main(run Runner) {
	os.Exit(Exec(run, os.Args[1:], os.Stdout, os.Stderr))
}

// Exec is Main without the exit.
func Exec(run Runner, argv []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		stop() // restore default handling for the second signal
	}()

	code := run(ctx, argv, stdout, stderr)
	// a cancelled run that still reports success was cut short
	if ctx.Err() != nil && code == 0 {
		code = 130
	}
	return code
}
