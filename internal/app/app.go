// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bcprimers/internal/cli"
	"bcprimers/internal/cmdutil"
	"bcprimers/internal/codon"
	"bcprimers/internal/config"
	"bcprimers/internal/fasta"
	"bcprimers/internal/mutation"
	"bcprimers/internal/service"
	"bcprimers/internal/version"
	"bcprimers/internal/writers"
)

// Exit codes.
const (
	ExitOK        = 0
	ExitUsage     = 2 // bad flags, input files or residues
	ExitRuntime   = 3 // service or I/O failure
	ExitCancelled = 130
)

// env carries per-invocation state into the subcommands.
type env struct {
	v      *viper.Viper
	cfg    config.Config
	log    *cmdutil.Logger
	stdout io.Writer
	stderr io.Writer

	// newService is swapped out in tests.
	newService func(config.Config, *cmdutil.Logger) service.PrimerService
}

// RunContext executes the bcprimers command line and returns the exit code.
func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	e := &env{v: config.New(), stdout: stdout, stderr: stderr, newService: newService}
	return e.run(parent, argv)
}

// Run is RunContext without cancellation.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

func (e *env) run(ctx context.Context, argv []string) int {
	root := e.rootCmd()
	root.SetArgs(argv)
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)

	err := root.ExecuteContext(ctx)
	code := ExitCode(err)
	if ctx.Err() != nil && code != ExitOK {
		code = ExitCancelled
	}
	switch {
	case err == nil:
	case code == ExitCancelled:
		_, _ = fmt.Fprintln(e.stderr, "bcprimers: cancelled")
	default:
		_, _ = fmt.Fprintf(e.stderr, "bcprimers: %v\n", err)
		var ue *cli.UsageError
		if errors.As(err, &ue) {
			_, _ = fmt.Fprintln(e.stderr, "Run 'bcprimers --help' for usage.")
		}
	}
	return code
}

// ExitCode classifies err: input, lookup and usage errors are the caller's
// to fix; everything else is a runtime failure.
func ExitCode(err error) int {
	var (
		ie *mutation.InvalidInputError
		le *codon.LookupError
		ue *cli.UsageError
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.As(err, &ie), errors.As(err, &le), errors.As(err, &ue),
		errors.Is(err, fasta.ErrEmpty), errors.Is(err, fasta.ErrBadSequence),
		errors.Is(err, os.ErrNotExist):
		return ExitUsage
	default:
		return ExitRuntime
	}
}

func (e *env) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bcprimers",
		Short: "Design site-saturation mutagenesis primers and lay them out on 96-well plates",
		Long: `bcprimers turns a template sequence and a list of protein positions into
substitution primers, one forward primer per library residue and one shared
reverse primer per position, by driving the NEB Basechanger web tool.

The final primer list is deduplicated by sequence and split into three
96-well plate sheets: reverse primers, and the forward primers of each half
of the residue library.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cli.Usagef("unknown command %q", args[0])
			}
			return cmd.Help()
		},
		PersistentPreRunE: e.setup,
	}
	root.SetVersionTemplate("bcprimers version {{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &cli.UsageError{Err: err}
	})
	cli.AddGlobalFlags(root.PersistentFlags())

	root.AddCommand(e.designCmd(), e.rangesCmd(), e.platesCmd(), e.versionCmd())
	return root
}

// setup reads the config file, binds the command's flags and decodes the
// merged settings.
func (e *env) setup(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	if err := config.ReadFile(e.v, path); err != nil {
		return &cli.UsageError{Err: fmt.Errorf("config: %w", err)}
	}
	if err := cli.Bind(e.v, cmd.Flags()); err != nil {
		return err
	}
	c, err := config.Load(e.v)
	if err != nil {
		return &cli.UsageError{Err: err}
	}
	e.cfg = c
	e.log = cmdutil.NewLogger(e.stderr, c.Quiet)
	return nil
}

func (e *env) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  usageArgs(cobra.NoArgs),
		// skip config loading so a broken config file cannot hide the version
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.flush(func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "bcprimers version %s\n", version.Version)
				return err
			})
		},
	}
}

// usageArgs marks positional-argument errors as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &cli.UsageError{Err: err}
		}
		return nil
	}
}

// flush writes to stdout through a buffer; a reader that went away early
// (e.g. head) is not an error.
func (e *env) flush(fill func(io.Writer) error) error {
	bw := bufio.NewWriter(e.stdout)
	err := fill(bw)
	if err == nil {
		err = bw.Flush()
	}
	if writers.IsBrokenPipe(err) {
		return nil
	}
	return err
}
