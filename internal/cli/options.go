// internal/cli/options.go
package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"bcprimers/internal/aggregate"
	"bcprimers/internal/config"
	"bcprimers/internal/service/basechanger"
)

// UsageError marks a command-line mistake as opposed to a failed run.
type UsageError struct{ Err error }

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// Usagef returns a *UsageError.
func Usagef(format string, a ...any) error {
	return &UsageError{Err: fmt.Errorf(format, a...)}
}

// keys maps flag names onto nested config keys; other flags share their
// name with the key.
var keys = map[string]string{
	"url":           "service.url",
	"headless":      "service.headless",
	"chrome-path":   "service.chrome-path",
	"timeout":       "service.timeout",
	"poll-interval": "service.poll-interval",
	"retries":       "service.retries",
}

// unbound flags are handled by the command itself.
var unbound = map[string]bool{"config": true, "help": true, "version": true}

// Key returns the config key a flag is bound to.
func Key(flag string) string {
	if k, ok := keys[flag]; ok {
		return k
	}
	return flag
}

// AddGlobalFlags registers flags shared by every subcommand.
func AddGlobalFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default ./bcprimers.yaml if present)")
	fs.BoolP("quiet", "q", false, "suppress INFO lines; warnings are still printed")
}

// AddInputFlags registers the template and mutation list inputs.
func AddInputFlags(fs *pflag.FlagSet) {
	fs.StringP("fasta", "f", "", "template FASTA file ('-' for stdin, .gz accepted)")
	fs.StringP("aa-csv", "a", "", "mutation list: position,residue per row")
	fs.String("comma", ",", "mutation list field separator (one character or 'tab')")
	fs.IntP("offset", "o", 0, "added to each listed position to give the construct position")
	fs.Int("name-offset", 0, "subtracted from construct positions in primer names (default: --offset)")
}

// AddOutputFlags registers where and how tables are written.
func AddOutputFlags(fs *pflag.FlagSet) {
	fs.String("out", ".", "directory for the final primer list and plate sheets")
	fs.String("format", "csv", "table format: csv | tsv")
}

// AddDesignFlags registers the run and service flags of the design command.
func AddDesignFlags(fs *pflag.FlagSet) {
	fs.String("mode", "library", "residues per position: library | listed")
	fs.String("checkpoint-dir", "temp", "directory for checkpoint snapshots")
	fs.Int("checkpoint-every", aggregate.DefaultEvery, "records between checkpoint snapshots")
	fs.String("resume", "", "primer list or checkpoint to continue from")
	fs.Bool("dry-run", false, "design primers locally instead of contacting the service")

	fs.String("url", basechanger.DefaultURL, "primer service URL")
	fs.Bool("headless", true, "run the browser without a window")
	fs.String("chrome-path", "", "Chrome/Chromium binary (default: search PATH)")
	fs.Duration("timeout", 30*time.Second, "bound on each page interaction")
	fs.Duration("poll-interval", 250*time.Millisecond, "result polling period")
	fs.Int("retries", 0, "extra attempts per primer request (0 = fail on first error)")
}

// Bind binds every flag in fs to its config key on v, so that explicitly
// given flags override file and environment values.
func Bind(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || unbound[f.Name] {
			return
		}
		err = v.BindPFlag(Key(f.Name), f)
	})
	return err
}

// Require reports the first missing input among names ("fasta", "aa-csv").
func Require(c config.Config, names ...string) error {
	var missing []string
	for _, n := range names {
		switch n {
		case "fasta":
			if c.Fasta == "" {
				missing = append(missing, "--fasta")
			}
		case "aa-csv":
			if c.AACSV == "" {
				missing = append(missing, "--aa-csv")
			}
		default:
			return fmt.Errorf("unknown input %q", n)
		}
	}
	if len(missing) > 0 {
		return &UsageError{Err: errors.New(strings.Join(missing, " and ") + " required")}
	}
	return nil
}
