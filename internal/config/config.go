// Package config is the run-wide settings struct, unmarshalled from viper
// (config file, BCPRIMERS_* environment and bound command-line flags).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"

	"bcprimers/internal/aggregate"
	"bcprimers/internal/codon"
	"bcprimers/internal/service/basechanger"
)

// EnvPrefix prefixes every environment override, e.g. BCPRIMERS_OFFSET.
const EnvPrefix = "BCPRIMERS"

// ServiceConfig is for settings of the remote primer service session.
type ServiceConfig struct {
	// base URL of the Basechanger page
	URL string `mapstructure:"url"`

	// run Chrome without a window
	Headless bool `mapstructure:"headless"`

	// Chrome binary; empty lets chromedp find one on PATH
	ChromePath string `mapstructure:"chrome-path"`

	// bound on each page interaction
	Timeout time.Duration `mapstructure:"timeout"`

	// result-table polling period
	PollInterval time.Duration `mapstructure:"poll-interval"`

	// extra attempts per Generate call; 0 fails on the first error
	Retries int `mapstructure:"retries"`

	// page element locators, for when the site markup changes
	Selectors basechanger.Selectors `mapstructure:"selectors"`
}

// Config is the root-level settings struct.
type Config struct {
	Fasta string `mapstructure:"fasta"`
	// mutation list: position,residue rows
	AACSV string `mapstructure:"aa-csv"`
	// field separator of the mutation list, one character
	Comma string `mapstructure:"comma"`

	// added to every listed position to get the construct position
	Offset int `mapstructure:"offset"`
	// subtracted again for primer names; follows Offset unless set
	NameOffset int `mapstructure:"name-offset"`

	// library | listed
	Mode    string   `mapstructure:"mode"`
	Library []string `mapstructure:"library"`
	// residue → codon; keys are matched case-insensitively
	Codons map[string]string `mapstructure:"codons"`

	Out             string `mapstructure:"out"`
	Format          string `mapstructure:"format"`
	CheckpointDir   string `mapstructure:"checkpoint-dir"`
	CheckpointEvery int    `mapstructure:"checkpoint-every"`
	// earlier primer list or checkpoint to continue from
	Resume string `mapstructure:"resume"`

	// design locally instead of driving the remote service
	DryRun bool `mapstructure:"dry-run"`
	Quiet  bool `mapstructure:"quiet"`

	Service ServiceConfig `mapstructure:"service"`
}

// New returns a viper instance with the defaults registered and
// environment overrides enabled (service.timeout → BCPRIMERS_SERVICE_TIMEOUT).
func New() *viper.Viper {
	v := viper.New()
	Defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile loads path into v. With an empty path it looks for an optional
// bcprimers.{yaml,toml,json} in the working directory.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		return v.ReadInConfig()
	}
	v.SetConfigName("bcprimers")
	v.AddConfigPath(".")
	err := v.ReadInConfig()
	var nf viper.ConfigFileNotFoundError
	if errors.As(err, &nf) {
		return nil
	}
	return err
}

// Defaults registers the built-in values on v.
func Defaults(v *viper.Viper) {
	v.SetDefault("comma", ",")
	v.SetDefault("offset", 0)
	v.SetDefault("mode", "library")
	v.SetDefault("out", ".")
	v.SetDefault("format", "csv")
	v.SetDefault("checkpoint-dir", "temp")
	v.SetDefault("checkpoint-every", aggregate.DefaultEvery)

	v.SetDefault("service.url", basechanger.DefaultURL)
	v.SetDefault("service.headless", true)
	v.SetDefault("service.timeout", 30*time.Second)
	v.SetDefault("service.poll-interval", 250*time.Millisecond)
	v.SetDefault("service.retries", 0)
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("unable to decode config: %w", err)
	}
	if !v.IsSet("name-offset") {
		c.NameOffset = c.Offset
	}
	return c, c.Validate()
}

// Table returns the configured codon table, or the default one.
func (c Config) Table() codon.Table {
	if len(c.Codons) == 0 {
		return codon.DefaultTable()
	}
	return codon.Table(c.Codons).Normalized()
}

// ResidueLibrary returns the configured library, or the default one.
func (c Config) ResidueLibrary() codon.Library {
	if len(c.Library) == 0 {
		return codon.DefaultLibrary()
	}
	return codon.Library(c.Library).Normalized()
}

// CommaRune returns the mutation list separator.
func (c Config) CommaRune() rune {
	if c.Comma == `\t` || c.Comma == "tab" {
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(c.Comma)
	return r
}

// Validate checks settings that do not depend on the subcommand.
func (c Config) Validate() error {
	switch c.Mode {
	case "library", "listed":
	default:
		return fmt.Errorf("invalid mode %q (library | listed)", c.Mode)
	}
	switch c.Format {
	case "csv", "tsv":
	default:
		return fmt.Errorf("invalid format %q (csv | tsv)", c.Format)
	}
	if c.Comma != `\t` && c.Comma != "tab" && utf8.RuneCountInString(c.Comma) != 1 {
		return fmt.Errorf("comma must be a single character, got %q", c.Comma)
	}
	if c.CheckpointEvery < 0 {
		return errors.New("checkpoint-every must be ≥ 0")
	}
	if c.Service.Retries < 0 {
		return errors.New("retries must be ≥ 0")
	}
	if c.Service.Timeout <= 0 {
		return errors.New("timeout must be > 0")
	}
	if c.Service.PollInterval < 0 {
		return errors.New("poll-interval must be ≥ 0")
	}
	tab := c.Table()
	for res := range tab {
		if err := tab.Validate(res); err != nil {
			return err
		}
	}
	if err := tab.Validate(c.ResidueLibrary()...); err != nil {
		return fmt.Errorf("library: %w", err)
	}
	return nil
}
