package app

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bcprimers/internal/aggregate"
	"bcprimers/internal/cli"
	"bcprimers/internal/cmdutil"
	"bcprimers/internal/config"
	"bcprimers/internal/fasta"
	"bcprimers/internal/mutation"
	"bcprimers/internal/pipeline"
	"bcprimers/internal/plate"
	"bcprimers/internal/service"
	"bcprimers/internal/service/basechanger"
	"bcprimers/internal/writers"
)

func newService(c config.Config, log *cmdutil.Logger) service.PrimerService {
	if c.DryRun {
		log.Infof("dry run: primers are designed locally")
		return &service.Stub{}
	}
	s := c.Service
	bc := basechanger.New(basechanger.Options{
		URL:          s.URL,
		Headless:     s.Headless,
		ExecPath:     s.ChromePath,
		Timeout:      s.Timeout,
		PollInterval: s.PollInterval,
		Selectors:    s.Selectors,
		Log:          log,
	})
	return &service.Retrying{PrimerService: bc, Retries: s.Retries, Log: log}
}

func pipelineConfig(c config.Config, log *cmdutil.Logger) pipeline.Config {
	return pipeline.Config{
		Codons:          c.Table(),
		Library:         c.ResidueLibrary(),
		Mode:            c.Mode,
		NameOffset:      c.NameOffset,
		Markers:         plate.DefaultMarkers,
		OutputDir:       c.Out,
		CheckpointDir:   c.CheckpointDir,
		CheckpointEvery: c.CheckpointEvery,
		Format:          c.Format,
		Log:             log,
	}
}

// loadRanges reads the mutation list and resolves it against the offset.
func (e *env) loadRanges() ([]mutation.Range, error) {
	reqs, err := mutation.LoadCSV(e.cfg.AACSV, e.cfg.CommaRune())
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, &mutation.InvalidInputError{Path: e.cfg.AACSV, Msg: "no mutation rows"}
	}
	rs, err := mutation.ToRanges(reqs, e.cfg.Offset)
	if err != nil {
		var ie *mutation.InvalidInputError
		if errors.As(err, &ie) && ie.Path == "" {
			ie.Path = e.cfg.AACSV
		}
		return nil, err
	}
	return rs, nil
}

func (e *env) designCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "design",
		Short: "Request primers for every position and write the list and plate sheets",
		Example: `  bcprimers design -f pol6.fa -a positions.csv -o 92
  bcprimers design -f pol6.fa -a positions.csv -o 92 --resume temp/221_His_fwd_tmp.csv
  bcprimers design -f pol6.fa -a positions.csv --dry-run --out /tmp/plates`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.Require(e.cfg, "fasta", "aa-csv"); err != nil {
				return err
			}
			return e.design(cmd)
		},
	}
	fs := cmd.Flags()
	cli.AddInputFlags(fs)
	cli.AddOutputFlags(fs)
	cli.AddDesignFlags(fs)
	return cmd
}

func (e *env) design(cmd *cobra.Command) error {
	ctx := cmd.Context()
	seq, err := fasta.ReadOne(e.cfg.Fasta)
	if err != nil {
		return err
	}
	ranges, err := e.loadRanges()
	if err != nil {
		return err
	}

	pc := pipelineConfig(e.cfg, e.log)
	if e.cfg.Resume != "" {
		recs, err := writers.LoadPrimerList(e.cfg.Resume)
		if err != nil {
			return &mutation.InvalidInputError{Path: e.cfg.Resume, Msg: "cannot read resume file", Err: err}
		}
		pc.Resume = recs
		e.log.Infof("resuming from %s (%d primers)", e.cfg.Resume, len(recs))
	}
	// fail on lookups before a browser is started
	if _, err := pipeline.Plan(pc, ranges); err != nil {
		return err
	}

	e.log.Infof("%s: %d bp, %d positions, mode %s", seq.ID, len(seq.Seq), len(ranges), e.cfg.Mode)
	svc := e.newService(e.cfg, e.log)
	res, err := pipeline.Run(ctx, pc, svc, seq, ranges)
	if err != nil {
		return err
	}
	return e.flush(func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%d primers (%d requests)\n", len(res.Records), res.Requests)
		for _, p := range []string{res.Files.PrimerList, res.Files.Reverse, res.Files.Forward1, res.Files.Forward2} {
			if err == nil {
				_, err = fmt.Fprintln(w, p)
			}
		}
		return err
	})
}

func (e *env) rangesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ranges",
		Short: "Print the construct position and codon coordinates of each mutation row",
		Long: `Print the construct position and codon coordinates of each mutation row
without contacting the primer service. With --fasta the template codon at
each position is shown too.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.Require(e.cfg, "aa-csv"); err != nil {
				return err
			}
			ranges, err := e.loadRanges()
			if err != nil {
				return err
			}
			var seq string
			if e.cfg.Fasta != "" {
				rec, err := fasta.ReadOne(e.cfg.Fasta)
				if err != nil {
					return err
				}
				seq = rec.Seq
			}
			return e.flush(func(w io.Writer) error { return writeRanges(w, ranges, seq, e.cfg.NameOffset) })
		},
	}
	cli.AddInputFlags(cmd.Flags())
	return cmd
}

func writeRanges(w io.Writer, ranges []mutation.Range, seq string, nameOffset int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	cols := []string{"name", "position", "residue", "start", "stop"}
	if seq != "" {
		cols = append(cols, "codon")
	}
	_, _ = fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for _, r := range ranges {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d", r.Label(nameOffset), r.ProteinPos, r.Residue, r.Start, r.Stop)
		if seq != "" {
			cd := r.Codon(seq)
			if cd == "" {
				cd = "-"
			}
			_, _ = fmt.Fprintf(tw, "\t%s", cd)
		}
		_, _ = fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func (e *env) platesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plates LIST",
		Short: "Rebuild the plate sheets from a primer list or checkpoint",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := writers.LoadPrimerList(args[0])
			if err != nil {
				return &mutation.InvalidInputError{Path: args[0], Msg: "cannot read primer list", Err: err}
			}
			pc := pipelineConfig(e.cfg, e.log)
			out, sheets, err := pipeline.Finish(pc, aggregate.Dedup(recs))
			if err != nil {
				return err
			}
			return e.flush(func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: %d reverse\n%s: %d forward\n%s: %d forward\n",
					out.Reverse, len(sheets.Reverse), out.Forward1, len(sheets.Forward1), out.Forward2, len(sheets.Forward2))
				return err
			})
		},
	}
	cli.AddOutputFlags(cmd.Flags())
	return cmd
}
