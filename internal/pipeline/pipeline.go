// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"bcprimers/internal/aggregate"
	"bcprimers/internal/cmdutil"
	"bcprimers/internal/codon"
	"bcprimers/internal/fasta"
	"bcprimers/internal/mutation"
	"bcprimers/internal/plate"
	"bcprimers/internal/service"
	"bcprimers/internal/writers"
)

// Residue selection modes.
const (
	ModeLibrary = "library" // every library residue at every position
	ModeListed  = "listed"  // only the residue named on each mutation row
)

// Output file stems.
const (
	PrimerListStem = "NEB_basechanger_primer_list"
	ReverseStem    = "IDT-input-primers-rev"
	Forward1Stem   = "IDT-input-primers-fwd-set1"
	Forward2Stem   = "IDT-input-primers-fwd-set2"
)

// Config controls one design run.
type Config struct {
	Codons     codon.Table
	Library    codon.Library
	Mode       string
	NameOffset int // subtracted from the construct position in primer names
	Markers    plate.Markers

	OutputDir       string
	CheckpointDir   string
	CheckpointEvery int
	Format          string // csv | tsv

	// Resume seeds the table with records from an earlier run; their
	// forward primers are not requested again.
	Resume []aggregate.Record

	Log *cmdutil.Logger
}

// Outputs are the files written by Finish.
type Outputs struct {
	PrimerList string
	Reverse    string
	Forward1   string
	Forward2   string
}

// Result summarizes a run. On failure it still carries what was gathered.
type Result struct {
	Records     []aggregate.Record // deduplicated, in first-computed order
	Sheets      plate.Sheets
	Files       Outputs
	Requests    int
	Checkpoints []string
}

// Step is one Generate call of a run.
type Step struct {
	Range   mutation.Range
	Residue string
	Codon   string
}

func (c Config) markers() plate.Markers {
	if c.Markers.Forward == "" || c.Markers.Reverse == "" {
		return plate.DefaultMarkers
	}
	return c.Markers
}

func (c Config) format() string {
	if c.Format == "" {
		return "csv"
	}
	return c.Format
}

// ForwardName and ReverseName build primer names for a range.
func (c Config) ForwardName(r mutation.Range, residue string) string {
	return fmt.Sprintf("%s_%s%s", r.Label(c.NameOffset), residue, c.markers().Forward)
}

func (c Config) ReverseName(r mutation.Range) string {
	return r.Label(c.NameOffset) + c.markers().Reverse
}

func (c Config) residues(r mutation.Range) []string {
	if c.Mode == ModeListed {
		return []string{codon.Normalize(r.Residue)}
	}
	return c.Library.Normalized()
}

// Plan validates every residue against the codon table and expands ranges
// into the ordered list of Generate calls. Any *codon.LookupError surfaces
// here, before the service is contacted.
func Plan(c Config, ranges []mutation.Range) ([]Step, error) {
	switch c.Mode {
	case "", ModeLibrary, ModeListed:
	default:
		return nil, fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Mode != ModeListed && len(c.Library) == 0 {
		return nil, errors.New("empty residue library")
	}
	// listed residues are checked in every mode so a typo in the input
	// fails fast even when the library decides what is ordered
	for _, r := range ranges {
		if err := c.Codons.Validate(r.Residue); err != nil {
			return nil, fmt.Errorf("position %d: %w", r.Position, err)
		}
	}
	if err := c.Codons.Validate(c.Library...); err != nil {
		return nil, fmt.Errorf("library: %w", err)
	}

	steps := make([]Step, 0, len(ranges)*len(c.Library))
	for _, r := range ranges {
		for _, res := range c.residues(r) {
			cd, err := c.Codons.Lookup(res)
			if err != nil {
				return nil, err
			}
			steps = append(steps, Step{Range: r, Residue: res, Codon: cd})
		}
	}
	return steps, nil
}

// Run drives svc through every planned step, strictly one request at a
// time, then writes the final list and plate sheets.
func Run(ctx context.Context, c Config, svc service.PrimerService, seq fasta.Record, ranges []mutation.Range) (*Result, error) {
	steps, err := Plan(c, ranges)
	if err != nil {
		return nil, err
	}
	for _, r := range ranges {
		if r.Stop > len(seq.Seq) {
			return nil, &mutation.InvalidInputError{Path: seq.ID,
				Msg: fmt.Sprintf("position %d (nt %d-%d) is beyond the %d bp sequence", r.ProteinPos, r.Start, r.Stop, len(seq.Seq))}
		}
	}

	cp := &aggregate.Checkpointer{
		Dir:   c.CheckpointDir,
		Every: c.CheckpointEvery,
		Write: func(path string, recs []aggregate.Record) error {
			return writers.SavePrimerList(path, c.format(), recs)
		},
	}
	if err := cp.Prepare(); err != nil {
		return nil, fmt.Errorf("checkpoint dir: %w", err)
	}
	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}

	tab := aggregate.NewTable()
	for _, r := range c.Resume {
		tab.Add(r)
	}
	cp.Seed(tab.Len())
	res := &Result{}

	pending := steps[:0:0]
	for _, s := range steps {
		if !tab.Has(c.ForwardName(s.Range, s.Residue)) {
			pending = append(pending, s)
		}
	}
	if skipped := len(steps) - len(pending); skipped > 0 {
		c.Log.Infof("resume: %d of %d requests already done", skipped, len(steps))
	}

	if len(pending) > 0 {
		// a half-opened session still holds a browser
		defer func() { _ = svc.Close() }()
		if err := svc.Open(ctx, seq.ID, seq.Seq); err != nil {
			return res, err
		}

		if err := drive(ctx, c, svc, seq, pending, tab, cp, res); err != nil {
			if p, ferr := cp.Flush(tab, lastName(tab)+"_partial"); ferr == nil && p != "" {
				res.Checkpoints = append(res.Checkpoints, p)
				c.Log.Warnf("run aborted; partial results in %s", p)
			}
			res.Records = aggregate.Dedup(tab.Records())
			return res, err
		}
	}

	res.Records = aggregate.Dedup(tab.Records())
	files, sheets, err := Finish(c, res.Records)
	res.Files, res.Sheets = files, sheets
	return res, err
}

func drive(ctx context.Context, c Config, svc service.PrimerService, seq fasta.Record,
	steps []Step, tab *aggregate.Table, cp *aggregate.Checkpointer, res *Result) error {
	for i := 0; i < len(steps); {
		r := steps[i].Range
		j := i
		for j < len(steps) && steps[j].Range == r {
			j++
		}
		c.Log.Infof("position %d: nt %d-%d, %d codons", r.ProteinPos, r.Start, r.Stop, j-i)
		if err := svc.SetRange(ctx, r); err != nil {
			return err
		}
		wt := r.Codon(seq.Seq)
		for _, s := range steps[i:j] {
			if err := ctx.Err(); err != nil {
				return err
			}
			if s.Codon == wt {
				c.Log.Warnf("position %d: %s codon %s equals the template codon", r.ProteinPos, s.Residue, s.Codon)
			}
			out, err := svc.Generate(ctx, r, s.Codon)
			res.Requests++
			if err != nil {
				var rse *service.RemoteServiceError
				if errors.As(err, &rse) && rse.Residue == "" {
					rse.Residue = s.Residue
				}
				return err
			}
			fwd := aggregate.Record{Name: c.ForwardName(r, s.Residue), Sequence: out.Forward, AnnealTm: out.AnnealTm}
			rev := aggregate.Record{Name: c.ReverseName(r), Sequence: out.Reverse, AnnealTm: out.AnnealTm}
			tab.Add(fwd)
			// one reverse primer per position is kept; later answers replace it
			if prev, replaced := tab.Add(rev); replaced && prev.Sequence != rev.Sequence {
				c.Log.Warnf("%s: reverse primer changed from %s to %s", rev.Name, prev.Sequence, rev.Sequence)
			}
			p, err := cp.Observe(tab, fwd.Name)
			if err != nil {
				return fmt.Errorf("checkpoint: %w", err)
			}
			if p != "" {
				res.Checkpoints = append(res.Checkpoints, p)
				c.Log.Infof("checkpoint %s (%d primers)", p, tab.Len())
			}
		}
		if err := svc.ClearRange(ctx); err != nil {
			return err
		}
		i = j
	}
	return nil
}

func lastName(t *aggregate.Table) string {
	recs := t.Records()
	if len(recs) == 0 {
		return "empty"
	}
	return recs[len(recs)-1].Name
}

// Finish writes the final primer list and the three plate sheets for recs
// into c.OutputDir.
func Finish(c Config, recs []aggregate.Record) (Outputs, plate.Sheets, error) {
	recs = aggregate.Dedup(recs)
	ext := writers.Ext(c.format())
	out := Outputs{
		PrimerList: filepath.Join(c.OutputDir, PrimerListStem+ext),
		Reverse:    filepath.Join(c.OutputDir, ReverseStem+ext),
		Forward1:   filepath.Join(c.OutputDir, Forward1Stem+ext),
		Forward2:   filepath.Join(c.OutputDir, Forward2Stem+ext),
	}
	sheets := plate.Layout(recs, c.Library.Normalized(), c.markers())
	for _, u := range sheets.Unplaced {
		c.Log.Warnf("%s: residue not in library, left off the forward sheets", u.Name)
	}

	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return out, sheets, err
	}
	if err := writers.SavePrimerList(out.PrimerList, c.format(), recs); err != nil {
		return out, sheets, err
	}
	for _, s := range []struct {
		path string
		as   []plate.Assignment
	}{
		{out.Reverse, sheets.Reverse},
		{out.Forward1, sheets.Forward1},
		{out.Forward2, sheets.Forward2},
	} {
		if err := writers.SaveSheet(s.path, c.format(), s.as); err != nil {
			return out, sheets, err
		}
	}
	c.Log.Infof("%d primers: %d reverse, %d + %d forward", len(recs),
		len(sheets.Reverse), len(sheets.Forward1), len(sheets.Forward2))
	return out, sheets, nil
}
