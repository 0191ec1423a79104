package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/koeng101/poly"

	"bcprimers/internal/mutation"
	"bcprimers/internal/thermo"
)

// Stub designs back-to-back substitution primers locally: the forward primer
// is the new codon followed by the downstream flank, the reverse primer is
// the reverse complement of the upstream flank. Output is a pure function of
// the template, the range and the codon, which makes it suitable for tests
// and --dry-run.
type Stub struct {
	Flank      int               // annealing length on each side; 0 means 20
	Conditions thermo.Conditions // zero value means thermo.DefaultConditions
	// FailAt, when set, is consulted before each Generate; a non-nil
	// return is reported as a RemoteServiceError.
	FailAt func(r mutation.Range, codon string) error

	Calls int // Generate invocations

	seq  string
	open bool
	cur  *mutation.Range
}

var _ PrimerService = (*Stub)(nil)

func (s *Stub) Open(_ context.Context, _ string, sequence string) error {
	if sequence == "" {
		return &RemoteServiceError{Op: "open", Err: errors.New("empty sequence")}
	}
	s.seq = sequence
	s.open = true
	return nil
}

func (s *Stub) SetRange(_ context.Context, r mutation.Range) error {
	if !s.open {
		return &RemoteServiceError{Op: "set range", Position: r.ProteinPos, Err: ErrNotOpen}
	}
	if r.Start < 1 || r.Stop > len(s.seq) {
		return &RemoteServiceError{Op: "set range", Position: r.ProteinPos,
			Err: fmt.Errorf("nucleotides %d-%d outside %d bp template", r.Start, r.Stop, len(s.seq))}
	}
	rr := r
	s.cur = &rr
	return nil
}

func (s *Stub) Generate(ctx context.Context, r mutation.Range, codon string) (Result, error) {
	s.Calls++
	fail := func(err error) (Result, error) {
		return Result{}, &RemoteServiceError{Op: "generate", Position: r.ProteinPos, Codon: codon, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if s.cur == nil || s.cur.Start != r.Start || s.cur.Stop != r.Stop {
		return fail(errors.New("range not selected"))
	}
	if s.FailAt != nil {
		if err := s.FailAt(r, codon); err != nil {
			return fail(err)
		}
	}

	flank := s.Flank
	if flank <= 0 {
		flank = 20
	}
	cond := s.Conditions
	if cond.Na == 0 && cond.CT == 0 {
		cond = thermo.DefaultConditions
	}

	up := s.seq[max(0, r.Start-1-flank) : r.Start-1]
	down := s.seq[r.Stop:min(len(s.seq), r.Stop+flank)]
	if len(up) < 2 || len(down) < 2 {
		return fail(fmt.Errorf("position %d too close to the template end", r.ProteinPos))
	}

	fTm, err := thermo.Tm(down, cond)
	if err != nil {
		return fail(err)
	}
	rev := poly.ReverseComplement(up)
	rTm, err := thermo.Tm(rev, cond)
	if err != nil {
		return fail(err)
	}
	res := Result{
		Forward:   codon + down,
		Reverse:   rev,
		ForwardTm: round1(fTm),
		ReverseTm: round1(rTm),
		AnnealTm:  math.Min(math.Round(math.Min(fTm, rTm))+3, 72),
	}
	out, err := Check(res)
	if err != nil {
		return fail(err)
	}
	return out, nil
}

func (s *Stub) ClearRange(context.Context) error {
	s.cur = nil
	return nil
}

func (s *Stub) Close() error {
	s.open = false
	s.cur = nil
	return nil
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
