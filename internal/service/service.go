// Package service is the boundary to the remote primer generator. The rest
// of the pipeline only sees PrimerService; the browser adapter lives in
// service/basechanger and a deterministic in-memory Stub lives here.
package service

import (
	"context"
	"errors"
	"fmt"

	"bcprimers/internal/mutation"
	"bcprimers/internal/oligo"
)

// Result is what the service reports for one codon replacement.
type Result struct {
	Forward   string
	Reverse   string
	ForwardTm float64 // °C
	ReverseTm float64 // °C
	AnnealTm  float64 // recommended annealing temperature, °C
}

// PrimerService is a session against a primer-design backend. Calls are
// strictly sequential: Open once, then for each range SetRange, any number
// of Generate calls, and ClearRange.
type PrimerService interface {
	Open(ctx context.Context, seqID, sequence string) error
	SetRange(ctx context.Context, r mutation.Range) error
	Generate(ctx context.Context, r mutation.Range, codon string) (Result, error)
	ClearRange(ctx context.Context) error
	Close() error
}

// RemoteServiceError reports a failed interaction with the backend: it was
// unreachable, timed out, or answered with something unexpected. Position,
// Residue and Codon name the request that was in flight.
type RemoteServiceError struct {
	Op       string
	Position int // protein position after offset; 0 if not range-specific
	Residue  string
	Codon    string
	Err      error
}

func (e *RemoteServiceError) Error() string {
	msg := "remote service: " + e.Op
	if e.Position > 0 {
		msg += fmt.Sprintf(" at position %d", e.Position)
	}
	switch {
	case e.Residue != "" && e.Codon != "":
		msg += fmt.Sprintf(" (%s, %s)", e.Residue, e.Codon)
	case e.Codon != "":
		msg += fmt.Sprintf(" (%s)", e.Codon)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline.
func (e *RemoteServiceError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// ErrNotOpen is returned when a session call precedes Open.
var ErrNotOpen = errors.New("session not open")

// Check normalizes the primer sequences in res and rejects empty or
// non-ACGT values, which mean the page was not in the expected state.
func Check(res Result) (Result, error) {
	f, err := oligo.Validate(res.Forward)
	if err != nil {
		return Result{}, fmt.Errorf("forward primer %q: %w", res.Forward, err)
	}
	r, err := oligo.Validate(res.Reverse)
	if err != nil {
		return Result{}, fmt.Errorf("reverse primer %q: %w", res.Reverse, err)
	}
	res.Forward, res.Reverse = f, r
	return res, nil
}
