package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"bcprimers/internal/cmdutil"
	"bcprimers/internal/mutation"
)

// Retrying wraps a PrimerService and retries failed Generate calls with
// exponential backoff. Session calls (Open, SetRange, ClearRange) pass
// straight through. With Retries == 0 it is a no-op wrapper and the first
// failure aborts the run.
type Retrying struct {
	PrimerService
	Retries int
	Initial time.Duration // first backoff interval; 0 means 2s
	Log     *cmdutil.Logger
}

func (r *Retrying) Generate(ctx context.Context, rg mutation.Range, codon string) (Result, error) {
	if r.Retries <= 0 {
		return r.PrimerService.Generate(ctx, rg, codon)
	}

	eb := backoff.NewExponentialBackOff()
	if r.Initial > 0 {
		eb.InitialInterval = r.Initial
	} else {
		eb.InitialInterval = 2 * time.Second
	}
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(r.Retries)), ctx)

	var res Result
	attempt := 0
	op := func() error {
		attempt++
		var err error
		res, err = r.PrimerService.Generate(ctx, rg, codon)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.Log.Warnf("attempt %d failed (%v); retrying in %s", attempt, err, wait.Round(time.Millisecond))
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return Result{}, err
	}
	return res, nil
}
