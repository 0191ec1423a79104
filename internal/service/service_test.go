package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"bcprimers/internal/mutation"
)

// 60 bp template: residue 11 is codon 31-33.
const template = "ATGAAACGCATTAGCACCACCATTACCACCACCATCACCATTACCACAGGTAACGGTGCG"

func openStub(t *testing.T) (*Stub, mutation.Range) {
	t.Helper()
	s := &Stub{Flank: 15}
	ctx := context.Background()
	if err := s.Open(ctx, "t", template); err != nil {
		t.Fatal(err)
	}
	r := mutation.NewRange(mutation.Request{Position: 11, Residue: "Gln"}, 0)
	if err := s.SetRange(ctx, r); err != nil {
		t.Fatal(err)
	}
	return s, r
}

func TestStub_Deterministic(t *testing.T) {
	s, r := openStub(t)
	ctx := context.Background()
	a, err := s.Generate(ctx, r, "CAG")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := s.Generate(ctx, r, "CAG")
	if a != b {
		t.Fatalf("not deterministic: %+v vs %+v", a, b)
	}
	if !strings.HasPrefix(a.Forward, "CAG") || len(a.Forward) != 18 {
		t.Fatalf("forward = %q", a.Forward)
	}
	if len(a.Reverse) != 15 {
		t.Fatalf("reverse = %q", a.Reverse)
	}
	if a.AnnealTm <= 0 || a.AnnealTm > 72 {
		t.Fatalf("anneal Tm = %v", a.AnnealTm)
	}
	if s.Calls != 2 {
		t.Fatalf("calls = %d", s.Calls)
	}
}

func TestStub_ReverseIndependentOfCodon(t *testing.T) {
	s, r := openStub(t)
	ctx := context.Background()
	a, _ := s.Generate(ctx, r, "CAG")
	b, _ := s.Generate(ctx, r, "TGG")
	if a.Reverse != b.Reverse || a.Forward == b.Forward {
		t.Fatalf("fwd %q/%q rev %q/%q", a.Forward, b.Forward, a.Reverse, b.Reverse)
	}
}

func TestStub_SessionOrder(t *testing.T) {
	s := &Stub{}
	ctx := context.Background()
	r := mutation.NewRange(mutation.Request{Position: 3}, 0)
	var rse *RemoteServiceError
	if err := s.SetRange(ctx, r); !errors.As(err, &rse) || !errors.Is(err, ErrNotOpen) {
		t.Fatalf("SetRange before Open: %v", err)
	}
	_ = s.Open(ctx, "t", template)
	if _, err := s.Generate(ctx, r, "CAG"); !errors.As(err, &rse) {
		t.Fatalf("Generate without range: %v", err)
	}
	far := mutation.NewRange(mutation.Request{Position: 500}, 0)
	if err := s.SetRange(ctx, far); !errors.As(err, &rse) || rse.Position != 500 {
		t.Fatalf("out of template: %v", err)
	}
}

func TestStub_EdgeOfTemplate(t *testing.T) {
	s := &Stub{}
	ctx := context.Background()
	_ = s.Open(ctx, "t", template)
	r := mutation.NewRange(mutation.Request{Position: 1}, 0)
	if err := s.SetRange(ctx, r); err != nil {
		t.Fatal(err)
	}
	_, err := s.Generate(ctx, r, "CTG")
	var rse *RemoteServiceError
	if !errors.As(err, &rse) || rse.Position != 1 || rse.Codon != "CTG" {
		t.Fatalf("want RemoteServiceError naming position and codon, got %v", err)
	}
}

func TestRemoteServiceError_Message(t *testing.T) {
	err := &RemoteServiceError{Op: "generate", Position: 110, Residue: "Gln", Codon: "CAG",
		Err: context.DeadlineExceeded}
	if got := err.Error(); got != "remote service: generate at position 110 (Gln, CAG): context deadline exceeded" {
		t.Fatalf("message = %q", got)
	}
	if !err.Timeout() {
		t.Fatal("Timeout() = false")
	}
}

func TestCheck(t *testing.T) {
	if _, err := Check(Result{Forward: "", Reverse: "ACGT"}); err == nil {
		t.Fatal("empty forward must fail")
	}
	got, err := Check(Result{Forward: " cagT ", Reverse: "acgt"})
	if err != nil || got.Forward != "CAGT" || got.Reverse != "ACGT" {
		t.Fatalf("got %+v %v", got, err)
	}
}

func TestRetrying(t *testing.T) {
	s, r := openStub(t)
	fails := 2
	s.FailAt = func(mutation.Range, string) error {
		if fails > 0 {
			fails--
			return errors.New("page not ready")
		}
		return nil
	}
	rt := &Retrying{PrimerService: s, Retries: 3, Initial: time.Millisecond}
	if _, err := rt.Generate(context.Background(), r, "CAG"); err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if s.Calls != 3 {
		t.Fatalf("calls = %d, want 3", s.Calls)
	}
}

func TestRetrying_Disabled(t *testing.T) {
	s, r := openStub(t)
	s.FailAt = func(mutation.Range, string) error { return errors.New("boom") }
	rt := &Retrying{PrimerService: s}
	_, err := rt.Generate(context.Background(), r, "CAG")
	var rse *RemoteServiceError
	if !errors.As(err, &rse) || s.Calls != 1 {
		t.Fatalf("err=%v calls=%d", err, s.Calls)
	}
}
