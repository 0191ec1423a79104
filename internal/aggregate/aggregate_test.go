package aggregate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestTable_ReplaceKeepsPosition(t *testing.T) {
	tb := NewTable()
	tb.Add(Record{Name: "110_Leu_fwd", Sequence: "AAA"})
	tb.Add(Record{Name: "110_rev", Sequence: "CCC", AnnealTm: 60})
	tb.Add(Record{Name: "110_Val_fwd", Sequence: "GGG"})
	prev, replaced := tb.Add(Record{Name: "110_rev", Sequence: "TTT", AnnealTm: 61})
	if !replaced || prev.Sequence != "CCC" {
		t.Fatalf("replace: prev=%+v replaced=%v", prev, replaced)
	}
	got := tb.Records()
	if tb.Len() != 3 || got[1].Name != "110_rev" || got[1].Sequence != "TTT" || got[1].AnnealTm != 61 {
		t.Fatalf("records = %+v", got)
	}
	if !tb.Has("110_Val_fwd") || tb.Has("111_rev") {
		t.Fatal("Has mismatch")
	}
}

func TestDedup_FirstWinsAndIdempotent(t *testing.T) {
	in := []Record{
		{Name: "a", Sequence: "ACGT"},
		{Name: "b", Sequence: "GGGG"},
		{Name: "c", Sequence: "ACGT"},
		{Name: "d", Sequence: "TTTT"},
		{Name: "e", Sequence: "GGGG"},
	}
	once := Dedup(in)
	if len(once) != 3 || once[0].Name != "a" || once[1].Name != "b" || once[2].Name != "d" {
		t.Fatalf("dedup = %+v", once)
	}
	if twice := Dedup(once); !reflect.DeepEqual(once, twice) {
		t.Fatalf("not idempotent: %+v vs %+v", once, twice)
	}
	seen := map[string]bool{}
	for _, r := range once {
		if seen[r.Sequence] {
			t.Fatalf("duplicate sequence %s", r.Sequence)
		}
		seen[r.Sequence] = true
	}
}

func TestCheckpointer_FiresOnCrossing(t *testing.T) {
	dir := t.TempDir()
	var written []string
	var sizes []int
	cp := &Checkpointer{Dir: filepath.Join(dir, "temp"), Every: 10,
		Write: func(path string, recs []Record) error {
			written = append(written, filepath.Base(path))
			sizes = append(sizes, len(recs))
			return nil
		}}
	if err := cp.Prepare(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cp.Dir); err != nil {
		t.Fatalf("dir not created: %v", err)
	}
	if err := cp.Prepare(); err != nil {
		t.Fatalf("prepare must be idempotent: %v", err)
	}

	tb := NewTable()
	add := func(name, seq string) {
		tb.Add(Record{Name: name, Sequence: seq})
		if _, err := cp.Observe(tb, name); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 9; i++ {
		add(fmt.Sprintf("r%d", i), fmt.Sprintf("S%d", i))
	}
	if len(written) != 0 {
		t.Fatalf("early checkpoint: %v", written)
	}
	// jump from 9 to 11 in one step: still checkpoints once
	tb.Add(Record{Name: "x", Sequence: "S0"})
	add("y", "SY")
	add("z", "SZ")
	if len(written) != 1 || written[0] != "y_tmp.csv" {
		t.Fatalf("written = %v", written)
	}
	if sizes[0] != 10 { // 11 records, one duplicate sequence
		t.Fatalf("snapshot size = %d", sizes[0])
	}
	for i := 0; i < 8; i++ {
		add(fmt.Sprintf("q%d", i), fmt.Sprintf("Q%d", i))
	}
	if len(written) != 2 {
		t.Fatalf("expected second checkpoint at 20, written = %v", written)
	}
}

func TestCheckpointer_Seed(t *testing.T) {
	n := 0
	cp := &Checkpointer{Dir: t.TempDir(), Every: 5, Write: func(string, []Record) error { n++; return nil }}
	cp.Seed(7)
	tb := NewTable()
	for i := 0; i < 9; i++ {
		tb.Add(Record{Name: fmt.Sprint(i), Sequence: fmt.Sprint(i)})
	}
	_, _ = cp.Observe(tb, "8")
	if n != 0 {
		t.Fatal("seeded checkpointer fired below next multiple")
	}
	tb.Add(Record{Name: "9", Sequence: "9"})
	_, _ = cp.Observe(tb, "9")
	if n != 1 {
		t.Fatalf("writes = %d", n)
	}
}

func TestCheckpointer_WriteErrorRetriesNextTime(t *testing.T) {
	fail := true
	cp := &Checkpointer{Dir: t.TempDir(), Every: 1, Write: func(string, []Record) error {
		if fail {
			return errors.New("disk full")
		}
		return nil
	}}
	tb := NewTable()
	tb.Add(Record{Name: "a", Sequence: "A"})
	if _, err := cp.Observe(tb, "a"); err == nil {
		t.Fatal("expected write error")
	}
	fail = false
	if p, err := cp.Observe(tb, "a"); err != nil || p == "" {
		t.Fatalf("retry: %q %v", p, err)
	}
}

func TestCheckpointer_PrepareWithoutDir(t *testing.T) {
	if err := (&Checkpointer{}).Prepare(); err == nil {
		t.Fatal("expected error")
	}
}
