package plate

import (
	"fmt"
	"testing"

	"bcprimers/internal/aggregate"
	"bcprimers/internal/codon"
)

func TestLabel_RowMajor(t *testing.T) {
	cases := map[int]string{0: "A1", 11: "A12", 12: "B1", 95: "H12", 96: "A1", 97: "A2", 191: "H12"}
	for i, want := range cases {
		if got := Label(i, RowMajor); got != want {
			t.Fatalf("Label(%d,row) = %s want %s", i, got, want)
		}
	}
}

func TestLabel_ColumnMajor(t *testing.T) {
	cases := map[int]string{0: "A1", 7: "H1", 8: "A2", 95: "H12", 96: "A1", 99: "D1"}
	for i, want := range cases {
		if got := Label(i, ColumnMajor); got != want {
			t.Fatalf("Label(%d,col) = %s want %s", i, got, want)
		}
	}
}

func TestLabel_PureModulo(t *testing.T) {
	for _, o := range []Order{RowMajor, ColumnMajor} {
		seen := map[string]bool{}
		for i := 0; i < Wells; i++ {
			l := Label(i, o)
			if seen[l] {
				t.Fatalf("order %d: label %s repeated within one plate", o, l)
			}
			seen[l] = true
			if Label(i+3*Wells, o) != l {
				t.Fatalf("order %d: label(%d) not periodic", o, i)
			}
		}
	}
}

func fwd(pos int, res string) aggregate.Record {
	name := fmt.Sprintf("%d_%s_fwd", pos, res)
	return aggregate.Record{Name: name, Sequence: name}
}

func TestLayout_SplitsByLibraryHalf(t *testing.T) {
	lib := codon.DefaultLibrary()
	recs := []aggregate.Record{
		fwd(18, "Leu"),
		{Name: "18_rev", Sequence: "R18"},
		fwd(18, "His"),
		fwd(18, "Thr"),
		fwd(18, "Tyr"),
		fwd(18, "Gly"),
		{Name: "221_rev", Sequence: "R221"},
	}
	s := Layout(recs, lib, Markers{})
	if len(s.Reverse) != 2 || s.Reverse[1].Well != "A2" || s.Reverse[1].Record.Name != "221_rev" {
		t.Fatalf("reverse = %+v", s.Reverse)
	}
	if len(s.Forward1) != 2 || s.Forward1[0].Record.Name != "18_Leu_fwd" || s.Forward1[1].Well != "B1" {
		t.Fatalf("forward1 = %+v", s.Forward1)
	}
	if len(s.Forward2) != 2 || s.Forward2[0].Record.Name != "18_His_fwd" || s.Forward2[1].Record.Name != "18_Tyr_fwd" {
		t.Fatalf("forward2 = %+v", s.Forward2)
	}
	if len(s.Unplaced) != 1 || s.Unplaced[0].Name != "18_Gly_fwd" {
		t.Fatalf("unplaced = %+v", s.Unplaced)
	}
}

func TestLayout_Empty(t *testing.T) {
	s := Layout(nil, codon.DefaultLibrary(), DefaultMarkers)
	if len(s.Reverse) != 0 || len(s.Forward1) != 0 || len(s.Forward2) != 0 {
		t.Fatalf("expected empty sheets, got %+v", s)
	}
}

// 200 forward primers, 100 per library half: each sheet wraps once and
// entries 97-100 reuse A1-D1.
func TestLayout_WrapScenario(t *testing.T) {
	lib := codon.DefaultLibrary()
	first, second := lib.Halves()
	var recs []aggregate.Record
	for i := 0; i < 100; i++ {
		pos := i/8 + 1
		recs = append(recs, fwd(pos, first[i%8]), fwd(pos, second[i%8]))
	}
	s := Layout(recs, lib, DefaultMarkers)
	if len(s.Forward1) != 100 || len(s.Forward2) != 100 {
		t.Fatalf("split %d/%d", len(s.Forward1), len(s.Forward2))
	}
	for _, sheet := range [][]Assignment{s.Forward1, s.Forward2} {
		for i, want := range []string{"A1", "B1", "C1", "D1"} {
			if got := sheet[96+i].Well; got != want {
				t.Fatalf("entry %d: well %s want %s", 97+i, got, want)
			}
		}
		if sheet[95].Well != "H12" {
			t.Fatalf("entry 96 well = %s", sheet[95].Well)
		}
	}
}

func TestResidue(t *testing.T) {
	cases := map[string]string{
		"110_Gln_fwd":  "Gln",
		"-3_Leu_fwd":   "Leu",
		"nounderscore": "",
	}
	for in, want := range cases {
		if got := Residue(in, "_fwd"); got != want {
			t.Fatalf("Residue(%q) = %q want %q", in, got, want)
		}
	}
}
