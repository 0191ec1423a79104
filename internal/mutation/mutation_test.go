package mutation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_TrimsAndSkips(t *testing.T) {
	in := "18, Gln\n\n# comment\n221,Tyr\n"
	got, err := Parse(strings.NewReader(in), "aa.csv", ',')
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []Request{{18, "Gln"}, {221, "Tyr"}}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestParse_BlankTrailingFields(t *testing.T) {
	got, err := Parse(strings.NewReader("18,Gln,\n221, Tyr, ,\n"), "aa.csv", ',')
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 || got[0] != (Request{18, "Gln"}) || got[1] != (Request{221, "Tyr"}) {
		t.Fatalf("got %v", got)
	}
}

func TestParse_ResidueNotValidated(t *testing.T) {
	got, err := Parse(strings.NewReader("5,Xaa\n"), "x", ',')
	if err != nil {
		t.Fatalf("unknown residue must pass the loader: %v", err)
	}
	if got[0].Residue != "Xaa" {
		t.Fatalf("residue = %q", got[0].Residue)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name, in, msg string
	}{
		{"non-numeric", "abc,Gln\n", "not an integer"},
		{"one column", "18\n", "expected 2 columns"},
		{"three columns", "18,Gln,x\n", "expected 2 columns"},
		{"empty residue", "18,\n", "empty residue"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.in), "aa.csv", ',')
			var ie *InvalidInputError
			if !errors.As(err, &ie) {
				t.Fatalf("want InvalidInputError, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.msg) || !strings.Contains(err.Error(), "aa.csv:1") {
				t.Fatalf("unexpected message: %v", err)
			}
		})
	}
}

func TestLoadCSV_MissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"), ',')
	var ie *InvalidInputError
	if !errors.As(err, &ie) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want InvalidInputError wrapping ErrNotExist, got %v", err)
	}
}

func TestLoadCSV_Tabs(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "aa.tsv")
	if err := os.WriteFile(fn, []byte("18\tGln\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadCSV(fn, '\t')
	if err != nil || len(got) != 1 || got[0].Position != 18 {
		t.Fatalf("got %v err %v", got, err)
	}
}

func TestToRanges_Scenario(t *testing.T) {
	rs, err := ToRanges([]Request{{18, "Gln"}, {221, "Tyr"}}, 92)
	if err != nil {
		t.Fatal(err)
	}
	want := []struct{ pos, start, stop int }{{110, 328, 330}, {313, 937, 939}}
	for i, w := range want {
		if rs[i].ProteinPos != w.pos || rs[i].Start != w.start || rs[i].Stop != w.stop {
			t.Fatalf("range %d = %+v, want %+v", i, rs[i], w)
		}
	}
}

func TestNewRange_Arithmetic(t *testing.T) {
	for p := 1; p < 400; p += 37 {
		for _, o := range []int{0, 1, 92, -1} {
			r := NewRange(Request{Position: p}, o)
			if r.Start != 3*(p+o)-2 || r.Stop != 3*(p+o) || r.Stop-r.Start != 2 {
				t.Fatalf("p=%d o=%d: %+v", p, o, r)
			}
		}
	}
}

func TestToRanges_BeforeResidueOne(t *testing.T) {
	_, err := ToRanges([]Request{{1, "Gln"}}, -1)
	var ie *InvalidInputError
	if !errors.As(err, &ie) {
		t.Fatalf("want InvalidInputError, got %v", err)
	}
}

func TestRange_LabelAndCodon(t *testing.T) {
	r := NewRange(Request{Position: 2}, 0)
	if got := r.Label(0); got != "2" {
		t.Fatalf("label = %q", got)
	}
	if got := NewRange(Request{Position: 18}, 92).Label(92); got != "18" {
		t.Fatalf("label with name offset = %q", got)
	}
	if got := r.Codon("ATGGCTTAA"); got != "GCT" {
		t.Fatalf("codon = %q", got)
	}
	if got := NewRange(Request{Position: 9}, 0).Codon("ATG"); got != "" {
		t.Fatalf("out of range codon = %q", got)
	}
}
