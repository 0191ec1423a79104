// Package codon holds the residue→codon table and the saturation library
// applied at every requested position. Both are plain values loaded from
// configuration; the defaults reproduce the E. coli-preferred table and the
// 16-residue sub-library used for NEB Basechanger ordering.
package codon

import (
	"fmt"
	"strings"
)

// Table maps a three-letter residue code to one canonical codon.
type Table map[string]string

// Library is the ordered panel of residues substituted at each position.
type Library []string

// LookupError reports a residue with no codon in the table, or a codon entry
// that is not three unambiguous bases.
type LookupError struct {
	Residue string
	Codon   string // set when the entry exists but is malformed
}

func (e *LookupError) Error() string {
	if e.Codon != "" {
		return fmt.Sprintf("codon table: %s maps to invalid codon %q", e.Residue, e.Codon)
	}
	return fmt.Sprintf("codon table: no codon for residue %q", e.Residue)
}

// DefaultTable returns a fresh copy of the E. coli-preferred codon table.
func DefaultTable() Table {
	return Table{
		"Gly": "GGC", "Ala": "GCG", "Leu": "CTG", "Glu": "GAA", "Gln": "CAG",
		"Lys": "AAA", "Phe": "TTT", "Tyr": "TAT", "Arg": "CGT", "Trp": "TGG",
		"Thr": "ACC", "Met": "ATG", "Pro": "CCG", "Val": "GTG", "Ile": "ATC",
		"Ser": "AGC", "His": "CAC", "Asp": "GAT", "Asn": "AAC", "Cys": "TGC",
	}
}

// DefaultLibrary returns the 16-residue saturation sub-library.
func DefaultLibrary() Library {
	return Library{
		"Leu", "Val", "Ile", "Met", "Phe", "Trp", "Ser", "Thr",
		"Tyr", "Asn", "Gln", "Asp", "Glu", "Lys", "Arg", "His",
	}
}

// Normalize returns residue in canonical three-letter form ("gln" → "Gln").
func Normalize(residue string) string {
	r := strings.TrimSpace(residue)
	if len(r) != 3 {
		return r
	}
	return strings.ToUpper(r[:1]) + strings.ToLower(r[1:])
}

// Lookup returns the codon for residue.
func (t Table) Lookup(residue string) (string, error) {
	c, ok := t[Normalize(residue)]
	if !ok {
		return "", &LookupError{Residue: residue}
	}
	if !isCodon(c) {
		return "", &LookupError{Residue: residue, Codon: c}
	}
	return strings.ToUpper(c), nil
}

// Validate checks that every residue resolves to a well-formed codon.
func (t Table) Validate(residues ...string) error {
	for _, r := range residues {
		if _, err := t.Lookup(r); err != nil {
			return err
		}
	}
	return nil
}

// Normalized returns a copy of t with canonical residue keys and upper-case
// codons. Config loaders lower-case map keys, so tables read from a file go
// through here.
func (t Table) Normalized() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[Normalize(k)] = strings.ToUpper(strings.TrimSpace(v))
	}
	return out
}

func isCodon(c string) bool {
	if len(c) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		switch c[i] {
		case 'A', 'C', 'G', 'T', 'a', 'c', 'g', 't':
		default:
			return false
		}
	}
	return true
}

// Halves splits the library into the two forward-primer plate sets: the
// first len/2 residues and the remainder.
func (l Library) Halves() (first, second Library) {
	h := len(l) / 2
	return l[:h:h], l[h:]
}

// Set reports which half residue belongs to: 1, 2, or 0 if absent.
func (l Library) Set(residue string) int {
	first, second := l.Halves()
	res := Normalize(residue)
	if first.Contains(res) {
		return 1
	}
	if second.Contains(res) {
		return 2
	}
	return 0
}

// Contains reports whether residue is in l.
func (l Library) Contains(residue string) bool {
	res := Normalize(residue)
	for _, r := range l {
		if Normalize(r) == res {
			return true
		}
	}
	return false
}

// Normalized returns a copy of l with canonical residue codes.
func (l Library) Normalized() Library {
	out := make(Library, len(l))
	for i, r := range l {
		out[i] = Normalize(r)
	}
	return out
}
