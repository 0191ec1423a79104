// internal/mutation/mutation.go
package mutation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Request is one row of the mutation list: a protein position (numbered as
// in the input, before any offset) and the residue asked for there.
type Request struct {
	Position int
	Residue  string
}

// Range is a Request resolved to construct coordinates.
// ProteinPos is 1-based; Start/Stop are 1-based inclusive nucleotide
// coordinates of the codon, assuming base 1 is the first base of residue 1.
type Range struct {
	Request
	ProteinPos int
	Start      int
	Stop       int
}

// InvalidInputError reports a malformed mutation list, a bad position, or a
// missing input file.
type InvalidInputError struct {
	Path string
	Line int // 0 when not tied to a line
	Msg  string
	Err  error
}

func (e *InvalidInputError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	if loc == "" {
		loc = "input"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", loc, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", loc, e.Msg)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// LoadCSV reads a two-column, header-less list of "position, residue" rows.
func LoadCSV(path string, comma rune) ([]Request, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, &InvalidInputError{Path: path, Msg: "cannot open mutation list", Err: err}
	}
	defer func() { _ = fh.Close() }()
	return Parse(fh, path, comma)
}

// Parse reads mutation rows from r. name is only used in error messages.
// Residue codes are passed through untouched; validating them is the codon
// table's job.
func Parse(r io.Reader, name string, comma rune) ([]Request, error) {
	if comma == 0 {
		comma = ','
	}
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []Request
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			line := 0
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, &InvalidInputError{Path: name, Line: line, Msg: "unreadable row", Err: err}
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		// spreadsheet exports often pad rows with empty trailing cells
		for len(rec) > 2 && strings.TrimSpace(rec[len(rec)-1]) == "" {
			rec = rec[:len(rec)-1]
		}
		if len(rec) != 2 {
			return nil, &InvalidInputError{Path: name, Line: line,
				Msg: fmt.Sprintf("expected 2 columns (position, residue), got %d", len(rec))}
		}
		pos, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, &InvalidInputError{Path: name, Line: line,
				Msg: fmt.Sprintf("position %q is not an integer", rec[0])}
		}
		res := strings.TrimSpace(rec[1])
		if res == "" {
			return nil, &InvalidInputError{Path: name, Line: line, Msg: "empty residue"}
		}
		out = append(out, Request{Position: pos, Residue: res})
	}
	return out, nil
}

// ToRanges applies offset to every request and computes codon coordinates.
func ToRanges(reqs []Request, offset int) ([]Range, error) {
	out := make([]Range, 0, len(reqs))
	for i, q := range reqs {
		r := NewRange(q, offset)
		if r.ProteinPos < 1 {
			return nil, &InvalidInputError{Line: i + 1,
				Msg: fmt.Sprintf("position %d with offset %d is before residue 1", q.Position, offset)}
		}
		out = append(out, r)
	}
	return out, nil
}

// NewRange resolves q against offset without validation.
func NewRange(q Request, offset int) Range {
	p := q.Position + offset
	return Range{Request: q, ProteinPos: p, Start: p*3 - 2, Stop: p * 3}
}

// Label is the position prefix used in primer names.
func (r Range) Label(nameOffset int) string {
	return strconv.Itoa(r.ProteinPos - nameOffset)
}

// Codon returns the wild-type codon of r in seq, or "" if seq is too short.
func (r Range) Codon(seq string) string {
	if r.Start < 1 || r.Stop > len(seq) {
		return ""
	}
	return seq[r.Start-1 : r.Stop]
}
