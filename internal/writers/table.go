// internal/writers/table.go
package writers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bcprimers/internal/aggregate"
	"bcprimers/internal/plate"
)

// Column headers. Keep these as the single source of truth.
var (
	PrimerListHeader = []string{"index", "name", "sequence", "anneal_tm"}
	SheetHeader      = []string{"well", "name", "sequence", "anneal_tm"}
)

// Formats maps an output format name to its field delimiter.
var Formats = map[string]rune{
	"csv": ',',
	"tsv": '\t',
}

// Ext returns the file extension for format.
func Ext(format string) string {
	if _, ok := Formats[format]; !ok {
		return ".csv"
	}
	return "." + format
}

func newWriter(w io.Writer, format string) (*csv.Writer, error) {
	comma, ok := Formats[format]
	if !ok {
		return nil, fmt.Errorf("unknown table format %q", format)
	}
	cw := csv.NewWriter(w)
	cw.Comma = comma
	return cw, nil
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// WritePrimerList writes recs with a 0-based index column.
func WritePrimerList(w io.Writer, format string, recs []aggregate.Record) error {
	cw, err := newWriter(w, format)
	if err != nil {
		return err
	}
	if err := cw.Write(PrimerListHeader); err != nil {
		return err
	}
	for i, r := range recs {
		if err := cw.Write([]string{strconv.Itoa(i), r.Name, r.Sequence, ftoa(r.AnnealTm)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSheet writes one plate order sheet. An empty sheet is just the header.
func WriteSheet(w io.Writer, format string, as []plate.Assignment) error {
	cw, err := newWriter(w, format)
	if err != nil {
		return err
	}
	if err := cw.Write(SheetHeader); err != nil {
		return err
	}
	for _, a := range as {
		if err := cw.Write([]string{a.Well, a.Record.Name, a.Record.Sequence, ftoa(a.Record.AnnealTm)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadPrimerList reads a primer list or checkpoint written by
// WritePrimerList. The delimiter is taken from the header line.
func ReadPrimerList(r io.Reader) ([]aggregate.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("primer list: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("primer list: %w", err)
	}
	if len(head) == 1 && strings.Contains(head[0], "\t") {
		// tab-delimited: re-split the header and switch the reader over
		head = strings.Split(head[0], "\t")
		cr.Comma = '\t'
	}
	col := map[string]int{}
	for i, h := range head {
		col[strings.TrimSpace(h)] = i
	}
	ni, okN := col["name"]
	si, okS := col["sequence"]
	ti, okT := col["anneal_tm"]
	if !okN || !okS || !okT {
		return nil, fmt.Errorf("primer list: header %v lacks name/sequence/anneal_tm", head)
	}

	var out []aggregate.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("primer list: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(row) < len(head) {
			return nil, fmt.Errorf("primer list: line %d: %d fields, want %d", line, len(row), len(head))
		}
		tm, err := strconv.ParseFloat(strings.TrimSpace(row[ti]), 64)
		if err != nil {
			return nil, fmt.Errorf("primer list: line %d: anneal_tm %q: %w", line, row[ti], err)
		}
		out = append(out, aggregate.Record{Name: row[ni], Sequence: row[si], AnnealTm: tm})
	}
	return out, nil
}
