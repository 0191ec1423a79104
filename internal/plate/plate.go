// Package plate assigns primers to 96-well synthesis plates.
//
// Reverse primers fill plates row by row (A1..A12, B1..); forward primers
// fill column by column (A1..H1, A2..) and are split into two plate sets by
// library half so the sets can be merged later by parallel pipetting.
// Every sheet wraps to a fresh plate after 96 wells.
package plate

import (
	"strconv"
	"strings"

	"bcprimers/internal/aggregate"
	"bcprimers/internal/codon"
)

const (
	Rows  = 8
	Cols  = 12
	Wells = Rows * Cols
)

// Order is the well fill order.
type Order int

const (
	RowMajor Order = iota
	ColumnMajor
)

// Label returns the well label of the i-th primer (0-based) on a sheet
// filled in order o. It depends only on i mod 96.
func Label(i int, o Order) string {
	k := i % Wells
	if k < 0 {
		k += Wells
	}
	var row, col int
	if o == ColumnMajor {
		row, col = k%Rows, k/Rows
	} else {
		row, col = k/Cols, k%Cols
	}
	return string(rune('A'+row)) + strconv.Itoa(col+1)
}

// Assignment places one record in a well.
type Assignment struct {
	Well   string
	Record aggregate.Record
}

// Assign labels recs in order o.
func Assign(recs []aggregate.Record, o Order) []Assignment {
	out := make([]Assignment, len(recs))
	for i, r := range recs {
		out[i] = Assignment{Well: Label(i, o), Record: r}
	}
	return out
}

// Markers identify primer direction inside a record name.
type Markers struct {
	Forward string
	Reverse string
}

// DefaultMarkers match the names produced by the pipeline.
var DefaultMarkers = Markers{Forward: "_fwd", Reverse: "_rev"}

// Sheets are the three order sheets for one run.
type Sheets struct {
	Reverse  []Assignment
	Forward1 []Assignment
	Forward2 []Assignment
	// Unplaced are forward primers whose residue is not in the library.
	Unplaced []aggregate.Record
}

// Layout splits recs into the reverse sheet and the two forward sheets.
// Empty subsets give empty sheets.
func Layout(recs []aggregate.Record, lib codon.Library, m Markers) Sheets {
	if m.Forward == "" || m.Reverse == "" {
		m = DefaultMarkers
	}
	var rev, fwd1, fwd2 []aggregate.Record
	var s Sheets
	for _, r := range recs {
		switch {
		case strings.Contains(r.Name, m.Reverse):
			rev = append(rev, r)
		case strings.Contains(r.Name, m.Forward):
			switch lib.Set(Residue(r.Name, m.Forward)) {
			case 1:
				fwd1 = append(fwd1, r)
			case 2:
				fwd2 = append(fwd2, r)
			default:
				s.Unplaced = append(s.Unplaced, r)
			}
		}
	}
	s.Reverse = Assign(rev, RowMajor)
	s.Forward1 = Assign(fwd1, ColumnMajor)
	s.Forward2 = Assign(fwd2, ColumnMajor)
	return s
}

// Residue extracts the residue from a forward primer name such as
// "110_Gln_fwd": the text between the first '_' and the forward marker.
func Residue(name, fwdMarker string) string {
	i := strings.IndexByte(name, '_')
	if i < 0 {
		return ""
	}
	rest := name[i+1:]
	if j := strings.LastIndex(rest, fwdMarker); j >= 0 {
		return rest[:j]
	}
	return rest
}
