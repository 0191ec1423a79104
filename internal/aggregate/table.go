// Package aggregate accumulates primer records as the service answers,
// deduplicates them by sequence, and checkpoints partial tables to disk.
package aggregate

// Record is one orderable primer.
type Record struct {
	Name     string
	Sequence string
	AnnealTm float64 // recommended annealing temperature, °C
}

// Table is an insertion-ordered set of records keyed by name.
type Table struct {
	recs  []Record
	index map[string]int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Add inserts rec, or replaces the record of the same name in place (the
// first insertion keeps its position). It returns the previous record when
// one was replaced.
func (t *Table) Add(rec Record) (prev Record, replaced bool) {
	if i, ok := t.index[rec.Name]; ok {
		prev = t.recs[i]
		t.recs[i] = rec
		return prev, true
	}
	t.index[rec.Name] = len(t.recs)
	t.recs = append(t.recs, rec)
	return Record{}, false
}

// Has reports whether a record named name is present.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len is the number of distinct names.
func (t *Table) Len() int { return len(t.recs) }

// Records returns a copy of the records in insertion order.
func (t *Table) Records() []Record {
	return append([]Record(nil), t.recs...)
}

// Dedup drops records whose sequence was already seen; the first
// occurrence wins. Applying it twice gives the same result as once.
func Dedup(recs []Record) []Record {
	seen := make(map[string]struct{}, len(recs))
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if _, dup := seen[r.Sequence]; dup {
			continue
		}
		seen[r.Sequence] = struct{}{}
		out = append(out, r)
	}
	return out
}
