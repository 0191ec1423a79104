package aggregate

import (
	"errors"
	"os"
	"path/filepath"
)

// DefaultEvery is the checkpoint interval in records.
const DefaultEvery = 100

// Checkpointer snapshots a Table every Every records. Snapshots are
// deduplicated and named after the record that triggered them.
type Checkpointer struct {
	Dir   string
	Every int
	// Write persists recs at path. It must not leave a partial file behind
	// on failure.
	Write func(path string, recs []Record) error

	marks int // multiples of Every already written
}

// Prepare creates Dir if it does not exist.
func (c *Checkpointer) Prepare() error {
	if c.Dir == "" {
		return errors.New("checkpoint directory not set")
	}
	return os.MkdirAll(c.Dir, 0o755)
}

// Seed marks n records as already covered, e.g. after resuming from a
// checkpoint, so the next snapshot fires at the following multiple.
func (c *Checkpointer) Seed(n int) {
	if every := c.every(); every > 0 {
		c.marks = n / every
	}
}

// Observe writes a snapshot when t's size has reached a multiple of Every
// not yet written. Sizes can jump by more than one per step, so crossing a
// multiple counts as reaching it. It returns the path written, or "".
func (c *Checkpointer) Observe(t *Table, last string) (string, error) {
	every := c.every()
	if every <= 0 || c.Write == nil {
		return "", nil
	}
	m := t.Len() / every
	if m <= c.marks {
		return "", nil
	}
	path := filepath.Join(c.Dir, last+"_tmp.csv")
	if err := c.Write(path, Dedup(t.Records())); err != nil {
		return "", err
	}
	c.marks = m
	return path, nil
}

func (c *Checkpointer) every() int {
	if c.Every == 0 {
		return DefaultEvery
	}
	return c.Every
}

// Flush writes a snapshot unconditionally, e.g. when a run aborts between
// intervals. It is a no-op for an empty table.
func (c *Checkpointer) Flush(t *Table, last string) (string, error) {
	if t.Len() == 0 || c.Write == nil {
		return "", nil
	}
	path := filepath.Join(c.Dir, last+"_tmp.csv")
	if err := c.Write(path, Dedup(t.Records())); err != nil {
		return "", err
	}
	return path, nil
}
