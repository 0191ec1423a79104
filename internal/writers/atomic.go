package writers

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"bcprimers/internal/aggregate"
	"bcprimers/internal/plate"
)

// WriteFileAtomic writes path via a temporary file in the same directory
// and renames it into place, so readers see either the old file or the
// complete new one.
func WriteFileAtomic(path string, fill func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = fill(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// SavePrimerList atomically writes recs to path.
func SavePrimerList(path, format string, recs []aggregate.Record) error {
	return WriteFileAtomic(path, func(w io.Writer) error { return WritePrimerList(w, format, recs) })
}

// SaveSheet atomically writes one plate sheet to path.
func SaveSheet(path, format string, as []plate.Assignment) error {
	return WriteFileAtomic(path, func(w io.Writer) error { return WriteSheet(w, format, as) })
}

// LoadPrimerList reads a primer list or checkpoint file.
func LoadPrimerList(path string) ([]aggregate.Record, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()
	recs, err := ReadPrimerList(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}
