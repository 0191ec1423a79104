// Package fasta loads the template coding sequence submitted to the primer
// service. Only the first record of a file is used.
package fasta

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	biofasta "github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"bcprimers/internal/mutation"
)

var (
	// ErrEmpty is returned when the input holds no sequence.
	ErrEmpty = errors.New("fasta: no sequence")
	// ErrBadSequence is returned for characters that are not sequence letters.
	ErrBadSequence = errors.New("fasta: invalid sequence")
)

// Record is a single named nucleotide sequence, upper-cased.
type Record struct {
	ID  string
	Seq string
}

// ReadOne returns the first record in path ("-" for stdin, gzip accepted).
// A file with no '>' header is taken as a bare sequence named after the file.
func ReadOne(path string) (Record, error) {
	rc, err := openReader(path)
	if err != nil {
		return Record{}, &mutation.InvalidInputError{Path: path, Msg: "cannot open FASTA file", Err: err}
	}
	defer func() { _ = rc.Close() }()

	rec, err := Parse(rc)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	if rec.ID == "" {
		rec.ID = baseName(path)
	}
	return rec, nil
}

// Parse reads the first record from r.
func Parse(r io.Reader) (Record, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		return Record{}, err
	}
	if first != '>' {
		raw, err := io.ReadAll(br)
		if err != nil {
			return Record{}, err
		}
		return finish(Record{}, raw)
	}

	sc := seqio.NewScanner(biofasta.NewReader(br, linear.NewSeq("", nil, alphabet.DNA)))
	if !sc.Next() {
		if sc.Error() != nil {
			return Record{}, sc.Error()
		}
		return Record{}, ErrEmpty
	}
	s, ok := sc.Seq().(*linear.Seq)
	if !ok {
		return Record{}, fmt.Errorf("fasta: unexpected sequence type %T", sc.Seq())
	}
	raw := make([]byte, len(s.Seq))
	for i, l := range s.Seq {
		raw[i] = byte(l)
	}
	return finish(Record{ID: s.Name()}, raw)
}

func finish(rec Record, raw []byte) (Record, error) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range bytes.ToUpper(raw) {
		switch {
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c)
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || (c >= '0' && c <= '9'):
			// line numbering and wrapping from pasted GenBank text
		default:
			return Record{}, fmt.Errorf("%w: unexpected character %q", ErrBadSequence, c)
		}
	}
	rec.Seq = b.String()
	if rec.Seq == "" {
		return Record{}, ErrEmpty
	}
	return rec, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		c, err := br.ReadByte()
		if err == io.EOF {
			return 0, ErrEmpty
		}
		if err != nil {
			return 0, err
		}
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return c, br.UnreadByte()
	}
}

func baseName(path string) string {
	if path == "-" {
		return "stdin"
	}
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	if i := strings.IndexByte(path, '.'); i > 0 {
		path = path[:i]
	}
	return path
}
