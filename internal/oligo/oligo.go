// internal/oligo/oligo.go
package oligo

import (
	"fmt"
	"strings"
	"unicode"
)

// Normalize removes whitespace and quotes and uppercases bases. Text scraped
// from a results table often carries both.
func Normalize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || r == '\'' || r == '"' {
			continue
		}
		out = append(out, unicode.ToUpper(r))
	}
	return string(out)
}

// Validate returns the normalized primer or an error when it is empty or
// carries anything other than A, C, G, T. Ordered oligos are never
// degenerate here, so IUPAC ambiguity codes are rejected too.
func Validate(raw string) (string, error) {
	s := Normalize(raw)
	if s == "" {
		return s, fmt.Errorf("empty oligo")
	}
	for i, r := range s {
		switch r {
		case 'A', 'C', 'G', 'T':
		default:
			return "", fmt.Errorf("invalid base %q at %d; allowed: A C G T", r, i+1)
		}
	}
	return s, nil
}

// GC returns the G+C fraction of an ACGT sequence (0 for empty input).
func GC(s string) float64 {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "G") + strings.Count(s, "C")
	return float64(n) / float64(len(s))
}
