// internal/thermo/nn.go
// Nearest-neighbor melting temperature of an oligo against its perfect
// complement (SantaLucia & Hicks 2004 unified parameters).
// Units: ΔH in kcal/mol, ΔS in cal/(K·mol), Tm in °C.

package thermo

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Rcal is the gas constant in cal/(K·mol).
const Rcal = 1.9872

type stack struct {
	dh, ds float64
}

// Watson–Crick stacks at 1 M Na+, keyed by the top-strand dinucleotide
// (5'→3'). Each of the ten unique stacks appears under both of its readings.
var stacks = map[string]stack{
	"AA": {-7.6, -21.3}, "TT": {-7.6, -21.3},
	"AT": {-7.2, -20.4},
	"TA": {-7.2, -21.3},
	"CA": {-8.5, -22.7}, "TG": {-8.5, -22.7},
	"GT": {-8.4, -22.4}, "AC": {-8.4, -22.4},
	"CT": {-7.8, -21.0}, "AG": {-7.8, -21.0},
	"GA": {-8.2, -22.2}, "TC": {-8.2, -22.2},
	"CG": {-10.6, -27.2},
	"GC": {-9.8, -24.4},
	"GG": {-8.0, -19.9}, "CC": {-8.0, -19.9},
}

var (
	initDH, initDS     = +0.2, -5.7
	termATDH, termATDS = +2.2, +6.9
	symmDS             = -1.4
)

// Conditions describes the reaction solution.
type Conditions struct {
	Na float64 // monovalent cations (mol/L)
	CT float64 // total strand concentration (mol/L)
}

// DefaultConditions is 50 mM Na+ and 500 nM primer.
var DefaultConditions = Conditions{Na: 0.05, CT: 5e-7}

// Tm returns the two-state melting temperature of seq hybridized to its
// exact complement.
func Tm(seq string, c Conditions) (float64, error) {
	s := strings.ToUpper(strings.TrimSpace(seq))
	if len(s) < 2 {
		return 0, errors.New("Tm: oligo must be at least 2 nt")
	}
	if c.Na <= 0 || c.CT <= 0 {
		return 0, errors.New("Tm: concentrations must be > 0")
	}

	dh, ds := initDH, initDS
	for i := 0; i+1 < len(s); i++ {
		st, ok := stacks[s[i:i+2]]
		if !ok {
			return 0, fmt.Errorf("Tm: non-ACGT dinucleotide %q at %d", s[i:i+2], i+1)
		}
		dh += st.dh
		ds += st.ds
	}
	for _, b := range []byte{s[0], s[len(s)-1]} {
		if b == 'A' || b == 'T' {
			dh += termATDH
			ds += termATDS
		}
	}

	x := 4.0
	if selfComplementary(s) {
		ds += symmDS
		x = 1
	}

	// salt correction over n-1 phosphate pairs
	ds += 0.368 * float64(len(s)-1) * math.Log(c.Na)

	tmK := dh * 1000.0 / (ds + Rcal*math.Log(c.CT/x))
	return tmK - 273.15, nil
}

func selfComplementary(s string) bool {
	n := len(s)
	for i := 0; i < n; i++ {
		if complement(s[i]) != s[n-1-i] {
			return false
		}
	}
	return true
}

func complement(b byte) byte {
	switch b {
	case 'A':
		return 'T'
	case 'T':
		return 'A'
	case 'C':
		return 'G'
	case 'G':
		return 'C'
	}
	return 0
}
