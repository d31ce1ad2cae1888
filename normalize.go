package geneticgraph

import (
	"math/big"
	"strconv"
)

// This file holds the unit and coordinate conventions every source must be
// normalised to before an entity is built. Each function is applied exactly
// once, at the point the relationship entity is constructed; downstream code
// may assume all stored values already follow these conventions.

// OneBased converts a zero-based interbase start coordinate (as used by chado
// featureloc rows) to the one-based inclusive convention stored on Locations.
// End coordinates are identical in both conventions and need no shift.
func OneBased(start int) int { return start + 1 }

// Centimorgans decodes a map position that was stored as an integer of
// centimorgans multiplied by 100. Upstream curators use this encoding to fit
// fractional cM positions into integer coordinate columns.
func Centimorgans(scaled int) float64 { return float64(scaled) / 100 }

// Round rounds value half-up to the given number of decimal places, e.g.
// Round(2.345, 2) == 2.35 and Round(2.344, 2) == 2.34. Halves round away from
// zero.
//
// The arithmetic runs on the decimal rendering of the value rather than its
// binary representation, so a literal like 2.345 rounds on its printed digits
// and not on the slightly-smaller float64 nearest to it.
//
// Round panics if places is negative.
func Round(value float64, places int) float64 {
	if places < 0 {
		panic("geneticgraph: Round called with negative places")
	}

	// FormatFloat with precision -1 yields the shortest decimal string that
	// round-trips, which is the spelling the value had in the source data.
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(value, 'f', -1, 64))
	if !ok {
		// FormatFloat output is always a valid rational literal for finite inputs.
		panic("geneticgraph: Round called with non-finite value")
	}

	scale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(places)), nil))
	r.Mul(r, scale)

	half := big.NewRat(1, 2)
	if r.Sign() >= 0 {
		r.Add(r, half)
	} else {
		r.Sub(r, half)
	}
	// Truncation toward zero after the half shift implements half-up rounding for
	// both signs.
	scaled := new(big.Rat).SetInt(new(big.Int).Quo(r.Num(), r.Denom()))
	scaled.Quo(scaled, scale)

	f, _ := scaled.Float64()
	return f
}
