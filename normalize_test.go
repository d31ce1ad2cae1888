package geneticgraph

import "testing"

func TestRound(t *testing.T) {
	tests := []struct {
		Name   string
		Value  float64
		Places int
		Want   float64
	}{
		// The interesting cases are the ones where the float64 nearest to the
		// literal sits just below the half boundary; rounding must follow the
		// decimal spelling, not the binary approximation.
		{Name: "HalfUpAtBoundary", Value: 2.345, Places: 2, Want: 2.35},
		{Name: "BelowBoundary", Value: 2.344, Places: 2, Want: 2.34},
		{Name: "AboveBoundary", Value: 2.346, Places: 2, Want: 2.35},
		{Name: "ExactValue", Value: 2.5, Places: 2, Want: 2.5},
		{Name: "ZeroPlaces", Value: 2.5, Places: 0, Want: 3},
		{Name: "NegativeHalfAwayFromZero", Value: -2.345, Places: 2, Want: -2.35},
		{Name: "NegativeBelowBoundary", Value: -2.344, Places: 2, Want: -2.34},
		{Name: "Zero", Value: 0, Places: 2, Want: 0},
		{Name: "SpanLength", Value: 41.75 - 12.5, Places: 2, Want: 29.25},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			if got := Round(tt.Value, tt.Places); got != tt.Want {
				t.Errorf("Round(%v, %v) = %v, want %v", tt.Value, tt.Places, got, tt.Want)
			}
		})
	}
}

func TestRoundNegativePlacesPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Round(1, -1) did not panic")
		}
	}()
	Round(1, -1)
}

func TestOneBased(t *testing.T) {
	// A zero-based interbase interval [0, 99) covers the same bases as the
	// one-based inclusive interval [1, 99].
	if got := OneBased(0); got != 1 {
		t.Errorf("OneBased(0) = %v, want 1", got)
	}
	if got := OneBased(122); got != 123 {
		t.Errorf("OneBased(122) = %v, want 123", got)
	}
}

func TestCentimorgans(t *testing.T) {
	tests := []struct {
		Scaled int
		Want   float64
	}{
		{Scaled: 250, Want: 2.5},
		{Scaled: 0, Want: 0},
		{Scaled: 4175, Want: 41.75},
		{Scaled: 100, Want: 1},
	}
	for _, tt := range tests {
		if got := Centimorgans(tt.Scaled); got != tt.Want {
			t.Errorf("Centimorgans(%v) = %v, want %v", tt.Scaled, got, tt.Want)
		}
	}
}
