package sim

import (
	"math"
	"testing"
)

func TestCalculatePercentile_EmptyInput_ReturnsZero(t *testing.T) {
	// GIVEN empty float64 slice
	// WHEN CalculatePercentile is called
	result := CalculatePercentile([]float64{}, 99)
	// THEN it returns 0 (not panic)
	if result != 0.0 {
		t.Errorf("expected 0.0 for empty input, got %f", result)
	}

	// Also verify with int64 (generic constraint covers both)
	resultInt := CalculatePercentile([]int64{}, 50)
	if resultInt != 0.0 {
		t.Errorf("expected 0.0 for empty int64 input, got %f", resultInt)
	}
}

func TestCalculatePercentile_SingleElement_ReturnsElement(t *testing.T) {
	for _, p := range []float64{0, 50, 99, 100} {
		if got := CalculatePercentile([]int{42}, p); got != 42 {
			t.Errorf("p%.0f of single element: got %f, want 42", p, got)
		}
	}
}

func TestCalculatePercentile_InterpolatesUnsortedInput(t *testing.T) {
	data := []int{5, 1, 3}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{50, 3},
		{95, 4.8},
		{100, 5},
	}
	for _, tc := range tests {
		if got := CalculatePercentile(data, tc.p); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("p%.0f: got %f, want %f", tc.p, got, tc.want)
		}
	}
	if data[0] != 5 {
		t.Errorf("input was reordered: %v", data)
	}
}

func TestCalculateMean(t *testing.T) {
	if got := CalculateMean([]int{}); got != 0 {
		t.Errorf("empty mean: got %f, want 0", got)
	}
	if got := CalculateMean([]int{1, 2, 3, 6}); got != 3 {
		t.Errorf("mean: got %f, want 3", got)
	}
	if got := CalculateMean([]float64{0.5, 1.5}); got != 1 {
		t.Errorf("float mean: got %f, want 1", got)
	}
}
