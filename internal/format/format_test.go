package format

import (
	"math"
	"testing"
)

func TestCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "R$ 0.00"},
		{5, "R$ 5.00"},
		{1234.5, "R$ 1,234.50"},
		{1234567.891, "R$ 1,234,567.89"},
		{-98765.4, "R$ -98,765.40"},
		{math.NaN(), "—"},
	}
	for _, tt := range tests {
		if got := Currency(tt.in); got != tt.want {
			t.Errorf("Currency(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00%"},
		{46.666666666666664, "46.67%"},
		{-3.5, "-3.50%"},
		{1234.5, "1,234.50%"},
		{math.NaN(), "—"},
	}
	for _, tt := range tests {
		if got := Percent(tt.in); got != tt.want {
			t.Errorf("Percent(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4200, "-4,200"},
	}
	for _, tt := range tests {
		if got := Count(tt.in); got != tt.want {
			t.Errorf("Count(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
