package core

import (
	"reflect"
	"testing"
	"time"
)

var testNow = time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)

func TestFilter_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   Filter
		want Filter
	}{
		{
			name: "zero values pick the default range",
			in:   Filter{},
			want: Filter{YearFrom: 2023, YearTo: 2026, Months: AllMonths()},
		},
		{
			name: "years clamp to the slider bounds",
			in:   Filter{YearFrom: 1999, YearTo: 2050},
			want: Filter{YearFrom: 2021, YearTo: 2026, Months: AllMonths()},
		},
		{
			name: "inverted range is swapped",
			in:   Filter{YearFrom: 2025, YearTo: 2022},
			want: Filter{YearFrom: 2022, YearTo: 2025, Months: AllMonths()},
		},
		{
			name: "out-of-range months are dropped",
			in:   Filter{YearFrom: 2023, YearTo: 2024, Months: []int{0, 3, 7, 13}},
			want: Filter{YearFrom: 2023, YearTo: 2024, Months: []int{3, 7}},
		},
		{
			name: "all months invalid falls back to all twelve",
			in:   Filter{YearFrom: 2023, YearTo: 2024, Months: []int{0, 99}},
			want: Filter{YearFrom: 2023, YearTo: 2024, Months: AllMonths()},
		},
		{
			name: "selections pass through",
			in:   Filter{States: []string{"SP"}, Branches: []string{"01"}, YearFrom: 2022, YearTo: 2023, Months: []int{1}},
			want: Filter{States: []string{"SP"}, Branches: []string{"01"}, YearFrom: 2022, YearTo: 2023, Months: []int{1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize(testNow)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Normalize = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFilter_WithDimensions(t *testing.T) {
	dims := Dimensions{States: []string{"MG", "SP"}, Branches: []string{"01", "02"}}

	// Empty selections expand to the full known lists, never to an
	// unconstrained query.
	f := Filter{}.WithDimensions(dims)
	if !reflect.DeepEqual(f.States, dims.States) {
		t.Errorf("States = %v, want %v", f.States, dims.States)
	}
	if !reflect.DeepEqual(f.Branches, dims.Branches) {
		t.Errorf("Branches = %v, want %v", f.Branches, dims.Branches)
	}

	// Explicit selections are kept.
	f = Filter{States: []string{"SP"}}.WithDimensions(dims)
	if !reflect.DeepEqual(f.States, []string{"SP"}) {
		t.Errorf("States = %v, want [SP]", f.States)
	}
	if !reflect.DeepEqual(f.Branches, dims.Branches) {
		t.Errorf("Branches = %v, want %v", f.Branches, dims.Branches)
	}
}
