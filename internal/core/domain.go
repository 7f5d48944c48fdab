package core

import (
	"math"
	"time"
)

// MinYear is the lower bound of the selectable year range.
const MinYear = 2021

type (
	// FactRow is one quote line from the warehouse, left-joined with
	// its order, invoice and customer. Order and invoice numbers are
	// nil when no downstream match exists; their values are then zero.
	FactRow struct {
		QuoteNumber   int64
		EventDate     time.Time
		Branch        string
		ProductCode   string
		Product       string
		GrossValue    float64
		Cost          float64
		Year          int
		Month         int
		OrderNumber   *int64
		InvoiceNumber *int64
		OrderValue    float64
		InvoiceValue  float64
		CustomerTaxID string
		CustomerName  string
		City          string
		State         string
	}

	// PredictionRow comes from the precomputed conversion-probability
	// dataset. It is independent of the fact table.
	PredictionRow struct {
		CustomerTaxID string
		CustomerName  string
		GrossValue    float64
		Cost          float64
		Probability   float64
		Year          int
		Month         int
		State         string
		Branch        string
	}

	// Dimensions holds the distinct filterable values known to the
	// warehouse. An empty user selection expands to these lists.
	Dimensions struct {
		States   []string
		Branches []string
	}

	// Filter is the effective dimension selection for one request.
	Filter struct {
		States   []string
		Branches []string
		YearFrom int
		YearTo   int
		Months   []int
	}
)

// Profitability is the row-level profitability ratio
// (gross − cost) / gross. A zero gross value yields NaN, the missing
// marker, which downstream means skip rather than average in.
func (r FactRow) Profitability() float64 {
	if r.GrossValue == 0 {
		return math.NaN()
	}
	return (r.GrossValue - r.Cost) / r.GrossValue
}

// Normalize clamps the filter to its valid domain: years inside
// [MinYear, currentYear] with from ≤ to, months a subset of 1..12
// defaulting to all twelve. Zero years select the default range
// [2023, currentYear].
func (f Filter) Normalize(now time.Time) Filter {
	maxYear := now.Year()
	if f.YearFrom == 0 {
		f.YearFrom = 2023
	}
	if f.YearTo == 0 {
		f.YearTo = maxYear
	}
	f.YearFrom = clampYear(f.YearFrom, maxYear)
	f.YearTo = clampYear(f.YearTo, maxYear)
	if f.YearFrom > f.YearTo {
		f.YearFrom, f.YearTo = f.YearTo, f.YearFrom
	}

	var months []int
	for _, m := range f.Months {
		if m >= 1 && m <= 12 {
			months = append(months, m)
		}
	}
	if len(months) == 0 {
		months = AllMonths()
	}
	f.Months = months

	return f
}

// WithDimensions substitutes empty state or branch selections with the
// full known value list. An empty selection means "everything", and
// binding the full list keeps the SQL clause in place instead of
// silently widening the query.
func (f Filter) WithDimensions(d Dimensions) Filter {
	if len(f.States) == 0 {
		f.States = d.States
	}
	if len(f.Branches) == 0 {
		f.Branches = d.Branches
	}
	return f
}

// AllMonths returns 1 through 12.
func AllMonths() []int {
	months := make([]int, 12)
	for i := range months {
		months[i] = i + 1
	}
	return months
}

func clampYear(y, maxYear int) int {
	if y < MinYear {
		return MinYear
	}
	if y > maxYear {
		return maxYear
	}
	return y
}
