package core

import (
	"math"
	"sort"
	"time"
)

// Summary carries the headline KPIs for the filtered fact table.
type Summary struct {
	TotalRevenue     float64
	TotalCost        float64
	ProfitabilityPct float64
	AverageTicket    float64
	DistinctQuotes   int
}

// TimePoint is one (year, month) revenue/cost bucket. Date is the
// synthesized first of the month so charts get a real time axis.
type TimePoint struct {
	Year    int
	Month   int
	Date    time.Time
	Revenue float64
	Cost    float64
}

// ProductProfitability is a product with its mean row-level
// profitability ratio.
type ProductProfitability struct {
	Product           string
	MeanProfitability float64
}

// ProductRow is one line of the per-product revenue table.
type ProductRow struct {
	Product     string
	Revenue     float64
	GrossProfit float64
}

// Funnel holds the independent distinct counts of the three stages and
// the invoice/quote conversion percentage.
type Funnel struct {
	Quotes        int
	Orders        int
	Invoices      int
	ConversionPct float64
}

// ForecastSummary carries the probability-weighted KPIs of the
// prediction dataset.
type ForecastSummary struct {
	ExpectedRevenue  float64
	ExpectedCost     float64
	ProfitabilityPct float64
}

// CustomerProbability is the mean conversion probability of one customer.
type CustomerProbability struct {
	TaxID       string
	Name        string
	Probability float64
}

// Summarize computes the headline KPIs. Aggregate profitability uses a
// zero-revenue guard returning 0, unlike the row-level ratio which
// returns NaN for a zero gross value. The divergence is inherited
// behavior, kept until the product owner rules on it.
func Summarize(rows []FactRow) Summary {
	var s Summary
	quotes := make(map[int64]struct{})
	for _, r := range rows {
		s.TotalRevenue += r.GrossValue
		s.TotalCost += r.Cost
		quotes[r.QuoteNumber] = struct{}{}
	}
	s.DistinctQuotes = len(quotes)
	if s.TotalRevenue != 0 {
		s.ProfitabilityPct = (s.TotalRevenue - s.TotalCost) / s.TotalRevenue * 100
	}
	if s.DistinctQuotes > 0 {
		s.AverageTicket = s.TotalRevenue / float64(s.DistinctQuotes)
	}
	return s
}

// TimeSeries sums revenue and cost per (year, month) bucket, ascending
// chronologically.
func TimeSeries(rows []FactRow) []TimePoint {
	type bucket struct{ year, month int }
	sums := make(map[bucket]*TimePoint)
	for _, r := range rows {
		b := bucket{r.Year, r.Month}
		p, ok := sums[b]
		if !ok {
			p = &TimePoint{
				Year:  r.Year,
				Month: r.Month,
				Date:  time.Date(r.Year, time.Month(r.Month), 1, 0, 0, 0, 0, time.UTC),
			}
			sums[b] = p
		}
		p.Revenue += r.GrossValue
		p.Cost += r.Cost
	}

	points := make([]TimePoint, 0, len(sums))
	for _, p := range sums {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Year != points[j].Year {
			return points[i].Year < points[j].Year
		}
		return points[i].Month < points[j].Month
	})
	return points
}

// TopProducts ranks products by mean row-level profitability,
// descending. The sort is stable: products with equal means keep their
// first-appearance order from the source rows. Products whose every
// row has a missing ratio sort last.
func TopProducts(rows []FactRow, n int) []ProductProfitability {
	groups := groupProducts(rows)

	ranked := make([]ProductProfitability, 0, len(groups.order))
	for _, name := range groups.order {
		ranked = append(ranked, ProductProfitability{
			Product:           name,
			MeanProfitability: meanSkipNaN(groups.ratios[name]),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].MeanProfitability, ranked[j].MeanProfitability
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a > b
	})

	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// ProductTable sums revenue and gross profit per product, by revenue
// descending. Profit is the sum of per-row differences over exactly the
// rows that make up the revenue sum.
func ProductTable(rows []FactRow) []ProductRow {
	var order []string
	sums := make(map[string]*ProductRow)
	for _, r := range rows {
		p, ok := sums[r.Product]
		if !ok {
			p = &ProductRow{Product: r.Product}
			sums[r.Product] = p
			order = append(order, r.Product)
		}
		p.Revenue += r.GrossValue
		p.GrossProfit += r.GrossValue - r.Cost
	}

	table := make([]ProductRow, 0, len(order))
	for _, name := range order {
		table = append(table, *sums[name])
	}
	sort.SliceStable(table, func(i, j int) bool {
		return table[i].Revenue > table[j].Revenue
	})
	return table
}

// FunnelCounts counts distinct quote, order and invoice numbers
// independently. Rows without a downstream match carry nil order and
// invoice numbers and are excluded from those counts, never counted as
// a literal null. Conversion is invoices/quotes×100, 0 when there are
// no quotes even if invoices are somehow present.
func FunnelCounts(rows []FactRow) Funnel {
	quotes := make(map[int64]struct{})
	orders := make(map[int64]struct{})
	invoices := make(map[int64]struct{})
	for _, r := range rows {
		quotes[r.QuoteNumber] = struct{}{}
		if r.OrderNumber != nil {
			orders[*r.OrderNumber] = struct{}{}
		}
		if r.InvoiceNumber != nil {
			invoices[*r.InvoiceNumber] = struct{}{}
		}
	}

	f := Funnel{Quotes: len(quotes), Orders: len(orders), Invoices: len(invoices)}
	if f.Quotes > 0 {
		f.ConversionPct = float64(f.Invoices) / float64(f.Quotes) * 100
	}
	return f
}

// Forecast computes the probability-weighted revenue and cost, with the
// same zero-revenue guard as Summarize.
func Forecast(preds []PredictionRow) ForecastSummary {
	var f ForecastSummary
	for _, p := range preds {
		f.ExpectedRevenue += p.GrossValue * p.Probability
		f.ExpectedCost += p.Cost * p.Probability
	}
	if f.ExpectedRevenue != 0 {
		f.ProfitabilityPct = (f.ExpectedRevenue - f.ExpectedCost) / f.ExpectedRevenue * 100
	}
	return f
}

// CustomerProbabilities averages the conversion probability per
// customer, sorted by tax ID so the scatter axis is deterministic.
func CustomerProbabilities(preds []PredictionRow) []CustomerProbability {
	type key struct{ taxID, name string }
	var order []key
	probs := make(map[key][]float64)
	for _, p := range preds {
		k := key{p.CustomerTaxID, p.CustomerName}
		if _, ok := probs[k]; !ok {
			order = append(order, k)
		}
		probs[k] = append(probs[k], p.Probability)
	}

	customers := make([]CustomerProbability, 0, len(order))
	for _, k := range order {
		customers = append(customers, CustomerProbability{
			TaxID:       k.taxID,
			Name:        k.name,
			Probability: meanSkipNaN(probs[k]),
		})
	}
	sort.SliceStable(customers, func(i, j int) bool {
		if customers[i].TaxID != customers[j].TaxID {
			return customers[i].TaxID < customers[j].TaxID
		}
		return customers[i].Name < customers[j].Name
	})
	return customers
}

type productGroups struct {
	order  []string
	ratios map[string][]float64
}

func groupProducts(rows []FactRow) productGroups {
	g := productGroups{ratios: make(map[string][]float64)}
	for _, r := range rows {
		if _, ok := g.ratios[r.Product]; !ok {
			g.order = append(g.order, r.Product)
		}
		g.ratios[r.Product] = append(g.ratios[r.Product], r.Profitability())
	}
	return g
}

// meanSkipNaN averages the non-NaN values, mirroring how missing
// ratios propagate: they are skipped, and an all-missing group has a
// missing mean.
func meanSkipNaN(values []float64) float64 {
	var sum float64
	var n int
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
