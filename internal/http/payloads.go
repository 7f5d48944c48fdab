package http

import (
	"math"

	"vendas/internal/core"
	"vendas/internal/format"
)

// KPI is one formatted metric card. Raw is null when the value is
// missing, so no NaN ever reaches the JSON encoder.
type KPI struct {
	Label string   `json:"label"`
	Value string   `json:"value"`
	Raw   *float64 `json:"raw"`
}

// SeriesPoint is one bucket of the revenue×cost area chart.
type SeriesPoint struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
}

// BarPoint is one bar of the top-products profitability chart.
type BarPoint struct {
	Product       string   `json:"product"`
	Profitability *float64 `json:"profitability"`
}

// ProductEntry is one line of the per-product revenue table.
type ProductEntry struct {
	Product          string  `json:"product"`
	Revenue          float64 `json:"revenue"`
	RevenueLabel     string  `json:"revenue_label"`
	GrossProfit      float64 `json:"gross_profit"`
	GrossProfitLabel string  `json:"gross_profit_label"`
}

// FunnelStage is one ordered stage of the funnel chart.
type FunnelStage struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// ScatterPoint is one customer of the probability scatter chart.
type ScatterPoint struct {
	TaxID       string   `json:"tax_id"`
	Name        string   `json:"name"`
	Probability *float64 `json:"probability"`
}

// FiltersPayload feeds the sidebar controls.
type FiltersPayload struct {
	States   []string `json:"states"`
	Branches []string `json:"branches"`
	YearMin  int      `json:"year_min"`
	YearMax  int      `json:"year_max"`
	Months   []int    `json:"months"`
}

// DashboardPayload is the complete response of the dashboard tab.
type DashboardPayload struct {
	KPIs        []KPI          `json:"kpis"`
	Series      []SeriesPoint  `json:"series"`
	TopProducts []BarPoint     `json:"top_products"`
	Products    []ProductEntry `json:"products"`
}

// FunnelPayload is the complete response of the sales funnel tab.
type FunnelPayload struct {
	KPIs   []KPI         `json:"kpis"`
	Stages []FunnelStage `json:"stages"`
}

// ForecastPayload is the complete response of the predictive tab.
type ForecastPayload struct {
	KPIs      []KPI          `json:"kpis"`
	Customers []ScatterPoint `json:"customers"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func buildDashboard(rows []core.FactRow) DashboardPayload {
	summary := core.Summarize(rows)
	p := DashboardPayload{
		KPIs: []KPI{
			currencyKPI("Receita Total", summary.TotalRevenue),
			percentKPI("% Rentabilidade", summary.ProfitabilityPct),
			currencyKPI("Custo Total", summary.TotalCost),
			currencyKPI("Ticket Médio", summary.AverageTicket),
		},
		Series:      []SeriesPoint{},
		TopProducts: []BarPoint{},
		Products:    []ProductEntry{},
	}

	for _, pt := range core.TimeSeries(rows) {
		p.Series = append(p.Series, SeriesPoint{
			Date:    pt.Date.Format("2006-01-02"),
			Revenue: pt.Revenue,
			Cost:    pt.Cost,
		})
	}
	for _, top := range core.TopProducts(rows, 10) {
		p.TopProducts = append(p.TopProducts, BarPoint{
			Product:       top.Product,
			Profitability: number(top.MeanProfitability),
		})
	}
	for _, row := range core.ProductTable(rows) {
		p.Products = append(p.Products, ProductEntry{
			Product:          row.Product,
			Revenue:          row.Revenue,
			RevenueLabel:     format.Currency(row.Revenue),
			GrossProfit:      row.GrossProfit,
			GrossProfitLabel: format.Currency(row.GrossProfit),
		})
	}
	return p
}

func buildFunnel(rows []core.FactRow) FunnelPayload {
	funnel := core.FunnelCounts(rows)
	return FunnelPayload{
		KPIs: []KPI{
			countKPI("# Orçamentos", funnel.Quotes),
			countKPI("# Pedidos", funnel.Orders),
			countKPI("# Notas", funnel.Invoices),
			percentKPI("Conversão NF/Orç.", funnel.ConversionPct),
		},
		Stages: []FunnelStage{
			{Stage: "Orçamento", Count: funnel.Quotes},
			{Stage: "Pedido", Count: funnel.Orders},
			{Stage: "NF", Count: funnel.Invoices},
		},
	}
}

func buildForecast(preds []core.PredictionRow) ForecastPayload {
	forecast := core.Forecast(preds)
	p := ForecastPayload{
		KPIs: []KPI{
			currencyKPI("Receita Prevista", forecast.ExpectedRevenue),
			currencyKPI("Custo Previsto", forecast.ExpectedCost),
			percentKPI("% Rentab. Prev.", forecast.ProfitabilityPct),
		},
		Customers: []ScatterPoint{},
	}
	for _, c := range core.CustomerProbabilities(preds) {
		p.Customers = append(p.Customers, ScatterPoint{
			TaxID:       c.TaxID,
			Name:        c.Name,
			Probability: number(c.Probability),
		})
	}
	return p
}

func currencyKPI(label string, v float64) KPI {
	return KPI{Label: label, Value: format.Currency(v), Raw: number(v)}
}

func percentKPI(label string, v float64) KPI {
	return KPI{Label: label, Value: format.Percent(v), Raw: number(v)}
}

func countKPI(label string, n int) KPI {
	v := float64(n)
	return KPI{Label: label, Value: format.Count(n), Raw: &v}
}

// number converts a possibly-missing value to a JSON-safe pointer.
func number(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
