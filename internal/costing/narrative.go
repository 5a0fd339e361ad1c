package costing

import (
	"fmt"
	"strconv"

	"github.com/Simplici0/plmcost/internal/catalog"
)

// Breakdown categories, in breakdown order.
const (
	CategoryCollaboration = "Cost of Inefficiency from Distributed Collaboration"
	CategoryRework        = "Cost of Engineering and Production Rework"
	CategoryDelay         = "Opportunity Cost from Market Delay"
	CategorySilo          = "Cost of Risk from Information Silos"

	metricSource = "(based on industry standards)."
)

// ComponentText is the display text of one cost component.
type ComponentText struct {
	Formula   string
	Narrative string
}

// BreakdownItem is one of the four cost components of a result.
type BreakdownItem struct {
	Category             string    `json:"category"`
	Cost                 int64     `json:"cost"`
	Explanation          string    `json:"explanation"`
	MethodologyFormula   string    `json:"methodologyFormula"`
	CalculationNarrative string    `json:"calculationNarrative"`
	MetricKey            MetricKey `json:"metricKey"`
	MetricValue          float64   `json:"metricValue"`
	MetricLabel          string    `json:"metricLabel"`
	MetricSource         string    `json:"metricSource"`
	IsMetricOverridden   bool      `json:"isMetricOverridden"`
}

// ChartInterpretations holds one prose interpretation per chart kind.
type ChartInterpretations struct {
	Bar   string `json:"bar"`
	Pie   string `json:"pie"`
	Radar string `json:"radar"`
}

// Result is a calculation with its display strings. The prose fields
// (Explanation, Summary, MethodologyNotes, ChartInterpretations) are empty
// until the narrative writer fills them.
type Result struct {
	TotalCost            int64                `json:"totalCost"`
	CostBreakdown        [4]BreakdownItem     `json:"costBreakdown"`
	Summary              string               `json:"summary"`
	MethodologyNotes     string               `json:"methodologyNotes"`
	ChartInterpretations ChartInterpretations `json:"chartInterpretations"`
}

// Item returns the breakdown item for a metric key.
func (r Result) Item(key MetricKey) (BreakdownItem, bool) {
	for _, item := range r.CostBreakdown {
		if item.MetricKey == key {
			return item, true
		}
	}
	return BreakdownItem{}, false
}

// Describe builds the formula and narrative strings for each component.
// Every amount it prints is taken from calc, so the text never diverges
// from the breakdown.
func Describe(m ResolvedMetrics, c Counts, calc Calculation, loc InfoLocation, country catalog.Country) [4]ComponentText {
	money := func(v float64) string { return FormatCurrency(v, country) }
	hours := strconv.FormatFloat(calc.WastedHours, 'f', 1, 64)
	percent := formatPercent(m.SiloCostMultiplier)

	var out [4]ComponentText

	out[0] = ComponentText{
		Formula: fmt.Sprintf("(%s/year ÷ 52 wk) × %sh × %s eng.",
			money(m.AverageEngineerSalary), hours, formatNumber(c.Engineers)),
		Narrative: fmt.Sprintf("The average annual salary of an engineer is estimated at %s. "+
			"With a structure of %s sites in %s countries, an inefficiency in communication and data searching "+
			"is estimated at %s hours/week per engineer. For %s engineers, this represents an annual loss of %s.",
			money(m.AverageEngineerSalary), formatNumber(c.NumSites), formatNumber(c.NumCountries),
			hours, formatNumber(c.Engineers), money(float64(calc.Collaboration))),
	}

	out[1] = ComponentText{
		Formula: fmt.Sprintf("%s products × %s reworks/prod × %s/rework",
			formatNumber(c.NewProducts), formatNumber(c.Reworks), money(m.ReworkCost)),
		Narrative: fmt.Sprintf("With %s new products and %s reworks for each, the company faces %s rework cycles. "+
			"At an estimated cost of %s per cycle, the annual loss is %s.",
			formatNumber(c.NewProducts), formatNumber(c.Reworks), formatNumber(c.NewProducts*c.Reworks),
			money(m.ReworkCost), money(float64(calc.Rework))),
	}

	out[2] = ComponentText{
		Formula: fmt.Sprintf("(%s/prod ÷ 52 wk) × %s wk × %s prod",
			money(m.NewProductRevenue), formatNumber(c.Delays), formatNumber(c.NewProducts)),
		Narrative: fmt.Sprintf("If a new product generates annual revenue of %s, each week of delay represents a loss of %s. "+
			"With a delay of %s weeks on %s products, the opportunity cost is %s.",
			money(m.NewProductRevenue), money(m.NewProductRevenue/WeeksPerYear),
			formatNumber(c.Delays), formatNumber(c.NewProducts), money(float64(calc.Delay))),
	}

	if loc == PersonalPC {
		out[3] = ComponentText{
			Formula: fmt.Sprintf("(%s + %s) × %s%%",
				money(float64(calc.Rework)), money(float64(calc.Delay)), percent),
			Narrative: fmt.Sprintf("Storing critical data on personal PCs introduces significant risk. "+
				"This decentralized method increases the likelihood of errors and reworks. "+
				"A risk multiplier of %s%% is applied to rework and delay costs, resulting in an additional risk cost of %s.",
				percent, money(float64(calc.Silo))),
		}
	} else {
		out[3] = ComponentText{
			Formula: "Zero cost for using a centralized system",
			Narrative: "Using a centralized corporate system is a good practice that mitigates the risks of isolated information. " +
				"This cost is zero.",
		}
	}

	return out
}

// BuildResult assembles the breakdown for a calculation. Prose fields are
// left empty.
func BuildResult(m ResolvedMetrics, c Counts, calc Calculation, loc InfoLocation, country catalog.Country) Result {
	text := Describe(m, c, calc, loc, country)

	item := func(i int, category string, cost int64, key MetricKey, label string) BreakdownItem {
		return BreakdownItem{
			Category:             category,
			Cost:                 cost,
			MethodologyFormula:   text[i].Formula,
			CalculationNarrative: text[i].Narrative,
			MetricKey:            key,
			MetricValue:          m.Value(key),
			MetricLabel:          label,
			MetricSource:         metricSource,
			IsMetricOverridden:   m.IsOverridden(key),
		}
	}

	return Result{
		TotalCost: calc.Total,
		CostBreakdown: [4]BreakdownItem{
			item(0, CategoryCollaboration, calc.Collaboration, AverageEngineerSalary, "Annual Salary"),
			item(1, CategoryRework, calc.Rework, ReworkCost, "Cost per Rework"),
			item(2, CategoryDelay, calc.Delay, NewProductRevenue, "Annual Revenue per Product"),
			item(3, CategorySilo, calc.Silo, SiloCostMultiplier, "Silo Risk Multiplier"),
		},
	}
}

// Estimate resolves metrics and runs the calculation for a validated input.
func Estimate(cat *catalog.Catalog, in Input, overrides Overrides) (ResolvedMetrics, Result, error) {
	country, ok := cat.Country(in.Currency)
	if !ok {
		return ResolvedMetrics{}, Result{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, in.Currency)
	}
	m, err := Resolve(cat, in.Industry, in.Sector, in.Currency, overrides)
	if err != nil {
		return ResolvedMetrics{}, Result{}, fmt.Errorf("resolve metrics: %w", err)
	}
	calc := Calculate(m, in.Counts, in.InfoLocation)
	return m, BuildResult(m, in.Counts, calc, in.InfoLocation, country), nil
}
