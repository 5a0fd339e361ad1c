package costing

import (
	"fmt"

	"github.com/Simplici0/plmcost/internal/catalog"
)

// MetricLine is one editable financial metric in the methodology view.
type MetricLine struct {
	Key     MetricKey
	Label   string
	Value   float64
	Display string
	// USDDisplay is empty for USD.
	USDDisplay string
	Custom     bool
}

// OperationalLine is one non-editable operational constant.
type OperationalLine struct {
	Label   string
	Display string
}

// Paragraph is a titled block of justification text.
type Paragraph struct {
	Title string
	Body  string
}

// Methodology explains which values fed a calculation and why they are
// credible. The justification variant follows the override state.
type Methodology struct {
	State         OverrideState
	Financial     []MetricLine
	Operational   []OperationalLine
	Justification []Paragraph
}

// NewMethodology builds the methodology view for resolved metrics.
func NewMethodology(m ResolvedMetrics, country catalog.Country) Methodology {
	state := m.Overrides.State()

	financial := make([]MetricLine, 0, len(OverridableMetrics))
	for _, def := range []struct {
		key   MetricKey
		label string
	}{
		{AverageEngineerSalary, "Annual Engineer Salary"},
		{ReworkCost, "Cost per Rework"},
		{NewProductRevenue, "Annual Revenue per Product"},
	} {
		v := m.Value(def.key)
		line := MetricLine{
			Key:     def.key,
			Label:   def.label,
			Value:   v,
			Display: FormatCurrency(v, country),
			Custom:  m.IsOverridden(def.key),
		}
		if country.Code != "USD" {
			line.USDDisplay = FormatUSD(USDEquivalent(v, country))
		}
		financial = append(financial, line)
	}

	operational := []OperationalLine{
		{"Base Weekly Inefficiency Hours", fmt.Sprintf("%s hours per engineer", formatNumber(m.BaseWastedHours))},
		{"Additional Inefficiency per Site", fmt.Sprintf("%s hours per additional site", formatNumber(m.HoursPerSite))},
		{"Additional Inefficiency per Country", fmt.Sprintf("%s hours per additional country", formatNumber(m.HoursPerCountry))},
		{"Silo Risk Multiplier", fmt.Sprintf("%s%% (applied to rework and delay costs)", formatPercent(m.SiloCostMultiplier))},
	}

	return Methodology{
		State:         state,
		Financial:     financial,
		Operational:   operational,
		Justification: justification(state),
	}
}

func justification(state OverrideState) []Paragraph {
	switch state {
	case FullyOverridden:
		return []Paragraph{
			{"Data Source", "All calculations are based on the actual values you provided. This transforms the analysis into an accurate financial reflection of your company's specific operational inefficiencies, eliminating market estimates."},
			{"Value's Purpose", "By using your own data, the calculator offers a fully customized result that reflects the reality of your operations and costs."},
			{"Calculation Accuracy", "The result is a direct reflection of the information you have provided, leading to the most accurate possible analysis of your current situation."},
		}
	case PartiallyOverridden:
		return []Paragraph{
			{"Data Source", "This analysis combines conservative industry estimates with actual data provided by you. This mixed approach significantly increases the calculation's accuracy, adapting it better to your company's financial reality while maintaining a market benchmark for other variables."},
			{"Value's Purpose", "The industry values act as a credible benchmark for the variables that were not modified, while the data you provided ensures that key areas of the calculation are as accurate as possible."},
			{"Conservative and Real Values", "The application's estimates are deliberately conservative to provide a credible \"floor.\" The combination with your actual data results in a robust, hybrid analysis."},
		}
	default:
		return []Paragraph{
			{"Data Source", "The values are based on an analysis of economic metrics for each country and sector, using public domain sources such as salary surveys and industrial cost reports. They represent a statistical consensus for a medium-sized company, serving as a robust, localized benchmark."},
			{"Value's Purpose", "The goal is not to guess the exact cost of a particular error in your company, but to use a credible and defensible market average to make the calculation strategically representative."},
			{"Purposely Conservative", "They were deliberately chosen to be conservative. In many cases, actual costs can be much higher. This ensures that the loss estimate is a credible and hard-to-refute \"floor\" rather than an exaggeration."},
		}
	}
}
