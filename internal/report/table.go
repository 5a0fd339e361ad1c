// Package report exports the analysis history as CSV, XLSX and standalone
// HTML documents.
package report

import (
	"math"
	"strconv"

	"github.com/Simplici0/plmcost/internal/catalog"
	"github.com/Simplici0/plmcost/internal/costing"
	"github.com/Simplici0/plmcost/internal/form"
	"github.com/Simplici0/plmcost/internal/history"
)

// File names offered for download.
const (
	CSVFileName  = "cost_analysis_history.csv"
	XLSXFileName = "cost_analysis_history.xlsx"
)

// Headers are the export column titles.
var Headers = []string{
	"Company Name",
	"Industry",
	"Sector",
	"Country",
	"No. of Engineers / Designers",
	"No. of Sites",
	"No. of Countries",
	"Info Location",
	"New Products / Revisions per Year",
	"No. of Reworks per Product",
	"Avg. Weeks of Delay per Product",
	"Total Annual Loss",
	"Collaboration Cost",
	"Rework Cost",
	"Delay Cost",
	"Silo Risk Cost",
	"Used Annual Salary",
	"Used Cost per Rework",
	"Used Annual Revenue per Product",
}

// costColumns is the index of the first numeric cost column.
const costColumns = 11

type row struct {
	text  []string
	costs [5]int64
}

func buildRow(cat *catalog.Catalog, e history.Entry) row {
	f := e.FormData
	r := e.Result

	var costs [5]int64
	costs[0] = r.TotalCost
	for i, item := range r.CostBreakdown {
		costs[i+1] = item.Cost
	}

	text := []string{
		f.CompanyName,
		form.IndustryDisplay(cat, f),
		form.SectorDisplay(f),
		e.Country.Name,
		f.Engineers,
		f.NumSites,
		f.NumCountries,
		f.InfoLocation.Label(),
		f.NewProducts,
		f.Reworks,
		f.Delays,
	}
	for _, c := range costs {
		text = append(text, strconv.FormatInt(c, 10))
	}
	for _, key := range costing.OverridableMetrics {
		text = append(text, metricCell(r, key))
	}
	return row{text: text, costs: costs}
}

// metricCell renders the metric used for key. Catalog defaults carry a
// leading "*".
func metricCell(r costing.Result, key costing.MetricKey) string {
	item, ok := r.Item(key)
	if !ok {
		return ""
	}
	v := strconv.FormatFloat(math.Round(item.MetricValue), 'f', 0, 64)
	if item.IsMetricOverridden {
		return v
	}
	return "*" + v
}
