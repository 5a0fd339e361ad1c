package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/Simplici0/plmcost/internal/catalog"
	"github.com/Simplici0/plmcost/internal/costing"
	"github.com/Simplici0/plmcost/internal/form"
	"github.com/Simplici0/plmcost/internal/history"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown renders one history entry as a Markdown report.
func Markdown(cat *catalog.Catalog, e history.Entry) (string, error) {
	f := e.FormData
	r := e.Result
	money := func(v int64) string { return costing.FormatCurrency(float64(v), e.Country) }

	m, err := costing.RecordedMetrics(cat, f.Industry, f.Sector, e.Country.Code, r)
	if err != nil {
		return "", fmt.Errorf("metrics for report: %w", err)
	}
	method := costing.NewMethodology(m, e.Country)

	var b strings.Builder

	company := f.CompanyName
	if strings.TrimSpace(company) == "" {
		company = "Your Company"
	}
	fmt.Fprintf(&b, "# Hidden Cost Analysis: %s\n\n", company)
	fmt.Fprintf(&b, "- **Industry:** %s\n", form.IndustryDisplay(cat, f))
	fmt.Fprintf(&b, "- **Sector:** %s\n", form.SectorDisplay(f))
	fmt.Fprintf(&b, "- **Country:** %s\n", e.Country.Name)
	fmt.Fprintf(&b, "- **Structure:** %s engineers, %s sites, %s countries\n", f.Engineers, f.NumSites, f.NumCountries)
	fmt.Fprintf(&b, "- **Information storage:** %s\n", f.InfoLocation.Label())
	if t := e.CreatedAt(); !t.IsZero() {
		fmt.Fprintf(&b, "- **Generated:** %s\n", t.Format("2006-01-02 15:04 UTC"))
	}

	fmt.Fprintf(&b, "\n## Total Estimated Annual Loss: %s\n\n", money(r.TotalCost))

	if r.Summary != "" {
		b.WriteString("## Executive Summary\n\n")
		b.WriteString(r.Summary)
		b.WriteString("\n\n")
	}

	b.WriteString("## Cost Breakdown\n\n")
	b.WriteString("| Category | Annual Cost |\n|---|---:|\n")
	for _, item := range r.CostBreakdown {
		fmt.Fprintf(&b, "| %s | %s |\n", item.Category, money(item.Cost))
	}
	b.WriteString("\n")

	for _, item := range r.CostBreakdown {
		fmt.Fprintf(&b, "### %s: %s\n\n", item.Category, money(item.Cost))
		fmt.Fprintf(&b, "`%s`\n\n", item.MethodologyFormula)
		b.WriteString(item.CalculationNarrative)
		b.WriteString("\n\n")
		if item.Explanation != "" {
			fmt.Fprintf(&b, "> **Consultant's insight:** %s\n\n", item.Explanation)
		}
	}

	b.WriteString("## Methodology\n\n")
	fmt.Fprintf(&b, "Values used: **%s**.\n\n", methodologyLabel(method.State))
	b.WriteString("| Metric | Value | USD equivalent |\n|---|---:|---:|\n")
	for _, line := range method.Financial {
		label := line.Label
		if line.Custom {
			label += " (custom)"
		}
		usd := line.USDDisplay
		if usd == "" {
			usd = "-"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", label, line.Display, usd)
	}
	for _, line := range method.Operational {
		fmt.Fprintf(&b, "| %s | %s | - |\n", line.Label, line.Display)
	}
	b.WriteString("\n")
	for _, p := range method.Justification {
		fmt.Fprintf(&b, "**%s.** %s\n\n", p.Title, p.Body)
	}
	if r.MethodologyNotes != "" {
		b.WriteString(r.MethodologyNotes)
		b.WriteString("\n\n")
	}

	ci := r.ChartInterpretations
	if ci.Bar != "" || ci.Pie != "" || ci.Radar != "" {
		b.WriteString("## Chart Interpretations\n\n")
		fmt.Fprintf(&b, "- **Cost comparison:** %s\n", ci.Bar)
		fmt.Fprintf(&b, "- **Cost distribution:** %s\n", ci.Pie)
		fmt.Fprintf(&b, "- **Inefficiency profile:** %s\n", ci.Radar)
	}

	return b.String(), nil
}

func methodologyLabel(s costing.OverrideState) string {
	switch s {
	case costing.PartiallyOverridden:
		return "Hybrid (market estimates and custom values)"
	case costing.FullyOverridden:
		return "Fully custom values"
	}
	return "Market estimates"
}

// Document renders one history entry as a standalone HTML page. Raw HTML
// in user or model text is not passed through.
func Document(cat *catalog.Catalog, e history.Entry) ([]byte, error) {
	md, err := Markdown(cat, e)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	if err := markdown.Convert([]byte(md), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&out, "<title>Hidden Cost Analysis - %s</title>\n", html.EscapeString(e.FormData.CompanyName))
	out.WriteString(documentStyle)
	out.WriteString("</head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

const documentStyle = `<style>
body { font-family: system-ui, sans-serif; max-width: 860px; margin: 2rem auto; color: #1e293b; line-height: 1.5; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #cbd5e1; padding: .4rem .6rem; }
blockquote { border-left: 4px solid #2563eb; margin: 0; padding-left: 1rem; color: #334155; }
code { background: #f1f5f9; padding: .1rem .3rem; }
</style>
`
