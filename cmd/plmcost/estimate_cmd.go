package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Simplici0/plmcost/internal/analysis"
	"github.com/Simplici0/plmcost/internal/costing"
	"github.com/Simplici0/plmcost/internal/form"
	"github.com/Simplici0/plmcost/internal/narrative"
)

// estimateFlags maps flag names to form fields, in the order they are
// applied. Industry precedes sector because changing it clears the sector.
var estimateFlags = []struct {
	flag  string
	field string
	usage string
}{
	{"industry", form.FieldIndustryInput, "Industry label, or free text for an unlisted industry"},
	{"sector", form.FieldSectorInput, "Sector label (General when empty)"},
	{"company", form.FieldCompanyName, "Company name"},
	{"country", form.FieldCountryCode, "Currency code of the country (USD, EUR, COP, ...)"},
	{"engineers", form.FieldEngineers, "Number of engineers"},
	{"sites", form.FieldNumSites, "Number of sites"},
	{"countries", form.FieldNumCountries, "Number of countries"},
	{"info-location", form.FieldInfoLocation, "Where critical information is stored: corporate or personal_pc"},
	{"new-products", form.FieldNewProducts, "New products or revisions per year"},
	{"reworks", form.FieldReworks, "Reworks per product"},
	{"delays", form.FieldDelays, "Average weeks of delay per product"},
}

var overrideFlags = []struct {
	flag  string
	key   costing.MetricKey
	usage string
}{
	{"salary", costing.AverageEngineerSalary, "Custom annual engineer salary"},
	{"rework-cost", costing.ReworkCost, "Custom cost per rework"},
	{"revenue", costing.NewProductRevenue, "Custom annual revenue per product"},
}

func newEstimateCmd(app *App) *cobra.Command {
	var skipNarrative, asJSON bool
	fieldValues := make([]string, len(estimateFlags))
	overrideValues := make([]string, len(overrideFlags))

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Calculate the hidden cost breakdown for a company profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			state := form.Default()
			for i, f := range estimateFlags {
				if cmd.Flags().Changed(f.flag) {
					state = form.ApplyFieldChange(app.Catalog, state, f.field, fieldValues[i])
				}
			}

			var overrides costing.Overrides
			for i, f := range overrideFlags {
				if !cmd.Flags().Changed(f.flag) {
					continue
				}
				var err error
				if overrides, err = overrides.Set(f.key, overrideValues[i]); err != nil {
					return err
				}
			}

			req := analysis.Request{Form: state, Overrides: overrides}
			var (
				out analysis.Outcome
				err error
			)
			if skipNarrative {
				out, err = app.Analysis.Preview(req)
			} else {
				out, err = app.Analysis.Run(cmd.Context(), cliSessionKey, req)
			}
			if errors.Is(err, narrative.ErrUnavailable) {
				return fmt.Errorf("%w (set GEMINI_API_KEY or pass --skip-narrative)", err)
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out.Entry)
			}
			printOutcome(cmd.OutOrStdout(), out)
			return nil
		},
	}

	for i, f := range estimateFlags {
		cmd.Flags().StringVar(&fieldValues[i], f.flag, "", f.usage)
	}
	for i, f := range overrideFlags {
		cmd.Flags().StringVar(&overrideValues[i], f.flag, "", f.usage)
	}
	cmd.Flags().BoolVar(&skipNarrative, "skip-narrative", false, "Only run the calculation; nothing is saved to history")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the analysis as JSON")

	return cmd
}

func printOutcome(w io.Writer, out analysis.Outcome) {
	e := out.Entry
	money := func(v int64) string { return costing.FormatCurrency(float64(v), e.Country) }

	company := e.FormData.CompanyName
	if company == "" {
		company = "Your Company"
	}
	fmt.Fprintf(w, "Hidden Cost Analysis: %s (%s)\n", company, e.Country.Name)
	fmt.Fprintf(w, "Total estimated annual loss: %s\n\n", money(e.Result.TotalCost))

	for _, item := range e.Result.CostBreakdown {
		fmt.Fprintf(w, "%-52s %s\n", item.Category, money(item.Cost))
		fmt.Fprintf(w, "  %s\n", item.MethodologyFormula)
		if item.Explanation != "" {
			fmt.Fprintf(w, "  %s\n", item.Explanation)
		}
	}

	fmt.Fprintf(w, "\nValues used: %s\n", out.Methodology.State)
	if e.Result.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", e.Result.Summary)
	}
	if e.ID != "" {
		fmt.Fprintf(w, "\nSaved to history as %s\n", e.ID)
	}
}
