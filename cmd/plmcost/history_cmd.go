package main

import (
	"bytes"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Simplici0/plmcost/internal/costing"
	"github.com/Simplici0/plmcost/internal/form"
	"github.com/Simplici0/plmcost/internal/report"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect, export and clear saved analyses",
	}

	cmd.AddCommand(
		newHistoryListCmd(app),
		newHistoryExportCmd(app),
		newHistoryDocumentCmd(app),
		newHistoryClearCmd(app),
	)

	return cmd
}

func newHistoryListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved analyses, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := app.History.Entries()
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No analyses saved yet.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tCOMPANY\tINDUSTRY\tTOTAL")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.ID,
					e.CreatedAt().Format("2006-01-02 15:04"),
					e.FormData.CompanyName,
					form.IndustryDisplay(app.Catalog, e.FormData),
					costing.FormatCurrency(float64(e.Result.TotalCost), e.Country),
				)
			}
			return tw.Flush()
		},
	}
}

func newHistoryExportCmd(app *App) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the history as CSV or XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				buf  bytes.Buffer
				err  error
				name string
			)
			switch format {
			case "csv":
				err = report.WriteCSV(&buf, app.Catalog, app.History.Entries())
				name = report.CSVFileName
			case "xlsx":
				err = report.WriteXLSX(&buf, app.Catalog, app.History.Entries())
				name = report.XLSXFileName
			default:
				return fmt.Errorf("unsupported format %q (use csv or xlsx)", format)
			}
			if err != nil {
				return err
			}

			if out == "-" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if out == "" {
				out = name
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d analyses to %s\n", len(app.History.Entries()), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "Export format: csv or xlsx")
	cmd.Flags().StringVar(&out, "out", "", "Output file, or - for stdout (default: the standard export file name)")

	return cmd
}

func newHistoryDocumentCmd(app *App) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "document <id>",
		Short: "Render one saved analysis as an HTML report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ok := app.History.Get(args[0])
			if !ok {
				return fmt.Errorf("analysis %s not found", args[0])
			}
			doc, err := report.Document(app.Catalog, e)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(doc)
				return err
			}
			if err := os.WriteFile(out, doc, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file (default: stdout)")

	return cmd
}

func newHistoryClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			app.History.Clear(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}
}
