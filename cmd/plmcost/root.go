package main

import (
	"github.com/spf13/cobra"

	"github.com/Simplici0/plmcost/internal/analysis"
	"github.com/Simplici0/plmcost/internal/catalog"
	"github.com/Simplici0/plmcost/internal/history"
)

// cliSessionKey is the in-flight guard key for command line runs.
const cliSessionKey = "cli"

// App holds what the commands need.
type App struct {
	Catalog  *catalog.Catalog
	History  *history.Log
	Analysis *analysis.Service
}

func newRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "plmcost",
		Short:         "Estimate the hidden costs of poor product lifecycle management",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newEstimateCmd(app),
		newHistoryCmd(app),
	)

	return root
}
