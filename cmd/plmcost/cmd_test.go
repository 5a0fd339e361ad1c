package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/plmcost/internal/analysis"
	"github.com/Simplici0/plmcost/internal/catalog"
	"github.com/Simplici0/plmcost/internal/costing"
	"github.com/Simplici0/plmcost/internal/db"
	"github.com/Simplici0/plmcost/internal/history"
	"github.com/Simplici0/plmcost/internal/migrations"
	"github.com/Simplici0/plmcost/internal/narrative"
	"github.com/Simplici0/plmcost/internal/report"
)

type stubWriter struct{ err error }

func (w stubWriter) Write(context.Context, narrative.Request) (narrative.Prose, error) {
	if w.err != nil {
		return narrative.Prose{}, w.err
	}
	return narrative.Prose{
		Summary:              "Stub executive summary.",
		Explanations:         [4]string{"one", "two", "three", "four"},
		ChartInterpretations: costing.ChartInterpretations{Bar: "bar", Pie: "pie", Radar: "radar"},
	}, nil
}

// testApp wires an App over a temporary SQLite database.
func testApp(t *testing.T, writer narrative.Writer) *App {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, migrations.Up(database))

	cat := catalog.MustLoad()
	hist := history.NewLog(history.NewSQLiteStore(database), zerolog.Nop())
	hist.Load(context.Background())

	return &App{
		Catalog:  cat,
		History:  hist,
		Analysis: analysis.NewService(cat, writer, hist, time.Second, zerolog.Nop()),
	}
}

// executeCmd runs the root command and captures stdout and stderr.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

var shipbuilding = []string{"estimate", "--company", "Acme", "--industry", "Shipbuilding", "--info-location", "personal_pc"}

func TestEstimate_SkipNarrativeDoesNotSave(t *testing.T) {
	app := testApp(t, stubWriter{})

	out, err := executeCmd(t, app, append(shipbuilding, "--skip-narrative")...)
	require.NoError(t, err)

	assert.Contains(t, out, "Hidden Cost Analysis: Acme (United States)")
	assert.Contains(t, out, "Total estimated annual loss: $578,461")
	assert.Contains(t, out, costing.CategorySilo)
	assert.Contains(t, out, "Values used: market-estimate")
	assert.NotContains(t, out, "Saved to history")
	assert.Equal(t, 0, app.History.Len())
}

func TestEstimate_WithNarrativeSavesHistory(t *testing.T) {
	app := testApp(t, stubWriter{})

	out, err := executeCmd(t, app, shipbuilding...)
	require.NoError(t, err)

	assert.Contains(t, out, "Stub executive summary.")
	assert.Contains(t, out, "  one\n")
	require.Equal(t, 1, app.History.Len())
	assert.Contains(t, out, "Saved to history as "+app.History.Entries()[0].ID)
}

func TestEstimate_Overrides(t *testing.T) {
	app := testApp(t, stubWriter{})

	out, err := executeCmd(t, app, append(shipbuilding, "--skip-narrative", "--salary", "100000")...)
	require.NoError(t, err)
	assert.Contains(t, out, "$38,462")
	assert.Contains(t, out, "Values used: hybrid")

	_, err = executeCmd(t, app, append(shipbuilding, "--skip-narrative", "--salary", "abc")...)
	require.ErrorIs(t, err, costing.ErrInvalidOverride)
}

func TestEstimate_JSONOutputIsAHistoryEntry(t *testing.T) {
	app := testApp(t, stubWriter{})

	out, err := executeCmd(t, app, append(shipbuilding, "--json")...)
	require.NoError(t, err)

	var e history.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &e))
	assert.Equal(t, int64(578461), e.Result.TotalCost)
	assert.Equal(t, "Acme", e.FormData.CompanyName)
	assert.Equal(t, app.History.Entries()[0].ID, e.ID)
}

func TestEstimate_Errors(t *testing.T) {
	app := testApp(t, stubWriter{})

	_, err := executeCmd(t, app, "estimate", "--skip-narrative")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please select or specify an industry.")

	_, err = executeCmd(t, testApp(t, narrative.Disabled{}), shipbuilding...)
	require.ErrorIs(t, err, narrative.ErrUnavailable)
	assert.Contains(t, err.Error(), "--skip-narrative")

	_, err = executeCmd(t, testApp(t, stubWriter{err: errors.New("quota")}), shipbuilding...)
	require.ErrorIs(t, err, analysis.ErrNarrativeFailed)
}

func TestHistory_ExportListDocumentClear(t *testing.T) {
	app := testApp(t, stubWriter{})
	_, err := executeCmd(t, app, shipbuilding...)
	require.NoError(t, err)
	id := app.History.Entries()[0].ID

	out, err := executeCmd(t, app, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "$578,461")

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out.csv")
	_, err = executeCmd(t, app, "history", "export", "--out", csvPath)
	require.NoError(t, err)
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\ufeff"+strings.Join(report.Headers, ",")))

	xlsxPath := filepath.Join(dir, "out.xlsx")
	_, err = executeCmd(t, app, "history", "export", "--format", "xlsx", "--out", xlsxPath)
	require.NoError(t, err)
	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	require.NoError(t, f.Close())

	out, err = executeCmd(t, app, "history", "export", "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Acme,Shipbuilding,General")

	_, err = executeCmd(t, app, "history", "export", "--format", "pdf")
	require.Error(t, err)

	out, err = executeCmd(t, app, "history", "document", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Hidden Cost Analysis: Acme")

	_, err = executeCmd(t, app, "history", "document", "missing")
	require.Error(t, err)

	out, err = executeCmd(t, app, "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "History cleared.")
	assert.Equal(t, 0, app.History.Len())

	out, err = executeCmd(t, app, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No analyses saved yet.")
}

func TestEstimate_HelpDescribesPerProductFigures(t *testing.T) {
	out, err := executeCmd(t, testApp(t, stubWriter{}), "estimate", "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "Reworks per product")
	assert.Contains(t, out, "Average weeks of delay per product")
}
