package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Simplici0/plmcost/internal/catalog"
	"github.com/Simplici0/plmcost/internal/history"
)

const utf8BOM = "\ufeff"

// WriteCSV writes the history as UTF-8 CSV with a byte order mark, one row
// per entry in log order. Only fields containing a comma are quoted.
func WriteCSV(w io.Writer, cat *catalog.Catalog, entries []history.Entry) error {
	bw := bufio.NewWriter(w)

	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, joinCSV(Headers))
	for _, e := range entries {
		lines = append(lines, joinCSV(buildRow(cat, e).text))
	}

	if _, err := bw.WriteString(utf8BOM + strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func joinCSV(fields []string) string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = escapeCSVField(f)
	}
	return strings.Join(out, ",")
}

func escapeCSVField(field string) string {
	if !strings.Contains(field, ",") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
