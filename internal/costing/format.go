package costing

import (
	"math"
	"strconv"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Simplici0/plmcost/internal/catalog"
)

// printers caches one message printer per locale.
var printers sync.Map

func printerFor(locale string) *message.Printer {
	if p, ok := printers.Load(locale); ok {
		return p.(*message.Printer)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	p, _ := printers.LoadOrStore(locale, message.NewPrinter(tag))
	return p.(*message.Printer)
}

// FormatCurrency renders value rounded to whole units with the country's
// symbol and locale digit grouping, e.g. "$26,923".
func FormatCurrency(value float64, country catalog.Country) string {
	return country.CurrencySymbol + printerFor(country.Locale).Sprintf("%d", int64(math.Round(value)))
}

// FormatUSD renders a value already converted to US dollars.
func FormatUSD(value float64) string {
	return "$" + printerFor("en-US").Sprintf("%d", int64(math.Round(value)))
}

// USDEquivalent converts a local amount to US dollars.
func USDEquivalent(value float64, country catalog.Country) float64 {
	if country.USDRate <= 0 {
		return 0
	}
	return value / country.USDRate
}

// formatNumber prints a count without trailing zeros.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatPercent prints a multiplier as a percentage, e.g. 0.2 -> "20".
func formatPercent(multiplier float64) string {
	return strconv.FormatFloat(math.Round(multiplier*10000)/100, 'f', -1, 64)
}
