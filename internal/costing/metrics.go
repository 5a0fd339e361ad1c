package costing

import (
	"errors"
	"fmt"
	"math"

	"github.com/Simplici0/plmcost/internal/catalog"
)

// OtherKey is the sentinel used for free-text industries and sectors.
const OtherKey = "other"

var (
	// ErrUnknownCurrency is returned when a currency code is not in the
	// country table or a catalog record lacks a value for it.
	ErrUnknownCurrency = errors.New("unknown currency")
	// ErrUnknownMetric is returned for a metric key that cannot be overridden.
	ErrUnknownMetric = errors.New("unknown metric")
)

// MetricKey names a metric shown in a breakdown item.
type MetricKey string

const (
	AverageEngineerSalary MetricKey = "averageEngineerSalary"
	ReworkCost            MetricKey = "reworkCost"
	NewProductRevenue     MetricKey = "newProductRevenue"
	SiloCostMultiplier    MetricKey = "siloCostMultiplier"
)

// OverridableMetrics lists the monetary metrics a user may replace, in
// breakdown order.
var OverridableMetrics = [3]MetricKey{AverageEngineerSalary, ReworkCost, NewProductRevenue}

// Overridable reports whether key is one of the monetary metrics.
func (k MetricKey) Overridable() bool {
	for _, m := range OverridableMetrics {
		if m == k {
			return true
		}
	}
	return false
}

// InfoLocation is where a company keeps its critical product data.
type InfoLocation string

const (
	Corporate  InfoLocation = "corporate"
	PersonalPC InfoLocation = "personal_pc"
)

// Valid reports whether l is a known location.
func (l InfoLocation) Valid() bool {
	return l == Corporate || l == PersonalPC
}

// Label is the display label used in exports.
func (l InfoLocation) Label() string {
	if l == PersonalPC {
		return "Personal PC"
	}
	return "Corporate System"
}

// Counts are the operational figures entered by the user.
type Counts struct {
	Engineers    float64 `json:"engineers"`
	NumSites     float64 `json:"numSites"`
	NumCountries float64 `json:"numCountries"`
	NewProducts  float64 `json:"newProducts"`
	Reworks      float64 `json:"reworks"`
	Delays       float64 `json:"delays"`
}

// Input is a validated calculation request.
type Input struct {
	Industry     string
	Sector       string
	Currency     catalog.CurrencyCode
	Counts       Counts
	InfoLocation InfoLocation
}

// ResolvedMetrics are the constants used by a single calculation, after
// catalog lookup and override application.
type ResolvedMetrics struct {
	Industry string
	Sector   string
	Currency catalog.CurrencyCode

	AverageEngineerSalary float64
	ReworkCost            float64
	NewProductRevenue     float64
	BaseWastedHours       float64
	HoursPerSite          float64
	HoursPerCountry       float64
	SiloCostMultiplier    float64

	// Overrides holds only the overrides that were applied.
	Overrides Overrides
}

// Value returns the effective value of key.
func (m ResolvedMetrics) Value(key MetricKey) float64 {
	switch key {
	case AverageEngineerSalary:
		return m.AverageEngineerSalary
	case ReworkCost:
		return m.ReworkCost
	case NewProductRevenue:
		return m.NewProductRevenue
	case SiloCostMultiplier:
		return m.SiloCostMultiplier
	}
	return 0
}

// IsOverridden reports whether key came from a user override.
func (m ResolvedMetrics) IsOverridden(key MetricKey) bool {
	_, ok := m.Overrides.Value(key)
	return ok
}

// SelectMetrics picks the catalog record for an industry and sector.
//
// Lookup order: the sector record of the industry, then the industry base
// record, then the fallback industry base record. The sentinel "other" and
// unknown industry keys use the fallback industry; empty, "other" and
// unknown sectors use the base record.
func SelectMetrics(cat *catalog.Catalog, industry, sector string) (key, sectorKey string, m catalog.IndustryMetrics, err error) {
	key = industry
	data, ok := cat.Industry(key)
	if key == OtherKey || !ok {
		key = catalog.FallbackIndustry
		data, ok = cat.Industry(key)
		if !ok {
			return "", "", catalog.IndustryMetrics{}, fmt.Errorf("%w: fallback industry missing", catalog.ErrInvalidCatalog)
		}
	}

	if sector != "" && sector != OtherKey {
		if sm, ok := data.Sectors[sector]; ok {
			return key, sector, sm, nil
		}
	}
	return key, "", data.BaseMetrics, nil
}

// Resolve returns the effective metrics for a calculation. Each monetary
// metric is the override when one is set, else the catalog value in the
// requested currency. The operational constants always come from the
// catalog.
func Resolve(cat *catalog.Catalog, industry, sector string, currency catalog.CurrencyCode, overrides Overrides) (ResolvedMetrics, error) {
	if _, ok := cat.Country(currency); !ok {
		return ResolvedMetrics{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, currency)
	}

	key, sectorKey, m, err := SelectMetrics(cat, industry, sector)
	if err != nil {
		return ResolvedMetrics{}, err
	}

	resolved := ResolvedMetrics{
		Industry:           key,
		Sector:             sectorKey,
		Currency:           currency,
		BaseWastedHours:    m.BaseWastedHours,
		HoursPerSite:       m.HoursPerSite,
		HoursPerCountry:    m.HoursPerCountry,
		SiloCostMultiplier: m.SiloCostMultiplier,
		Overrides:          Overrides{},
	}

	monetary := []struct {
		key    MetricKey
		values catalog.LocalizedMetrics
		dst    *float64
	}{
		{AverageEngineerSalary, m.AverageEngineerSalary, &resolved.AverageEngineerSalary},
		{ReworkCost, m.ReworkCost, &resolved.ReworkCost},
		{NewProductRevenue, m.NewProductRevenue, &resolved.NewProductRevenue},
	}
	for _, mm := range monetary {
		if v, ok := overrides.Value(mm.key); ok {
			*mm.dst = v
			resolved.Overrides[mm.key] = v
			continue
		}
		v, ok := mm.values[currency]
		if !ok || v < 0 || math.IsNaN(v) {
			return ResolvedMetrics{}, fmt.Errorf("%w: %s has no %s value for %s", ErrUnknownCurrency, key, mm.key, currency)
		}
		*mm.dst = v
	}

	return resolved, nil
}

// RecordedMetrics rebuilds the metrics behind a stored result. Monetary
// values, the silo multiplier and the override flags come from the result.
// The hour constants are not part of a result and are read from the catalog
// record of the industry.
func RecordedMetrics(cat *catalog.Catalog, industry, sector string, currency catalog.CurrencyCode, r Result) (ResolvedMetrics, error) {
	key, sectorKey, m, err := SelectMetrics(cat, industry, sector)
	if err != nil {
		return ResolvedMetrics{}, err
	}

	recorded := ResolvedMetrics{
		Industry:           key,
		Sector:             sectorKey,
		Currency:           currency,
		BaseWastedHours:    m.BaseWastedHours,
		HoursPerSite:       m.HoursPerSite,
		HoursPerCountry:    m.HoursPerCountry,
		SiloCostMultiplier: m.SiloCostMultiplier,
		Overrides:          Overrides{},
	}
	for _, item := range r.CostBreakdown {
		switch item.MetricKey {
		case AverageEngineerSalary:
			recorded.AverageEngineerSalary = item.MetricValue
		case ReworkCost:
			recorded.ReworkCost = item.MetricValue
		case NewProductRevenue:
			recorded.NewProductRevenue = item.MetricValue
		case SiloCostMultiplier:
			recorded.SiloCostMultiplier = item.MetricValue
		}
		if item.IsMetricOverridden && item.MetricKey.Overridable() {
			recorded.Overrides[item.MetricKey] = item.MetricValue
		}
	}
	return recorded, nil
}
