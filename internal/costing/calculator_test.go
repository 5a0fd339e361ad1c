package costing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/plmcost/internal/catalog"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func baseCounts() Counts {
	return Counts{Engineers: 10, NumSites: 1, NumCountries: 1, NewProducts: 5, Reworks: 3, Delays: 2}
}

func generalUSD(t *testing.T, overrides Overrides) ResolvedMetrics {
	t.Helper()
	m, err := Resolve(catalog.MustLoad(), catalog.FallbackIndustry, "", "USD", overrides)
	require.NoError(t, err)
	return m
}

func TestCalculate_BaseScenario(t *testing.T) {
	calc := Calculate(generalUSD(t, nil), baseCounts(), Corporate)

	nearlyEqual(t, "wastedHours", calc.WastedHours, 2.0)
	assert.Equal(t, int64(26923), calc.Collaboration)
	assert.Equal(t, int64(75000), calc.Rework)
	assert.Equal(t, int64(384615), calc.Delay)
	assert.Equal(t, int64(0), calc.Silo)
	assert.Equal(t, int64(486538), calc.Total)
}

func TestCalculate_PersonalPCAddsSiloRisk(t *testing.T) {
	calc := Calculate(generalUSD(t, nil), baseCounts(), PersonalPC)

	assert.Equal(t, int64(91923), calc.Silo)
	assert.Equal(t, int64(578461), calc.Total)
	assert.Equal(t, int64(26923), calc.Collaboration)
}

func TestCalculate_ExtraSitesAndCountries(t *testing.T) {
	counts := baseCounts()
	counts.NumSites = 3
	counts.NumCountries = 2

	calc := Calculate(generalUSD(t, nil), counts, Corporate)

	nearlyEqual(t, "wastedHours", calc.WastedHours, 4.0)
	assert.Equal(t, int64(53846), calc.Collaboration)
	assert.Equal(t, int64(75000), calc.Rework)
	assert.Equal(t, int64(384615), calc.Delay)
	assert.Equal(t, int64(0), calc.Silo)
}

func TestCalculate_SalaryOverrideOnlyChangesCollaboration(t *testing.T) {
	base := Calculate(generalUSD(t, nil), baseCounts(), Corporate)
	overridden := Calculate(generalUSD(t, Overrides{AverageEngineerSalary: 100000}), baseCounts(), Corporate)

	assert.Equal(t, int64(38462), overridden.Collaboration)
	assert.Equal(t, base.Rework, overridden.Rework)
	assert.Equal(t, base.Delay, overridden.Delay)
	assert.Equal(t, base.Silo, overridden.Silo)
}

func TestCalculate_ZeroCountsContributeNothing(t *testing.T) {
	calc := Calculate(generalUSD(t, nil), Counts{}, PersonalPC)

	assert.Equal(t, int64(0), calc.Collaboration)
	assert.Equal(t, int64(0), calc.Rework)
	assert.Equal(t, int64(0), calc.Delay)
	assert.Equal(t, int64(0), calc.Silo)
	assert.Equal(t, int64(0), calc.Total)
	nearlyEqual(t, "wastedHours", calc.WastedHours, 2.0)
}

func TestCalculate_TotalIsSumOfRoundedComponents(t *testing.T) {
	m := generalUSD(t, Overrides{AverageEngineerSalary: 70001.3, ReworkCost: 4999.5, NewProductRevenue: 1234567.89})

	for _, counts := range []Counts{
		{Engineers: 7, NumSites: 2, NumCountries: 3, NewProducts: 3, Reworks: 1.5, Delays: 0.5},
		{Engineers: 13, NumSites: 5, NumCountries: 1, NewProducts: 11, Reworks: 2, Delays: 7},
		{Engineers: 1, NumSites: 0, NumCountries: 0, NewProducts: 1, Reworks: 1, Delays: 1},
	} {
		for _, loc := range []InfoLocation{Corporate, PersonalPC} {
			calc := Calculate(m, counts, loc)
			assert.Equal(t, calc.Collaboration+calc.Rework+calc.Delay+calc.Silo, calc.Total)
			assert.Equal(t, int64(math.Round(calc.RawCollaboration)), calc.Collaboration)
			assert.Equal(t, int64(math.Round(calc.RawSilo)), calc.Silo)
		}
	}
}

func TestCalculate_CorporateSiloIsAlwaysZero(t *testing.T) {
	m := generalUSD(t, Overrides{ReworkCost: 1e9, NewProductRevenue: 1e12})

	calc := Calculate(m, Counts{Engineers: 500, NumSites: 40, NumCountries: 12, NewProducts: 90, Reworks: 8, Delays: 30}, Corporate)

	assert.Equal(t, int64(0), calc.Silo)
	assert.Zero(t, calc.RawSilo)
}

func TestWastedHours_MonotonicAndFlatAtOrBelowOne(t *testing.T) {
	m := generalUSD(t, nil)

	for _, n := range []float64{-3, 0, 0.5, 1} {
		nearlyEqual(t, "sites<=1", WastedHours(m, n, 1), m.BaseWastedHours)
		nearlyEqual(t, "countries<=1", WastedHours(m, 1, n), m.BaseWastedHours)
	}

	prev := WastedHours(m, 0, 0)
	for sites := 0.0; sites <= 10; sites++ {
		for countries := 0.0; countries <= 10; countries++ {
			h := WastedHours(m, sites, countries)
			assert.GreaterOrEqual(t, h, WastedHours(m, math.Max(0, sites-1), countries))
			assert.GreaterOrEqual(t, h, WastedHours(m, sites, math.Max(0, countries-1)))
		}
		h := WastedHours(m, sites, 0)
		assert.GreaterOrEqual(t, h, prev)
		prev = h
	}
}
