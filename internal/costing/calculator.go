package costing

import "math"

// WeeksPerYear converts annual monetary figures to weekly rates.
const WeeksPerYear = 52.0

// Calculation contains the raw and rounded cost components.
type Calculation struct {
	WastedHours float64

	RawCollaboration float64
	RawRework        float64
	RawDelay         float64
	RawSilo          float64

	Collaboration int64
	Rework        int64
	Delay         int64
	Silo          int64

	// Total is the sum of the rounded components.
	Total int64
}

// WastedHours is the weekly per-engineer time lost to communication and
// data searching. Only sites and countries beyond the first add hours.
func WastedHours(m ResolvedMetrics, numSites, numCountries float64) float64 {
	return m.BaseWastedHours +
		math.Max(0, numSites-1)*m.HoursPerSite +
		math.Max(0, numCountries-1)*m.HoursPerCountry
}

// Calculate computes the four cost components and their total.
func Calculate(m ResolvedMetrics, c Counts, loc InfoLocation) Calculation {
	wastedHours := WastedHours(m, c.NumSites, c.NumCountries)

	collaboration := (m.AverageEngineerSalary / WeeksPerYear) * wastedHours * c.Engineers
	rework := c.NewProducts * c.Reworks * m.ReworkCost
	delay := (m.NewProductRevenue / WeeksPerYear) * c.Delays * c.NewProducts

	silo := 0.0
	if loc == PersonalPC {
		silo = (rework + delay) * m.SiloCostMultiplier
	}

	calc := Calculation{
		WastedHours:      wastedHours,
		RawCollaboration: collaboration,
		RawRework:        rework,
		RawDelay:         delay,
		RawSilo:          silo,
		Collaboration:    roundCost(collaboration),
		Rework:           roundCost(rework),
		Delay:            roundCost(delay),
		Silo:             roundCost(silo),
	}
	calc.Total = calc.Collaboration + calc.Rework + calc.Delay + calc.Silo
	return calc
}

// roundCost rounds half away from zero to whole currency units.
func roundCost(v float64) int64 {
	return int64(math.Round(v))
}
