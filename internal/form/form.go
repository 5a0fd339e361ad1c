// Package form models the calculator form: raw field values, the coupling
// rules between fields, and validation into a calculation input.
package form

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Simplici0/plmcost/internal/catalog"
	"github.com/Simplici0/plmcost/internal/costing"
)

// Field names accepted by ApplyFieldChange.
const (
	FieldCompanyName   = "companyName"
	FieldIndustryInput = "industryInput"
	FieldSectorInput   = "sectorInput"
	FieldCountryCode   = "countryCode"
	FieldEngineers     = "engineers"
	FieldNumSites      = "numSites"
	FieldNumCountries  = "numCountries"
	FieldInfoLocation  = "infoLocation"
	FieldNewProducts   = "newProducts"
	FieldReworks       = "reworks"
	FieldDelays        = "delays"
)

// GeneralSector is the sector input meaning "no specific sector".
const GeneralSector = "General"

// State is the raw form as entered. Numeric fields stay strings until
// Validate.
type State struct {
	CompanyName   string               `json:"companyName"`
	Industry      string               `json:"industry"`
	IndustryInput string               `json:"industryInput"`
	OtherIndustry string               `json:"otherIndustry"`
	Sector        string               `json:"sector"`
	SectorInput   string               `json:"sectorInput"`
	OtherSector   string               `json:"otherSector"`
	CountryCode   catalog.CurrencyCode `json:"countryCode"`
	Engineers     string               `json:"engineers"`
	NumSites      string               `json:"numSites"`
	NumCountries  string               `json:"numCountries"`
	InfoLocation  costing.InfoLocation `json:"infoLocation"`
	NewProducts   string               `json:"newProducts"`
	Reworks       string               `json:"reworks"`
	Delays        string               `json:"delays"`
}

// Default returns the initial form.
func Default() State {
	return State{
		CountryCode:  "USD",
		Engineers:    "10",
		NumSites:     "1",
		NumCountries: "1",
		InfoLocation: costing.Corporate,
		NewProducts:  "5",
		Reworks:      "3",
		Delays:       "2",
	}
}

// ApplyFieldChange returns the state after one field edit. Unknown fields
// leave the state unchanged.
func ApplyFieldChange(cat *catalog.Catalog, s State, field, raw string) State {
	switch field {
	case FieldIndustryInput:
		return applyIndustryInput(cat, s, raw)
	case FieldSectorInput:
		return applySectorInput(cat, s, raw)
	case FieldCompanyName:
		s.CompanyName = raw
	case FieldCountryCode:
		s.CountryCode = catalog.CurrencyCode(raw)
	case FieldEngineers:
		s.Engineers = raw
	case FieldNumSites:
		s.NumSites = raw
	case FieldNumCountries:
		s.NumCountries = raw
	case FieldInfoLocation:
		s.InfoLocation = costing.InfoLocation(raw)
	case FieldNewProducts:
		s.NewProducts = raw
	case FieldReworks:
		s.Reworks = raw
	case FieldDelays:
		s.Delays = raw
	}
	return s
}

// applyIndustryInput selects a catalog industry when raw matches a label,
// otherwise keeps raw as a free-text "other" industry. Changing the
// industry clears every sector field.
func applyIndustryInput(cat *catalog.Catalog, s State, raw string) State {
	previous := s.Industry
	s.IndustryInput = raw

	if opt, ok := cat.IndustryByLabel(raw); ok {
		s.Industry = opt.Value
		s.OtherIndustry = ""
	} else {
		s.Industry = costing.OtherKey
		s.OtherIndustry = raw
	}

	if s.Industry != previous {
		s = clearSector(s)
	}
	return s
}

// applySectorInput selects a sector offered for the current industry,
// clears the sector for "General" or empty input, and otherwise keeps raw
// as a free-text "other" sector.
func applySectorInput(cat *catalog.Catalog, s State, raw string) State {
	s.SectorInput = raw

	switch {
	case raw == "" || raw == GeneralSector:
		s.Sector = ""
		s.OtherSector = ""
	case cat.HasSector(s.Industry, raw):
		s.Sector = raw
		s.OtherSector = ""
	default:
		s.Sector = costing.OtherKey
		s.OtherSector = raw
	}
	return s
}

func clearSector(s State) State {
	s.Sector = ""
	s.OtherSector = ""
	s.SectorInput = ""
	return s
}

// ValidationError is a user-facing input problem. No calculation is
// attempted when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks the form and converts it to a calculation input.
func (s State) Validate(cat *catalog.Catalog) (costing.Input, error) {
	if s.Industry == "" || strings.TrimSpace(s.IndustryInput) == "" {
		return costing.Input{}, &ValidationError{Field: FieldIndustryInput, Message: "Please select or specify an industry."}
	}
	if _, ok := cat.Country(s.CountryCode); !ok {
		return costing.Input{}, &ValidationError{Field: FieldCountryCode, Message: "Selected country is not valid."}
	}
	if !s.InfoLocation.Valid() {
		return costing.Input{}, &ValidationError{Field: FieldInfoLocation, Message: "Please select where critical information is stored."}
	}

	var counts costing.Counts
	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{FieldEngineers, s.Engineers, &counts.Engineers},
		{FieldNumSites, s.NumSites, &counts.NumSites},
		{FieldNumCountries, s.NumCountries, &counts.NumCountries},
		{FieldNewProducts, s.NewProducts, &counts.NewProducts},
		{FieldReworks, s.Reworks, &counts.Reworks},
		{FieldDelays, s.Delays, &counts.Delays},
	}
	for _, f := range fields {
		v, err := parseNonNegativeFloat(f.raw, f.name)
		if err != nil {
			return costing.Input{}, err
		}
		*f.dst = v
	}

	return costing.Input{
		Industry:     s.Industry,
		Sector:       s.Sector,
		Currency:     s.CountryCode,
		Counts:       counts,
		InfoLocation: s.InfoLocation,
	}, nil
}

func parseNonNegativeFloat(raw, field string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &ValidationError{Field: field, Message: fmt.Sprintf("%s must be numeric", field)}
	}
	if value < 0 {
		return 0, &ValidationError{Field: field, Message: fmt.Sprintf("%s must be greater than or equal to 0", field)}
	}
	return value, nil
}

// IndustryDisplay is the industry name shown to users: the free text for
// "other", else the option label, else the raw key.
func IndustryDisplay(cat *catalog.Catalog, s State) string {
	if s.Industry == costing.OtherKey && s.OtherIndustry != "" {
		return s.OtherIndustry
	}
	return cat.IndustryLabel(s.Industry)
}

// SectorDisplay is the sector name shown to users, "General" when none.
func SectorDisplay(s State) string {
	switch {
	case s.Sector == costing.OtherKey && s.OtherSector != "":
		return s.OtherSector
	case s.Sector == "":
		return GeneralSector
	}
	return s.Sector
}
