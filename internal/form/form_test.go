package form

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/plmcost/internal/catalog"
	"github.com/Simplici0/plmcost/internal/costing"
)

func TestApplyFieldChange_IndustryLabelSelectsKey(t *testing.T) {
	cat := catalog.MustLoad()

	s := ApplyFieldChange(cat, Default(), FieldIndustryInput, "Automotive")

	assert.Equal(t, "automotive", s.Industry)
	assert.Equal(t, "Automotive", s.IndustryInput)
	assert.Empty(t, s.OtherIndustry)
}

func TestApplyFieldChange_FreeTextIndustryBecomesOther(t *testing.T) {
	cat := catalog.MustLoad()

	s := ApplyFieldChange(cat, Default(), FieldIndustryInput, "Shipbuilding")

	assert.Equal(t, "other", s.Industry)
	assert.Equal(t, "Shipbuilding", s.OtherIndustry)
	assert.Equal(t, "Shipbuilding", IndustryDisplay(cat, s))
}

func TestApplyFieldChange_IndustryChangeClearsSector(t *testing.T) {
	cat := catalog.MustLoad()

	s := ApplyFieldChange(cat, Default(), FieldIndustryInput, "Automotive")
	s = ApplyFieldChange(cat, s, FieldSectorInput, "Engines")
	require.Equal(t, "Engines", s.Sector)

	same := ApplyFieldChange(cat, s, FieldIndustryInput, "Automotive")
	assert.Equal(t, "Engines", same.Sector, "re-selecting the same industry keeps the sector")

	changed := ApplyFieldChange(cat, s, FieldIndustryInput, "Semiconductors")
	assert.Equal(t, "semiconductors", changed.Industry)
	assert.Empty(t, changed.Sector)
	assert.Empty(t, changed.OtherSector)
	assert.Empty(t, changed.SectorInput)
}

func TestApplyFieldChange_SectorRules(t *testing.T) {
	cat := catalog.MustLoad()
	base := ApplyFieldChange(cat, Default(), FieldIndustryInput, "Automotive")

	tests := []struct {
		name        string
		input       string
		wantSector  string
		wantOther   string
		wantDisplay string
	}{
		{"known label", "Chassis", "Chassis", "", "Chassis"},
		{"general", "General", "", "", "General"},
		{"empty", "", "", "", "General"},
		{"free text", "Hydrogen Cells", "other", "Hydrogen Cells", "Hydrogen Cells"},
		{"label of another industry", "Wings", "other", "Wings", "Wings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ApplyFieldChange(cat, base, FieldSectorInput, tt.input)
			assert.Equal(t, tt.wantSector, s.Sector)
			assert.Equal(t, tt.wantOther, s.OtherSector)
			assert.Equal(t, tt.input, s.SectorInput)
			assert.Equal(t, tt.wantDisplay, SectorDisplay(s))
		})
	}
}

func TestApplyFieldChange_PlainFieldsAndUnknown(t *testing.T) {
	cat := catalog.MustLoad()
	s := Default()

	s = ApplyFieldChange(cat, s, FieldCompanyName, "Acme, Inc.")
	s = ApplyFieldChange(cat, s, FieldCountryCode, "BRL")
	s = ApplyFieldChange(cat, s, FieldInfoLocation, "personal_pc")
	s = ApplyFieldChange(cat, s, FieldDelays, "4")
	unchanged := ApplyFieldChange(cat, s, "bogus", "x")

	assert.Equal(t, "Acme, Inc.", s.CompanyName)
	assert.Equal(t, catalog.CurrencyCode("BRL"), s.CountryCode)
	assert.Equal(t, costing.PersonalPC, s.InfoLocation)
	assert.Equal(t, "4", s.Delays)
	assert.Equal(t, s, unchanged)
}

func TestValidate_RequiresIndustry(t *testing.T) {
	cat := catalog.MustLoad()

	_, err := Default().Validate(cat)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, FieldIndustryInput, verr.Field)
	assert.Equal(t, "Please select or specify an industry.", verr.Error())
}

func TestValidate_ProducesInput(t *testing.T) {
	cat := catalog.MustLoad()
	s := ApplyFieldChange(cat, Default(), FieldIndustryInput, "Automotive")
	s = ApplyFieldChange(cat, s, FieldSectorInput, "Engines")
	s = ApplyFieldChange(cat, s, FieldNumSites, " 3 ")

	in, err := s.Validate(cat)
	require.NoError(t, err)

	assert.Equal(t, "automotive", in.Industry)
	assert.Equal(t, "Engines", in.Sector)
	assert.Equal(t, catalog.CurrencyCode("USD"), in.Currency)
	assert.Equal(t, costing.Corporate, in.InfoLocation)
	assert.Equal(t, costing.Counts{Engineers: 10, NumSites: 3, NumCountries: 1, NewProducts: 5, Reworks: 3, Delays: 2}, in.Counts)
}

func TestValidate_RejectsBadNumbers(t *testing.T) {
	cat := catalog.MustLoad()
	valid := ApplyFieldChange(cat, Default(), FieldIndustryInput, "Automotive")

	for _, tt := range []struct {
		field string
		raw   string
	}{
		{FieldEngineers, "ten"},
		{FieldNumSites, "-1"},
		{FieldDelays, ""},
		{FieldReworks, "NaN"},
		{FieldNewProducts, "Inf"},
	} {
		s := ApplyFieldChange(cat, valid, tt.field, tt.raw)
		_, err := s.Validate(cat)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "%s=%q", tt.field, tt.raw)
		assert.Equal(t, tt.field, verr.Field)
	}
}

func TestValidate_RejectsUnknownCountryAndLocation(t *testing.T) {
	cat := catalog.MustLoad()
	valid := ApplyFieldChange(cat, Default(), FieldIndustryInput, "Automotive")

	_, err := ApplyFieldChange(cat, valid, FieldCountryCode, "JPY").Validate(cat)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, FieldCountryCode, verr.Field)

	_, err = ApplyFieldChange(cat, valid, FieldInfoLocation, "cloud").Validate(cat)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, FieldInfoLocation, verr.Field)
}

func TestValidate_ZeroCountsAreValid(t *testing.T) {
	cat := catalog.MustLoad()
	s := ApplyFieldChange(cat, Default(), FieldIndustryInput, "Automotive")
	for _, f := range []string{FieldEngineers, FieldNumSites, FieldNumCountries, FieldNewProducts, FieldReworks, FieldDelays} {
		s = ApplyFieldChange(cat, s, f, "0")
	}

	in, err := s.Validate(cat)
	require.NoError(t, err)
	assert.Equal(t, costing.Counts{}, in.Counts)
}
