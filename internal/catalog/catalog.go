// Package catalog holds the static industry benchmark metrics and the
// supported country/currency table. The data is embedded, parsed once at
// start-up, completed and validated; after Load returns the catalog is
// read-only.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"
)

// FallbackIndustry is the industry whose metrics back every industry option
// without a dedicated record, and any key absent from the catalog.
const FallbackIndustry = "general-discrete-manufacturing"

// ErrInvalidCatalog reports a broken static table. It indicates a packaging
// defect, not bad user input.
var ErrInvalidCatalog = errors.New("invalid metric catalog")

//go:embed catalog.yaml
var embeddedData []byte

// CurrencyCode is an ISO 4217 code such as USD or COP.
type CurrencyCode string

// Country maps a currency code to display attributes and a USD rate.
type Country struct {
	Name           string       `yaml:"name" json:"name"`
	Code           CurrencyCode `yaml:"code" json:"code"`
	CurrencySymbol string       `yaml:"currencySymbol" json:"currencySymbol"`
	// USDRate is local currency units per 1 USD.
	USDRate float64 `yaml:"usdRate" json:"usdRate"`
	Locale  string  `yaml:"locale" json:"locale"`
}

// LocalizedMetrics holds one monetary value per currency code.
type LocalizedMetrics map[CurrencyCode]float64

// IndustryMetrics is one benchmark record.
type IndustryMetrics struct {
	AverageEngineerSalary LocalizedMetrics `yaml:"averageEngineerSalary"`
	ReworkCost            LocalizedMetrics `yaml:"reworkCost"`
	NewProductRevenue     LocalizedMetrics `yaml:"newProductRevenue"`
	BaseWastedHours       float64          `yaml:"baseWastedHours"`
	HoursPerSite          float64          `yaml:"hoursPerSite"`
	HoursPerCountry       float64          `yaml:"hoursPerCountry"`
	SiloCostMultiplier    float64          `yaml:"siloCostMultiplier"`
}

// IndustryData is the base record of an industry plus optional sector
// records. A sector record replaces the base record entirely.
type IndustryData struct {
	BaseMetrics IndustryMetrics            `yaml:"baseMetrics"`
	Sectors     map[string]IndustryMetrics `yaml:"sectors"`
}

// IndustryOption is a selectable industry.
type IndustryOption struct {
	Value   string   `yaml:"value"`
	Label   string   `yaml:"label"`
	Sectors []string `yaml:"sectors"`
}

type document struct {
	Countries  []Country               `yaml:"countries"`
	Industries []IndustryOption        `yaml:"industries"`
	Metrics    map[string]IndustryData `yaml:"metrics"`
}

// Catalog is the read-only metric catalog and country table.
type Catalog struct {
	countries  []Country
	options    []IndustryOption
	industries map[string]IndustryData
	currencies []CurrencyCode
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(embeddedData)
}

// MustLoad is Load for process start-up, where a broken table is fatal.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes a catalog document, completes industries that have no
// metrics record with the fallback record and validates the result.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidCatalog, err)
	}

	c := &Catalog{
		countries:  doc.Countries,
		options:    doc.Industries,
		industries: doc.Metrics,
	}
	if c.industries == nil {
		c.industries = make(map[string]IndustryData)
	}

	seen := make(map[CurrencyCode]bool)
	for _, country := range c.countries {
		if country.Code == "" {
			return nil, fmt.Errorf("%w: country %q has no currency code", ErrInvalidCatalog, country.Name)
		}
		if country.USDRate <= 0 {
			return nil, fmt.Errorf("%w: country %q has usd rate %v", ErrInvalidCatalog, country.Name, country.USDRate)
		}
		if !seen[country.Code] {
			seen[country.Code] = true
			c.currencies = append(c.currencies, country.Code)
		}
	}
	if len(c.currencies) == 0 {
		return nil, fmt.Errorf("%w: no countries", ErrInvalidCatalog)
	}

	fallback, ok := c.industries[FallbackIndustry]
	if !ok {
		return nil, fmt.Errorf("%w: fallback industry %q missing", ErrInvalidCatalog, FallbackIndustry)
	}
	for _, opt := range c.options {
		if _, ok := c.industries[opt.Value]; !ok {
			c.industries[opt.Value] = fallback
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	keys := make([]string, 0, len(c.industries))
	for k := range c.industries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		data := c.industries[key]
		if err := c.validateMetrics(key, data.BaseMetrics); err != nil {
			return err
		}
		for sector, m := range data.Sectors {
			if err := c.validateMetrics(key+"/"+sector, m); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Catalog) validateMetrics(name string, m IndustryMetrics) error {
	monetary := []struct {
		field  string
		values LocalizedMetrics
	}{
		{"averageEngineerSalary", m.AverageEngineerSalary},
		{"reworkCost", m.ReworkCost},
		{"newProductRevenue", m.NewProductRevenue},
	}
	for _, mm := range monetary {
		for _, code := range c.currencies {
			v, ok := mm.values[code]
			if !ok {
				return fmt.Errorf("%w: %s.%s has no %s value", ErrInvalidCatalog, name, mm.field, code)
			}
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s.%s[%s] = %v", ErrInvalidCatalog, name, mm.field, code, v)
			}
		}
	}
	for field, v := range map[string]float64{
		"baseWastedHours":    m.BaseWastedHours,
		"hoursPerSite":       m.HoursPerSite,
		"hoursPerCountry":    m.HoursPerCountry,
		"siloCostMultiplier": m.SiloCostMultiplier,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s.%s = %v", ErrInvalidCatalog, name, field, v)
		}
	}
	return nil
}

// Countries returns the country table in display order.
func (c *Catalog) Countries() []Country {
	out := make([]Country, len(c.countries))
	copy(out, c.countries)
	return out
}

// Country returns the first country using code.
func (c *Catalog) Country(code CurrencyCode) (Country, bool) {
	for _, country := range c.countries {
		if country.Code == code {
			return country, true
		}
	}
	return Country{}, false
}

// Industry returns the metrics of an industry key without any fallback.
func (c *Catalog) Industry(key string) (IndustryData, bool) {
	data, ok := c.industries[key]
	return data, ok
}

// IndustryOptions returns the selectable industries in display order.
func (c *Catalog) IndustryOptions() []IndustryOption {
	out := make([]IndustryOption, len(c.options))
	copy(out, c.options)
	return out
}

// IndustryByLabel finds the option whose label equals label exactly.
func (c *Catalog) IndustryByLabel(label string) (IndustryOption, bool) {
	for _, opt := range c.options {
		if opt.Label == label {
			return opt, true
		}
	}
	return IndustryOption{}, false
}

// IndustryLabel returns the display label of key, or key itself.
func (c *Catalog) IndustryLabel(key string) string {
	for _, opt := range c.options {
		if opt.Value == key {
			return opt.Label
		}
	}
	return key
}

// Sectors returns the sector labels offered for an industry.
func (c *Catalog) Sectors(industry string) []string {
	for _, opt := range c.options {
		if opt.Value == industry {
			out := make([]string, len(opt.Sectors))
			copy(out, opt.Sectors)
			return out
		}
	}
	return nil
}

// HasSector reports whether sector is one of the labels offered for industry.
func (c *Catalog) HasSector(industry, sector string) bool {
	for _, s := range c.Sectors(industry) {
		if s == sector {
			return true
		}
	}
	return false
}
