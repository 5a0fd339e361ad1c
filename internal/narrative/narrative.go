// Package narrative asks a language model for the qualitative text of an
// analysis. The model receives the finished result and returns prose only.
package narrative

import (
	"context"
	"errors"

	"github.com/Simplici0/plmcost/internal/catalog"
	"github.com/Simplici0/plmcost/internal/costing"
	"github.com/Simplici0/plmcost/internal/form"
)

var (
	// ErrInvalidResponse means the model output could not be parsed or did
	// not have the expected shape. The whole response is discarded.
	ErrInvalidResponse = errors.New("narrative: invalid model response")
	// ErrUnavailable is returned by writers that have no model configured.
	ErrUnavailable = errors.New("narrative: writer not configured")
)

// notAvailable replaces an empty explanation.
const notAvailable = "Analysis not available."

// Request carries everything the writer may mention.
type Request struct {
	Form         form.State
	Country      catalog.Country
	IndustryName string
	SectorName   string
	Result       costing.Result
}

// NewRequest builds a request with display names resolved from the form.
func NewRequest(cat *catalog.Catalog, s form.State, country catalog.Country, result costing.Result) Request {
	req := Request{
		Form:         s,
		Country:      country,
		IndustryName: form.IndustryDisplay(cat, s),
		Result:       result,
	}
	if s.Sector != "" {
		req.SectorName = form.SectorDisplay(s)
	}
	return req
}

// Prose is the text a writer produces for one result.
type Prose struct {
	Summary              string
	Explanations         [4]string
	MethodologyNotes     string
	ChartInterpretations costing.ChartInterpretations
}

// Writer produces prose for a calculated result.
type Writer interface {
	Write(ctx context.Context, req Request) (Prose, error)
}

// Disabled is a Writer used when no model is configured.
type Disabled struct{}

func (Disabled) Write(context.Context, Request) (Prose, error) {
	return Prose{}, ErrUnavailable
}

// Decorate copies prose into a result. Costs, formulas, metric metadata and
// calculation narratives are left untouched.
func Decorate(r costing.Result, p Prose) costing.Result {
	r.Summary = p.Summary
	r.MethodologyNotes = p.MethodologyNotes
	r.ChartInterpretations = p.ChartInterpretations
	for i := range r.CostBreakdown {
		r.CostBreakdown[i].Explanation = p.Explanations[i]
	}
	return r
}
