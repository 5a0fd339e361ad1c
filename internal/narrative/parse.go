package narrative

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"

	"github.com/Simplici0/plmcost/internal/costing"
)

type wireExplanation struct {
	Explanation string `json:"explanation"`
}

type wireProse struct {
	Summary              string            `json:"summary"`
	Explanations         []wireExplanation `json:"explanations"`
	MethodologyNotes     string            `json:"methodologyNotes"`
	ChartInterpretations map[string]string `json:"chartInterpretations"`
}

// parseProse decodes model output, trying strict JSON, then a repaired
// version, then Hjson. The decoded value must have a summary, exactly four
// explanations and all three chart interpretations.
func parseProse(raw string) (Prose, error) {
	text := stripFence(raw)

	var w wireProse
	if err := decodeLenient(text, &w); err != nil {
		return Prose{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if strings.TrimSpace(w.Summary) == "" {
		return Prose{}, fmt.Errorf("%w: missing summary", ErrInvalidResponse)
	}
	if len(w.Explanations) != 4 {
		return Prose{}, fmt.Errorf("%w: expected 4 explanations, got %d", ErrInvalidResponse, len(w.Explanations))
	}
	for _, key := range []string{"bar", "pie", "radar"} {
		if _, ok := w.ChartInterpretations[key]; !ok {
			return Prose{}, fmt.Errorf("%w: missing chart interpretation %q", ErrInvalidResponse, key)
		}
	}

	p := Prose{
		Summary:          w.Summary,
		MethodologyNotes: w.MethodologyNotes,
		ChartInterpretations: costing.ChartInterpretations{
			Bar:   w.ChartInterpretations["bar"],
			Pie:   w.ChartInterpretations["pie"],
			Radar: w.ChartInterpretations["radar"],
		},
	}
	for i, e := range w.Explanations {
		p.Explanations[i] = e.Explanation
		if strings.TrimSpace(e.Explanation) == "" {
			p.Explanations[i] = notAvailable
		}
	}
	return p, nil
}

func decodeLenient(text string, dst *wireProse) error {
	if err := json.Unmarshal([]byte(text), dst); err == nil {
		return nil
	}

	if repaired, err := jsonrepair.RepairJSON(text); err == nil {
		*dst = wireProse{}
		if err := json.Unmarshal([]byte(repaired), dst); err == nil {
			return nil
		}
	}

	var loose interface{}
	if err := hjson.Unmarshal([]byte(text), &loose); err != nil {
		return fmt.Errorf("all parse strategies failed: %w", err)
	}
	normalized, err := json.Marshal(loose)
	if err != nil {
		return fmt.Errorf("normalize hjson: %w", err)
	}
	*dst = wireProse{}
	if err := json.Unmarshal(normalized, dst); err != nil {
		return fmt.Errorf("all parse strategies failed: %w", err)
	}
	return nil
}

// stripFence removes a surrounding Markdown code fence, if any.
func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
