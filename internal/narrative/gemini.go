package narrative

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-pro"

type generateFunc func(ctx context.Context, prompt string) (string, error)

// GeminiWriter writes prose with a Gemini model.
type GeminiWriter struct {
	model    string
	generate generateFunc
	log      zerolog.Logger
}

var _ Writer = (*GeminiWriter)(nil)

// NewGeminiWriter creates a writer backed by the Gemini API.
func NewGeminiWriter(ctx context.Context, apiKey, model string, log zerolog.Logger) (*GeminiWriter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is empty")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.1)),
		ResponseMIMEType: "application/json",
	}

	w := &GeminiWriter{model: model, log: log}
	w.generate = func(ctx context.Context, prompt string) (string, error) {
		result, err := client.Models.GenerateContent(ctx, w.model, genai.Text(prompt), config)
		if err != nil {
			return "", err
		}
		return result.Text(), nil
	}
	return w, nil
}

// Write sends the prompt for req and parses the model's JSON answer.
func (w *GeminiWriter) Write(ctx context.Context, req Request) (Prose, error) {
	raw, err := w.generate(ctx, BuildPrompt(req))
	if err != nil {
		return Prose{}, fmt.Errorf("gemini generate (%s): %w", w.model, err)
	}

	prose, err := parseProse(raw)
	if err != nil {
		w.log.Debug().Str("model", w.model).Int("response_bytes", len(raw)).Msg("unparseable narrative response")
		return Prose{}, err
	}
	return prose, nil
}
