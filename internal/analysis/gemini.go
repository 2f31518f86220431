package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no Gemini model is configured.
const DefaultGeminiModel = "gemini-2.5-pro"

// Gemini generates analyses with Google's Gemini models.
type Gemini struct {
	APIKey    string
	ModelName string
	opts      []option.ClientOption
}

// NewGemini creates a Gemini provider. Extra client options are appended
// after the API key, e.g. option.WithEndpoint in tests.
func NewGemini(apiKey, model string, opts ...option.ClientOption) *Gemini {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{
		APIKey:    strings.TrimSpace(apiKey),
		ModelName: model,
		opts:      opts,
	}
}

// Name implements Generator.
func (g *Gemini) Name() string { return "gemini" }

// Model implements Generator.
func (g *Gemini) Model() string { return g.ModelName }

// Generate implements Generator. A client is opened per call and closed
// before returning.
func (g *Gemini) Generate(ctx context.Context, prompt string) (Reply, error) {
	if g.APIKey == "" {
		return Reply{}, errors.New("GEMINI_API_KEY is empty")
	}

	opts := append([]option.ClientOption{option.WithAPIKey(g.APIKey)}, g.opts...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return Reply{}, fmt.Errorf("gemini client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.ModelName)
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Reply{}, err
	}
	return geminiReply(resp), nil
}

// geminiReply maps a Gemini response onto the candidate shape. Gemini has no
// direct text field, so Text is always nil.
func geminiReply(resp *genai.GenerateContentResponse) Reply {
	r := Reply{Raw: resp}
	if resp == nil {
		return r
	}
	for _, c := range resp.Candidates {
		var frags []string
		if c != nil && c.Content != nil {
			for _, p := range c.Content.Parts {
				if t, ok := p.(genai.Text); ok {
					frags = append(frags, string(t))
				}
			}
		}
		r.Candidates = append(r.Candidates, frags)
	}
	return r
}
