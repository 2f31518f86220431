package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultOpenAIModel is used when no OpenAI model is configured.
	DefaultOpenAIModel = "gpt-4o-mini"

	// DefaultOpenAIBaseURL is the public OpenAI API root.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// OpenAI generates analyses through the OpenAI Responses API.
type OpenAI struct {
	APIKey    string
	ModelName string
	BaseURL   string
	httpc     *http.Client
}

// NewOpenAI creates an OpenAI provider. An empty baseURL selects the public
// API.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}

	return &OpenAI{
		APIKey:    strings.TrimSpace(apiKey),
		ModelName: model,
		BaseURL:   baseURL,
		// No client timeout: the request context bounds the call.
		httpc: &http.Client{Transport: tr},
	}
}

// WithHTTPClient overrides the internal HTTP client.
func (o *OpenAI) WithHTTPClient(c *http.Client) *OpenAI {
	if c != nil {
		o.httpc = c
	}
	return o
}

// Name implements Generator.
func (o *OpenAI) Name() string { return "openai" }

// Model implements Generator.
func (o *OpenAI) Model() string { return o.ModelName }

// Generate implements Generator.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (Reply, error) {
	if o.APIKey == "" {
		return Reply{}, errors.New("OPENAI_API_KEY is empty")
	}

	body := map[string]any{
		"model": o.ModelName,
		"input": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "input_text", "text": prompt},
				},
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Reply{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return Reply{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.httpc.Do(req)
	if err != nil {
		return Reply{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Reply{}, fmt.Errorf("openai %d: %s", resp.StatusCode, truncateBytes(bytes.TrimSpace(raw), 512))
	}

	return responsesReply(raw)
}

// responsesReply maps a Responses API envelope onto Reply. output_text is the
// direct shape; output[].content[] entries of type output_text or text form
// one candidate per output item.
func responsesReply(raw []byte) (Reply, error) {
	type content struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	type output struct {
		Type    string    `json:"type"`
		Content []content `json:"content"`
	}
	var env struct {
		Output     []output `json:"output"`
		OutputText *string  `json:"output_text"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return Reply{}, fmt.Errorf("decode response: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Reply{}, fmt.Errorf("decode response: %w", err)
	}

	r := Reply{Raw: generic}
	if env.OutputText != nil && strings.TrimSpace(*env.OutputText) != "" {
		r.Text = env.OutputText
		return r, nil
	}

	for _, o := range env.Output {
		var frags []string
		for _, c := range o.Content {
			if c.Type == "output_text" || c.Type == "text" {
				frags = append(frags, c.Text)
			}
		}
		if len(frags) > 0 {
			r.Candidates = append(r.Candidates, frags)
		}
	}
	return r, nil
}

func truncateBytes(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
