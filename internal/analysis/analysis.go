package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrUnexpectedShape reports a model response that carries neither a direct
// text field nor a candidate list with text fragments. It never fails a
// request: Client.Analyze falls back to a JSON rendering of the raw response.
var ErrUnexpectedShape = errors.New("unexpected model response shape")

// Reply is a provider-neutral view of one model response.
type Reply struct {
	// Text is the direct text field, nil when the response has none.
	Text *string

	// Candidates holds the text fragments of each candidate, in response
	// order. Only the first candidate is used.
	Candidates [][]string

	// Raw is the response as received, used for the fallback rendering.
	Raw any
}

// Generator submits a prompt to a generative model.
//
// Implementations make exactly one attempt per call and must be safe for
// concurrent use.
type Generator interface {
	// Name identifies the provider, e.g. "gemini".
	Name() string

	// Model returns the model identifier requests are sent to.
	Model() string

	// Generate sends prompt and returns the response. A non-nil error means
	// the call itself failed (network, authentication, quota, server error).
	Generate(ctx context.Context, prompt string) (Reply, error)
}

// Client turns a prompt into analysis text.
type Client struct {
	gen Generator
	log logrus.FieldLogger
}

// NewClient creates a Client backed by gen. A nil logger discards output.
func NewClient(gen Generator, log logrus.FieldLogger) *Client {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	return &Client{gen: gen, log: log}
}

// Generator returns the underlying provider.
func (c *Client) Generator() Generator { return c.gen }

// Analyze submits prompt and extracts the response text.
//
// A failed call is returned as an error. A response of unrecognized shape is
// logged and rendered as JSON instead; that path returns a nil error.
func (c *Client) Analyze(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	reply, err := c.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", c.gen.Name(), err)
	}

	logger := c.log.WithFields(logrus.Fields{
		"provider": c.gen.Name(),
		"model":    c.gen.Model(),
		"duration": time.Since(start).Round(time.Millisecond).String(),
	})

	text, err := ExtractText(reply)
	if errors.Is(err, ErrUnexpectedShape) {
		logger.WithError(err).Warn("Using raw model response as analysis")
		return Fallback(reply.Raw), nil
	}

	logger.WithField("chars", len(text)).Debug("Model analysis received")

	return text, nil
}

// ExtractText pulls the analysis out of a reply. A direct text field wins;
// otherwise the first candidate's fragments are joined in order. Any other
// shape yields ErrUnexpectedShape.
func ExtractText(r Reply) (string, error) {
	if r.Text != nil {
		return *r.Text, nil
	}
	if len(r.Candidates) > 0 && len(r.Candidates[0]) > 0 {
		return strings.Join(r.Candidates[0], ""), nil
	}
	return "", ErrUnexpectedShape
}

// Fallback renders a raw response deterministically. Map keys are sorted by
// encoding/json, so equal responses produce identical text.
func Fallback(raw any) string {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprintf("%v", raw)
	}
	return string(b)
}
