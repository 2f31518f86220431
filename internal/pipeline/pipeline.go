// Package pipeline composes normalization, dual-polarity OCR, prompt
// composition and model analysis into one linear flow shared by the HTTP
// server and the batch command.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/label-analyzer/internal/analysis"
	"github.com/ironsheep/label-analyzer/internal/imaging"
	"github.com/ironsheep/label-analyzer/internal/ocr"
	"github.com/ironsheep/label-analyzer/internal/prompt"
)

// Result is the outcome of processing one image.
type Result struct {
	Text     string `json:"ocr_text"`
	Analysis string `json:"analysis"`
}

// Pipeline holds the read-only collaborators used for every request.
type Pipeline struct {
	extractor *ocr.Extractor
	client    *analysis.Client
	log       logrus.FieldLogger
}

// New creates a Pipeline. A nil logger discards output.
func New(extractor *ocr.Extractor, client *analysis.Client, log logrus.FieldLogger) *Pipeline {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	return &Pipeline{extractor: extractor, client: client, log: log}
}

// Extractor returns the OCR stage.
func (p *Pipeline) Extractor() *ocr.Extractor { return p.extractor }

// Client returns the analysis stage.
func (p *Pipeline) Client() *analysis.Client { return p.client }

// ExtractFile decodes and normalizes the image at path and returns its text.
func (p *Pipeline) ExtractFile(ctx context.Context, path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		if errors.Is(err, imaging.ErrDecode) {
			return "", E(KindDecode, "decode", err)
		}
		return "", E(KindFatal, "open", err)
	}
	return p.ExtractImage(ctx, img)
}

// ExtractImage normalizes a decoded image and returns its text.
func (p *Pipeline) ExtractImage(ctx context.Context, img image.Image) (string, error) {
	bitmap := imaging.Normalize(img)

	text, err := p.extractor.Extract(ctx, bitmap)
	if err != nil {
		if errors.Is(err, ocr.ErrUnavailable) {
			return "", E(KindOCRUnavailable, "ocr", err)
		}
		return "", E(KindFatal, "ocr", err)
	}
	return text, nil
}

// Analyze composes the prompt for text and submits it to the model.
func (p *Pipeline) Analyze(ctx context.Context, text string) (string, error) {
	out, err := p.client.Analyze(ctx, prompt.Compose(text))
	if err != nil {
		return "", E(KindModel, "analyze", err)
	}
	return out, nil
}

// ProcessFile runs every stage on the image at path.
//
// Any failure is returned as an *Error; a panic in a stage is recovered and
// reported as KindFatal.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("panic", r).Error("Pipeline panicked")
			res, err = Result{}, E(KindFatal, "process", fmt.Errorf("panic: %v", r))
		}
	}()

	start := time.Now()

	text, err := p.ExtractFile(ctx, path)
	if err != nil {
		return Result{}, err
	}

	out, err := p.Analyze(ctx, text)
	if err != nil {
		return Result{}, err
	}

	p.log.WithFields(logrus.Fields{
		"path":           path,
		"text_chars":     len(text),
		"analysis_chars": len(out),
		"duration":       time.Since(start).Round(time.Millisecond).String(),
	}).Debug("Image processed")

	return Result{Text: text, Analysis: out}, nil
}
