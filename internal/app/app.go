// Package app builds the shared pipeline and its collaborators from a
// validated configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/label-analyzer/internal/analysis"
	"github.com/ironsheep/label-analyzer/internal/config"
	"github.com/ironsheep/label-analyzer/internal/ocr"
	"github.com/ironsheep/label-analyzer/internal/pipeline"
)

// NewLogger returns a text logger on stderr at the given level. An unknown
// level falls back to info.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// NewRecognizer returns the configured OCR engine.
func NewRecognizer(cfg *config.Config) (ocr.Recognizer, error) {
	switch cfg.OCREngine {
	case config.EngineLibrary:
		return ocr.NewTesseract(cfg.OCRLanguage, cfg.TessdataPrefix), nil
	case config.EngineCommand:
		return ocr.NewCommand(cfg.TesseractPath, cfg.OCRLanguage), nil
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", cfg.OCREngine)
	}
}

// NewGenerator returns the configured model provider.
func NewGenerator(cfg *config.Config) (analysis.Generator, error) {
	switch cfg.ModelProvider {
	case config.ProviderGemini:
		return analysis.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel), nil
	case config.ProviderOpenAI:
		return analysis.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.ModelProvider)
	}
}

// Build validates cfg and assembles the pipeline.
//
// The OCR engine is probed once. A failed probe is fatal only when
// TESSERACT_PATH names the command engine's binary; otherwise it is logged
// and the failure resurfaces per request as KindOCRUnavailable.
func Build(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*pipeline.Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	rec, err := NewRecognizer(cfg)
	if err != nil {
		return nil, err
	}
	gen, err := NewGenerator(cfg)
	if err != nil {
		return nil, err
	}

	version, err := rec.Version(ctx)
	switch {
	case err == nil:
		log.WithFields(logrus.Fields{
			"engine":  rec.Name(),
			"version": version,
		}).Info("OCR engine ready")
	case cfg.ExplicitTesseract():
		return nil, fmt.Errorf("probe %s: %w", cfg.TesseractPath, err)
	case errors.Is(err, ocr.ErrUnavailable):
		log.WithError(err).WithField("engine", rec.Name()).Warn("OCR engine unavailable; requests will fail until it is installed")
	default:
		log.WithError(err).WithField("engine", rec.Name()).Warn("OCR engine probe failed")
	}

	log.WithFields(logrus.Fields{
		"provider": gen.Name(),
		"model":    gen.Model(),
	}).Info("Model provider configured")

	return pipeline.New(
		ocr.NewExtractor(rec, log),
		analysis.NewClient(gen, log),
		log,
	), nil
}
