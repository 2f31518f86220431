package ocr

import (
	"context"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/label-analyzer/internal/imaging"
)

// Extractor runs two polarity passes over a normalized bitmap.
//
// Pass one reads the bitmap as given (dark text on a light background); pass
// two reads its tonal inverse (light text on a dark background, common on
// coloured packaging). The passes run sequentially in that order and their
// text is concatenated without deduplication.
type Extractor struct {
	rec Recognizer
	log logrus.FieldLogger
}

// NewExtractor creates an Extractor backed by rec. A nil logger discards output.
func NewExtractor(rec Recognizer, log logrus.FieldLogger) *Extractor {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	return &Extractor{rec: rec, log: log}
}

// Recognizer returns the engine the extractor drives.
func (e *Extractor) Recognizer() Recognizer { return e.rec }

// Extract returns the normal-polarity text, a newline and the
// inverted-polarity text, trimmed of surrounding whitespace.
//
// The result is never absent: when neither pass finds text it is the empty
// string with a nil error, and a warning is logged. Any engine failure aborts
// the extraction and is returned wrapped.
func (e *Extractor) Extract(ctx context.Context, bitmap image.Image) (string, error) {
	start := time.Now()

	normal, err := e.rec.Recognize(ctx, bitmap)
	if err != nil {
		return "", fmt.Errorf("normal polarity pass: %w", err)
	}

	inverted, err := e.rec.Recognize(ctx, imaging.Invert(bitmap))
	if err != nil {
		return "", fmt.Errorf("inverted polarity pass: %w", err)
	}

	text := strings.TrimSpace(normal + "\n" + inverted)

	logger := e.log.WithFields(logrus.Fields{
		"engine":         e.rec.Name(),
		"normal_chars":   len(normal),
		"inverted_chars": len(inverted),
		"duration":       time.Since(start).Round(time.Millisecond).String(),
	})
	if text == "" {
		logger.Warn("OCR returned no text")
	} else {
		logger.Debug("OCR passes complete")
	}

	return text, nil
}
