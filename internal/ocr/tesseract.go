package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// ErrUnavailable reports that the OCR engine could not be started: the library
// or binary is missing, or its language data cannot be loaded.
var ErrUnavailable = errors.New("ocr engine unavailable")

// Recognizer maps a bitmap to the text it contains.
//
// Implementations must be safe for concurrent use; each call is independent.
type Recognizer interface {
	// Name identifies the engine in logs and health output.
	Name() string

	// Recognize returns all text found in img. An image without text yields
	// an empty string and a nil error.
	Recognize(ctx context.Context, img image.Image) (string, error)

	// Version reports the engine version. An error wrapping ErrUnavailable
	// means the engine cannot be used at all.
	Version(ctx context.Context) (string, error)
}

// Tesseract recognizes text through the libtesseract bindings of gosseract.
//
// A fresh gosseract client is created per call, so a single Tesseract value
// can serve concurrent requests.
type Tesseract struct {
	// Language is the Tesseract language code, e.g. "eng". The corresponding
	// traineddata must be installed.
	Language string

	// TessdataPrefix overrides the directory Tesseract loads traineddata from.
	// Empty means the library default (or TESSDATA_PREFIX).
	TessdataPrefix string
}

// NewTesseract creates a library-backed recognizer.
func NewTesseract(language, tessdataPrefix string) *Tesseract {
	if language == "" {
		language = DefaultLanguage
	}
	return &Tesseract{Language: language, TessdataPrefix: tessdataPrefix}
}

// Name implements Recognizer.
func (t *Tesseract) Name() string { return "tesseract-library" }

// Recognize performs OCR on the whole image.
//
// The bitmap is encoded to PNG in memory and handed to Tesseract; no
// temporary file is written. The call does not observe ctx once Tesseract is
// running, since libtesseract offers no cancellation hook.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode bitmap: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.TessdataPrefix); err != nil {
			return "", fmt.Errorf("%w: failed to set tessdata path: %v", ErrUnavailable, err)
		}
	}

	if err := client.SetLanguage(t.Language); err != nil {
		return "", fmt.Errorf("%w: failed to set language: %v", ErrUnavailable, err)
	}

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		// gosseract initializes lazily, so a missing language pack or broken
		// install only surfaces here.
		if strings.Contains(err.Error(), "initialize") {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// Version returns the linked libtesseract version.
func (t *Tesseract) Version(ctx context.Context) (string, error) {
	v := strings.TrimSpace(gosseract.Version())
	if v == "" {
		return "", fmt.Errorf("%w: libtesseract reported no version", ErrUnavailable)
	}
	return v, nil
}
