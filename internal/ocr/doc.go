// Package ocr provides Optical Character Recognition (OCR) functionality using Tesseract.
//
// Two engines implement the Recognizer interface:
//
//   - Tesseract: libtesseract through gosseract/v2 (requires cgo and the
//     tesseract development libraries at build time)
//   - Command: the tesseract executable, driven over stdin/stdout
//
// Extractor sits on top of a Recognizer and performs the dual-polarity read
// used for product labels: one pass on the bitmap as given and one on its
// inverse, so both dark-on-light and light-on-dark text are captured.
//
// # Prerequisites
//
// Either engine needs the language data for the configured language (default
// "eng"). On Debian/Ubuntu:
//
//	apt-get install tesseract-ocr tesseract-ocr-eng libtesseract-dev
//
// # Errors
//
// Failures that mean the engine cannot run at all (missing binary, missing
// language data, failed initialization) wrap ErrUnavailable. Any other
// failure is returned wrapped with the pass that produced it.
//
// # Thread Safety
//
// Both engines create per-call state and are safe for concurrent use.
// Extractor holds no mutable state.
package ocr
