// Package imaging decodes uploaded label photographs and normalizes them for
// text recognition.
//
// Normalization is a fixed, deterministic pipeline: the image is flattened to
// three channels, converted to luminance, contrast-enhanced by ContrastFactor
// around its mean luminance and sharpened with a 3x3 kernel. The output is an
// *image.Gray with the same bounds as the input.
//
// # Formats
//
// Decode accepts JPEG, PNG, GIF, BMP, TIFF and WebP. Anything else, including
// truncated files, yields an error wrapping ErrDecode.
//
// # Geometry
//
// No resizing, rotation or skew correction is applied. EXIF orientation tags
// are ignored. Callers that need deskewing must do it before Normalize.
//
// # Thread Safety
//
// All functions are stateless and never mutate their input, so they may be
// called concurrently on different or shared images.
package imaging
