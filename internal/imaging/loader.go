package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrDecode marks input that is not a decodable image.
//
// Callers test for it with errors.Is; the wrapped error carries the
// underlying decoder message.
var ErrDecode = errors.New("image decode failed")

// Decode reads and decodes an image from r.
//
// Supported formats are JPEG, PNG, GIF, BMP, TIFF and WebP. EXIF orientation is
// deliberately ignored: the normalizer never rotates or skews input.
//
// Returns:
//   - image.Image: The decoded image in its native color model.
//   - error: Wraps ErrDecode when the bytes are not a valid or complete image.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// Open decodes the image stored at path.
//
// Errors opening the file are returned as-is; errors decoding its contents
// wrap ErrDecode.
func Open(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	return Decode(f)
}
