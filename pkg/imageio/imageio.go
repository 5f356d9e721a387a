// Package imageio accepts raw image uploads, decodes them and writes results.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/region-tensor/pkg/types"
)

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int
	Height      int
	AspectRatio float64
	Area        int
}

// IsImageType reports whether mimeType names an image/* media type
func IsImageType(mimeType string) bool {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}

// DetectType sniffs the media type of data
func DetectType(data []byte) string {
	return http.DetectContentType(data)
}

// CheckType resolves the media type of an upload, sniffing it when mimeType is
// empty, and fails with ErrInvalidFileType unless it is an image type.
func CheckType(data []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = DetectType(data)
	}
	if !IsImageType(mimeType) {
		return mimeType, fmt.Errorf("%w: %q", types.ErrInvalidFileType, mimeType)
	}
	return mimeType, nil
}

// Decode validates the declared MIME type and decodes data into a bitmap.
// An empty mimeType is sniffed from the content. It returns the decoded image
// and its format name.
func Decode(data []byte, mimeType string) (image.Image, string, error) {
	if _, err := CheckType(data, mimeType); err != nil {
		return nil, "", err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return validate(img, format)
	}

	// Fallback: explicit WebP decode for variants x/image does not handle
	if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return validate(wimg, "webp")
	}

	return nil, "", fmt.Errorf("%w: %v", types.ErrDecodeFailure, err)
}

func validate(img image.Image, format string) (image.Image, string, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, "", fmt.Errorf("%w: image has no pixels", types.ErrDecodeFailure)
	}
	return img, format, nil
}

// LoadFile reads a file and determines its MIME type from the extension,
// falling back to content sniffing.
func LoadFile(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image file: %w", err)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = DetectType(data)
	}
	return data, mimeType, nil
}

// GetImageInfo returns basic information about an image
func GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	info := ImageInfo{
		Width:  width,
		Height: height,
		Area:   width * height,
	}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

// Save writes an image to path with the specified format and quality
func Save(img image.Image, path, format string, quality int, lossless bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	switch strings.ToLower(format) {
	case "webp":
		return saveWebP(img, path, quality, lossless)
	case "png":
		return imaging.Save(img, path)
	case "jpg", "jpeg":
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func saveWebP(img image.Image, path string, quality int, lossless bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
	if err := webp.Encode(f, img, opts); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode webp: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}
