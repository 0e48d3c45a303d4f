package output

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"

	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
)

// DataURIPrefix precedes every encoded image handed back to callers.
const DataURIPrefix = "data:image/png;base64,"

var encoder = png.Encoder{CompressionLevel: png.BestSpeed}

// Encode writes img as PNG, favouring encode latency over size.
func Encode(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("encode: %w", apperrors.ErrInvalidImage)
	}
	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w: %v", apperrors.ErrEncodingFailed, err)
	}
	return buf.Bytes(), nil
}

// DataURI wraps encoded PNG bytes.
func DataURI(data []byte) string {
	return DataURIPrefix + base64.StdEncoding.EncodeToString(data)
}

// EncodeDataURI encodes img straight to a data URI.
func EncodeDataURI(img image.Image) (string, error) {
	data, err := Encode(img)
	if err != nil {
		return "", err
	}
	return DataURI(data), nil
}

// DecodeDataURI reverses EncodeDataURI.
func DecodeDataURI(uri string) (*image.RGBA, error) {
	if !strings.HasPrefix(uri, DataURIPrefix) {
		return nil, fmt.Errorf("decode data uri: missing %q prefix: %w", DataURIPrefix, apperrors.ErrInvalidImage)
	}
	data, err := base64.StdEncoding.DecodeString(uri[len(DataURIPrefix):])
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w: %v", apperrors.ErrInvalidImage, err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w: %v", apperrors.ErrInvalidImage, err)
	}
	return ToRGBA(img), nil
}

// ToRGBA returns img as an *image.RGBA with its origin at (0, 0), copying
// only when needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
