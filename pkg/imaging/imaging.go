// Package imaging decodes, converts and scales page images.
package imaging

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif" // register decoder
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/bbrks/go-blurhash"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp" // register decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder
)

const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"

	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"

	jpegQuality = 85
	// blurHashSize is the target size for BlurHash computation. A small
	// thumbnail produces nearly identical results in a fraction of the time.
	blurHashSize = 64
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// formats lists the conversion targets by name.
var formats = map[string]string{
	FormatJPEG: MediaTypeJPEG,
	"jpg":      MediaTypeJPEG,
	FormatPNG:  MediaTypePNG,
}

// MediaTypeFor returns the media type of a conversion target, e.g. "png".
func MediaTypeFor(format string) (string, bool) {
	mt, ok := formats[strings.ToLower(format)]
	return mt, ok
}

// Convert re-encodes b in the given format. Data already in that format is
// returned untouched.
func Convert(b []byte, format string) ([]byte, string, error) {
	target, ok := MediaTypeFor(format)
	if !ok {
		return nil, "", errors.Wrap(ErrUnsupportedFormat, format)
	}
	if mimetype.Detect(b).Is(target) {
		return b, target, nil
	}

	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, "", errors.WithStack(err)
	}

	out, err := encode(img, target)
	if err != nil {
		return nil, "", err
	}
	return out, target, nil
}

// Thumbnail scales the image down to the given width, keeping the aspect
// ratio, and encodes it as JPEG. Narrower images are not scaled up.
func Thumbnail(b []byte, width int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return encode(Scale(img, width), MediaTypeJPEG)
}

// Scale resizes img to the given width with bilinear filtering.
func Scale(img image.Image, width int) image.Image {
	srcBounds := img.Bounds()
	if width <= 0 || srcBounds.Dx() <= width {
		return img
	}
	height := srcBounds.Dy() * width / srcBounds.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, srcBounds, draw.Over, nil)
	return dst
}

// BlurHash computes a compact placeholder for the image in b.
// Uses 4x3 components for a good balance of size and detail.
func BlurHash(b []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return "", errors.WithStack(err)
	}

	bounds := img.Bounds()
	small := img
	if bounds.Dx() > blurHashSize || bounds.Dy() > blurHashSize {
		width := blurHashSize
		if bounds.Dy() > bounds.Dx() {
			width = bounds.Dx() * blurHashSize / bounds.Dy()
		}
		small = Scale(img, max(width, 1))
	}

	hash, err := blurhash.Encode(4, 3, small)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return hash, nil
}

func encode(img image.Image, mediaType string) ([]byte, error) {
	buf := &bytes.Buffer{}
	switch mediaType {
	case MediaTypeJPEG:
		if err := jpeg.Encode(buf, flatten(img), &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, errors.WithStack(err)
		}
	case MediaTypePNG:
		if err := png.Encode(buf, img); err != nil {
			return nil, errors.WithStack(err)
		}
	default:
		return nil, errors.Wrap(ErrUnsupportedFormat, mediaType)
	}
	return buf.Bytes(), nil
}

// flatten draws img over a white background since JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	if opaque, ok := img.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		return img
	}
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Over)
	return dst
}
