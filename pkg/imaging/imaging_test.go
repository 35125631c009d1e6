package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tankobon/tankobon/pkg/testutils"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: 128})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestConvert(t *testing.T) {
	t.Parallel()

	src := testutils.JPEG(t, 30, 20, color.RGBA{R: 10, G: 200, B: 30, A: 255})

	out, mt, err := Convert(src, "png")
	require.NoError(t, err)
	assert.Equal(t, MediaTypePNG, mt)
	_, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	same, mt, err := Convert(src, "JPEG")
	require.NoError(t, err)
	assert.Equal(t, MediaTypeJPEG, mt)
	assert.Equal(t, src, same)

	out, mt, err = Convert(pngBytes(t, 10, 10), "jpg")
	require.NoError(t, err)
	assert.Equal(t, MediaTypeJPEG, mt)
	_, format, err = image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)

	_, _, err = Convert(src, "tiff")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, _, err = Convert([]byte("garbage"), "png")
	assert.Error(t, err)
}

func TestThumbnail(t *testing.T) {
	t.Parallel()

	src := testutils.JPEG(t, 400, 600, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	out, err := Thumbnail(src, 100)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 150, cfg.Height)

	small := testutils.JPEG(t, 50, 50, color.Black)
	out, err = Thumbnail(small, 100)
	require.NoError(t, err)
	cfg, _, err = image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
}

func TestBlurHash(t *testing.T) {
	t.Parallel()

	hash, err := BlurHash(testutils.JPEG(t, 300, 200, color.RGBA{R: 120, G: 40, B: 200, A: 255}))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	_, err = BlurHash([]byte("nope"))
	assert.Error(t, err)
}
