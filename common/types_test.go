package common

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeImagePacksFormat(t *testing.T) {
	data := encodePNG(t, 4, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	rgb, err := DecodeImageBytes(data, "mem.png", ImageFormatRGB)
	require.NoError(t, err)
	assert.Equal(t, 4, rgb.Width)
	assert.Equal(t, 2, rgb.Height)
	assert.Len(t, rgb.Pixels, rgb.SizeInBytes())
	assert.Equal(t, []byte{10, 20, 30}, rgb.Pixels[:3])

	rg, err := DecodeImageBytes(data, "mem.png", ImageFormatRG)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 20}, rg.Pixels[:2])

	back := rg.UnpackRGBA()
	assert.Equal(t, uint8(10), back.Pix[0])
	assert.Equal(t, uint8(0), back.Pix[2])
	assert.Equal(t, uint8(255), back.Pix[3])
}

func TestDecodeImageFailure(t *testing.T) {
	_, err := DecodeImage(strings.NewReader("not an image"), "bad", ImageFormatRGBA)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = DecodeImageFile("/does/not/exist.png", ImageFormatRGBA)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseImageFormat(t *testing.T) {
	f, err := ParseImageFormat("LUMINANCE_ALPHA")
	require.NoError(t, err)
	assert.Equal(t, ImageFormatLuminanceAlpha, f)
	assert.Equal(t, 2, f.BytesPerPixel())

	_, err = ParseImageFormat("XYZ")
	assert.Error(t, err)
}
