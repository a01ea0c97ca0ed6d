// package common holds plain data types and helpers shared by every engine package: decoded images, the error
// taxonomy and the byte packing used for GPU uploads.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageFormat is the pixel layout of a BufferImage.
type ImageFormat int

const (
	ImageFormatRGBA ImageFormat = iota
	ImageFormatRGB
	ImageFormatRG
	ImageFormatR
	ImageFormatLuminance
	ImageFormatLuminanceAlpha
)

var imageFormatNames = map[ImageFormat]string{
	ImageFormatRGBA:           "RGBA",
	ImageFormatRGB:            "RGB",
	ImageFormatRG:             "RG",
	ImageFormatR:              "R",
	ImageFormatLuminance:      "LUMINANCE",
	ImageFormatLuminanceAlpha: "LUMINANCE_ALPHA",
}

func (f ImageFormat) String() string {
	if n, ok := imageFormatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("ImageFormat(%d)", int(f))
}

// ParseImageFormat maps a descriptor name such as "RGBA" to its ImageFormat.
func ParseImageFormat(name string) (ImageFormat, error) {
	for f, n := range imageFormatNames {
		if n == name {
			return f, nil
		}
	}
	return ImageFormatRGBA, fmt.Errorf("unknown image format %q", name)
}

// BytesPerPixel returns the packed size of one pixel.
func (f ImageFormat) BytesPerPixel() int {
	switch f {
	case ImageFormatRGBA:
		return 4
	case ImageFormatRGB:
		return 3
	case ImageFormatRG, ImageFormatLuminanceAlpha:
		return 2
	default:
		return 1
	}
}

// ColorModel tells the uploader whether the pixel data is sRGB encoded.
type ColorModel int

const (
	ColorModelLinear ColorModel = iota
	ColorModelSRGB
)

// BufferImage is a decoded image held in CPU memory until it is uploaded to the GPU.
type BufferImage struct {
	// Source is the path or name the image was created from.
	Source string

	// Width is the image width in pixels.
	Width int

	// Height is the image height in pixels.
	Height int

	// Format is the packed pixel layout of Pixels.
	Format ImageFormat

	// ColorModel is the color encoding of the pixel data.
	ColorModel ColorModel

	// Pixels holds Width*Height*Format.BytesPerPixel() bytes in row-major order.
	Pixels []byte
}

// SizeInBytes returns the expected length of Pixels.
func (b *BufferImage) SizeInBytes() int {
	return b.Width * b.Height * b.Format.BytesPerPixel()
}

// DecodeImage decodes PNG, JPEG, BMP, TIFF or WebP data and packs it into the requested format.
//
// Parameters:
//   - r: the encoded image stream
//   - source: a name recorded on the result for logging and cache keys
//   - format: the destination pixel layout
//
// Returns:
//   - *BufferImage: the decoded image
//   - error: an error wrapping ErrNotFound if the data could not be decoded
func DecodeImage(r io.Reader, source string, format ImageFormat) (*BufferImage, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image %s: %w", ErrNotFound, source, err)
	}
	return FromImage(img, source, format), nil
}

// DecodeImageFile opens path and decodes it with DecodeImage.
func DecodeImageFile(path string, format ImageFormat) (*BufferImage, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open image file %s: %w", ErrNotFound, path, err)
	}
	defer file.Close()

	return DecodeImage(file, path, format)
}

// DecodeImageBytes decodes an embedded image, for example a GLB buffer view.
func DecodeImageBytes(data []byte, source string, format ImageFormat) (*BufferImage, error) {
	return DecodeImage(bytes.NewReader(data), source, format)
}

// FromImage converts any image.Image to a BufferImage of the given format.
func FromImage(img image.Image, source string, format ImageFormat) *BufferImage {
	rgba := ToRGBA(img)
	bounds := rgba.Bounds()
	return &BufferImage{
		Source: source,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: format,
		Pixels: PackRGBA(rgba, format),
	}
}

// ToRGBA returns img as a zero-origin *image.RGBA, copying only when needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// PackRGBA drops or merges channels of an RGBA image to produce the requested format.
func PackRGBA(rgba *image.RGBA, format ImageFormat) []byte {
	if format == ImageFormatRGBA {
		out := make([]byte, len(rgba.Pix))
		copy(out, rgba.Pix)
		return out
	}

	bpp := format.BytesPerPixel()
	pixels := len(rgba.Pix) / 4
	out := make([]byte, pixels*bpp)
	for i := 0; i < pixels; i++ {
		r, g, b, a := rgba.Pix[i*4], rgba.Pix[i*4+1], rgba.Pix[i*4+2], rgba.Pix[i*4+3]
		o := out[i*bpp : i*bpp+bpp]
		switch format {
		case ImageFormatRGB:
			o[0], o[1], o[2] = r, g, b
		case ImageFormatRG:
			o[0], o[1] = r, g
		case ImageFormatR:
			o[0] = r
		case ImageFormatLuminance:
			o[0] = luminance(r, g, b)
		case ImageFormatLuminanceAlpha:
			o[0], o[1] = luminance(r, g, b), a
		}
	}
	return out
}

// UnpackRGBA expands a BufferImage back to RGBA, used when a scaler needs full channels.
func (b *BufferImage) UnpackRGBA() *image.RGBA {
	rgba := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	if b.Format == ImageFormatRGBA {
		copy(rgba.Pix, b.Pixels)
		return rgba
	}

	bpp := b.Format.BytesPerPixel()
	for i := 0; i < b.Width*b.Height; i++ {
		p := b.Pixels[i*bpp : i*bpp+bpp]
		d := rgba.Pix[i*4 : i*4+4]
		d[3] = 0xff
		switch b.Format {
		case ImageFormatRGB:
			d[0], d[1], d[2] = p[0], p[1], p[2]
		case ImageFormatRG:
			d[0], d[1] = p[0], p[1]
		case ImageFormatR:
			d[0] = p[0]
		case ImageFormatLuminance:
			d[0], d[1], d[2] = p[0], p[0], p[0]
		case ImageFormatLuminanceAlpha:
			d[0], d[1], d[2], d[3] = p[0], p[0], p[0], p[1]
		}
	}
	return rgba
}

func luminance(r, g, b byte) byte {
	return byte((299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000)
}
