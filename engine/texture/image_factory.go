package texture

import (
	"fmt"
	"image"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
	xdraw "golang.org/x/image/draw"
)

// imageFactory is the implementation of the ImageFactory interface.
type imageFactory struct {
	fsys fs.FS
	root string
	log  log.Log
}

// ImageFactory loads texture images from the asset root.
type ImageFactory interface {
	// CreateImage decodes one image in the requested format.
	//
	// Parameters:
	//   - source: the image path, relative to the asset root
	//   - format: the pixel layout to pack the image in
	//
	// Returns:
	//   - *common.BufferImage: the decoded image
	//   - error: an error wrapping common.ErrNotFound if the image cannot be read or decoded
	CreateImage(source string, format common.ImageFormat) (*common.BufferImage, error)

	// CreateScaledImage decodes one image and scales both axes by scale.
	//
	// Parameters:
	//   - source: the image path, relative to the asset root
	//   - format: the pixel layout to pack the image in
	//   - scale: the factor applied to width and height
	//
	// Returns:
	//   - *common.BufferImage: the scaled image
	//   - error: an error wrapping common.ErrNotFound if the image cannot be read or decoded
	CreateScaledImage(source string, format common.ImageFormat, scale float32) (*common.BufferImage, error)

	// LoadLevels loads the image of t for a window of the given height and builds its mip levels.
	// The image is scaled down when the window is noticeably lower than the texture's authored resolution.
	//
	// Parameters:
	//   - t: the texture, which must have an image reference
	//   - windowHeight: the current window height
	//
	// Returns:
	//   - []*common.BufferImage: level 0 first, t.Levels entries at most
	//   - error: an argument error for id-references, or a not-found error from decoding
	LoadLevels(t *Texture, windowHeight int) ([]*common.BufferImage, error)
}

var _ ImageFactory = &imageFactory{}

// ImageFactoryOption configures an ImageFactory.
type ImageFactoryOption func(*imageFactory)

// WithFS reads images from fsys instead of the file system.
func WithFS(fsys fs.FS) ImageFactoryOption {
	return func(f *imageFactory) {
		f.fsys = fsys
	}
}

// WithRoot sets the directory image paths are relative to.
func WithRoot(root string) ImageFactoryOption {
	return func(f *imageFactory) {
		f.root = root
	}
}

// WithImageLogger sets the logger load timings are reported to.
func WithImageLogger(logger log.Log) ImageFactoryOption {
	return func(f *imageFactory) {
		if logger != nil {
			f.log = logger
		}
	}
}

// NewImageFactory creates an ImageFactory reading from the current directory unless configured otherwise.
func NewImageFactory(options ...ImageFactoryOption) ImageFactory {
	f := &imageFactory{root: ".", log: log.Provide()}
	for _, option := range options {
		option(f)
	}
	if f.fsys == nil {
		f.fsys = os.DirFS(f.root)
	}
	return f
}

func (f *imageFactory) CreateImage(source string, format common.ImageFormat) (*common.BufferImage, error) {
	file, err := f.fsys.Open(path.Clean(source))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open image %s: %w", common.ErrNotFound, source, err)
	}
	defer file.Close()

	return common.DecodeImage(file, source, format)
}

func (f *imageFactory) CreateScaledImage(source string, format common.ImageFormat, scale float32) (*common.BufferImage, error) {
	img, err := f.CreateImage(source, format)
	if err != nil {
		return nil, err
	}
	w := max(int(float32(img.Width)*scale), 1)
	h := max(int(float32(img.Height)*scale), 1)
	return Resize(img, w, h, xdraw.CatmullRom), nil
}

func (f *imageFactory) LoadLevels(t *Texture, windowHeight int) ([]*common.BufferImage, error) {
	if t.Reference.IsIDReference() || t.Reference.Empty() {
		return nil, common.ArgumentError("texture.LoadLevels", "texture %s has no image source", t.ID)
	}
	start := time.Now()
	source := t.Reference.Source()

	var base *common.BufferImage
	var err error
	if scale, ok := t.Resolution.ScaleFor(windowHeight); ok {
		base, err = f.CreateScaledImage(source, t.ImageFormat(), scale)
	} else {
		base, err = f.CreateImage(source, t.ImageFormat())
	}
	if err != nil {
		return nil, err
	}
	base.ColorModel = t.ColorModel
	if t.FlipV {
		FlipVertical(base)
	}

	levels := t.Levels
	if t.Parameters.UsesMipmaps() && levels <= 1 {
		levels = 0
	}
	chain := MipChain(base, levels)
	f.log.Debug("texture image loaded",
		log.String("id", t.ID),
		log.String("source", source),
		log.Int("width", base.Width),
		log.Int("height", base.Height),
		log.Int("levels", len(chain)),
		log.Duration("elapsed", time.Since(start)))
	return chain, nil
}

// Resize scales img to width x height with the given interpolator, keeping its format and color model.
func Resize(img *common.BufferImage, width, height int, scaler xdraw.Scaler) *common.BufferImage {
	src := img.UnpackRGBA()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	out := common.FromImage(dst, img.Source, img.Format)
	out.ColorModel = img.ColorModel
	return out
}

// MipChain returns img followed by successively halved copies until 1x1 or until levels images exist.
// levels <= 0 builds the full chain.
func MipChain(img *common.BufferImage, levels int) []*common.BufferImage {
	chain := []*common.BufferImage{img}
	for current := img; current.Width > 1 || current.Height > 1; {
		if levels > 0 && len(chain) >= levels {
			break
		}
		current = Resize(current, max(current.Width/2, 1), max(current.Height/2, 1), xdraw.BiLinear)
		chain = append(chain, current)
	}
	return chain
}

// FlipVertical mirrors the rows of img in place.
func FlipVertical(img *common.BufferImage) {
	stride := img.Width * img.Format.BytesPerPixel()
	row := make([]byte, stride)
	for top, bottom := 0, img.Height-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := img.Pixels[top*stride : (top+1)*stride]
		b := img.Pixels[bottom*stride : (bottom+1)*stride]
		copy(row, a)
		copy(a, b)
		copy(b, row)
	}
}
