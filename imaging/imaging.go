package imaging

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/chai2010/webp"
	"github.com/nfnt/resize"
)

// MaxInputSize bounds the accepted input. Decode cost is proportional to
// pixel count, so oversized payloads are rejected before decoding.
const MaxInputSize = 10 * 1024 * 1024

const DefaultQuality = 80

var (
	ErrDecode    = errors.New("cannot decode image")
	ErrTransform = errors.New("cannot transform image")
	ErrTooLarge  = errors.New("image exceeds maximum input size")
)

type Options struct {
	Width   uint
	Height  uint
	Quality int // 1-100, 0 means DefaultQuality
}

type Info struct {
	Format   string `json:"format"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Size     int    `json:"size"`
	HasAlpha bool   `json:"hasAlpha"`
}

// Convert re-encodes the given image as WebP, optionally resizing it to fit
// inside the given box. The image is never enlarged beyond its original
// dimensions. Identical input and options produce identical output.
func Convert(data []byte, opts Options) ([]byte, error) {
	if len(data) > MaxInputSize {
		return nil, ErrTooLarge
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrDecode
	}
	bounds := img.Bounds().Size()
	width := opts.Width
	height := opts.Height
	if width > 0 || height > 0 {
		// A missing dimension means "no constraint on that side"
		if width == 0 {
			width = uint(bounds.X)
		}
		if height == 0 {
			height = uint(bounds.Y)
		}
		img = resize.Thumbnail(width, height, img, resize.Lanczos3)
	}
	quality := opts.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}
	if quality > 100 {
		quality = 100
	}
	var buf bytes.Buffer
	if err = webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, ErrTransform
	}
	return buf.Bytes(), nil
}

// Inspect decodes the image header and reports its format and dimensions.
func Inspect(data []byte) (*Info, error) {
	if len(data) > MaxInputSize {
		return nil, ErrTooLarge
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrDecode
	}
	bounds := img.Bounds().Size()
	info := &Info{
		Format: format,
		Width:  bounds.X,
		Height: bounds.Y,
		Size:   len(data),
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		info.HasAlpha = !o.Opaque()
	}
	return info, nil
}
