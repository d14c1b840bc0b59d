package dataset

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
)

// Luma weights used for RGB to single-channel conversion.
const (
	lumaR = 0.2989
	lumaG = 0.5870
	lumaB = 0.1140
)

// channelScale maps 16-bit channels onto the 0..255 range.
const channelScale = 255.0 / 0xffff

// Image is a single-channel Dim x Dim tensor stored row-major.
type Image struct {
	Dim int
	Pix []float64
}

// NewImage allocates a zeroed Dim x Dim image.
func NewImage(dim int) Image {
	return Image{Dim: dim, Pix: make([]float64, dim*dim)}
}

// At returns the value at row, col.
func (im Image) At(row, col int) float64 {
	return im.Pix[row*im.Dim+col]
}

// Set stores v at row, col.
func (im Image) Set(row, col int, v float64) {
	im.Pix[row*im.Dim+col] = v
}

// Shape returns the (D, D, 1) tensor shape.
func (im Image) Shape() [3]int {
	return [3]int{im.Dim, im.Dim, 1}
}

// Clone returns a deep copy.
func (im Image) Clone() Image {
	out := Image{Dim: im.Dim, Pix: make([]float64, len(im.Pix))}
	copy(out.Pix, im.Pix)
	return out
}

// Valid reports whether the pixel buffer matches the declared shape.
func (im Image) Valid() bool {
	return im.Dim > 0 && len(im.Pix) == im.Dim*im.Dim
}

// Preprocessor decodes image files into Dim x Dim grayscale tensors with
// intensities in the 0..255 range.
type Preprocessor struct {
	Dim int
}

// DecodeFile opens and decodes the image at path.
func (p Preprocessor) DecodeFile(path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, err := p.Decode(f)
	if err != nil {
		return Image{}, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Decode scales the encoded image to Dim x Dim with bilinear interpolation
// (half-pixel centres, no antialiasing) and converts it to grayscale. Channels
// stay at 16-bit precision until the luma sum.
func (p Preprocessor) Decode(r io.Reader) (Image, error) {
	if p.Dim <= 0 {
		return Image{}, fmt.Errorf("preprocess: dim must be > 0 (got %d)", p.Dim)
	}
	src, _, err := image.Decode(r)
	if err != nil {
		return Image{}, fmt.Errorf("decode image: %w", err)
	}
	if src.Bounds().Empty() {
		return Image{}, fmt.Errorf("decode image: empty bounds")
	}

	// The scaler only reads RGBA64At sources into an RGBA64 destination.
	rgba, ok := src.(image.RGBA64Image)
	if !ok {
		conv := image.NewRGBA64(src.Bounds())
		draw.Draw(conv, conv.Rect, src, src.Bounds().Min, draw.Src)
		rgba = conv
	}

	// Each output pixel blends the 2x2 source pixels nearest its centre.
	dst := image.NewRGBA64(image.Rect(0, 0, p.Dim, p.Dim))
	draw.ApproxBiLinear.Scale(dst, dst.Rect, rgba, rgba.Bounds(), draw.Src, nil)

	out := NewImage(p.Dim)
	for y := 0; y < p.Dim; y++ {
		for x := 0; x < p.Dim; x++ {
			c := dst.RGBA64At(x, y)
			r := float64(c.R) * channelScale
			g := float64(c.G) * channelScale
			b := float64(c.B) * channelScale
			out.Set(y, x, lumaR*r+lumaG*g+lumaB*b)
		}
	}
	return out, nil
}

// Normalize scales 0..255 intensities into [0, 1].
func Normalize(images []Image) []Image {
	out := make([]Image, len(images))
	for i, im := range images {
		n := im.Clone()
		for j := range n.Pix {
			n.Pix[j] /= 255.0
		}
		out[i] = n
	}
	return out
}
