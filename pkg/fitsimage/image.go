// Package fitsimage reads the primary image of a FITS file into memory and
// writes cutouts back out. Decoding and encoding are done by astrogo/fitsio.
package fitsimage

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/astrogo/fitsio"

	"fitscutout/internal/models"
)

var (
	// ErrPixelScale is returned when CDELT1 or CDELT2 is missing or zero
	ErrPixelScale = errors.New("pixel scale is missing or zero")

	// ErrNotImage is returned when the primary HDU holds no 2-D image
	ErrNotImage = errors.New("primary HDU is not an image")

	// ErrRegionBounds is returned when a requested window is not inside the image
	ErrRegionBounds = errors.New("region exceeds image bounds")
)

// SourceImage is a decoded primary HDU. It is never modified after Open
// and is safe to share between goroutines.
type SourceImage struct {
	// Path is the file the image was read from
	Path string

	// Header holds every card of the primary HDU
	Header *Header

	// Bitpix is the on-disk pixel type
	Bitpix int

	// Axes are NAXIS1..NAXISn, fastest varying first
	Axes []int

	// data holds the pixels of the first plane with BZERO/BSCALE applied
	data []float64
}

// Open reads the primary image of the FITS file at path
func Open(path string) (*SourceImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	img.Path = path
	return img, nil
}

// Decode reads the primary image from r
func Decode(r io.Reader) (*SourceImage, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if len(f.HDUs()) == 0 {
		return nil, ErrNotImage
	}
	hdu, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, ErrNotImage
	}

	hdr := hdu.Header()
	axes := append([]int(nil), hdr.Axes()...)
	if len(axes) < 2 {
		return nil, fmt.Errorf("%w: NAXIS=%d", ErrNotImage, len(axes))
	}
	for i, n := range axes {
		if n <= 0 {
			return nil, fmt.Errorf("%w: NAXIS%d=%d", ErrNotImage, i+1, n)
		}
	}

	src := &SourceImage{
		Header: newHeader(hdr),
		Bitpix: hdr.Bitpix(),
		Axes:   axes,
	}

	n := 1
	for _, a := range axes {
		n *= a
	}
	plane := axes[0] * axes[1]

	pixels, err := readPlane(hdu, src.Bitpix, n, plane)
	if err != nil {
		return nil, err
	}

	bzero, ok := src.Header.Float("BZERO")
	if !ok {
		bzero = 0
	}
	bscale, ok := src.Header.Float("BSCALE")
	if !ok {
		bscale = 1
	}
	if bzero != 0 || bscale != 1 {
		for i, v := range pixels {
			pixels[i] = bzero + bscale*v
		}
	}
	src.data = pixels

	return src, nil
}

// readPlane reads the n pixels of the image and returns the first plane as
// float64 values. fitsio only reads into a preallocated slice whose element
// type matches BITPIX, so each pixel type gets its own buffer.
func readPlane(img fitsio.Image, bitpix, n, plane int) ([]float64, error) {
	switch bitpix {
	case 8:
		return readAs[uint8](img, n, plane)
	case 16:
		return readAs[int16](img, n, plane)
	case 32:
		return readAs[int32](img, n, plane)
	case 64:
		return readAs[int64](img, n, plane)
	case -32:
		return readAs[float32](img, n, plane)
	case -64:
		buf := make([]float64, n)
		if err := img.Read(&buf); err != nil {
			return nil, err
		}
		if len(buf) < plane {
			return nil, fmt.Errorf("image data holds %d pixels, expected at least %d", len(buf), plane)
		}
		if n == plane {
			return buf, nil
		}
		// Drop the remaining planes of a cube
		return append([]float64(nil), buf[:plane]...), nil
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}
}

func readAs[T uint8 | int16 | int32 | int64 | float32](img fitsio.Image, n, plane int) ([]float64, error) {
	buf := make([]T, n)
	if err := img.Read(&buf); err != nil {
		return nil, err
	}
	if len(buf) < plane {
		return nil, fmt.Errorf("image data holds %d pixels, expected at least %d", len(buf), plane)
	}

	out := make([]float64, plane)
	for i, v := range buf[:plane] {
		out[i] = float64(v)
	}
	return out, nil
}

// Width is NAXIS1
func (img *SourceImage) Width() int {
	return img.Axes[0]
}

// Height is NAXIS2
func (img *SourceImage) Height() int {
	return img.Axes[1]
}

// PixelScale returns CDELT1 and CDELT2. Both must be present, finite and
// non-zero.
func (img *SourceImage) PixelScale() (cdelt1, cdelt2 float64, err error) {
	cdelt1, ok := img.Header.Float("CDELT1")
	if !ok || cdelt1 == 0 || math.IsNaN(cdelt1) || math.IsInf(cdelt1, 0) {
		return 0, 0, fmt.Errorf("%w: CDELT1 in %s", ErrPixelScale, img.name())
	}
	cdelt2, ok = img.Header.Float("CDELT2")
	if !ok || cdelt2 == 0 || math.IsNaN(cdelt2) || math.IsInf(cdelt2, 0) {
		return 0, 0, fmt.Errorf("%w: CDELT2 in %s", ErrPixelScale, img.name())
	}
	return cdelt1, cdelt2, nil
}

func (img *SourceImage) name() string {
	if img.Path == "" {
		return "image"
	}
	return img.Path
}

// At returns the pixel at 0-based (x, y) of the first plane
func (img *SourceImage) At(x, y int) float64 {
	return img.data[y*img.Axes[0]+x]
}

// Region copies the pixels of win from the first plane, x varying fastest.
// The window must lie inside the image and hold exactly ImSize x ImSize
// pixels.
func (img *SourceImage) Region(win models.PixelWindow) ([]float64, error) {
	if !win.Within(img.Width(), img.Height()) {
		return nil, fmt.Errorf("%w: %s on %dx%d image", ErrRegionBounds, win, img.Width(), img.Height())
	}
	if win.Width() != win.ImSize || win.Height() != win.ImSize {
		return nil, fmt.Errorf("window %s spans %dx%d pixels, expected %dx%d",
			win, win.Width(), win.Height(), win.ImSize, win.ImSize)
	}

	out := make([]float64, 0, win.Width()*win.Height())
	for y := win.YStart; y < win.YEnd; y++ {
		row := y * img.Axes[0]
		out = append(out, img.data[row+win.XStart:row+win.XEnd]...)
	}
	return out, nil
}
