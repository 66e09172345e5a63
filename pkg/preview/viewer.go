// Package preview renders cutout pixel data as quick-look grayscale images.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Options controls the stretch and file format of a preview
type Options struct {
	// Format is "png" or "jpeg"
	Format string

	// LowPercentile and HighPercentile are the quantiles mapped to black
	// and white, in [0,1]
	LowPercentile  float64
	HighPercentile float64
}

// Extension returns the file extension for the configured format
func (o Options) Extension() string {
	switch strings.ToLower(o.Format) {
	case "jpeg", "jpg":
		return "jpg"
	default:
		return "png"
	}
}

// Viewer renders one plane of FITS pixels. Row 0 of the data is the bottom
// of the sky image, so rows are flipped when rendering.
type Viewer struct {
	data []float64

	width  int
	height int
}

// NewViewer creates a viewer over data laid out x fastest
func NewViewer(data []float64, width, height int) *Viewer {
	return &Viewer{
		data:   data,
		width:  width,
		height: height,
	}
}

// Limits returns the pixel values at the low and high quantiles, ignoring
// blanked pixels. ok is false when there are no finite pixels.
func (v *Viewer) Limits(low, high float64) (lo, hi float64, ok bool) {
	finite := make([]float64, 0, len(v.data))
	for _, p := range v.data {
		if !math.IsNaN(p) && !math.IsInf(p, 0) {
			finite = append(finite, p)
		}
	}
	if len(finite) == 0 {
		return 0, 0, false
	}
	sort.Float64s(finite)

	lo = stat.Quantile(low, stat.Empirical, finite, nil)
	hi = stat.Quantile(high, stat.Empirical, finite, nil)
	return lo, hi, true
}

// Render stretches the data linearly between the configured percentiles
// into a 16-bit grayscale image. Blanked pixels are black.
func (v *Viewer) Render(opts Options) (*image.Gray16, error) {
	if v.width <= 0 || v.height <= 0 || len(v.data) != v.width*v.height {
		return nil, fmt.Errorf("preview of %dx%d needs %d pixels, have %d",
			v.width, v.height, v.width*v.height, len(v.data))
	}

	img := image.NewGray16(image.Rect(0, 0, v.width, v.height))

	lo, hi, ok := v.Limits(opts.LowPercentile, opts.HighPercentile)
	if !ok {
		return img, nil
	}
	span := hi - lo

	for y := 0; y < v.height; y++ {
		row := v.height - 1 - y
		for x := 0; x < v.width; x++ {
			p := v.data[y*v.width+x]
			if math.IsNaN(p) {
				continue
			}
			var f float64
			if span > 0 {
				f = (p - lo) / span
			} else {
				f = 0.5
			}
			value := uint16(math.Max(0, math.Min(65535, f*65535)))
			img.SetGray16(x, row, color.Gray16{Y: value})
		}
	}

	return img, nil
}

// Save renders the preview and writes it to filename
func (v *Viewer) Save(filename string, opts Options) error {
	img, err := v.Render(opts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	switch opts.Extension() {
	case "jpg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(file, img)
	}
	if err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
