package models

import "fmt"

// SkyPosition is a named sky coordinate to centre a cutout on
type SkyPosition struct {
	// Name identifies the source and becomes the output base name
	Name string

	// RA is the right ascension in degrees
	RA float64

	// Dec is the declination in degrees
	Dec float64
}

func (p SkyPosition) String() string {
	return fmt.Sprintf("%s (ra=%.6f, dec=%.6f)", p.Name, p.RA, p.Dec)
}

// PixelWindow is the square region extracted from the source image.
// Ranges are half-open and 0-based; X runs along NAXIS1, Y along NAXIS2.
type PixelWindow struct {
	// XPix and YPix are the rounded pixel the window is centred on
	XPix, YPix int

	XStart, XEnd int
	YStart, YEnd int

	// ImSize is the declared width and height of the cutout in pixels
	ImSize int
}

// Width is the number of pixels spanned along NAXIS1
func (w PixelWindow) Width() int {
	return w.XEnd - w.XStart
}

// Height is the number of pixels spanned along NAXIS2
func (w PixelWindow) Height() int {
	return w.YEnd - w.YStart
}

// Within reports whether the window lies entirely inside an image of the
// given dimensions
func (w PixelWindow) Within(naxis1, naxis2 int) bool {
	return w.XStart >= 0 && w.YStart >= 0 && w.XEnd <= naxis1 && w.YEnd <= naxis2
}

func (w PixelWindow) String() string {
	return fmt.Sprintf("x[%d:%d) y[%d:%d) imsize=%d", w.XStart, w.XEnd, w.YStart, w.YEnd, w.ImSize)
}

// Status is the outcome of a single cutout
type Status int

const (
	Written Status = iota
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case Written:
		return "written"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Stats summarises the finite pixel values of a cutout
type Stats struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Result records what happened to one requested position
type Result struct {
	// Name is the source name, or a row label when the name could not be read
	Name string

	Status Status

	// Path is the written FITS file, empty unless Status is Written
	Path string

	// PreviewPath is the written preview image, if one was requested
	PreviewPath string

	Window PixelWindow
	Stats  Stats

	// Err is set for Skipped (the reason) and Failed results
	Err error
}
