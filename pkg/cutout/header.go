package cutout

import (
	"fmt"
	"math"
	"strings"

	"github.com/astrogo/fitsio"

	"fitscutout/internal/models"
	"fitscutout/pkg/fitsimage"
)

// KeyReader gives typed access to header keys. The boolean reports presence.
type KeyReader interface {
	Float(key string) (float64, bool)
	String(key string) (string, bool)
	Value(key string) (any, bool)
}

// Projector maps between sky degrees and 0-based pixel coordinates
type Projector interface {
	Project(lon, lat float64) (x, y float64, err error)
	Unproject(x, y float64) (lon, lat float64, err error)
}

// HeaderOptions controls which optional keys are carried over
type HeaderOptions struct {
	// Passthrough keys are copied verbatim when present in the source
	Passthrough []string
}

// OutputHeader is the WCS and shape description of a cutout
type OutputHeader struct {
	// Axes are NAXIS1..NAXISn of the cutout; axes 3 and 4 have length 1
	Axes []int

	CRVAL1, CRVAL2 float64
	CRPIX1, CRPIX2 int
	CDELT1, CDELT2 float64
	CTYPE1, CTYPE2 string

	// CTYPE3 and CTYPE4 are empty when the source has no such axis
	CTYPE3, CTYPE4 string

	// nil when absent from the source
	RADESYS *string
	LONPOLE *float64
	LATPOLE *float64

	// Extra holds axis 3/4 companions and pass-through keys, in order
	Extra []fitsio.Card
}

// DeriveHeader computes the header of the cutout described by win
func DeriveHeader(src KeyReader, win models.PixelWindow, proj Projector, opts HeaderOptions) (OutputHeader, error) {
	var out OutputHeader

	cdelt1, ok1 := src.Float("CDELT1")
	cdelt2, ok2 := src.Float("CDELT2")
	switch {
	case !ok1 || cdelt1 == 0:
		return out, fmt.Errorf("%w: CDELT1", fitsimage.ErrPixelScale)
	case !ok2 || cdelt2 == 0:
		return out, fmt.Errorf("%w: CDELT2", fitsimage.ErrPixelScale)
	}

	// The reference value describes the centre of the window actually cut,
	// not the requested coordinate.
	lon, lat, err := proj.Unproject(float64(win.XPix), float64(win.YPix))
	if err != nil {
		return out, fmt.Errorf("failed to unproject window centre (%d, %d): %w", win.XPix, win.YPix, err)
	}

	crpix := int(math.Ceil(float64(win.ImSize) / 2))

	out.CRVAL1 = lon + math.Abs(cdelt1)/2
	out.CRVAL2 = lat
	out.CRPIX1 = crpix
	out.CRPIX2 = crpix
	out.CDELT1 = cdelt1
	out.CDELT2 = cdelt2
	out.CTYPE1, _ = src.String("CTYPE1")
	out.CTYPE2, _ = src.String("CTYPE2")

	out.Axes = []int{win.ImSize, win.ImSize}
	copied := map[string]bool{}

	if ctype3, ok := src.String("CTYPE3"); ok && ctype3 != "" {
		out.CTYPE3 = ctype3
		out.Axes = append(out.Axes, 1)
		out.Extra = appendPresent(out.Extra, src, copied, "CRVAL3", "CDELT3", "CRPIX3", "CUNIT3")

		// A fourth axis is only meaningful on top of a third
		if ctype4, ok := src.String("CTYPE4"); ok && ctype4 != "" {
			out.CTYPE4 = ctype4
			out.Axes = append(out.Axes, 1)
			out.Extra = appendPresent(out.Extra, src, copied, "CRVAL4", "CDELT4", "CRPIX4", "CUNIT4")
		}
	}

	if v, ok := src.String("RADESYS"); ok {
		out.RADESYS = &v
	}
	if v, ok := src.Float("LONPOLE"); ok {
		out.LONPOLE = &v
	}
	if v, ok := src.Float("LATPOLE"); ok {
		out.LATPOLE = &v
	}

	out.Extra = appendPresent(out.Extra, src, copied, opts.Passthrough...)

	return out, nil
}

// reserved keys are always derived and never passed through
var reserved = map[string]bool{
	"SIMPLE": true, "BITPIX": true, "EXTEND": true, "BZERO": true, "BSCALE": true,
	"NAXIS": true, "NAXIS1": true, "NAXIS2": true, "NAXIS3": true, "NAXIS4": true,
	"CRVAL1": true, "CRVAL2": true, "CRPIX1": true, "CRPIX2": true,
	"CDELT1": true, "CDELT2": true, "CTYPE1": true, "CTYPE2": true,
	"CTYPE3": true, "CTYPE4": true, "RADESYS": true, "LONPOLE": true, "LATPOLE": true,
	"END": true,
}

func appendPresent(cards []fitsio.Card, src KeyReader, copied map[string]bool, keys ...string) []fitsio.Card {
	for _, key := range keys {
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" || reserved[key] || copied[key] {
			continue
		}
		v, ok := src.Value(key)
		if !ok {
			continue
		}
		if s, isString := v.(string); isString {
			v = strings.TrimRight(s, " ")
		}
		copied[key] = true
		cards = append(cards, fitsio.Card{Name: key, Value: v})
	}
	return cards
}

// Cards returns the header as FITS cards, excluding the SIMPLE, BITPIX
// and NAXISn keys written by the encoder
func (h OutputHeader) Cards() []fitsio.Card {
	cards := []fitsio.Card{
		{Name: "CTYPE1", Value: h.CTYPE1},
		{Name: "CRVAL1", Value: h.CRVAL1},
		{Name: "CDELT1", Value: h.CDELT1},
		{Name: "CRPIX1", Value: h.CRPIX1},
		{Name: "CTYPE2", Value: h.CTYPE2},
		{Name: "CRVAL2", Value: h.CRVAL2},
		{Name: "CDELT2", Value: h.CDELT2},
		{Name: "CRPIX2", Value: h.CRPIX2},
	}
	if h.CTYPE3 != "" {
		cards = append(cards, fitsio.Card{Name: "CTYPE3", Value: h.CTYPE3})
	}
	if h.CTYPE4 != "" {
		cards = append(cards, fitsio.Card{Name: "CTYPE4", Value: h.CTYPE4})
	}
	if h.RADESYS != nil {
		cards = append(cards, fitsio.Card{Name: "RADESYS", Value: *h.RADESYS})
	}
	if h.LONPOLE != nil {
		cards = append(cards, fitsio.Card{Name: "LONPOLE", Value: *h.LONPOLE})
	}
	if h.LATPOLE != nil {
		cards = append(cards, fitsio.Card{Name: "LATPOLE", Value: *h.LATPOLE})
	}
	return append(cards, h.Extra...)
}
