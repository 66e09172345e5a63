// Package wcs maps between celestial coordinates and image pixels for FITS
// images described by a zenithal World Coordinate System.
//
// Only the celestial axes 1 and 2 are handled. Pixel coordinates are 0-based:
// the centre of the first pixel is (0, 0), which is FITS pixel (1, 1).
package wcs

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrUnsupportedProjection is returned for CTYPE values this package cannot handle
	ErrUnsupportedProjection = errors.New("wcs: unsupported projection")

	// ErrProjection is returned when a coordinate has no image in the projection
	ErrProjection = errors.New("wcs: coordinate cannot be projected")
)

// Header is the subset of a FITS header the WCS is built from. The boolean
// result reports whether the key is present.
type Header interface {
	Float(key string) (float64, bool)
	String(key string) (string, bool)
}

// WCS is an immutable celestial coordinate system. It is safe for
// concurrent use.
type WCS struct {
	code string
	proj zenithal

	crpix [2]float64
	crval [2]float64

	// celestial coordinates of the native pole and its native longitude
	alphaP, deltaP, phiP float64

	// lin maps pixel offsets from CRPIX to intermediate world coordinates
	lin *mat.Dense
	inv *mat.Dense
}

// New builds a WCS from the CTYPE, CRPIX, CRVAL and scale keys of h. The
// linear transform is taken from CDi_j when present, otherwise from CDELTi
// combined with PCi_j or CROTA2.
func New(h Header) (*WCS, error) {
	ctype1, ok1 := h.String("CTYPE1")
	ctype2, ok2 := h.String("CTYPE2")
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: CTYPE1 and CTYPE2 are required", ErrUnsupportedProjection)
	}

	code, err := projectionCode(ctype1, ctype2)
	if err != nil {
		return nil, err
	}

	w := &WCS{
		code: code,
		proj: projections[code],
	}

	w.crpix[0] = floatOr(h, "CRPIX1", 0)
	w.crpix[1] = floatOr(h, "CRPIX2", 0)
	w.crval[0] = floatOr(h, "CRVAL1", 0)
	w.crval[1] = floatOr(h, "CRVAL2", 0)

	w.lin, err = linearTransform(h)
	if err != nil {
		return nil, err
	}

	w.inv = mat.NewDense(2, 2, nil)
	if err := w.inv.Inverse(w.lin); err != nil {
		return nil, fmt.Errorf("wcs: linear transform is singular: %w", err)
	}

	// Zenithal projections put the reference point at the native pole, so
	// the celestial pole of the native system is the reference value itself.
	w.alphaP = w.crval[0]
	w.deltaP = w.crval[1]
	if w.deltaP >= 90 {
		w.phiP = 0
	} else {
		w.phiP = 180
	}
	if lonpole, ok := h.Float("LONPOLE"); ok {
		w.phiP = lonpole
	}

	return w, nil
}

// projectionCode extracts and validates the three letter projection code
func projectionCode(ctype1, ctype2 string) (string, error) {
	ctype1 = strings.ToUpper(strings.TrimSpace(ctype1))
	ctype2 = strings.ToUpper(strings.TrimSpace(ctype2))

	if len(ctype1) < 8 || len(ctype2) < 8 {
		return "", fmt.Errorf("%w: CTYPE1=%q CTYPE2=%q", ErrUnsupportedProjection, ctype1, ctype2)
	}

	lon, lat := strings.TrimRight(ctype1[:4], "-"), strings.TrimRight(ctype2[:4], "-")
	switch {
	case lon == "RA" && lat == "DEC":
	case lon == "GLON" && lat == "GLAT":
	case lon == "ELON" && lat == "ELAT":
	default:
		return "", fmt.Errorf("%w: axis pair %s/%s", ErrUnsupportedProjection, ctype1, ctype2)
	}

	code1, code2 := ctype1[5:8], ctype2[5:8]
	if code1 != code2 {
		return "", fmt.Errorf("%w: mixed projections %s and %s", ErrUnsupportedProjection, code1, code2)
	}
	if _, ok := projections[code1]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProjection, code1)
	}
	return code1, nil
}

func linearTransform(h Header) (*mat.Dense, error) {
	cd11, has11 := h.Float("CD1_1")
	cd12, has12 := h.Float("CD1_2")
	cd21, has21 := h.Float("CD2_1")
	cd22, has22 := h.Float("CD2_2")
	if has11 || has12 || has21 || has22 {
		return mat.NewDense(2, 2, []float64{cd11, cd12, cd21, cd22}), nil
	}

	cdelt1 := floatOr(h, "CDELT1", 1)
	cdelt2 := floatOr(h, "CDELT2", 1)
	if cdelt1 == 0 || cdelt2 == 0 {
		return nil, fmt.Errorf("wcs: zero pixel scale (CDELT1=%g, CDELT2=%g)", cdelt1, cdelt2)
	}

	pc := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	_, hasPC11 := h.Float("PC1_1")
	_, hasPC12 := h.Float("PC1_2")
	_, hasPC21 := h.Float("PC2_1")
	_, hasPC22 := h.Float("PC2_2")
	if hasPC11 || hasPC12 || hasPC21 || hasPC22 {
		pc.Set(0, 0, floatOr(h, "PC1_1", 1))
		pc.Set(0, 1, floatOr(h, "PC1_2", 0))
		pc.Set(1, 0, floatOr(h, "PC2_1", 0))
		pc.Set(1, 1, floatOr(h, "PC2_2", 1))
	} else if rho, ok := h.Float("CROTA2"); ok && rho != 0 {
		sin, cos := math.Sincos(rho * d2r)
		pc.Set(0, 0, cos)
		pc.Set(0, 1, -(cdelt2/cdelt1)*sin)
		pc.Set(1, 0, (cdelt1/cdelt2)*sin)
		pc.Set(1, 1, cos)
	}

	scale := mat.NewDiagDense(2, []float64{cdelt1, cdelt2})
	var lin mat.Dense
	lin.Mul(scale, pc)
	return &lin, nil
}

func floatOr(h Header, key string, def float64) float64 {
	if v, ok := h.Float(key); ok {
		return v
	}
	return def
}

// Projection returns the three letter projection code, e.g. "SIN"
func (w *WCS) Projection() string {
	return w.code
}

// Reference returns CRVAL1 and CRVAL2 in degrees
func (w *WCS) Reference() (lon, lat float64) {
	return w.crval[0], w.crval[1]
}

// Project converts a celestial coordinate in degrees to 0-based fractional
// pixel coordinates
func (w *WCS) Project(lon, lat float64) (x, y float64, err error) {
	if math.IsNaN(lon) || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("%w: invalid coordinate (%g, %g)", ErrProjection, lon, lat)
	}

	phi, theta := celestialToNative(lon, lat, w.alphaP, w.deltaP, w.phiP)
	ix, iy, err := nativeToPlane(w.proj, phi, theta)
	if err != nil {
		return 0, 0, err
	}

	dx := w.inv.At(0, 0)*ix + w.inv.At(0, 1)*iy
	dy := w.inv.At(1, 0)*ix + w.inv.At(1, 1)*iy

	return dx + w.crpix[0] - 1, dy + w.crpix[1] - 1, nil
}

// Unproject converts 0-based pixel coordinates to a celestial coordinate in
// degrees, with the longitude in [0, 360)
func (w *WCS) Unproject(x, y float64) (lon, lat float64, err error) {
	dx := x + 1 - w.crpix[0]
	dy := y + 1 - w.crpix[1]

	ix := w.lin.At(0, 0)*dx + w.lin.At(0, 1)*dy
	iy := w.lin.At(1, 0)*dx + w.lin.At(1, 1)*dy

	phi, theta, err := planeToNative(w.proj, ix, iy)
	if err != nil {
		return 0, 0, err
	}

	lon, lat = nativeToCelestial(phi, theta, w.alphaP, w.deltaP, w.phiP)
	return lon, lat, nil
}
