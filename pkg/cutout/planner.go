package cutout

import (
	"errors"
	"fmt"
	"math"

	"fitscutout/internal/models"
	"fitscutout/pkg/fitsimage"
)

// ErrOutsideImage means the requested centre does not fall on the image.
// It marks a position to skip, not a failure.
var ErrOutsideImage = errors.New("source completely outside image")

// PlanWindow derives the square pixel window for a cutout of the given
// angular size centred on the fractional 0-based pixel (fx, fy).
//
// The window starts at ceil(size/|cdelt1|) pixels and is halved until it
// fits inside the image or is no larger than 2 pixels. A window centred on
// the outermost pixel can therefore still overhang the edge; reading such a
// window fails with fitsimage.ErrRegionBounds.
func PlanWindow(fx, fy float64, naxis1, naxis2 int, cdelt1, size float64) (models.PixelWindow, error) {
	if cdelt1 == 0 || math.IsNaN(cdelt1) || math.IsInf(cdelt1, 0) {
		return models.PixelWindow{}, fmt.Errorf("%w: CDELT1=%g", fitsimage.ErrPixelScale, cdelt1)
	}
	if !(size > 0) || math.IsInf(size, 0) {
		return models.PixelWindow{}, fmt.Errorf("cutout size must be a positive number of degrees, got %g", size)
	}
	if math.IsNaN(fx) || math.IsNaN(fy) || math.IsInf(fx, 0) || math.IsInf(fy, 0) {
		return models.PixelWindow{}, fmt.Errorf("projected pixel (%g, %g) is not finite", fx, fy)
	}

	// Compare before converting so huge offsets cannot overflow int
	rx, ry := math.Round(fx), math.Round(fy)
	if rx < 0 || rx >= float64(naxis1) || ry < 0 || ry >= float64(naxis2) {
		return models.PixelWindow{}, ErrOutsideImage
	}
	xPix, yPix := int(rx), int(ry)

	npix := math.Ceil(size / math.Abs(cdelt1))
	if npix > math.MaxInt32 {
		return models.PixelWindow{}, fmt.Errorf("cutout size %g deg is %g pixels wide", size, npix)
	}
	imsize := int(npix)
	win := centredWindow(xPix, yPix, imsize)

	// imsize strictly decreases, so this terminates once imsize <= 2
	for !win.Within(naxis1, naxis2) && imsize > 2 {
		imsize /= 2
		win = centredWindow(xPix, yPix, imsize)
	}

	// An even imsize yields a window one pixel wider than declared
	if win.Width() == imsize+1 && win.Height() == imsize+1 {
		imsize++
	}
	win.ImSize = imsize

	return win, nil
}

func centredWindow(xPix, yPix, imsize int) models.PixelWindow {
	half := imsize / 2
	return models.PixelWindow{
		XPix:   xPix,
		YPix:   yPix,
		XStart: xPix - half,
		XEnd:   xPix + half + 1,
		YStart: yPix - half,
		YEnd:   yPix + half + 1,
		ImSize: imsize,
	}
}
