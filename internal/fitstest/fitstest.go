// Package fitstest writes small synthetic FITS images for tests.
package fitstest

import (
	"fmt"
	"os"

	"github.com/astrogo/fitsio"
)

// Image describes a synthetic primary image
type Image struct {
	Width, Height int

	// ExtraAxes adds degenerate length-1 axes after NAXIS2 (0, 1 or 2)
	ExtraAxes int

	// Bitpix defaults to -32. Integer types truncate Pixel values.
	Bitpix int

	Cards []fitsio.Card

	// Pixel returns the value at 0-based (x, y). Defaults to x + 1000*y.
	Pixel func(x, y int) float64
}

// SkyCards returns WCS cards for an image whose centre pixel (0-based
// width/2, height/2) sits on (ra, dec) with the given pixel scale
func SkyCards(width, height int, ra, dec, scale float64, projection string) []fitsio.Card {
	return []fitsio.Card{
		{Name: "CTYPE1", Value: "RA---" + projection},
		{Name: "CRPIX1", Value: float64(width/2 + 1)},
		{Name: "CRVAL1", Value: ra},
		{Name: "CDELT1", Value: -scale},
		{Name: "CTYPE2", Value: "DEC--" + projection},
		{Name: "CRPIX2", Value: float64(height/2 + 1)},
		{Name: "CRVAL2", Value: dec},
		{Name: "CDELT2", Value: scale},
	}
}

// Without returns cards minus the named keys
func Without(cards []fitsio.Card, names ...string) []fitsio.Card {
	out := make([]fitsio.Card, 0, len(cards))
	for _, c := range cards {
		drop := false
		for _, n := range names {
			if c.Name == n {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, c)
		}
	}
	return out
}

// Write creates the FITS file at path
func Write(path string, img Image) error {
	if img.Bitpix == 0 {
		img.Bitpix = -32
	}
	if img.Pixel == nil {
		img.Pixel = func(x, y int) float64 { return float64(x + 1000*y) }
	}

	axes := []int{img.Width, img.Height}
	for i := 0; i < img.ExtraAxes; i++ {
		axes = append(axes, 1)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fits, err := fitsio.Create(f)
	if err != nil {
		return err
	}
	defer fits.Close()

	im := fitsio.NewImage(img.Bitpix, axes)
	defer im.Close()

	if err := im.Header().Append(img.Cards...); err != nil {
		return err
	}

	switch img.Bitpix {
	case 8:
		err = im.Write(fill[uint8](img))
	case 16:
		err = im.Write(fill[int16](img))
	case 32:
		err = im.Write(fill[int32](img))
	case 64:
		err = im.Write(fill[int64](img))
	case -32:
		err = im.Write(fill[float32](img))
	case -64:
		err = im.Write(fill[float64](img))
	default:
		return fmt.Errorf("fitstest: unsupported BITPIX %d", img.Bitpix)
	}
	if err != nil {
		return err
	}

	return fits.Write(im)
}

// fill evaluates Pixel over the first plane, x varying fastest
func fill[T uint8 | int16 | int32 | int64 | float32 | float64](img Image) []T {
	data := make([]T, img.Width*img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			data[y*img.Width+x] = T(img.Pixel(x, y))
		}
	}
	return data
}
