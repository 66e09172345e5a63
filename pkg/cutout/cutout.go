// Package cutout extracts square sky-centred sub-images from a FITS image
// and writes them with a WCS header describing the cut region.
package cutout

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"fitscutout/internal/models"
	"fitscutout/pkg/fitsimage"
	"fitscutout/pkg/preview"
	"fitscutout/pkg/wcs"
)

// Options holds the output parameters shared by every cutout
type Options struct {
	// OutDir is where <name>.fits files are written
	OutDir string

	Write  fitsimage.WriteOptions
	Header HeaderOptions

	// Preview, when set, writes <name>.<format> next to each cutout
	Preview *preview.Options
}

// Cutter produces cutouts from one source image. It holds no mutable state
// and may be used from several goroutines.
type Cutter struct {
	img  *fitsimage.SourceImage
	proj Projector

	cdelt1 float64
	opts   Options
}

// NewCutter validates the source image and builds its WCS. Errors returned
// here apply to every position and should end the run.
func NewCutter(img *fitsimage.SourceImage, opts Options) (*Cutter, error) {
	cdelt1, _, err := img.PixelScale()
	if err != nil {
		return nil, err
	}

	w, err := wcs.New(img.Header)
	if err != nil {
		return nil, fmt.Errorf("failed to read WCS of %s: %w", img.Path, err)
	}

	return newCutter(img, w, cdelt1, opts), nil
}

func newCutter(img *fitsimage.SourceImage, proj Projector, cdelt1 float64, opts Options) *Cutter {
	if opts.OutDir == "" {
		opts.OutDir = "."
	}
	if opts.Write.Bitpix == 0 {
		opts.Write.Bitpix = -32
	}
	return &Cutter{
		img:    img,
		proj:   proj,
		cdelt1: cdelt1,
		opts:   opts,
	}
}

// Projector returns the WCS used to locate positions
func (c *Cutter) Projector() Projector {
	return c.proj
}

// OutputPath returns the FITS file a source name is written to
func (c *Cutter) OutputPath(name string) string {
	return filepath.Join(c.opts.OutDir, name+".fits")
}

// Cut produces the cutout for one position. Positions off the image give
// a Skipped result wrapping ErrOutsideImage; every other problem gives a
// Failed result.
func (c *Cutter) Cut(pos models.SkyPosition, size float64) models.Result {
	if err := validateName(pos.Name); err != nil {
		return failed(models.Result{Name: pos.Name}, err)
	}
	return c.CutTo(pos, size, c.OutputPath(pos.Name))
}

// CutTo is Cut with an explicit output file. The name of pos is used only
// in results and messages.
func (c *Cutter) CutTo(pos models.SkyPosition, size float64, path string) models.Result {
	res := models.Result{Name: pos.Name}

	fx, fy, err := c.proj.Project(pos.RA, pos.Dec)
	if err != nil {
		return failed(res, fmt.Errorf("failed to project %s: %w", pos, err))
	}

	win, err := PlanWindow(fx, fy, c.img.Width(), c.img.Height(), c.cdelt1, size)
	if errors.Is(err, ErrOutsideImage) {
		res.Status = models.Skipped
		res.Err = err
		return res
	}
	if err != nil {
		return failed(res, err)
	}
	res.Window = win

	hdr, err := DeriveHeader(c.img.Header, win, c.proj, c.opts.Header)
	if err != nil {
		return failed(res, err)
	}

	data, err := c.img.Region(win)
	if err != nil {
		return failed(res, fmt.Errorf("failed to read window %s: %w", win, err))
	}
	res.Stats = computeStats(data)

	if err := fitsimage.WriteImage(path, hdr.Axes, hdr.Cards(), data, c.opts.Write); err != nil {
		return failed(res, err)
	}
	res.Status = models.Written
	res.Path = path

	if c.opts.Preview != nil {
		previewPath := strings.TrimSuffix(path, ".fits") + "." + c.opts.Preview.Extension()
		viewer := preview.NewViewer(data, win.ImSize, win.ImSize)
		if err := viewer.Save(previewPath, *c.opts.Preview); err != nil {
			log.Printf("Warning: Failed to save preview for %s: %v", pos.Name, err)
		} else {
			res.PreviewPath = previewPath
		}
	}

	return res
}

func failed(res models.Result, err error) models.Result {
	res.Status = models.Failed
	res.Err = err
	return res
}

// validateName rejects names that cannot be used as an output base name
func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.New("empty source name")
	case name == "." || name == "..":
		return fmt.Errorf("invalid source name %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("source name %q contains a path separator", name)
	}
	return nil
}
