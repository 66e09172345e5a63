package fitsimage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/astrogo/fitsio"
)

// WriteOptions control how a cutout is written
type WriteOptions struct {
	// Bitpix is -32 or -64
	Bitpix int

	// Overwrite replaces an existing file instead of failing
	Overwrite bool
}

// WriteImage writes data as the primary image of a new FITS file. axes are
// NAXIS1..NAXISn and cards are appended after the mandatory keys. The file
// is written to a temporary name and moved into place; missing parent
// directories are created.
func WriteImage(path string, axes []int, cards []fitsio.Card, data []float64, opts WriteOptions) error {
	n := 1
	for _, a := range axes {
		n *= a
	}
	if len(axes) == 0 || n != len(data) {
		return fmt.Errorf("pixel count %d does not match axes %v", len(data), axes)
	}

	if !opts.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, os.ErrExist)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if err := Encode(tmp, axes, cards, data, opts.Bitpix); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return publish(tmpName, path, opts.Overwrite)
}

// publish moves the finished temporary file into place. Without overwrite
// it links instead of renaming, so a file created by another writer since
// the first check is never replaced.
func publish(tmpName, path string, overwrite bool) error {
	if overwrite {
		if err := os.Rename(tmpName, path); err != nil {
			os.Remove(tmpName)
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return nil
	}

	err := os.Link(tmpName, path)
	os.Remove(tmpName)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%s: %w", path, os.ErrExist)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Encode streams a single-HDU FITS file to w
func Encode(w io.Writer, axes []int, cards []fitsio.Card, data []float64, bitpix int) error {
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()

	im := fitsio.NewImage(bitpix, axes)
	defer im.Close()

	if err := im.Header().Append(cards...); err != nil {
		return err
	}

	switch bitpix {
	case -32:
		buf := make([]float32, len(data))
		for i, v := range data {
			buf[i] = float32(v)
		}
		err = im.Write(buf)
	case -64:
		err = im.Write(data)
	default:
		return fmt.Errorf("unsupported output BITPIX %d", bitpix)
	}
	if err != nil {
		return err
	}

	return fits.Write(im)
}
