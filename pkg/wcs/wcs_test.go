package wcs

import (
	"errors"
	"math"
	"testing"
)

// mapHeader is a minimal Header backed by a map
type mapHeader map[string]any

func (h mapHeader) Float(key string) (float64, bool) {
	switch v := h[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func (h mapHeader) String(key string) (string, bool) {
	v, ok := h[key].(string)
	return v, ok
}

// testHeader describes a 1000x1000 image centred on (218, 34.5)
func testHeader(code string) mapHeader {
	return mapHeader{
		"CTYPE1": "RA---" + code,
		"CTYPE2": "DEC--" + code,
		"CRPIX1": 501.0,
		"CRPIX2": 501.0,
		"CRVAL1": 218.0,
		"CRVAL2": 34.5,
		"CDELT1": -0.0005,
		"CDELT2": 0.0005,
	}
}

func TestReferencePixel(t *testing.T) {
	for code := range projections {
		t.Run(code, func(t *testing.T) {
			w, err := New(testHeader(code))
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			x, y, err := w.Project(218.0, 34.5)
			if err != nil {
				t.Fatalf("Project failed: %v", err)
			}
			if math.Abs(x-500) > 1e-9 || math.Abs(y-500) > 1e-9 {
				t.Errorf("Expected reference value at pixel (500, 500), got (%f, %f)", x, y)
			}

			lon, lat, err := w.Unproject(500, 500)
			if err != nil {
				t.Fatalf("Unproject failed: %v", err)
			}
			if math.Abs(lon-218) > 1e-9 || math.Abs(lat-34.5) > 1e-9 {
				t.Errorf("Expected (218, 34.5) at reference pixel, got (%f, %f)", lon, lat)
			}
		})
	}
}

// TestRoundTrip verifies unproject(project(c)) == c across the image
func TestRoundTrip(t *testing.T) {
	coords := [][2]float64{
		{218.0, 34.5},
		{218.2, 34.6},
		{217.75, 34.3},
		{218.01, 34.72},
	}

	for code := range projections {
		w, err := New(testHeader(code))
		if err != nil {
			t.Fatalf("%s: New failed: %v", code, err)
		}
		for _, c := range coords {
			x, y, err := w.Project(c[0], c[1])
			if err != nil {
				t.Fatalf("%s: Project(%v) failed: %v", code, c, err)
			}
			lon, lat, err := w.Unproject(x, y)
			if err != nil {
				t.Fatalf("%s: Unproject(%f, %f) failed: %v", code, x, y, err)
			}
			if math.Abs(lon-c[0]) > 1e-9 || math.Abs(lat-c[1]) > 1e-9 {
				t.Errorf("%s: round trip of %v gave (%.12f, %.12f)", code, c, lon, lat)
			}
		}
	}
}

// TestAxisOrientation checks the sign conventions: with a negative CDELT1
// right ascension decreases as x grows, and declination grows with y
func TestAxisOrientation(t *testing.T) {
	w, err := New(testHeader("TAN"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	lonRight, latRight, _ := w.Unproject(510, 500)
	if lonRight >= 218 {
		t.Errorf("Expected RA to decrease with x, got %f at x=510", lonRight)
	}
	if math.Abs(latRight-34.5) > 1e-4 {
		t.Errorf("Expected dec to stay near 34.5 along x, got %f", latRight)
	}

	_, latUp, _ := w.Unproject(500, 510)
	if latUp <= 34.5 {
		t.Errorf("Expected dec to increase with y, got %f at y=510", latUp)
	}

	// 10 pixels of 0.0005 deg near the reference point
	if math.Abs(latUp-34.5-0.005) > 1e-6 {
		t.Errorf("Expected dec offset of 0.005, got %f", latUp-34.5)
	}
}

func TestCDMatrixAndRotation(t *testing.T) {
	cd := testHeader("SIN")
	delete(cd, "CDELT1")
	delete(cd, "CDELT2")
	cd["CD1_1"] = -0.0005
	cd["CD2_2"] = 0.0005

	plain, err := New(testHeader("SIN"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	fromCD, err := New(cd)
	if err != nil {
		t.Fatalf("New with CD matrix failed: %v", err)
	}

	x1, y1, _ := plain.Project(218.1, 34.55)
	x2, y2, _ := fromCD.Project(218.1, 34.55)
	if math.Abs(x1-x2) > 1e-9 || math.Abs(y1-y2) > 1e-9 {
		t.Errorf("CD matrix and CDELT disagree: (%f, %f) vs (%f, %f)", x1, y1, x2, y2)
	}

	rotated := testHeader("SIN")
	rotated["CROTA2"] = 90.0
	rw, err := New(rotated)
	if err != nil {
		t.Fatalf("New with CROTA2 failed: %v", err)
	}
	_, lat, _ := rw.Unproject(510, 500)
	if math.Abs(lat-34.5) < 1e-3 {
		t.Errorf("Expected a 90 degree rotation to move x offsets into declination, got dec %f", lat)
	}
	x, y, err := rw.Project(218.05, 34.45)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	lon, lat, _ := rw.Unproject(x, y)
	if math.Abs(lon-218.05) > 1e-9 || math.Abs(lat-34.45) > 1e-9 {
		t.Errorf("Rotated round trip gave (%f, %f)", lon, lat)
	}
}

func TestUnsupportedProjection(t *testing.T) {
	tests := []mapHeader{
		{"CTYPE1": "RA---CAR", "CTYPE2": "DEC--CAR"},
		{"CTYPE1": "RA---SIN", "CTYPE2": "DEC--TAN"},
		{"CTYPE1": "DEC--SIN", "CTYPE2": "RA---SIN"},
		{"CTYPE1": "FREQ", "CTYPE2": "STOKES"},
		{"CTYPE1": "RA---SIN"},
	}

	for _, h := range tests {
		if _, err := New(h); !errors.Is(err, ErrUnsupportedProjection) {
			t.Errorf("Expected ErrUnsupportedProjection for %v, got %v", h, err)
		}
	}
}

func TestFarHemisphere(t *testing.T) {
	for _, code := range []string{"TAN", "SIN"} {
		w, err := New(testHeader(code))
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if _, _, err := w.Project(38.0, -34.5); !errors.Is(err, ErrProjection) {
			t.Errorf("%s: expected ErrProjection for the antipode, got %v", code, err)
		}
	}
}

func TestInvalidLatitude(t *testing.T) {
	w, err := New(testHeader("TAN"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, _, err := w.Project(218, 91); !errors.Is(err, ErrProjection) {
		t.Errorf("Expected ErrProjection for dec=91, got %v", err)
	}
	if _, _, err := w.Project(math.NaN(), 0); !errors.Is(err, ErrProjection) {
		t.Errorf("Expected ErrProjection for NaN RA, got %v", err)
	}
}

func TestLongitudeWrap(t *testing.T) {
	h := testHeader("SIN")
	h["CRVAL1"] = 0.01

	w, err := New(h)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	x, y, err := w.Project(359.99, 34.5)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	lon, _, err := w.Unproject(x, y)
	if err != nil {
		t.Fatalf("Unproject failed: %v", err)
	}
	if math.Abs(lon-359.99) > 1e-9 {
		t.Errorf("Expected longitude 359.99 across the wrap, got %f", lon)
	}
}
