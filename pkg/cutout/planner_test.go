package cutout

import (
	"errors"
	"math"
	"testing"

	"fitscutout/pkg/fitsimage"
)

// TestPlanWindowCentred covers a 1000x1000 image with 0.0005 deg pixels and
// a 0.04166 deg request: 84 pixels, widened to 85 by the parity step
func TestPlanWindowCentred(t *testing.T) {
	win, err := PlanWindow(500, 500, 1000, 1000, -0.0005, 0.04166)
	if err != nil {
		t.Fatalf("PlanWindow failed: %v", err)
	}

	if win.ImSize != 85 {
		t.Errorf("Expected imsize 85, got %d", win.ImSize)
	}
	if win.XStart != 458 || win.XEnd != 543 || win.YStart != 458 || win.YEnd != 543 {
		t.Errorf("Unexpected window %s", win)
	}
	if win.XPix != 500 || win.YPix != 500 {
		t.Errorf("Expected centre (500, 500), got (%d, %d)", win.XPix, win.YPix)
	}
}

func TestPlanWindowOddSize(t *testing.T) {
	win, err := PlanWindow(50.2, 49.7, 100, 100, 0.25, 5.25)
	if err != nil {
		t.Fatalf("PlanWindow failed: %v", err)
	}
	if win.ImSize != 21 {
		t.Errorf("Expected imsize 21, got %d", win.ImSize)
	}
	if win.XStart != 40 || win.XEnd != 61 || win.YStart != 40 || win.YEnd != 61 {
		t.Errorf("Unexpected window %s", win)
	}
}

// TestPlanWindowLengthMatchesImSize checks that the declared size always
// equals the extracted pixel count, for even and odd requests
func TestPlanWindowLengthMatchesImSize(t *testing.T) {
	for npix := 1; npix <= 64; npix++ {
		for _, centre := range [][2]float64{{100, 100}, {3, 100}, {100, 197}, {0.4, 0.4}, {199, 0}} {
			win, err := PlanWindow(centre[0], centre[1], 200, 200, 1, float64(npix))
			if err != nil {
				t.Fatalf("npix=%d centre=%v: %v", npix, centre, err)
			}
			if win.ImSize < 1 {
				t.Errorf("npix=%d centre=%v: imsize %d < 1", npix, centre, win.ImSize)
			}
			if win.Width() != win.ImSize || win.Height() != win.ImSize {
				t.Errorf("npix=%d centre=%v: window %s spans %dx%d",
					npix, centre, win, win.Width(), win.Height())
			}
			if win.ImSize%2 == 0 {
				t.Errorf("npix=%d centre=%v: centred window has even size %d", npix, centre, win.ImSize)
			}
		}
	}
}

func TestPlanWindowClampsNearEdge(t *testing.T) {
	// 40 -> 20 -> 10 fits at x=5, then parity makes it 11
	win, err := PlanWindow(5, 50, 100, 100, 1, 40)
	if err != nil {
		t.Fatalf("PlanWindow failed: %v", err)
	}
	if !win.Within(100, 100) {
		t.Errorf("Expected window inside the image, got %s", win)
	}
	if win.ImSize != 11 || win.XStart != 0 || win.XEnd != 11 {
		t.Errorf("Expected an 11 pixel window starting at x=0, got %s", win)
	}

	// Upper edges use the matching axis length
	win, err = PlanWindow(50, 296, 100, 300, 1, 20)
	if err != nil {
		t.Fatalf("PlanWindow failed: %v", err)
	}
	if !win.Within(100, 300) || win.ImSize != 5 {
		t.Errorf("Expected a 5 pixel window inside 100x300, got %s", win)
	}
}

// TestPlanWindowDegradesAtOutermostPixel verifies that a centre on the first
// pixel halves down to 2 pixels and is then left overhanging the edge
func TestPlanWindowDegradesAtOutermostPixel(t *testing.T) {
	win, err := PlanWindow(0, 50, 100, 100, 1, 40)
	if err != nil {
		t.Fatalf("PlanWindow failed: %v", err)
	}
	if win.ImSize != 3 {
		t.Errorf("Expected imsize 2 widened to 3, got %d", win.ImSize)
	}
	if win.Within(100, 100) {
		t.Errorf("Expected the degenerate window to overhang the edge, got %s", win)
	}

	// A request of at most 2 pixels is never shrunk
	win, err = PlanWindow(0, 0, 100, 100, 1, 1)
	if err != nil {
		t.Fatalf("PlanWindow failed: %v", err)
	}
	if win.ImSize != 1 || !win.Within(100, 100) {
		t.Errorf("Expected a single pixel window, got %s", win)
	}
}

func TestPlanWindowRejectsOffImageCentre(t *testing.T) {
	tests := []struct {
		name   string
		fx, fy float64
	}{
		{"left", -0.6, 50},
		{"right", 99.5, 50},
		{"below", 50, -3},
		{"above", 50, 100},
		{"far away", 1e30, -1e30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlanWindow(tt.fx, tt.fy, 100, 100, 1, 10)
			if !errors.Is(err, ErrOutsideImage) {
				t.Errorf("Expected ErrOutsideImage, got %v", err)
			}
		})
	}

	// Within half a pixel of the edge still rounds onto the image
	if _, err := PlanWindow(-0.4, 99.4, 100, 100, 1, 10); err != nil {
		t.Errorf("Expected a centre within half a pixel of the edge to be accepted, got %v", err)
	}
}

func TestPlanWindowInvalidInput(t *testing.T) {
	if _, err := PlanWindow(5, 5, 10, 10, 0, 1); !errors.Is(err, fitsimage.ErrPixelScale) {
		t.Errorf("Expected ErrPixelScale for zero CDELT1, got %v", err)
	}
	if _, err := PlanWindow(5, 5, 10, 10, 1, 0); err == nil {
		t.Error("Expected an error for zero size")
	}
	if _, err := PlanWindow(5, 5, 10, 10, 1, -3); err == nil {
		t.Error("Expected an error for negative size")
	}
	if _, err := PlanWindow(5, 5, 10, 10, 1e-300, 1e10); err == nil {
		t.Error("Expected an error for an absurdly large window")
	}

	_, err := PlanWindow(math.NaN(), 5, 10, 10, 1, 1)
	if err == nil || errors.Is(err, ErrOutsideImage) {
		t.Errorf("Expected a failure (not a skip) for a NaN pixel, got %v", err)
	}
}
