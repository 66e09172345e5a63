package cutout

import (
	"math"
	"testing"
)

func TestComputeStats(t *testing.T) {
	st := computeStats([]float64{1, 2, math.NaN(), 3, math.Inf(1), 6})
	if st.Count != 4 {
		t.Errorf("Expected 4 finite pixels, got %d", st.Count)
	}
	if st.Mean != 3 || st.Min != 1 || st.Max != 6 {
		t.Errorf("Unexpected stats %+v", st)
	}
	// Sample standard deviation of 1,2,3,6
	if math.Abs(st.StdDev-math.Sqrt(14.0/3)) > 1e-12 {
		t.Errorf("Expected std %f, got %f", math.Sqrt(14.0/3), st.StdDev)
	}

	if st := computeStats([]float64{7}); st.Count != 1 || st.StdDev != 0 {
		t.Errorf("Expected zero spread for one pixel, got %+v", st)
	}
	if st := computeStats([]float64{math.NaN()}); st.Count != 0 {
		t.Errorf("Expected empty stats for a blank cutout, got %+v", st)
	}
}
