package cutout

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"fitscutout/internal/models"
)

// computeStats summarises the finite pixels of a cutout. Blanked (NaN)
// pixels are common at mosaic edges and are left out.
func computeStats(data []float64) models.Stats {
	finite := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return models.Stats{}
	}

	mean, std := stat.MeanStdDev(finite, nil)
	if len(finite) == 1 {
		std = 0
	}
	return models.Stats{
		Count:  len(finite),
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(finite),
		Max:    floats.Max(finite),
	}
}
