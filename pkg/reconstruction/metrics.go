package reconstruction

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"spectrecon/internal/models"
)

// Stats summarises a reconstructed volume for display after a run
type Stats struct {
	// Min and Max are the extreme voxel values
	Min float64
	Max float64

	// Mean and StdDev are computed over all voxels
	Mean   float64
	StdDev float64

	// Total is the sum of all voxel values (reconstructed counts)
	Total float64

	// NonZero is the fraction of voxels above zero
	NonZero float64
}

// Summarize computes Stats for vol. An empty volume yields zero Stats.
func Summarize(vol *models.Volume) Stats {
	if vol == nil || len(vol.Data) == 0 {
		return Stats{}
	}
	data := vol.Data

	var s Stats
	s.Min = floats.Min(data)
	s.Max = floats.Max(data)
	s.Total = floats.Sum(data)
	s.Mean, s.StdDev = stat.MeanStdDev(data, nil)

	positive := 0
	for _, v := range data {
		if v > 0 {
			positive++
		}
	}
	s.NonZero = float64(positive) / float64(len(data))
	return s
}
