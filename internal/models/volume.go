package models

// Volume represents a 3D volume produced by the reconstruction engine
type Volume struct {
	// Data is the 3D volume data as a 1D array in row-major order,
	// indexed as z*Width*Height + y*Width + x
	Data []float64

	// Width is the width of the volume in voxels
	Width int

	// Height is the height of the volume in voxels
	Height int

	// Depth is the number of axial slices
	Depth int

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize struct {
		X, Y, Z float64
	}
}

// At returns the voxel value at (x, y, z). Out-of-range coordinates yield 0.
func (v *Volume) At(x, y, z int) float64 {
	if x < 0 || y < 0 || z < 0 || x >= v.Width || y >= v.Height || z >= v.Depth {
		return 0
	}
	idx := z*v.Width*v.Height + y*v.Width + x
	if idx >= len(v.Data) {
		return 0
	}
	return v.Data[idx]
}

// Slice returns a copy of the axial slice at depth z
func (v *Volume) Slice(z int) []float64 {
	out := make([]float64, v.Width*v.Height)
	if z < 0 || z >= v.Depth {
		return out
	}
	start := z * v.Width * v.Height
	end := start + len(out)
	if end > len(v.Data) {
		end = len(v.Data)
	}
	if start < end {
		copy(out, v.Data[start:end])
	}
	return out
}

// Valid reports whether the dimensions match the data length
func (v *Volume) Valid() bool {
	return v != nil && v.Width > 0 && v.Height > 0 && v.Depth > 0 &&
		len(v.Data) == v.Width*v.Height*v.Depth
}
