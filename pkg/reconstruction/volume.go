package reconstruction

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"spectrecon/internal/models"
)

// volumeHeader is the JSON sidecar written by the bridge
type volumeHeader struct {
	Shape     []int     `json:"shape"`
	VoxelSize []float64 `json:"voxel_size"`
}

// ReadVolume loads volume.json and volume.f32 from dir
func ReadVolume(dir string) (*models.Volume, error) {
	raw, err := os.ReadFile(filepath.Join(dir, HeaderFile))
	if err != nil {
		return nil, err
	}
	var hdr volumeHeader
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", HeaderFile, err)
	}
	if len(hdr.Shape) != 3 || hdr.Shape[0] <= 0 || hdr.Shape[1] <= 0 || hdr.Shape[2] <= 0 {
		return nil, fmt.Errorf("invalid volume shape %v", hdr.Shape)
	}

	vol := &models.Volume{Width: hdr.Shape[0], Height: hdr.Shape[1], Depth: hdr.Shape[2]}
	vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z = 1, 1, 1
	if len(hdr.VoxelSize) == 3 {
		vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z = hdr.VoxelSize[0], hdr.VoxelSize[1], hdr.VoxelSize[2]
	}

	f, err := os.Open(filepath.Join(dir, DataFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	n, ok := voxelCount(hdr.Shape)
	if !ok || int64(n)*4 != info.Size() {
		return nil, fmt.Errorf("volume shape %v does not match %s of %d bytes", hdr.Shape, DataFile, info.Size())
	}
	vol.Data, err = readFloat32s(bufio.NewReader(f), n)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", DataFile, err)
	}
	return vol, nil
}

// WriteVolume writes vol in the bridge format. It is the inverse of ReadVolume
// and is used by fake engines.
func WriteVolume(dir string, vol *models.Volume) error {
	hdr := volumeHeader{
		Shape:     []int{vol.Width, vol.Height, vol.Depth},
		VoxelSize: []float64{vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z},
	}
	raw, err := json.Marshal(hdr)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, HeaderFile), raw, 0644); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, DataFile))
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	buf := make([]byte, 4)
	for _, v := range vol.Data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
		if _, err := w.Write(buf); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// voxelCount multiplies the dimensions. It reports false when the product
// overflows the file size or exceeds MaxInt32 voxels.
func voxelCount(shape []int) (int, bool) {
	n := int64(1)
	for _, d := range shape {
		if d <= 0 || n > math.MaxInt64/4/int64(d) {
			return 0, false
		}
		n *= int64(d)
	}
	if n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

func readFloat32s(r io.Reader, n int) ([]float64, error) {
	out := make([]float64, n)
	buf := make([]byte, 4)
	for i := range out {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("voxel %d of %d: %w", i, n, err)
		}
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	}
	return out, nil
}
