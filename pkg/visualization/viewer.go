// Package visualization renders preview images of reconstructed volumes.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"spectrecon/internal/models"
)

// Viewer extracts and saves 2D views of a reconstructed volume
type Viewer struct {
	// volume holds the reconstructed data
	volume *models.Volume

	// peak is the maximum voxel value, used to normalise intensities
	peak float64

	// scale is the integer upscaling factor applied when saving
	scale int
}

// NewViewer creates a viewer for vol. Saved images are upscaled by scale,
// which is clamped to at least 1.
func NewViewer(vol *models.Volume, scale int) *Viewer {
	if scale < 1 {
		scale = 1
	}
	peak := 0.0
	for _, v := range vol.Data {
		if v > peak {
			peak = v
		}
	}
	return &Viewer{volume: vol, peak: peak, scale: scale}
}

// gray maps a voxel value onto the 16-bit display range
func (v *Viewer) gray(value float64) color.Gray16 {
	if v.peak <= 0 || value <= 0 {
		return color.Gray16{}
	}
	return color.Gray16{Y: uint16(math.Min(65535, value/v.peak*65535))}
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	vol := v.volume

	var img *image.Gray16
	switch axis {
	case "x", "X":
		// Sagittal: YZ plane
		if position >= vol.Width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, vol.Width)
		}
		img = image.NewGray16(image.Rect(0, 0, vol.Depth, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for z := 0; z < vol.Depth; z++ {
				img.SetGray16(z, y, v.gray(vol.At(position, y, z)))
			}
		}

	case "y", "Y":
		// Coronal: XZ plane
		if position >= vol.Height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, vol.Height)
		}
		img = image.NewGray16(image.Rect(0, 0, vol.Width, vol.Depth))
		for z := 0; z < vol.Depth; z++ {
			for x := 0; x < vol.Width; x++ {
				img.SetGray16(x, z, v.gray(vol.At(x, position, z)))
			}
		}

	case "z", "Z":
		// Transaxial: XY plane
		if position >= vol.Depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, vol.Depth)
		}
		img = image.NewGray16(image.Rect(0, 0, vol.Width, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				img.SetGray16(x, y, v.gray(vol.At(x, y, position)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// MaximumIntensityProjection projects the volume onto the XZ plane (coronal
// view), keeping the brightest voxel along Y.
func (v *Viewer) MaximumIntensityProjection() image.Image {
	vol := v.volume
	img := image.NewGray16(image.Rect(0, 0, vol.Width, vol.Depth))
	for z := 0; z < vol.Depth; z++ {
		for x := 0; x < vol.Width; x++ {
			brightest := 0.0
			for y := 0; y < vol.Height; y++ {
				brightest = math.Max(brightest, vol.At(x, y, z))
			}
			img.SetGray16(x, z, v.gray(brightest))
		}
	}
	return img
}

// Upscale enlarges img by the viewer's scale factor. SPECT matrices are
// small (64 or 128 voxels), so previews are unreadable at native size.
func (v *Viewer) Upscale(img image.Image) image.Image {
	if v.scale == 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewGray16(image.Rect(0, 0, b.Dx()*v.scale, b.Dy()*v.scale))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// SaveSlice saves an image as an upscaled PNG
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := png.Encode(file, v.Upscale(img)); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.volume.Width
	case "y", "Y":
		maxPos = v.volume.Height
	case "z", "Z":
		maxPos = v.volume.Depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// SavePreviews writes the transaxial slice sequence and a coronal MIP into
// outputDir.
func (v *Viewer) SavePreviews(outputDir string) error {
	if err := v.SaveSliceSequence("z", filepath.Join(outputDir, "z")); err != nil {
		return err
	}
	return v.SaveSlice(v.MaximumIntensityProjection(), filepath.Join(outputDir, "mip.png"))
}
