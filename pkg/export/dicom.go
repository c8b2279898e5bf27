// Package export writes reconstructed volumes back to DICOM as an NM
// reconstruction series alongside the source acquisition's study.
package export

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"

	"spectrecon/internal/models"
	"spectrecon/pkg/study"
)

const (
	// nmImageStorage is the Nuclear Medicine Image Storage SOP class
	nmImageStorage = "1.2.840.10008.5.1.4.1.1.20"

	// explicitVRLittleEndian is the transfer syntax of written files
	explicitVRLittleEndian = "1.2.840.10008.1.2.1"
)

// copiedTags are patient and study attributes carried over from the source
var copiedTags = []tag.Tag{
	tag.PatientName,
	tag.PatientID,
	tag.PatientBirthDate,
	tag.PatientSex,
	tag.StudyInstanceUID,
	tag.StudyDate,
	tag.StudyTime,
	tag.StudyID,
	tag.StudyDescription,
	tag.AccessionNumber,
	tag.ReferringPhysicianName,
	tag.FrameOfReferenceUID,
	tag.Manufacturer,
}

// Result describes a written series
type Result struct {
	// Directory holds the written files
	Directory string

	// Files lists the slice files in order
	Files []string

	// SeriesInstanceUID is the UID assigned to the new series
	SeriesInstanceUID string
}

// Exporter writes volumes as single-frame NM slices
type Exporter struct {
	logger *slog.Logger
	now    func() time.Time
	write  func(name string, ds dicom.Dataset) error
}

// NewExporter creates an exporter
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger, now: time.Now, write: writeFile}
}

// Save writes vol into destination, which must not exist yet. Its parent
// directory must. label becomes the SeriesDescription.
//
// Every failure is returned as a *SaveError carrying the cause.
func (e *Exporter) Save(vol *models.Volume, source *study.Study, destination, label string) (*Result, error) {
	if vol == nil {
		return nil, &SaveError{Path: destination, Err: errors.New("no volume")}
	}
	if !vol.Valid() {
		return nil, &SaveError{Path: destination, Err: fmt.Errorf("invalid volume %dx%dx%d with %d voxels", vol.Width, vol.Height, vol.Depth, len(vol.Data))}
	}
	if err := os.Mkdir(destination, 0755); err != nil {
		return nil, &SaveError{Path: destination, Err: err}
	}

	res := &Result{Directory: destination, SeriesInstanceUID: NewUID()}
	stamp := e.now()
	for z := 0; z < vol.Depth; z++ {
		dataset := e.sliceDataset(vol, source, z, label, res.SeriesInstanceUID, stamp)

		name := filepath.Join(destination, fmt.Sprintf("%04d.dcm", z+1))
		if err := e.write(name, dataset); err != nil {
			// A partial series would block a retry under the same name
			if rmErr := os.RemoveAll(destination); rmErr != nil {
				e.logger.Warn("failed to remove partial series", "directory", destination, "error", rmErr)
			}
			return nil, &SaveError{Path: name, Err: err}
		}
		res.Files = append(res.Files, name)
	}

	e.logger.Info("saved reconstruction",
		"directory", destination,
		"slices", len(res.Files),
		"series", res.SeriesInstanceUID)
	return res, nil
}

// sliceDataset builds the dataset for axial slice z
func (e *Exporter) sliceDataset(vol *models.Volume, source *study.Study, z int, label, seriesUID string, stamp time.Time) dicom.Dataset {
	sopUID := NewUID()
	pixels, slope := quantize(vol.Slice(z))

	dx, dy, dz := vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z
	elems := []*dicom.Element{
		mustElement(tag.MediaStorageSOPClassUID, []string{nmImageStorage}),
		mustElement(tag.MediaStorageSOPInstanceUID, []string{sopUID}),
		mustElement(tag.TransferSyntaxUID, []string{explicitVRLittleEndian}),
		mustElement(tag.SOPClassUID, []string{nmImageStorage}),
		mustElement(tag.SOPInstanceUID, []string{sopUID}),
		mustElement(tag.Modality, []string{"NM"}),
		mustElement(tag.ImageType, []string{"ORIGINAL", "PRIMARY", "RECON TOMO", "EMISSION"}),
		mustElement(tag.SeriesInstanceUID, []string{seriesUID}),
		mustElement(tag.SeriesDescription, []string{label}),
		mustElement(tag.SeriesDate, []string{stamp.Format("20060102")}),
		mustElement(tag.SeriesTime, []string{stamp.Format("150405")}),
		mustElement(tag.InstanceNumber, []string{strconv.Itoa(z + 1)}),
		mustElement(tag.ImagePositionPatient, []string{decimal(0), decimal(0), decimal(float64(z) * dz)}),
		mustElement(tag.ImageOrientationPatient, []string{"1", "0", "0", "0", "1", "0"}),
		mustElement(tag.SliceThickness, []string{decimal(dz)}),
		mustElement(tag.PixelSpacing, []string{decimal(dy), decimal(dx)}),
		mustElement(tag.Rows, []int{vol.Height}),
		mustElement(tag.Columns, []int{vol.Width}),
		mustElement(tag.SamplesPerPixel, []int{1}),
		mustElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
		mustElement(tag.BitsAllocated, []int{16}),
		mustElement(tag.BitsStored, []int{16}),
		mustElement(tag.HighBit, []int{15}),
		mustElement(tag.PixelRepresentation, []int{0}),
		mustElement(tag.RescaleIntercept, []string{"0"}),
		mustElement(tag.RescaleSlope, []string{decimal(slope)}),
	}

	if source != nil {
		for _, t := range copiedTags {
			if el, err := source.Dataset.FindElementByTag(t); err == nil {
				elems = append(elems, el)
			}
		}
	}

	nativeFrame := frame.NewNativeFrame[uint16](16, vol.Height, vol.Width, len(pixels), 1)
	copy(nativeFrame.RawData, pixels)
	elems = append(elems, mustElement(tag.PixelData, dicom.PixelDataInfo{
		Frames: []*frame.Frame{{Encapsulated: false, NativeData: nativeFrame}},
	}))

	sortByTag(elems)
	return dicom.Dataset{Elements: elems}
}

// sortByTag orders elements by ascending (group, element) as files require
func sortByTag(elems []*dicom.Element) {
	sort.SliceStable(elems, func(i, j int) bool {
		a, b := elems[i].Tag, elems[j].Tag
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Element < b.Element
	})
}

// quantize maps non-negative floats onto uint16 and returns the rescale slope
// that restores the original values.
func quantize(values []float64) ([]uint16, float64) {
	peak := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}
	out := make([]uint16, len(values))
	if peak <= 0 {
		return out, 1
	}
	slope := peak / math.MaxUint16
	for i, v := range values {
		if v <= 0 {
			continue
		}
		out[i] = uint16(math.Round(v / slope))
	}
	return out, slope
}

// decimal formats a float as a DICOM decimal string (at most 16 characters)
func decimal(v float64) string {
	s := strconv.FormatFloat(v, 'g', 10, 64)
	if len(s) > 16 {
		s = strconv.FormatFloat(v, 'e', 8, 64)
	}
	return s
}

// NewUID returns a UUID-derived DICOM UID under the 2.25 root
func NewUID() string {
	id := uuid.New()
	return "2.25." + new(big.Int).SetBytes(id[:]).String()
}

func writeFile(name string, ds dicom.Dataset) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := dicom.Write(f, ds, dicom.SkipVRVerification()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func mustElement(t tag.Tag, data any) *dicom.Element {
	el, err := dicom.NewElement(t, data)
	if err != nil {
		panic(fmt.Sprintf("export: element %v: %v", t, err))
	}
	return el
}
