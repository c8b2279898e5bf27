// Package dicomtest writes small DICOM acquisitions for tests.
package dicomtest

import (
	"fmt"
	"os"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Window describes one energy window of a generated acquisition
type Window struct {
	Name         string
	Lower, Upper float64
}

// Acquisition describes the header of a generated file
type Acquisition struct {
	Modality  string
	ImageType []string
	Windows   []Window
}

// SPECT returns a tomographic NM acquisition with a Tc-99m photopeak at
// index 1 and scatter windows at 0 and 2.
func SPECT() Acquisition {
	return Acquisition{
		Modality:  "NM",
		ImageType: []string{"ORIGINAL", "PRIMARY", "TOMO", "EMISSION"},
		Windows: []Window{
			{Name: "Tc99m_Lower", Lower: 100, Upper: 110},
			{Name: "Tc99m_Peak", Lower: 126, Upper: 154},
			{Name: "Tc99m_Upper", Lower: 150, Upper: 160},
		},
	}
}

// MustElement wraps dicom.NewElement and panics on error
func MustElement(t tag.Tag, data any) *dicom.Element {
	el, err := dicom.NewElement(t, data)
	if err != nil {
		panic(fmt.Sprintf("dicomtest: element %v: %v", t, err))
	}
	return el
}

// Dataset builds the header dataset for a generated acquisition
func Dataset(a Acquisition) dicom.Dataset {
	elems := []*dicom.Element{
		MustElement(tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.20"}),
		MustElement(tag.MediaStorageSOPInstanceUID, []string{"1.2.826.0.1.3680043.2.1125.1"}),
		MustElement(tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		MustElement(tag.SOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.20"}),
		MustElement(tag.SOPInstanceUID, []string{"1.2.826.0.1.3680043.2.1125.1"}),
		MustElement(tag.PatientName, []string{"Phantom^Jaszczak"}),
		MustElement(tag.PatientID, []string{"PH-0001"}),
		MustElement(tag.StudyInstanceUID, []string{"1.2.826.0.1.3680043.2.1125.2"}),
		MustElement(tag.StudyDate, []string{"20240101"}),
		MustElement(tag.Modality, []string{a.Modality}),
		MustElement(tag.ImageType, a.ImageType),
		MustElement(tag.SeriesDescription, []string{"SPECT Tc99m"}),
	}

	if len(a.Windows) > 0 {
		var items [][]*dicom.Element
		for _, w := range a.Windows {
			rng := MustElement(tag.EnergyWindowRangeSequence, [][]*dicom.Element{{
				MustElement(tag.EnergyWindowLowerLimit, []string{fmt.Sprintf("%g", w.Lower)}),
				MustElement(tag.EnergyWindowUpperLimit, []string{fmt.Sprintf("%g", w.Upper)}),
			}})
			item := []*dicom.Element{rng}
			if w.Name != "" {
				item = append(item, MustElement(tag.EnergyWindowName, []string{w.Name}))
			}
			items = append(items, item)
		}
		elems = append(elems, MustElement(tag.EnergyWindowInformationSequence, items))
	}

	return dicom.Dataset{Elements: elems}
}

// Write writes the acquisition to path
func Write(tb testing.TB, path string, a Acquisition) {
	tb.Helper()
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()

	if err := dicom.Write(f, Dataset(a), dicom.SkipVRVerification()); err != nil {
		tb.Fatalf("Failed to write %s: %v", path, err)
	}
}
