// Package study reads SPECT acquisitions and extracts their energy-window table.
package study

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"spectrecon/internal/models"
	"spectrecon/pkg/selector"
)

// Modalities accepted as SPECT. ST is the retired SPECT modality code.
var spectModalities = map[string]bool{"NM": true, "ST": true}

// ErrMissingEnergyWindows is returned when the file has no usable
// EnergyWindowInformationSequence.
var ErrMissingEnergyWindows = errors.New("no energy window information")

// Study is a parsed acquisition file
type Study struct {
	// Path is the file the study was read from
	Path string

	// Modality is the value of (0008,0060)
	Modality string

	// ImageType holds the values of (0008,0008), upper-cased
	ImageType []string

	// SeriesDescription is the value of (0008,103E), if present
	SeriesDescription string

	// Windows is the energy-window table in acquisition order
	Windows []models.EnergyWindow

	// Dataset is the parsed header, pixel data skipped. The exporter copies
	// patient and study attributes from it.
	Dataset dicom.Dataset
}

// Load parses the file at path and extracts the energy-window table.
//
// The acquisition type is not checked here; callers gate on Kind so that a
// rejected study still reports what was read.
func Load(path string) (*Study, error) {
	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return FromDataset(path, ds)
}

// FromDataset builds a Study from an already parsed dataset
func FromDataset(path string, ds dicom.Dataset) (*Study, error) {
	s := &Study{Path: path, Dataset: ds}
	s.Modality = strings.TrimSpace(firstString(&ds, tag.Modality))
	for _, v := range stringValues(&ds, tag.ImageType) {
		s.ImageType = append(s.ImageType, strings.ToUpper(strings.TrimSpace(v)))
	}
	s.SeriesDescription = strings.TrimSpace(firstString(&ds, tag.SeriesDescription))

	if kind := s.Kind(); !kind.TomographicSpect || kind.Reconstructed {
		// Only raw SPECT projections carry an energy-window table worth
		// reading. Leave it empty and let the selector reject the study.
		return s, nil
	}

	windows, err := readEnergyWindows(&ds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Windows = windows
	return s, nil
}

// Kind reports the acquisition flags used to gate the selector
func (s *Study) Kind() selector.StudyKind {
	return selector.StudyKind{
		TomographicSpect: spectModalities[strings.ToUpper(s.Modality)] && s.hasImageType("TOMO"),
		Reconstructed:    s.hasImageType("RECON"),
	}
}

// hasImageType reports whether any ImageType value contains flag as a word.
// Values such as "RECON TOMO" carry several flags.
func (s *Study) hasImageType(flag string) bool {
	for _, v := range s.ImageType {
		for _, f := range strings.Fields(v) {
			if f == flag {
				return true
			}
		}
	}
	return false
}

// readEnergyWindows walks EnergyWindowInformationSequence (0054,0012)
func readEnergyWindows(ds *dicom.Dataset) ([]models.EnergyWindow, error) {
	el, err := ds.FindElementByTag(tag.EnergyWindowInformationSequence)
	if err != nil {
		return nil, ErrMissingEnergyWindows
	}
	items, ok := el.Value.GetValue().([]*dicom.SequenceItemValue)
	if !ok || len(items) == 0 {
		return nil, ErrMissingEnergyWindows
	}

	windows := make([]models.EnergyWindow, 0, len(items))
	for i, item := range items {
		elems, _ := item.GetValue().([]*dicom.Element)

		name := strings.TrimSpace(firstStringIn(elems, tag.EnergyWindowName))
		if name == "" {
			name = fmt.Sprintf("Window %d", i+1)
		}

		lower, upper, err := readRange(elems)
		if err != nil {
			return nil, fmt.Errorf("energy window %d: %w", i, err)
		}

		windows = append(windows, models.EnergyWindow{
			Index:      i,
			Name:       name,
			LowerLimit: lower,
			UpperLimit: upper,
		})
	}
	return windows, nil
}

// readRange reads the first item of EnergyWindowRangeSequence (0054,0013)
func readRange(elems []*dicom.Element) (float64, float64, error) {
	el := findIn(elems, tag.EnergyWindowRangeSequence)
	if el == nil {
		return 0, 0, errors.New("missing EnergyWindowRangeSequence")
	}
	items, ok := el.Value.GetValue().([]*dicom.SequenceItemValue)
	if !ok || len(items) == 0 {
		return 0, 0, errors.New("empty EnergyWindowRangeSequence")
	}
	rng, _ := items[0].GetValue().([]*dicom.Element)

	lower, err := floatValue(findIn(rng, tag.EnergyWindowLowerLimit))
	if err != nil {
		return 0, 0, fmt.Errorf("EnergyWindowLowerLimit: %w", err)
	}
	upper, err := floatValue(findIn(rng, tag.EnergyWindowUpperLimit))
	if err != nil {
		return 0, 0, fmt.Errorf("EnergyWindowUpperLimit: %w", err)
	}
	return lower, upper, nil
}

func findIn(elems []*dicom.Element, t tag.Tag) *dicom.Element {
	for _, e := range elems {
		if e != nil && e.Tag == t {
			return e
		}
	}
	return nil
}

// floatValue reads the first value of a DS, FL or FD element
func floatValue(el *dicom.Element) (float64, error) {
	if el == nil {
		return 0, errors.New("missing")
	}
	switch v := el.Value.GetValue().(type) {
	case []string:
		if len(v) == 0 {
			return 0, errors.New("empty")
		}
		return strconv.ParseFloat(strings.TrimSpace(v[0]), 64)
	case []float64:
		if len(v) == 0 {
			return 0, errors.New("empty")
		}
		return v[0], nil
	case []int:
		if len(v) == 0 {
			return 0, errors.New("empty")
		}
		return float64(v[0]), nil
	}
	return 0, fmt.Errorf("unexpected value type %v", el.Value.ValueType())
}

func stringValues(ds *dicom.Dataset, t tag.Tag) []string {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return nil
	}
	v, _ := el.Value.GetValue().([]string)
	return v
}

func firstString(ds *dicom.Dataset, t tag.Tag) string {
	if v := stringValues(ds, t); len(v) > 0 {
		return v[0]
	}
	return ""
}

func firstStringIn(elems []*dicom.Element, t tag.Tag) string {
	el := findIn(elems, t)
	if el == nil {
		return ""
	}
	if v, ok := el.Value.GetValue().([]string); ok && len(v) > 0 {
		return v[0]
	}
	return ""
}
