package models

import "fmt"

// Label is the role assigned to an energy window by the user.
type Label int

const (
	// Unlabeled windows are not fed to the reconstruction.
	Unlabeled Label = iota

	// Main marks the photopeak window, the primary reconstruction input.
	Main

	// Scatter marks a window used to estimate scattered-photon contamination.
	Scatter
)

// String returns the text shown in the Label column. Unlabeled renders empty.
func (l Label) String() string {
	switch l {
	case Main:
		return "Main"
	case Scatter:
		return "Scatter"
	default:
		return ""
	}
}

// ParseLabel converts user or command-line input into a Label.
func ParseLabel(s string) (Label, error) {
	switch s {
	case "", "none", "None", "clear":
		return Unlabeled, nil
	case "main", "Main":
		return Main, nil
	case "scatter", "Scatter":
		return Scatter, nil
	}
	return Unlabeled, fmt.Errorf("unknown label %q", s)
}

// EnergyWindow represents one row of a study's energy-window table
type EnergyWindow struct {
	// Index is the stable 0-based position in the study's window list.
	// It is the value handed to the reconstruction engine.
	Index int

	// Name is the display name read from the acquisition
	Name string

	// LowerLimit and UpperLimit are the window bounds in keV
	LowerLimit float64
	UpperLimit float64

	// Label is the role currently assigned to the window
	Label Label
}

// Center returns the midpoint of the window in keV
func (w EnergyWindow) Center() float64 {
	return (w.LowerLimit + w.UpperLimit) / 2
}
