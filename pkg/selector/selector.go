// Package selector implements the energy-window labeling workflow that decides
// which windows of a SPECT acquisition are fed to the reconstruction engine.
//
// A Selector owns the window list of the loaded study and a single
// SelectionState. The state is mutated only through SetLabel and reset by
// LoadStudy, so the following always hold:
//   - at most one window is labeled Main
//   - at most two windows are labeled Scatter
//   - no window is both Main and Scatter
package selector

import (
	"spectrecon/internal/models"
)

// NoWindow marks an omitted window index in Inputs
const NoWindow = -1

// maxScatterWindows is the number of scatter windows the engine accepts
// (one below and one above the photopeak).
const maxScatterWindows = 2

// StudyKind carries the acquisition flags gating LoadStudy
type StudyKind struct {
	// TomographicSpect is true for a SPECT acquisition with tomographic image type
	TomographicSpect bool

	// Reconstructed is true when the image type already says RECON
	Reconstructed bool
}

// SelectionState records which windows are labeled. Indices refer to
// models.EnergyWindow.Index.
type SelectionState struct {
	main    int
	scatter []int
}

// Main returns the main window index, if one is set
func (s SelectionState) Main() (int, bool) {
	return s.main, s.main != NoWindow
}

// Scatter returns the scatter window indices in the order they were labeled
func (s SelectionState) Scatter() []int {
	return append([]int(nil), s.scatter...)
}

// Inputs is the window assignment handed to the reconstruction engine.
// Absent scatter windows are NoWindow.
type Inputs struct {
	MainIndex         int
	LowerScatterIndex int
	UpperScatterIndex int
}

// HasLowerScatter reports whether a lower scatter window was assigned
func (in Inputs) HasLowerScatter() bool { return in.LowerScatterIndex != NoWindow }

// HasUpperScatter reports whether an upper scatter window was assigned
func (in Inputs) HasUpperScatter() bool { return in.UpperScatterIndex != NoWindow }

// Selector tracks the displayed energy windows and their labels
type Selector struct {
	windows []models.EnergyWindow
	state   SelectionState
}

// New creates an empty selector with no study loaded
func New() *Selector {
	return &Selector{state: SelectionState{main: NoWindow}}
}

// LoadStudy replaces the window list and resets the selection.
//
// Only unreconstructed tomographic SPECT acquisitions are accepted. Anything
// else clears the display and returns ErrInvalidStudy; no partial state is kept.
func (s *Selector) LoadStudy(windows []models.EnergyWindow, kind StudyKind) error {
	s.Clear()
	if !kind.TomographicSpect || kind.Reconstructed {
		return ErrInvalidStudy
	}

	s.windows = make([]models.EnergyWindow, len(windows))
	for i, w := range windows {
		w.Label = models.Unlabeled
		s.windows[i] = w
	}
	return nil
}

// Clear drops the window list and the selection
func (s *Selector) Clear() {
	s.windows = nil
	s.state = SelectionState{main: NoWindow}
}

// Windows returns a copy of the window list with current labels
func (s *Selector) Windows() []models.EnergyWindow {
	return append([]models.EnergyWindow(nil), s.windows...)
}

// State returns a snapshot of the current selection
func (s *Selector) State() SelectionState {
	return SelectionState{main: s.state.main, scatter: s.state.Scatter()}
}

// SetLabel applies a labeling action to the window at position index.
//
//   - Main: any previous Main is cleared first, then the target becomes Main.
//   - Scatter: toggles the target off if it is already Scatter; otherwise it is
//     added when fewer than two scatter windows exist. A third scatter window is
//     silently ignored.
//   - Unlabeled: clears whatever label the target holds.
//
// A window moving between Main and Scatter is cleared before the new label is
// applied. The only error is ErrUnknownWindow.
func (s *Selector) SetLabel(index int, label models.Label) error {
	pos := s.position(index)
	if pos < 0 {
		return ErrUnknownWindow
	}

	switch label {
	case models.Main:
		if s.windows[pos].Label == models.Main {
			return nil
		}
		s.clear(pos)
		if prev := s.position(s.state.main); prev >= 0 {
			s.windows[prev].Label = models.Unlabeled
		}
		s.state.main = index
		s.windows[pos].Label = models.Main

	case models.Scatter:
		switch s.windows[pos].Label {
		case models.Scatter:
			s.clear(pos)
			return nil
		case models.Main:
			s.clear(pos)
		}
		if len(s.state.scatter) >= maxScatterWindows {
			return nil
		}
		s.state.scatter = append(s.state.scatter, index)
		s.windows[pos].Label = models.Scatter

	default:
		s.clear(pos)
	}
	return nil
}

// clear removes the label held by the window at slice position pos
func (s *Selector) clear(pos int) {
	w := &s.windows[pos]
	switch w.Label {
	case models.Main:
		s.state.main = NoWindow
	case models.Scatter:
		for i, idx := range s.state.scatter {
			if idx == w.Index {
				s.state.scatter = append(s.state.scatter[:i], s.state.scatter[i+1:]...)
				break
			}
		}
	}
	w.Label = models.Unlabeled
}

// position maps a window index to its slice position, or -1
func (s *Selector) position(index int) int {
	if index == NoWindow {
		return -1
	}
	for i, w := range s.windows {
		if w.Index == index {
			return i
		}
	}
	return -1
}

// ResolveReconstructionInputs derives the engine inputs from the selection.
//
// Scatter windows are not labeled upper or lower by the user. With two scatter
// windows the one with the smaller lower limit is the lower scatter window.
// With one, it is the lower scatter window only if its lower limit is strictly
// below the main window's; ties resolve to upper.
func (s *Selector) ResolveReconstructionInputs() (Inputs, error) {
	mainPos := s.position(s.state.main)
	if mainPos < 0 {
		return Inputs{}, ErrMissingMainWindow
	}

	in := Inputs{
		MainIndex:         s.state.main,
		LowerScatterIndex: NoWindow,
		UpperScatterIndex: NoWindow,
	}

	switch len(s.state.scatter) {
	case 2:
		a := s.windows[s.position(s.state.scatter[0])]
		b := s.windows[s.position(s.state.scatter[1])]
		if a.LowerLimit < b.LowerLimit {
			in.LowerScatterIndex, in.UpperScatterIndex = a.Index, b.Index
		} else {
			in.LowerScatterIndex, in.UpperScatterIndex = b.Index, a.Index
		}
	case 1:
		sc := s.windows[s.position(s.state.scatter[0])]
		if sc.LowerLimit < s.windows[mainPos].LowerLimit {
			in.LowerScatterIndex = sc.Index
		} else {
			in.UpperScatterIndex = sc.Index
		}
	}
	return in, nil
}
