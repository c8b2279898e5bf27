package selector

import "errors"

var (
	// ErrInvalidStudy is returned when the loaded file is not an
	// unreconstructed tomographic SPECT acquisition.
	ErrInvalidStudy = errors.New("not an unreconstructed tomographic SPECT acquisition")

	// ErrMissingMainWindow is returned when reconstruction is requested
	// before a main window was labeled.
	ErrMissingMainWindow = errors.New("no main energy window assigned")

	// ErrInvalidParameters is returned for non-positive iteration or subset counts.
	ErrInvalidParameters = errors.New("iterations and subsets must be positive integers")

	// ErrUnknownWindow is returned when labeling an index outside the loaded list.
	ErrUnknownWindow = errors.New("unknown energy window")
)
