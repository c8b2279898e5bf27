package session

import (
	"context"
	"errors"

	"spectrecon/pkg/export"
	"spectrecon/pkg/reconstruction"
	"spectrecon/pkg/selector"
)

// Notification is a blocking message shown to the user
type Notification struct {
	Title   string
	Message string
}

// UserMessage maps an error to the notification shown to the user. Save
// failures share one generic message; the cause stays in the error for the log.
func UserMessage(err error) Notification {
	var saveErr *export.SaveError
	var engineErr *reconstruction.EngineError

	switch {
	case errors.Is(err, selector.ErrInvalidStudy):
		return Notification{"Error", "Please select an unreconstructed SPECT image."}
	case errors.Is(err, selector.ErrMissingMainWindow):
		return Notification{"No Main Window", "Please assign a 'Main Window' before reconstructing."}
	case errors.Is(err, selector.ErrInvalidParameters):
		return Notification{"Error", "Please enter positive numbers for the iterations and subsets."}
	case errors.Is(err, ErrNoStudy):
		return Notification{"Error", "Please select a DICOM file first."}
	case errors.Is(err, ErrNoReconstruction):
		return Notification{"Error", "Please create a reconstruction."}
	case errors.As(err, &saveErr):
		return Notification{"Error", "Please create a new folder."}
	case errors.Is(err, context.Canceled):
		return Notification{"Cancelled", "Reconstruction cancelled."}
	case errors.Is(err, context.DeadlineExceeded):
		return Notification{"Error", "Reconstruction timed out."}
	case errors.As(err, &engineErr):
		return Notification{"Reconstruction Failed", engineErr.Error()}
	case err != nil:
		return Notification{"Error", err.Error()}
	}
	return Notification{}
}
