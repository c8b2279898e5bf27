package reconstruction

import (
	"context"

	"spectrecon/internal/models"
	"spectrecon/pkg/selector"
)

// Request is one reconstruction job
type Request struct {
	// StudyPath is the acquisition file the windows were selected from
	StudyPath string

	// Inputs is the resolved main/scatter window assignment
	Inputs selector.Inputs

	// Iterations and Subsets are the OSEM parameters
	Iterations int
	Subsets    int
}

// Engine reconstructs a volume from a SPECT acquisition.
// Implementations own the reconstruction mathematics.
type Engine interface {
	Reconstruct(ctx context.Context, req Request) (*models.Volume, error)
}

// EngineFunc adapts a function to the Engine interface
type EngineFunc func(ctx context.Context, req Request) (*models.Volume, error)

// Reconstruct calls f
func (f EngineFunc) Reconstruct(ctx context.Context, req Request) (*models.Volume, error) {
	return f(ctx, req)
}
