// Package reconstruction drives the external OSEM reconstruction toolkit.
//
// The reconstruction itself (system matrix, scatter estimate, Poisson
// log-likelihood, OSEM) runs in a separate process. Reconstructor passes the
// window assignment on the command line and reads back the volume the bridge
// writes into a scratch directory:
//
//	volume.json  {"shape": [x, y, z], "voxel_size": [dx, dy, dz]}
//	volume.f32   little-endian float32, x fastest, then y, then z
package reconstruction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"spectrecon/internal/models"
)

// Names of the files the bridge writes
const (
	HeaderFile = "volume.json"
	DataFile   = "volume.f32"
)

// Params holds the configuration of the external engine
type Params struct {
	// Command is the executable to run, e.g. "python3"
	Command string

	// Args are passed before the generated arguments, e.g. the bridge script path
	Args []string

	// Timeout bounds a single reconstruction. Zero means no limit.
	Timeout time.Duration

	// ScratchDir is where per-run directories are created. Empty uses os.TempDir.
	ScratchDir string

	// KeepScratch leaves the per-run directory in place for debugging
	KeepScratch bool
}

// Reconstructor runs reconstructions through an external command
type Reconstructor struct {
	params *Params
	logger *slog.Logger
}

// NewReconstructor creates a reconstructor with the provided parameters
func NewReconstructor(params *Params, logger *slog.Logger) *Reconstructor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconstructor{params: params, logger: logger}
}

// Arguments builds the command-line arguments for a request. The scratch
// directory is passed as --out.
func (r *Reconstructor) Arguments(req Request, outDir string) []string {
	args := append([]string(nil), r.params.Args...)
	args = append(args,
		"--file", req.StudyPath,
		"--main", strconv.Itoa(req.Inputs.MainIndex),
	)
	if req.Inputs.HasLowerScatter() {
		args = append(args, "--lower", strconv.Itoa(req.Inputs.LowerScatterIndex))
	}
	if req.Inputs.HasUpperScatter() {
		args = append(args, "--upper", strconv.Itoa(req.Inputs.UpperScatterIndex))
	}
	args = append(args,
		"--iterations", strconv.Itoa(req.Iterations),
		"--subsets", strconv.Itoa(req.Subsets),
		"--out", outDir,
	)
	return args
}

// Reconstruct runs the external engine and loads the volume it produced.
// Cancelling ctx kills the engine process.
func (r *Reconstructor) Reconstruct(ctx context.Context, req Request) (*models.Volume, error) {
	if r.params.Command == "" {
		return nil, errors.New("no reconstruction command configured")
	}

	if r.params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.params.Timeout)
		defer cancel()
	}

	outDir, err := os.MkdirTemp(r.params.ScratchDir, "spectrecon-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	if !r.params.KeepScratch {
		defer os.RemoveAll(outDir)
	}

	args := r.Arguments(req, outDir)
	cmd := exec.CommandContext(ctx, r.params.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = &stderr

	r.logger.Info("starting reconstruction",
		"command", r.params.Command,
		"args", strings.Join(args, " "),
		"main", req.Inputs.MainIndex,
		"lower", req.Inputs.LowerScatterIndex,
		"upper", req.Inputs.UpperScatterIndex,
		"iterations", req.Iterations,
		"subsets", req.Subsets)

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("reconstruction aborted: %w", ctxErr)
		}
		return nil, &EngineError{Err: err, Output: tail(stderr.String(), 2048)}
	}
	r.logger.Info("reconstruction finished", "elapsed", time.Since(start).Round(time.Millisecond))

	vol, err := ReadVolume(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read engine output: %w", err)
	}
	return vol, nil
}

// EngineError is returned when the engine process fails
type EngineError struct {
	Err    error
	Output string
}

func (e *EngineError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("reconstruction engine failed: %v", e.Err)
	}
	return fmt.Sprintf("reconstruction engine failed: %v\n%s", e.Err, e.Output)
}

func (e *EngineError) Unwrap() error { return e.Err }

// tail keeps the last n bytes of s
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
