// Package session ties the window selector to the study loader, the
// reconstruction engine and the exporter. A Session holds everything the user
// works on between opening a study and saving its reconstruction.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"spectrecon/internal/models"
	"spectrecon/pkg/export"
	"spectrecon/pkg/reconstruction"
	"spectrecon/pkg/selector"
	"spectrecon/pkg/study"
	"spectrecon/pkg/visualization"
)

var (
	// ErrNoStudy is returned when an action needs a loaded study
	ErrNoStudy = errors.New("no study loaded")

	// ErrNoReconstruction is returned when saving before reconstructing
	ErrNoReconstruction = errors.New("no reconstruction to save")

	// ErrEmptyFolderName is the cause of the SaveError returned when saving
	// without a folder name
	ErrEmptyFolderName = errors.New("empty folder name")
)

// Loader reads a study file
type Loader func(path string) (*study.Study, error)

// Saver persists a reconstructed volume
type Saver interface {
	Save(vol *models.Volume, source *study.Study, destination, label string) (*export.Result, error)
}

// Options configures a Session
type Options struct {
	// Engine runs reconstructions
	Engine reconstruction.Engine

	// Saver writes reconstructions; defaults to a DICOM exporter
	Saver Saver

	// Loader reads studies; defaults to study.Load
	Loader Loader

	// PreviewScale enables PNG previews of saved volumes when positive
	PreviewScale int

	// Logger receives workflow events
	Logger *slog.Logger
}

// Session is the state of one interactive workflow. It is not safe for
// concurrent use; the UI serialises access.
type Session struct {
	opts     Options
	logger   *slog.Logger
	selector *selector.Selector

	study  *study.Study
	volume *models.Volume
	last   *reconstruction.Request
}

// New creates an empty session
func New(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Loader == nil {
		opts.Loader = study.Load
	}
	if opts.Saver == nil {
		opts.Saver = export.NewExporter(opts.Logger)
	}
	return &Session{opts: opts, logger: opts.Logger, selector: selector.New()}
}

// Open loads a study and resets the selection. A file that is not an
// unreconstructed tomographic SPECT acquisition clears the session and
// returns an error wrapping selector.ErrInvalidStudy.
func (s *Session) Open(path string) error {
	s.study, s.volume, s.last = nil, nil, nil
	s.selector.Clear()

	st, err := s.opts.Loader(path)
	if err != nil {
		return err
	}
	if err := s.selector.LoadStudy(st.Windows, st.Kind()); err != nil {
		s.logger.Warn("rejected study",
			"path", path,
			"modality", st.Modality,
			"imageType", strings.Join(st.ImageType, `\`))
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	s.study = st
	s.logger.Info("loaded study", "path", path, "windows", len(st.Windows))
	return nil
}

// Study returns the loaded study, or nil
func (s *Session) Study() *study.Study { return s.study }

// Windows returns the displayed window table
func (s *Session) Windows() []models.EnergyWindow { return s.selector.Windows() }

// Selection returns the current labeling state
func (s *Session) Selection() selector.SelectionState { return s.selector.State() }

// SetLabel labels the window with the given index
func (s *Session) SetLabel(index int, label models.Label) error {
	if err := s.selector.SetLabel(index, label); err != nil {
		return err
	}
	s.logger.Debug("set label", "window", index, "label", label.String())
	return nil
}

// Prepare validates the parameters and resolves the window assignment without
// running the engine.
func (s *Session) Prepare(iterations, subsets int) (reconstruction.Request, error) {
	if err := selector.ValidateReconstructionRequest(iterations, subsets); err != nil {
		return reconstruction.Request{}, err
	}
	if s.study == nil {
		return reconstruction.Request{}, ErrNoStudy
	}
	inputs, err := s.selector.ResolveReconstructionInputs()
	if err != nil {
		return reconstruction.Request{}, err
	}
	return reconstruction.Request{
		StudyPath:  s.study.Path,
		Inputs:     inputs,
		Iterations: iterations,
		Subsets:    subsets,
	}, nil
}

// Run executes a prepared request and keeps the resulting volume. It does not
// touch the selection, so it may run off the UI loop as long as Complete is
// called back on it.
func (s *Session) Run(ctx context.Context, req reconstruction.Request) (*models.Volume, error) {
	if s.opts.Engine == nil {
		return nil, errors.New("no reconstruction engine configured")
	}
	vol, err := s.opts.Engine.Reconstruct(ctx, req)
	if err != nil {
		return nil, err
	}
	if !vol.Valid() {
		return nil, errors.New("reconstruction engine returned an invalid volume")
	}
	return vol, nil
}

// Complete stores the result of Run
func (s *Session) Complete(req reconstruction.Request, vol *models.Volume) {
	s.volume = vol
	s.last = &req
	stats := reconstruction.Summarize(vol)
	s.logger.Info("reconstruction ready",
		"size", fmt.Sprintf("%dx%dx%d", vol.Width, vol.Height, vol.Depth),
		"max", stats.Max,
		"total", stats.Total)
}

// Reconstruct validates, resolves and runs a reconstruction synchronously
func (s *Session) Reconstruct(ctx context.Context, iterations, subsets int) (*models.Volume, error) {
	req, err := s.Prepare(iterations, subsets)
	if err != nil {
		return nil, err
	}
	vol, err := s.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	s.Complete(req, vol)
	return vol, nil
}

// Volume returns the last reconstruction, or nil
func (s *Session) Volume() *models.Volume { return s.volume }

// LastRequest returns the request that produced Volume, or nil
func (s *Session) LastRequest() *reconstruction.Request { return s.last }

// Save writes the last reconstruction into parentDir/folder. The folder name
// is also used as the series label.
func (s *Session) Save(parentDir, folder string) (*export.Result, error) {
	if s.volume == nil {
		return nil, ErrNoReconstruction
	}
	folder = strings.TrimSpace(folder)
	if folder == "" {
		// An empty name would target parentDir itself, which already exists
		return nil, &export.SaveError{Path: parentDir, Err: ErrEmptyFolderName}
	}

	dest := filepath.Join(parentDir, folder)
	res, err := s.opts.Saver.Save(s.volume, s.study, dest, folder)
	if err != nil {
		s.logger.Error("save failed", "destination", dest, "error", err)
		return nil, err
	}

	if s.opts.PreviewScale > 0 {
		viewer := visualization.NewViewer(s.volume, s.opts.PreviewScale)
		previewDir := filepath.Join(dest, "preview")
		if err := viewer.SavePreviews(previewDir); err != nil {
			s.logger.Warn("failed to write previews", "directory", previewDir, "error", err)
		}
	}
	return res, nil
}
