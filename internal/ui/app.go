// Package ui implements the terminal front end of spectrecon: a study prompt,
// the energy-window table with its labeling keys, the OSEM parameter inputs
// and the save prompt.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"

	"spectrecon/internal/models"
	"spectrecon/pkg/export"
	"spectrecon/pkg/reconstruction"
	"spectrecon/pkg/selector"
	"spectrecon/pkg/session"
)

// mode is the interaction the model is currently in
type mode int

const (
	modeBrowse mode = iota
	modeOpen
	modeSave
	modeRunning
)

// focus is the pane receiving keys in browse mode
type focus int

const (
	focusTable focus = iota
	focusIterations
	focusSubsets
)

// Options configures the model
type Options struct {
	// StudyPath is opened on start when set
	StudyPath string

	// Iterations and Subsets prefill the parameter inputs
	Iterations int
	Subsets    int

	// OutputDir is the parent of saved reconstruction folders
	OutputDir string

	// Logger receives UI events
	Logger *slog.Logger

	// Copy writes text to the clipboard; defaults to clipboard.WriteAll
	Copy func(string) error
}

// reconstructionDoneMsg carries the result of a background reconstruction
type reconstructionDoneMsg struct {
	id  int
	req reconstruction.Request
	vol *models.Volume
	err error
}

// copiedMsg reports the result of a clipboard write
type copiedMsg struct {
	text string
	err  error
}

// Model is the bubbletea model of the application
type Model struct {
	session *session.Session
	opts    Options
	logger  *slog.Logger
	keys    keyMap

	mode   mode
	focus  focus
	cursor int

	path       textinput.Model
	iterations textinput.Model
	subsets    textinput.Model
	folder     textinput.Model

	notice *session.Notification
	status string

	runID  int
	cancel context.CancelFunc
	saved  *export.Result

	width  int
	height int
}

// New creates the model. A configured StudyPath is opened immediately and a
// failure is shown as the first notification.
func New(sess *session.Session, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}

	m := &Model{
		session:    sess,
		opts:       opts,
		logger:     opts.Logger,
		keys:       defaultKeyMap(),
		path:       newInput("path/to/study.dcm", 512, 60),
		iterations: newInput("iterations", 4, 6),
		subsets:    newInput("subsets", 4, 6),
		folder:     newInput("folder name", 128, 40),
	}
	if opts.Iterations > 0 {
		m.iterations.SetValue(strconv.Itoa(opts.Iterations))
	}
	if opts.Subsets > 0 {
		m.subsets.SetValue(strconv.Itoa(opts.Subsets))
	}

	if opts.StudyPath != "" {
		m.openStudy(opts.StudyPath)
	} else {
		m.beginOpen()
	}
	return m
}

func newInput(placeholder string, limit, width int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.SetWidth(width)
	return ti
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case reconstructionDoneMsg:
		m.finishReconstruction(msg)
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.logger.Warn("clipboard write failed", "error", msg.err)
			m.status = "Could not copy to clipboard"
		} else {
			m.status = "Copied " + msg.text
		}
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	return m.updateInputs(msg)
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		m.abort()
		return m, tea.Quit
	}

	// Notifications block everything else until dismissed
	if m.notice != nil {
		if key.Matches(msg, m.keys.Confirm, m.keys.Cancel) || msg.String() == "space" {
			m.notice = nil
		}
		return m, nil
	}

	switch m.mode {
	case modeRunning:
		if key.Matches(msg, m.keys.Cancel) {
			m.abort()
			m.status = "Cancelling reconstruction..."
		}
		return m, nil

	case modeOpen:
		return m.handlePrompt(msg, &m.path, func(value string) tea.Cmd {
			m.openStudy(value)
			return nil
		})

	case modeSave:
		return m.handlePrompt(msg, &m.folder, func(value string) tea.Cmd {
			m.save(value)
			return nil
		})
	}

	if m.focus != focusTable {
		return m.handleParameterKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.session.Windows())-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Main):
		m.label(models.Main)
	case key.Matches(msg, m.keys.Scatter):
		m.label(models.Scatter)
	case key.Matches(msg, m.keys.Clear):
		m.label(models.Unlabeled)
	case key.Matches(msg, m.keys.Open):
		m.beginOpen()
	case key.Matches(msg, m.keys.Reconstruct):
		return m, m.startReconstruction()
	case key.Matches(msg, m.keys.Save):
		m.beginSave()
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyPath()
	case key.Matches(msg, m.keys.Focus):
		m.cycleFocus(msg.String() == "shift+tab")
	}
	return m, nil
}

// handlePrompt routes keys to a modal text input. Enter submits, Esc returns
// to the table.
func (m *Model) handlePrompt(msg tea.KeyPressMsg, input *textinput.Model, submit func(string) tea.Cmd) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		value := input.Value()
		input.Blur()
		m.mode = modeBrowse
		return m, submit(value)
	case key.Matches(msg, m.keys.Cancel):
		input.Blur()
		m.mode = modeBrowse
		return m, nil
	}
	var cmd tea.Cmd
	*input, cmd = input.Update(msg)
	return m, cmd
}

func (m *Model) handleParameterKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Focus):
		m.cycleFocus(msg.String() == "shift+tab")
		return m, nil
	case key.Matches(msg, m.keys.Cancel):
		m.setFocus(focusTable)
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		m.setFocus(focusTable)
		return m, m.startReconstruction()
	}
	return m.updateInputs(msg)
}

// updateInputs forwards msg to the focused parameter input
func (m *Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusIterations:
		m.iterations, cmd = m.iterations.Update(msg)
	case focusSubsets:
		m.subsets, cmd = m.subsets.Update(msg)
	}
	return m, cmd
}

func (m *Model) cycleFocus(reverse bool) {
	next := (m.focus + 1) % 3
	if reverse {
		next = (m.focus + 2) % 3
	}
	m.setFocus(next)
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	m.iterations.Blur()
	m.subsets.Blur()
	switch f {
	case focusIterations:
		m.iterations.Focus()
	case focusSubsets:
		m.subsets.Focus()
	}
}

func (m *Model) beginOpen() {
	m.mode = modeOpen
	m.path.Focus()
}

func (m *Model) openStudy(path string) {
	m.cursor = 0
	m.saved = nil
	if err := m.session.Open(path); err != nil {
		m.logger.Warn("failed to open study", "path", path, "error", err)
		if !errors.Is(err, selector.ErrInvalidStudy) {
			err = fmt.Errorf("could not read %s: %w", path, err)
		}
		m.notify(err)
		return
	}
	m.status = fmt.Sprintf("Loaded %d energy windows", len(m.session.Windows()))
}

func (m *Model) label(l models.Label) {
	windows := m.session.Windows()
	if m.cursor >= len(windows) {
		return
	}
	w := windows[m.cursor]

	full := len(m.session.Selection().Scatter()) == 2
	if err := m.session.SetLabel(w.Index, l); err != nil {
		m.notify(err)
		return
	}
	if l == models.Scatter && w.Label != models.Scatter && full {
		m.status = "Two scatter windows are already set; clear one first"
		return
	}
	m.status = ""
}

// startReconstruction validates the request on the UI loop and returns a
// command running the engine in the background.
func (m *Model) startReconstruction() tea.Cmd {
	it, sub, err := selector.ParseReconstructionRequest(m.iterations.Value(), m.subsets.Value())
	if err != nil {
		m.notify(err)
		return nil
	}
	req, err := m.session.Prepare(it, sub)
	if err != nil {
		m.notify(err)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.runID++
	m.mode = modeRunning
	m.status = fmt.Sprintf("Reconstructing (%d iterations, %d subsets)...", it, sub)
	m.logger.Info("reconstruction requested",
		"main", req.Inputs.MainIndex,
		"lower", req.Inputs.LowerScatterIndex,
		"upper", req.Inputs.UpperScatterIndex,
		"iterations", it,
		"subsets", sub)

	id, sess := m.runID, m.session
	return func() tea.Msg {
		vol, err := sess.Run(ctx, req)
		return reconstructionDoneMsg{id: id, req: req, vol: vol, err: err}
	}
}

func (m *Model) finishReconstruction(msg reconstructionDoneMsg) {
	if msg.id != m.runID {
		return
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mode = modeBrowse

	if msg.err != nil {
		m.logger.Error("reconstruction failed", "error", msg.err)
		m.status = ""
		m.notify(msg.err)
		return
	}
	m.session.Complete(msg.req, msg.vol)
	m.saved = nil
	m.status = fmt.Sprintf("Reconstruction ready: %dx%dx%d voxels", msg.vol.Width, msg.vol.Height, msg.vol.Depth)
}

// abort cancels a running reconstruction, if any
func (m *Model) abort() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Model) beginSave() {
	if m.session.Volume() == nil {
		m.notify(session.ErrNoReconstruction)
		return
	}
	m.mode = modeSave
	m.folder.SetValue("")
	m.folder.Focus()
}

func (m *Model) save(folder string) {
	res, err := m.session.Save(m.opts.OutputDir, folder)
	if err != nil {
		m.notify(err)
		return
	}
	m.saved = res
	m.status = fmt.Sprintf("Saved %d slices to %s", len(res.Files), res.Directory)
}

func (m *Model) copyPath() tea.Cmd {
	if m.saved == nil {
		m.status = "Nothing saved yet"
		return nil
	}
	text, write := m.saved.Directory, m.opts.Copy
	return func() tea.Msg {
		return copiedMsg{text: text, err: write(text)}
	}
}

func (m *Model) notify(err error) {
	n := session.UserMessage(err)
	m.notice = &n
}
