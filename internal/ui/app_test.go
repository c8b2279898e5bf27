package ui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"spectrecon/internal/dicomtest"
	"spectrecon/internal/models"
	"spectrecon/pkg/reconstruction"
	"spectrecon/pkg/session"
)

func press(m *Model, s string) tea.Cmd {
	var msg tea.KeyPressMsg
	switch s {
	case "enter":
		msg = tea.KeyPressMsg{Code: tea.KeyEnter}
	case "esc":
		msg = tea.KeyPressMsg{Code: tea.KeyEscape}
	case "tab":
		msg = tea.KeyPressMsg{Code: tea.KeyTab}
	case "down":
		msg = tea.KeyPressMsg{Code: tea.KeyDown}
	default:
		r := []rune(s)[0]
		msg = tea.KeyPressMsg{Code: r, Text: s}
	}
	_, cmd := m.Update(msg)
	return cmd
}

func tinyVolume() *models.Volume {
	vol := &models.Volume{Width: 2, Height: 2, Depth: 2, Data: []float64{1, 2, 3, 4, 5, 6, 7, 8}}
	vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z = 4, 4, 4
	return vol
}

func newTestModel(t *testing.T, engine reconstruction.Engine) (*Model, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "study.dcm")
	dicomtest.Write(t, path, dicomtest.SPECT())

	sess := session.New(session.Options{Engine: engine})
	m := New(sess, Options{
		StudyPath:  path,
		Iterations: 4,
		Subsets:    8,
		OutputDir:  dir,
	})
	if m.notice != nil {
		t.Fatalf("Unexpected notice on start: %+v", *m.notice)
	}
	return m, dir
}

func TestLabelKeys(t *testing.T) {
	m, _ := newTestModel(t, nil)

	press(m, "down")
	press(m, "m")
	press(m, "down")
	press(m, "s")

	windows := m.session.Windows()
	if windows[1].Label != models.Main {
		t.Errorf("Expected window 1 to be Main, got %q", windows[1].Label)
	}
	if windows[2].Label != models.Scatter {
		t.Errorf("Expected window 2 to be Scatter, got %q", windows[2].Label)
	}

	press(m, "c")
	if m.session.Windows()[2].Label != models.Unlabeled {
		t.Error("Expected clear key to remove the label")
	}

	view := m.render()
	if !strings.Contains(view, "Tc99m_Peak") || !strings.Contains(view, "Main") {
		t.Errorf("Expected window table in view, got:\n%s", view)
	}
}

func TestThirdScatterShowsHint(t *testing.T) {
	m, _ := newTestModel(t, nil)

	press(m, "s")
	press(m, "down")
	press(m, "s")
	press(m, "down")
	press(m, "s")

	if n := len(m.session.Selection().Scatter()); n != 2 {
		t.Fatalf("Expected 2 scatter windows, got %d", n)
	}
	if !strings.Contains(m.status, "clear one first") {
		t.Errorf("Expected scatter hint, got %q", m.status)
	}
}

func TestReconstructWithoutMainNotifies(t *testing.T) {
	m, _ := newTestModel(t, nil)

	if cmd := press(m, "r"); cmd != nil {
		t.Error("Expected no command without a main window")
	}
	if m.notice == nil || m.notice.Title != "No Main Window" {
		t.Fatalf("Expected missing main notice, got %+v", m.notice)
	}

	// Any other key is swallowed until the notice is dismissed
	press(m, "m")
	if _, ok := m.session.Selection().Main(); ok {
		t.Error("Expected labeling to be blocked by the notice")
	}
	press(m, "enter")
	if m.notice != nil {
		t.Error("Expected enter to dismiss the notice")
	}
}

func TestInvalidParametersNotify(t *testing.T) {
	m, _ := newTestModel(t, nil)
	press(m, "down")
	press(m, "m")
	m.iterations.SetValue("zero")

	if cmd := press(m, "r"); cmd != nil {
		t.Error("Expected no command for invalid parameters")
	}
	if m.notice == nil || !strings.Contains(m.notice.Message, "positive numbers") {
		t.Errorf("Expected parameter notice, got %+v", m.notice)
	}
}

func TestReconstructAndSave(t *testing.T) {
	var got reconstruction.Request
	engine := reconstruction.EngineFunc(func(ctx context.Context, req reconstruction.Request) (*models.Volume, error) {
		got = req
		return tinyVolume(), nil
	})
	m, dir := newTestModel(t, engine)
	var copied string
	m.opts.Copy = func(s string) error {
		copied = s
		return nil
	}

	press(m, "down")
	press(m, "m")
	press(m, "down")
	press(m, "s")

	cmd := press(m, "r")
	if cmd == nil {
		t.Fatal("Expected reconstruction command")
	}
	if m.mode != modeRunning {
		t.Errorf("Expected running mode, got %v", m.mode)
	}
	m.Update(cmd())

	if m.mode != modeBrowse {
		t.Errorf("Expected browse mode after completion, got %v", m.mode)
	}
	if m.session.Volume() == nil {
		t.Fatal("Expected the volume to be stored")
	}
	if got.Inputs.MainIndex != 1 || got.Inputs.UpperScatterIndex != 2 || got.Inputs.HasLowerScatter() {
		t.Errorf("Unexpected inputs %+v", got.Inputs)
	}

	press(m, "w")
	if m.mode != modeSave {
		t.Fatalf("Expected save prompt, got mode %v", m.mode)
	}
	m.folder.SetValue("recon")
	press(m, "enter")
	if m.notice != nil {
		t.Fatalf("Unexpected notice: %+v", *m.notice)
	}
	if m.saved == nil || m.saved.Directory != filepath.Join(dir, "recon") {
		t.Fatalf("Expected series saved under %s, got %+v", dir, m.saved)
	}

	copyCmd := press(m, "y")
	if copyCmd == nil {
		t.Fatal("Expected copy command")
	}
	m.Update(copyCmd())
	if copied != m.saved.Directory {
		t.Errorf("Expected %s copied, got %q", m.saved.Directory, copied)
	}

	// A second save into the same folder fails with the generic message
	press(m, "w")
	m.folder.SetValue("recon")
	press(m, "enter")
	if m.notice == nil || m.notice.Message != "Please create a new folder." {
		t.Errorf("Expected folder notice, got %+v", m.notice)
	}
}

func TestCancelReconstruction(t *testing.T) {
	engine := reconstruction.EngineFunc(func(ctx context.Context, req reconstruction.Request) (*models.Volume, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	m, _ := newTestModel(t, engine)
	press(m, "down")
	press(m, "m")

	cmd := press(m, "r")
	if cmd == nil {
		t.Fatal("Expected reconstruction command")
	}
	press(m, "esc")
	m.Update(cmd())

	if m.session.Volume() != nil {
		t.Error("Expected no volume after cancel")
	}
	if m.notice == nil || m.notice.Title != "Cancelled" {
		t.Errorf("Expected cancel notice, got %+v", m.notice)
	}
}

func TestSaveWithoutReconstruction(t *testing.T) {
	m, _ := newTestModel(t, nil)
	press(m, "w")
	if m.mode == modeSave {
		t.Error("Expected save prompt to stay closed")
	}
	if m.notice == nil || m.notice.Message != "Please create a reconstruction." {
		t.Errorf("Expected reconstruction notice, got %+v", m.notice)
	}
}

func TestFocusCycle(t *testing.T) {
	m, _ := newTestModel(t, nil)

	press(m, "tab")
	if m.focus != focusIterations {
		t.Fatalf("Expected iterations focus, got %v", m.focus)
	}
	// Letters go to the input instead of the table
	press(m, "m")
	if _, ok := m.session.Selection().Main(); ok {
		t.Error("Expected m to be typed, not applied as a label")
	}
	press(m, "tab")
	if m.focus != focusSubsets {
		t.Fatalf("Expected subsets focus, got %v", m.focus)
	}
	press(m, "esc")
	if m.focus != focusTable {
		t.Errorf("Expected table focus after esc, got %v", m.focus)
	}
}

func TestOpenInvalidStudy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recon.dcm")
	acq := dicomtest.SPECT()
	acq.ImageType = []string{"ORIGINAL", "PRIMARY", "RECON TOMO", "EMISSION"}
	dicomtest.Write(t, path, acq)

	m := New(session.New(session.Options{}), Options{StudyPath: path})
	if m.notice == nil || m.notice.Message != "Please select an unreconstructed SPECT image." {
		t.Errorf("Expected invalid study notice, got %+v", m.notice)
	}
	if len(m.session.Windows()) != 0 {
		t.Error("Expected empty window table")
	}
}
