package reconstruction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"spectrecon/internal/models"
	"spectrecon/pkg/selector"
)

// TestHelperProcess is not a real test. It stands in for the bridge script
// when the test binary is re-executed by helperParams.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("SPECTRECON_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	opts := map[string]string{}
	for i := 0; i+1 < len(args); i += 2 {
		opts[strings.TrimPrefix(args[i], "--")] = args[i+1]
	}

	switch os.Getenv("SPECTRECON_HELPER_MODE") {
	case "fail":
		fmt.Fprintln(os.Stderr, "RuntimeError: projection data not found")
		os.Exit(3)
	case "sleep":
		time.Sleep(10 * time.Second)
	}

	mainIdx, _ := strconv.Atoi(opts["main"])
	vol := testVolume(4, 3, 2)
	vol.Data[0] = float64(mainIdx)
	if _, ok := opts["lower"]; ok {
		vol.Data[1] = 1
	}
	if _, ok := opts["upper"]; ok {
		vol.Data[2] = 1
	}
	if err := WriteVolume(opts["out"], vol); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func helperParams(t *testing.T, mode string) *Params {
	t.Setenv("SPECTRECON_HELPER_PROCESS", "1")
	t.Setenv("SPECTRECON_HELPER_MODE", mode)
	return &Params{
		Command:    os.Args[0],
		Args:       []string{"-test.run=TestHelperProcess", "--"},
		ScratchDir: t.TempDir(),
	}
}

func testVolume(w, h, d int) *models.Volume {
	vol := &models.Volume{Width: w, Height: h, Depth: d, Data: make([]float64, w*h*d)}
	vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z = 4.42, 4.42, 4.42
	return vol
}

func TestArguments(t *testing.T) {
	r := NewReconstructor(&Params{Command: "python3", Args: []string{"bridge.py"}}, nil)

	req := Request{
		StudyPath:  "/data/spect.dcm",
		Inputs:     selector.Inputs{MainIndex: 1, LowerScatterIndex: 0, UpperScatterIndex: selector.NoWindow},
		Iterations: 4,
		Subsets:    8,
	}
	got := strings.Join(r.Arguments(req, "/tmp/out"), " ")
	want := "bridge.py --file /data/spect.dcm --main 1 --lower 0 --iterations 4 --subsets 8 --out /tmp/out"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	req.Inputs = selector.Inputs{MainIndex: 2, LowerScatterIndex: 1, UpperScatterIndex: 3}
	got = strings.Join(r.Arguments(req, "o"), " ")
	if !strings.Contains(got, "--lower 1 --upper 3") {
		t.Errorf("Expected both scatter windows in %q", got)
	}
}

func TestReconstructWithExternalCommand(t *testing.T) {
	params := helperParams(t, "")
	r := NewReconstructor(params, nil)

	req := Request{
		StudyPath:  "spect.dcm",
		Inputs:     selector.Inputs{MainIndex: 2, LowerScatterIndex: selector.NoWindow, UpperScatterIndex: 3},
		Iterations: 1,
		Subsets:    8,
	}
	vol, err := r.Reconstruct(context.Background(), req)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	if vol.Width != 4 || vol.Height != 3 || vol.Depth != 2 {
		t.Errorf("Unexpected dimensions %dx%dx%d", vol.Width, vol.Height, vol.Depth)
	}
	if vol.Data[0] != 2 || vol.Data[1] != 0 || vol.Data[2] != 1 {
		t.Errorf("Engine did not receive the expected window arguments: %v", vol.Data[:3])
	}
	if math.Abs(vol.VoxelSize.Z-4.42) > 1e-6 {
		t.Errorf("Expected voxel size 4.42, got %v", vol.VoxelSize.Z)
	}

	entries, _ := os.ReadDir(params.ScratchDir)
	if len(entries) != 0 {
		t.Errorf("Expected scratch directory to be removed, found %d entries", len(entries))
	}
}

func TestReconstructEngineFailure(t *testing.T) {
	r := NewReconstructor(helperParams(t, "fail"), nil)

	_, err := r.Reconstruct(context.Background(), Request{Inputs: selector.Inputs{MainIndex: 0, LowerScatterIndex: -1, UpperScatterIndex: -1}, Iterations: 1, Subsets: 1})
	var engineErr *EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("Expected EngineError, got %v", err)
	}
	if !strings.Contains(engineErr.Output, "projection data not found") {
		t.Errorf("Expected engine output to be kept, got %q", engineErr.Output)
	}
}

func TestReconstructCancelled(t *testing.T) {
	params := helperParams(t, "sleep")
	params.Timeout = 200 * time.Millisecond
	r := NewReconstructor(params, nil)

	start := time.Now()
	_, err := r.Reconstruct(context.Background(), Request{Inputs: selector.Inputs{LowerScatterIndex: -1, UpperScatterIndex: -1}, Iterations: 1, Subsets: 1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Engine process was not killed on timeout")
	}
}

func TestReconstructNoCommand(t *testing.T) {
	r := NewReconstructor(&Params{}, nil)
	if _, err := r.Reconstruct(context.Background(), Request{}); err == nil {
		t.Error("Expected error without a configured command")
	}
}

func TestVolumeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	vol := testVolume(5, 4, 3)
	for i := range vol.Data {
		vol.Data[i] = float64(i) * 0.5
	}
	if err := WriteVolume(dir, vol); err != nil {
		t.Fatalf("WriteVolume failed: %v", err)
	}

	got, err := ReadVolume(dir)
	if err != nil {
		t.Fatalf("ReadVolume failed: %v", err)
	}
	if !got.Valid() {
		t.Fatal("Expected a valid volume")
	}
	if got.At(4, 3, 2) != vol.At(4, 3, 2) {
		t.Errorf("Expected last voxel %v, got %v", vol.At(4, 3, 2), got.At(4, 3, 2))
	}
}

func TestReadVolumeTruncated(t *testing.T) {
	dir := t.TempDir()
	if err := WriteVolume(dir, testVolume(2, 2, 2)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir+"/"+DataFile, []byte{0, 0, 0}, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadVolume(dir); err == nil {
		t.Error("Expected error for truncated voxel data")
	}
}

func TestReadVolumeRejectsOversizedShape(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"huge", `{"shape":[4000000,4000000,4000000]}`},
		{"overflow", `{"shape":[9223372036854775807,2,2]}`},
		{"larger than data", `{"shape":[2,2,2]}`},
		{"zero dimension", `{"shape":[1,1,0]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, HeaderFile), []byte(tt.header), 0644); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(dir, DataFile), []byte{0, 0, 0x80, 0x3f}, 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := ReadVolume(dir); err == nil {
				t.Error("Expected error for mismatched shape")
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	vol := testVolume(2, 2, 1)
	vol.Data = []float64{0, 2, 4, 6}

	s := Summarize(vol)
	if s.Min != 0 || s.Max != 6 {
		t.Errorf("Expected range 0-6, got %v-%v", s.Min, s.Max)
	}
	if s.Mean != 3 || s.Total != 12 {
		t.Errorf("Expected mean 3 and total 12, got %v and %v", s.Mean, s.Total)
	}
	if math.Abs(s.StdDev-math.Sqrt(20.0/3)) > 1e-9 {
		t.Errorf("Unexpected standard deviation %v", s.StdDev)
	}
	if s.NonZero != 0.75 {
		t.Errorf("Expected non-zero fraction 0.75, got %v", s.NonZero)
	}

	if (Summarize(nil) != Stats{}) {
		t.Error("Expected zero stats for nil volume")
	}
}
