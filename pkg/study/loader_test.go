package study

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"spectrecon/internal/dicomtest"
)

func TestLoadSPECTAcquisition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spect.dcm")
	dicomtest.Write(t, path, dicomtest.SPECT())

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.Modality != "NM" {
		t.Errorf("Expected modality NM, got %q", s.Modality)
	}
	kind := s.Kind()
	if !kind.TomographicSpect || kind.Reconstructed {
		t.Errorf("Expected unreconstructed tomographic SPECT, got %+v", kind)
	}

	if len(s.Windows) != 3 {
		t.Fatalf("Expected 3 windows, got %d", len(s.Windows))
	}
	peak := s.Windows[1]
	if peak.Index != 1 || peak.Name != "Tc99m_Peak" {
		t.Errorf("Unexpected photopeak window %+v", peak)
	}
	if peak.LowerLimit != 126 || peak.UpperLimit != 154 {
		t.Errorf("Expected bounds 126-154, got %v-%v", peak.LowerLimit, peak.UpperLimit)
	}
	if peak.Center() != 140 {
		t.Errorf("Expected center 140, got %v", peak.Center())
	}
}

func TestLoadKinds(t *testing.T) {
	tests := []struct {
		name          string
		modality      string
		imageType     []string
		tomographic   bool
		reconstructed bool
	}{
		{"tomo", "NM", []string{"ORIGINAL", "PRIMARY", "TOMO", "EMISSION"}, true, false},
		{"retired ST modality", "ST", []string{"ORIGINAL", "PRIMARY", "TOMO"}, true, false},
		{"reconstructed", "NM", []string{"ORIGINAL", "PRIMARY", "RECON TOMO", "EMISSION"}, true, true},
		{"static", "NM", []string{"ORIGINAL", "PRIMARY", "STATIC"}, false, false},
		{"ct", "CT", []string{"ORIGINAL", "PRIMARY", "AXIAL"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acq := dicomtest.SPECT()
			acq.Modality = tt.modality
			acq.ImageType = tt.imageType
			path := filepath.Join(t.TempDir(), "study.dcm")
			dicomtest.Write(t, path, acq)

			s, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			kind := s.Kind()
			if kind.TomographicSpect != tt.tomographic {
				t.Errorf("Expected TomographicSpect=%v, got %v", tt.tomographic, kind.TomographicSpect)
			}
			if kind.Reconstructed != tt.reconstructed {
				t.Errorf("Expected Reconstructed=%v, got %v", tt.reconstructed, kind.Reconstructed)
			}
		})
	}
}

func TestLoadDefaultWindowName(t *testing.T) {
	acq := dicomtest.SPECT()
	acq.Windows[0].Name = ""
	path := filepath.Join(t.TempDir(), "spect.dcm")
	dicomtest.Write(t, path, acq)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Windows[0].Name != "Window 1" {
		t.Errorf("Expected default name, got %q", s.Windows[0].Name)
	}
}

func TestLoadMissingEnergyWindows(t *testing.T) {
	acq := dicomtest.SPECT()
	acq.Windows = nil
	path := filepath.Join(t.TempDir(), "spect.dcm")
	dicomtest.Write(t, path, acq)

	if _, err := Load(path); !errors.Is(err, ErrMissingEnergyWindows) {
		t.Errorf("Expected ErrMissingEnergyWindows, got %v", err)
	}
}

func TestLoadNotDICOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.dcm")
	if err := os.WriteFile(path, []byte("not a dicom file"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error for non-DICOM file")
	}
}
