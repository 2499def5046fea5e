package led

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantName string
	}{
		{"noop", Options{Driver: DriverNoop}, "noop"},
		{"terminal", Options{Driver: DriverTerminal}, "terminal"},
		{"sysfs", Options{Driver: DriverSysfs, SysfsLEDs: [3]string{"r", "g", "b"}}, "sysfs"},
		{"unknown driver", Options{Driver: "laser"}, "noop"},
		{"modbus without endpoint", Options{Driver: DriverModbus}, "noop"},
		{"noop mirrored", Options{Driver: DriverNoop, Mirror: true}, "noop+terminal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := New(tt.opts, testLogger())
			if sink == nil {
				t.Fatal("New() returned nil")
			}
			if got := sink.Name(); got != tt.wantName {
				t.Errorf("Name() = %q, want %q", got, tt.wantName)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		model    string
		wantName string
	}{
		{"FriendlyElec NanoPC-T6", "sysfs"},
		{"Raspberry Pi 4 Model B Rev 1.4", "sysfs"},
		{"Orange Pi 5", "sysfs"},
		{"QEMU Virtual Machine", "noop"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := detect(tt.model, testLogger()).Name(); got != tt.wantName {
				t.Errorf("detect(%q) = %q, want %q", tt.model, got, tt.wantName)
			}
		})
	}
}

func TestDetectBoard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model")
	if err := os.WriteFile(path, []byte("Raspberry Pi 5\x00"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := detectBoard(path); got != "Raspberry Pi 5" {
		t.Errorf("detectBoard() = %q", got)
	}

	// Should handle missing file gracefully
	if got := detectBoard(filepath.Join(t.TempDir(), "missing")); got != "unknown" {
		t.Errorf("detectBoard(missing) = %q, want unknown", got)
	}
}

func TestParseDriver(t *testing.T) {
	for _, s := range []string{"", "auto", "SYSFS", "gpio", "modbus", "terminal", "noop"} {
		if _, err := ParseDriver(s); err != nil {
			t.Errorf("ParseDriver(%q) error: %v", s, err)
		}
	}
	if _, err := ParseDriver("laser"); err == nil {
		t.Error("ParseDriver(laser) should fail")
	}
}
