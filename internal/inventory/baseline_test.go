package inventory

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kasaops/kasascan/internal/device"
)

func TestBaseline_SaveAndLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	sig := -60
	records := []device.Record{
		{
			Name:       "Office Sconce Left",
			MAC:        "98:25:4A:5F:4E:6F",
			IP:         "10.0.0.5",
			Model:      "HS110(UK)",
			Type:       "Plug",
			PowerState: device.PowerOn,
			Signal:     &sig,
			Firmware:   "1.5.6",
		},
	}

	saved, err := store.SaveBaseline(records)
	if err != nil {
		t.Fatalf("SaveBaseline() error: %v", err)
	}
	if saved.Timestamp.Location() != time.UTC {
		t.Error("baseline timestamp not in UTC")
	}

	loaded, err := store.LoadBaseline()
	if err != nil {
		t.Fatalf("LoadBaseline() error: %v", err)
	}
	if !loaded.Timestamp.Equal(saved.Timestamp) {
		t.Errorf("timestamp changed through round trip: %v vs %v", loaded.Timestamp, saved.Timestamp)
	}
	if len(loaded.Devices) != 1 {
		t.Fatalf("loaded %d devices, want 1", len(loaded.Devices))
	}
	got := loaded.Devices[0]
	if got.MAC != "98:25:4A:5F:4E:6F" || got.Name != "Office Sconce Left" {
		t.Errorf("record changed through round trip: %+v", got)
	}
	if got.Signal == nil || *got.Signal != -60 {
		t.Errorf("optional field lost: Signal = %v", got.Signal)
	}
}

func TestBaseline_MissingFile(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.LoadBaseline()
	if !errors.Is(err, ErrNoBaseline) {
		t.Errorf("LoadBaseline() error = %v, want ErrNoBaseline", err)
	}
	if !strings.Contains(err.Error(), "baseline") {
		t.Errorf("error %q does not instruct the caller", err)
	}
}

func TestBaseline_ReplacesPrevious(t *testing.T) {
	store := NewStore(t.TempDir())

	if _, err := store.SaveBaseline([]device.Record{rec("Old", "AA:00:00:00:00:01", "10.0.0.5")}); err != nil {
		t.Fatalf("SaveBaseline() error: %v", err)
	}
	if _, err := store.SaveBaseline([]device.Record{rec("New", "AA:00:00:00:00:02", "10.0.0.6")}); err != nil {
		t.Fatalf("second SaveBaseline() error: %v", err)
	}

	loaded, err := store.LoadBaseline()
	if err != nil {
		t.Fatalf("LoadBaseline() error: %v", err)
	}
	if len(loaded.Devices) != 1 || loaded.Devices[0].Name != "New" {
		t.Errorf("baseline not replaced: %+v", loaded.Devices)
	}
}

func TestBaseline_NoTemporaryFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if _, err := store.SaveBaseline([]device.Record{rec("Lamp", "AA:00:00:00:00:01", "10.0.0.5")}); err != nil {
		t.Fatalf("SaveBaseline() error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}
