package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kasaops/kasascan/internal/device"
	"github.com/kasaops/kasascan/internal/discovery"
	"github.com/kasaops/kasascan/internal/inventory"
	"github.com/kasaops/kasascan/internal/watch"
)

// useQuietNetwork points discovery at a loopback port nothing listens
// on, so every round comes back empty without touching the real
// broadcast domain.
func useQuietNetwork(t *testing.T) {
	t.Helper()
	orig := newTransport
	newTransport = func() *discovery.Transport {
		tr := discovery.NewTransport()
		tr.Timeout = 200 * time.Millisecond
		tr.Broadcasts = []string{"127.0.0.1"}
		tr.Ports = []int{39999}
		return tr
	}
	t.Cleanup(func() { newTransport = orig })
}

func useTempDataDir(t *testing.T) *inventory.Store {
	t.Helper()
	origDir := dataDir
	dataDir = t.TempDir()
	t.Cleanup(func() { dataDir = origDir })
	return inventory.NewStore(dataDir)
}

func TestRunScan_NoDevicesIsError(t *testing.T) {
	useQuietNetwork(t)
	store := useTempDataDir(t)
	probeIP = ""
	outputFormat = "table"
	outputFile = ""
	filterName, filterType = "", ""
	scanCmd.SetContext(context.Background())

	err := runScan(scanCmd, nil)
	if !errors.Is(err, errNoDevices) {
		t.Fatalf("runScan() error = %v, want no-devices failure", err)
	}

	// An empty round is not recorded.
	if _, err := os.Stat(store.SnapshotPath()); !os.IsNotExist(err) {
		t.Error("empty scan wrote a snapshot")
	}
	if _, err := os.Stat(store.ScanLogPath()); !os.IsNotExist(err) {
		t.Error("empty scan appended to the scan log")
	}
}

func TestRunBaseline_NoDevicesSavesNothing(t *testing.T) {
	useQuietNetwork(t)
	store := useTempDataDir(t)
	baselineCmd.SetContext(context.Background())

	err := runBaseline(baselineCmd, nil)
	if !errors.Is(err, errNoDevices) {
		t.Fatalf("runBaseline() error = %v, want no-devices failure", err)
	}
	if _, err := os.Stat(store.BaselinePath()); !os.IsNotExist(err) {
		t.Error("empty scan saved a baseline")
	}
}

func TestRunDiff_NoDevicesIsError(t *testing.T) {
	useQuietNetwork(t)
	store := useTempDataDir(t)
	if _, err := store.SaveBaseline([]device.Record{
		{Name: "Lamp", MAC: "AA:00:00:00:00:01", IP: "10.0.0.5"},
	}); err != nil {
		t.Fatal(err)
	}
	diffCmd.SetContext(context.Background())

	// Nothing answering must not be reported as the fleet disappearing.
	err := runDiff(diffCmd, nil)
	if !errors.Is(err, errNoDevices) {
		t.Fatalf("runDiff() error = %v, want no-devices failure", err)
	}
}

func TestDrainScheduler_StopsWithoutQuitPath(t *testing.T) {
	s := &watch.Scheduler{
		Interval: time.Hour,
		Round: func(ctx context.Context) ([]device.Record, error) {
			return nil, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for s.State() != watch.Running && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.State() != watch.Running {
		t.Fatal("scheduler never started")
	}

	// The screen exited abnormally: no quit key, no error message, so
	// nothing has cancelled the context yet.
	finished := make(chan struct{})
	go func() {
		drainScheduler(cancel, done)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("drainScheduler hung with the scheduler still running")
	}
	if s.State() != watch.Stopped {
		t.Errorf("scheduler state = %v, want stopped", s.State())
	}
}

func TestScanSortFlagHelpListsAllKeys(t *testing.T) {
	usage := scanCmd.Flags().Lookup("sort").Usage
	for _, key := range []string{"name", "ip", "mac", "model", "type"} {
		if !strings.Contains(usage, key) {
			t.Errorf("--sort help %q missing key %q", usage, key)
		}
	}
}
