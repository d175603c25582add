package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/kasaops/kasascan/internal/device"
)

func newTestSession(t *testing.T, state *fakeState) (*Session, func()) {
	t.Helper()
	port, shutdown := startTCPDevice(t, "127.0.0.1", 0, state)
	s := NewSession("127.0.0.1", port)
	s.SetTimeout(500 * time.Millisecond)
	return s, shutdown
}

func TestSession_Refresh(t *testing.T) {
	state := &fakeState{alias: "Desk Lamp", mac: "98:25:4A:5F:4E:6F", relay: 1}
	s, _ := newTestSession(t, state)
	defer s.Close()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}

	rec := s.Record()
	if rec.Name != "Desk Lamp" {
		t.Errorf("Name = %q, want Desk Lamp", rec.Name)
	}
	if rec.PowerState != device.PowerOn {
		t.Errorf("PowerState = %q, want on", rec.PowerState)
	}
	if rec.Degraded {
		t.Error("Degraded = true after a successful refresh")
	}
}

func TestSession_RefreshFailureKeepsLastKnown(t *testing.T) {
	state := &fakeState{alias: "Desk Lamp", mac: "98:25:4A:5F:4E:6F", relay: 1}
	s, shutdown := newTestSession(t, state)
	defer s.Close()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	shutdown()

	err := s.Refresh(context.Background())
	if err == nil {
		t.Fatal("Refresh() succeeded against a stopped device")
	}
	if !IsUnreachable(err) {
		t.Errorf("error = %v, want unreachable class", err)
	}

	rec := s.Record()
	if rec.Name != "Desk Lamp" || rec.PowerState != device.PowerOn {
		t.Errorf("last-known fields lost after failed refresh: %+v", rec)
	}
	if !rec.Degraded {
		t.Error("Degraded = false after a failed refresh")
	}
}

func TestSession_SetPower(t *testing.T) {
	state := &fakeState{alias: "Plug", mac: "AA:BB:CC:00:11:22", relay: 1}
	s, _ := newTestSession(t, state)
	defer s.Close()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if err := s.SetPower(context.Background(), false); err != nil {
		t.Fatalf("SetPower(false) error: %v", err)
	}

	if state.getRelay() != 0 {
		t.Error("device relay not switched off")
	}
	if rec := s.Record(); rec.PowerState != device.PowerOff {
		t.Errorf("PowerState = %q after SetPower(false), want off", rec.PowerState)
	}
}

func TestSession_SetPowerFailureKeepsState(t *testing.T) {
	state := &fakeState{alias: "Plug", mac: "AA:BB:CC:00:11:22", relay: 1}
	s, shutdown := newTestSession(t, state)
	defer s.Close()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	shutdown()

	if err := s.SetPower(context.Background(), false); err == nil {
		t.Fatal("SetPower() succeeded against a stopped device")
	}
	if rec := s.Record(); rec.PowerState != device.PowerOn {
		t.Errorf("PowerState = %q after failed SetPower, want previous state on", rec.PowerState)
	}
}

func TestSession_ReadEnergy(t *testing.T) {
	state := &fakeState{alias: "Meter Plug", mac: "AA:BB:CC:00:11:44", relay: 1}
	s, _ := newTestSession(t, state)
	defer s.Close()

	reading, err := s.ReadEnergy(context.Background())
	if err != nil {
		t.Fatalf("ReadEnergy() error: %v", err)
	}
	if reading.PowerW == nil || *reading.PowerW != 1.5 {
		t.Errorf("PowerW = %v, want 1.5 (normalized from 1500 mW)", reading.PowerW)
	}
	if reading.VoltageV == nil || *reading.VoltageV != 120.0 {
		t.Errorf("VoltageV = %v, want 120.0 (normalized from 120000 mV)", reading.VoltageV)
	}

	// The reading is retained for the next snapshot.
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if rec := s.Record(); rec.Energy == nil || rec.Energy.PowerW == nil || *rec.Energy.PowerW != 1.5 {
		t.Errorf("Record().Energy = %+v, want retained reading", s.Record().Energy)
	}
}

func TestSession_SetBrightnessRange(t *testing.T) {
	s := NewSession("127.0.0.1", 1)
	if err := s.SetBrightness(context.Background(), 0); err == nil {
		t.Error("SetBrightness(0) accepted out-of-range level")
	}
	if err := s.SetBrightness(context.Background(), 101); err == nil {
		t.Error("SetBrightness(101) accepted out-of-range level")
	}
}

func TestSession_ClosedSessionRejectsOperations(t *testing.T) {
	state := &fakeState{alias: "Plug", mac: "AA:BB:CC:00:11:55", relay: 1}
	s, _ := newTestSession(t, state)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}

	err := s.Refresh(context.Background())
	if err == nil {
		t.Fatal("Refresh() succeeded on a closed session")
	}
	if !IsFatal(err) {
		t.Errorf("error = %v, want fatal class", err)
	}
}
