package inventory

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kasaops/kasascan/internal/device"
)

// csvColumns is the fixed column set for both the snapshot and the
// scan log. Energy columns are always present (empty when a device has
// no reading) so appended rows stay aligned with the header written by
// the first round.
var csvColumns = []string{
	"timestamp", "name", "mac", "ip", "model", "type",
	"power_state", "signal_strength", "brightness", "firmware_version",
	"power_w", "voltage_v", "current_a", "total_kwh",
}

// WriteSnapshot overwrites the latest-scan snapshot with one row per
// record, each prefixed with the round timestamp. The write is atomic.
func (s *Store) WriteSnapshot(records []device.Record, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDataDir(); err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvColumns); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(csvRow(r, ts)); err != nil {
			return fmt.Errorf("failed to write snapshot row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := s.writeFileAtomic(s.SnapshotPath(), buf.Bytes()); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// AppendScanLog extends the append-only history with one row per
// record. The header is written only when the log is new or empty;
// existing rows are never rewritten.
func (s *Store) AppendScanLog(records []device.Record, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDataDir(); err != nil {
		return err
	}

	f, err := os.OpenFile(s.ScanLogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open scan log: %w", err)
	}
	defer f.Close()

	writeHeader := false
	if fi, err := f.Stat(); err == nil && fi.Size() == 0 {
		writeHeader = true
	}

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvColumns); err != nil {
			return fmt.Errorf("failed to write scan log header: %w", err)
		}
	}
	for _, r := range records {
		if err := w.Write(csvRow(r, ts)); err != nil {
			return fmt.Errorf("failed to write scan log row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to append scan log: %w", err)
	}
	return nil
}

// Persist records one completed round: the snapshot is replaced and the
// history extended, both stamped with the same timestamp.
func (s *Store) Persist(records []device.Record, ts time.Time) error {
	if err := s.WriteSnapshot(records, ts); err != nil {
		return err
	}
	return s.AppendScanLog(records, ts)
}

func csvRow(r device.Record, ts time.Time) []string {
	row := []string{
		ts.UTC().Format(time.RFC3339),
		r.Name,
		r.MAC,
		r.IP,
		r.Model,
		r.Type,
		string(r.PowerState),
		optInt(r.Signal),
		optInt(r.Brightness),
		r.Firmware,
	}
	if r.Energy != nil {
		row = append(row,
			optFloat(r.Energy.PowerW),
			optFloat(r.Energy.VoltageV),
			optFloat(r.Energy.CurrentA),
			optFloat(r.Energy.TotalKWh),
		)
	} else {
		row = append(row, "", "", "", "")
	}
	return row
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
