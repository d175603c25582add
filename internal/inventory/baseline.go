package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kasaops/kasascan/internal/device"
)

// ErrNoBaseline means a diff was requested before any baseline was
// saved.
var ErrNoBaseline = errors.New("no baseline found; run 'kasascan baseline' first")

// Baseline is a timestamped, immutable snapshot of the device
// population.
type Baseline struct {
	Timestamp time.Time       `json:"timestamp"`
	Devices   []device.Record `json:"devices"`
}

// SaveBaseline writes a new baseline for records, replacing any
// previous one. The write is atomic.
func (s *Store) SaveBaseline(records []device.Record) (*Baseline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDataDir(); err != nil {
		return nil, err
	}

	b := &Baseline{
		Timestamp: time.Now().UTC(),
		Devices:   records,
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal baseline: %w", err)
	}
	if err := s.writeFileAtomic(s.BaselinePath(), data); err != nil {
		return nil, fmt.Errorf("failed to save baseline: %w", err)
	}
	return b, nil
}

// LoadBaseline reads the saved baseline back, unmodified. A missing
// file yields ErrNoBaseline.
func (s *Store) LoadBaseline() (*Baseline, error) {
	data, err := os.ReadFile(s.BaselinePath())
	if os.IsNotExist(err) {
		return nil, ErrNoBaseline
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse baseline: %w", err)
	}
	return &b, nil
}
