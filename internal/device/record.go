// Package device defines the canonical Device Record: the immutable
// description of one Kasa device as observed in one discovery round.
//
// The hardware address is the stable identity key; the IP address and
// display name are observations that may change between rounds. Records
// are never mutated after construction, a new round always produces a
// fresh list.
package device

import (
	"sort"
	"strings"

	"github.com/kasaops/kasascan/internal/protocol"
)

// PowerState is the observed relay/light state of a device.
type PowerState string

const (
	PowerOn      PowerState = "on"
	PowerOff     PowerState = "off"
	PowerUnknown PowerState = "unknown"
)

// Record describes one device at one point in time. Optional readings
// are pointers so absence is a first-class state rather than a zero
// value.
type Record struct {
	Name       string     `json:"name"`
	MAC        string     `json:"mac"` // uppercase, colon-separated
	IP         string     `json:"ip"`
	Model      string     `json:"model,omitempty"`
	Type       string     `json:"type,omitempty"`
	PowerState PowerState `json:"power_state"`
	Signal     *int       `json:"signal_strength,omitempty"`
	Brightness *int       `json:"brightness,omitempty"`
	Firmware   string     `json:"firmware_version,omitempty"`

	// Energy is present only for devices exposing a metering
	// capability, and only when the scan requested telemetry.
	Energy *protocol.EnergyReading `json:"energy,omitempty"`

	// Degraded marks a record whose refresh failed; its fields are the
	// last values the device reported before going quiet.
	Degraded bool `json:"degraded,omitempty"`
}

// FromSysInfo builds a Record from a decoded sysinfo reply and the
// source address it arrived from.
func FromSysInfo(info *protocol.SysInfo, ip string) Record {
	rec := Record{
		Name:       info.Alias,
		MAC:        info.MAC,
		IP:         ip,
		Model:      info.Model,
		Type:       info.DeviceType,
		PowerState: PowerUnknown,
		Signal:     info.RSSI,
		Brightness: info.Brightness,
		Firmware:   info.SWVer,
	}
	if on, known := info.On(); known {
		if on {
			rec.PowerState = PowerOn
		} else {
			rec.PowerState = PowerOff
		}
	}
	return rec
}

// Sort orders records deterministically by the given key (name, ip,
// mac, model, or type), falling back to MAC so the order never depends
// on discovery completion order. Unknown keys sort by name.
func Sort(records []Record, key string) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := sortField(records[i], key), sortField(records[j], key)
		if a != b {
			return a < b
		}
		return records[i].MAC < records[j].MAC
	})
}

func sortField(r Record, key string) string {
	switch key {
	case "ip":
		return r.IP
	case "mac":
		return r.MAC
	case "model":
		return strings.ToLower(r.Model)
	case "type":
		return strings.ToLower(r.Type)
	default:
		return strings.ToLower(r.Name)
	}
}

// FilterName keeps records whose name contains the needle,
// case-insensitively. An empty needle keeps everything.
func FilterName(records []Record, needle string) []Record {
	if needle == "" {
		return records
	}
	n := strings.ToLower(needle)
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Name), n) {
			out = append(out, r)
		}
	}
	return out
}

// FilterType keeps records whose type contains the needle,
// case-insensitively. An empty needle keeps everything.
func FilterType(records []Record, needle string) []Record {
	if needle == "" {
		return records
	}
	n := strings.ToLower(needle)
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Type), n) {
			out = append(out, r)
		}
	}
	return out
}
