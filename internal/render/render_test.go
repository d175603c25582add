package render

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/kasaops/kasascan/internal/device"
	"github.com/kasaops/kasascan/internal/protocol"
)

func sampleRecords() []device.Record {
	sig := -58
	power := 1.5
	return []device.Record{
		{
			Name:       "Office Sconce Left",
			MAC:        "98:25:4A:5F:4E:6F",
			IP:         "10.0.0.5",
			Model:      "HS110(UK)",
			Type:       "Plug",
			PowerState: device.PowerOn,
			Signal:     &sig,
			Energy:     &protocol.EnergyReading{PowerW: &power},
		},
		{
			Name:       "Bedroom Lamp",
			MAC:        "D8:0D:17:A5:B2:C1",
			IP:         "10.0.0.9",
			PowerState: device.PowerUnknown,
		},
	}
}

func TestTable_ContainsDevices(t *testing.T) {
	out := Table(sampleRecords(), false)

	for _, part := range []string{
		"Device Name", "MAC", "IP Address",
		"Office Sconce Left", "98:25:4A:5F:4E:6F", "10.0.0.5", "ON",
		"Bedroom Lamp",
	} {
		if !strings.Contains(out, part) {
			t.Errorf("table missing %q:\n%s", part, out)
		}
	}
	if strings.Contains(out, "Watts") {
		t.Error("energy columns rendered without --energy")
	}
	// Absent optional fields show a placeholder, not a zero.
	if !strings.Contains(out, absent) {
		t.Error("absent fields not rendered as placeholder")
	}
}

func TestTable_EnergyColumns(t *testing.T) {
	out := Table(sampleRecords(), true)
	for _, part := range []string{"Watts", "Volts", "Amps", "kWh", "1.5"} {
		if !strings.Contains(out, part) {
			t.Errorf("energy table missing %q:\n%s", part, out)
		}
	}
}

func TestJSON_RoundTrips(t *testing.T) {
	ts := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	out, err := JSON(sampleRecords(), ts)
	if err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var doc struct {
		Timestamp   time.Time       `json:"timestamp"`
		DeviceCount int             `json:"device_count"`
		Devices     []device.Record `json:"devices"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc.DeviceCount != 2 || len(doc.Devices) != 2 {
		t.Errorf("device_count = %d, devices = %d, want 2 each", doc.DeviceCount, len(doc.Devices))
	}
	if !doc.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", doc.Timestamp, ts)
	}
	// Optional energy omitted for the lamp, present for the plug.
	if doc.Devices[0].Energy == nil {
		t.Error("metering device lost its energy reading")
	}
	if doc.Devices[1].Energy != nil {
		t.Error("non-metering device grew an energy reading")
	}
}

func TestCSV_ParsesBack(t *testing.T) {
	out, err := CSV(sampleRecords(), true)
	if err != nil {
		t.Fatalf("CSV() error: %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("CSV has %d rows, want header plus 2 devices", len(rows))
	}
	if rows[0][0] != "name" || rows[0][len(rows[0])-1] != "total_kwh" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][5] != "on" || rows[2][5] != "unknown" {
		t.Errorf("power_state column wrong: %v / %v", rows[1][5], rows[2][5])
	}
}
