// Package render formats device records for the terminal and for
// machine-readable output. Column layout here is presentation only; the
// data model lives in the device package.
package render

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kasaops/kasascan/internal/device"
)

// absent is shown for optional fields a device did not report.
const absent = "—"

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	ruleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	degStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
)

type column struct {
	label string
	value func(device.Record) string
}

func statusColumns() []column {
	return []column{
		{"Device Name", func(r device.Record) string { return orAbsent(r.Name) }},
		{"MAC", func(r device.Record) string { return orAbsent(r.MAC) }},
		{"IP Address", func(r device.Record) string { return orAbsent(r.IP) }},
		{"Model", func(r device.Record) string { return orAbsent(r.Model) }},
		{"Type", func(r device.Record) string { return orAbsent(r.Type) }},
		{"State", func(r device.Record) string { return powerLabel(r.PowerState) }},
		{"RSSI", func(r device.Record) string { return optInt(r.Signal) }},
	}
}

func energyColumns() []column {
	return []column{
		{"Watts", func(r device.Record) string { return optEnergy(r, func(e anyEnergy) *float64 { return e.PowerW }) }},
		{"Volts", func(r device.Record) string { return optEnergy(r, func(e anyEnergy) *float64 { return e.VoltageV }) }},
		{"Amps", func(r device.Record) string { return optEnergy(r, func(e anyEnergy) *float64 { return e.CurrentA }) }},
		{"kWh", func(r device.Record) string { return optEnergy(r, func(e anyEnergy) *float64 { return e.TotalKWh }) }},
	}
}

// Table renders records as an aligned table. Energy columns appear only
// when requested.
func Table(records []device.Record, energy bool) string {
	cols := statusColumns()
	if energy {
		cols = append(cols, energyColumns()...)
	}

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = lipgloss.Width(c.label)
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = c.value(r)
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
		rows = append(rows, row)
	}

	var b strings.Builder
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = pad(c.label, widths[i])
	}
	b.WriteString(headerStyle.Render(strings.Join(header, "  ")))
	b.WriteString("\n")
	b.WriteString(ruleStyle.Render(strings.Repeat("─", lipgloss.Width(strings.Join(header, "  ")))))
	b.WriteString("\n")

	for ri, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = pad(v, widths[i])
		}
		line := strings.Join(cells, "  ")
		if records[ri].Degraded {
			line = degStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// jsonDocument is the envelope for machine-readable scan output.
type jsonDocument struct {
	Timestamp   time.Time       `json:"timestamp"`
	DeviceCount int             `json:"device_count"`
	Devices     []device.Record `json:"devices"`
}

// JSON renders records as an indented JSON document with a round
// timestamp and count.
func JSON(records []device.Record, ts time.Time) (string, error) {
	doc := jsonDocument{
		Timestamp:   ts.UTC(),
		DeviceCount: len(records),
		Devices:     records,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal devices: %w", err)
	}
	return string(data), nil
}

// CSV renders records as CSV text. Energy columns appear only when
// requested.
func CSV(records []device.Record, energy bool) (string, error) {
	header := []string{"name", "mac", "ip", "model", "type", "power_state", "signal_strength", "brightness", "firmware_version"}
	if energy {
		header = append(header, "power_w", "voltage_v", "current_a", "total_kwh")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Name, r.MAC, r.IP, r.Model, r.Type, string(r.PowerState),
			csvOptInt(r.Signal), csvOptInt(r.Brightness), r.Firmware,
		}
		if energy {
			if r.Energy != nil {
				row = append(row,
					csvOptFloat(r.Energy.PowerW), csvOptFloat(r.Energy.VoltageV),
					csvOptFloat(r.Energy.CurrentA), csvOptFloat(r.Energy.TotalKWh))
			} else {
				row = append(row, "", "", "", "")
			}
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to encode CSV: %w", err)
	}
	return buf.String(), nil
}

// anyEnergy mirrors the reading fields render cares about.
type anyEnergy struct {
	PowerW, VoltageV, CurrentA, TotalKWh *float64
}

func optEnergy(r device.Record, pick func(anyEnergy) *float64) string {
	if r.Energy == nil {
		return absent
	}
	v := pick(anyEnergy{r.Energy.PowerW, r.Energy.VoltageV, r.Energy.CurrentA, r.Energy.TotalKWh})
	if v == nil {
		return absent
	}
	return fmt.Sprintf("%.1f", *v)
}

func powerLabel(p device.PowerState) string {
	switch p {
	case device.PowerOn:
		return "ON"
	case device.PowerOff:
		return "OFF"
	default:
		return absent
	}
}

func orAbsent(s string) string {
	if s == "" {
		return absent
	}
	return s
}

func optInt(v *int) string {
	if v == nil {
		return absent
	}
	return fmt.Sprintf("%d", *v)
}

func csvOptInt(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func csvOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}

func pad(s string, width int) string {
	if d := width - lipgloss.Width(s); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}
