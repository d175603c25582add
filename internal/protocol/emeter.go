package protocol

import (
	"encoding/json"
	"fmt"
)

// EnergyReading is a normalized realtime telemetry sample. Fields are
// pointers because firmware omits readings it cannot take (e.g. bulbs
// report power but not voltage).
type EnergyReading struct {
	PowerW   *float64 `json:"power_w,omitempty"`
	VoltageV *float64 `json:"voltage_v,omitempty"`
	CurrentA *float64 `json:"current_a,omitempty"`
	TotalKWh *float64 `json:"total_kwh,omitempty"`
}

// rawRealtime carries both unit conventions seen in the field: older
// firmware reports watts/volts/amps/kWh, newer firmware reports
// milli-units with a _mw/_mv/_ma/_wh suffix.
type rawRealtime struct {
	Power     *float64 `json:"power"`
	PowerMW   *float64 `json:"power_mw"`
	Voltage   *float64 `json:"voltage"`
	VoltageMV *float64 `json:"voltage_mv"`
	Current   *float64 `json:"current"`
	CurrentMA *float64 `json:"current_ma"`
	Total     *float64 `json:"total"`
	TotalWH   *float64 `json:"total_wh"`
	ErrCode   int      `json:"err_code"`
}

type emeterEnvelope struct {
	Emeter *struct {
		GetRealtime json.RawMessage `json:"get_realtime"`
	} `json:"emeter"`
}

// ParseRealtimeResponse decodes an emeter.get_realtime response payload
// and normalizes every reading to watts, volts, amps, and
// kilowatt-hours.
func ParseRealtimeResponse(payload []byte) (*EnergyReading, error) {
	var env emeterEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("failed to parse emeter reply: %w", err)
	}
	if env.Emeter == nil || len(env.Emeter.GetRealtime) == 0 {
		return nil, fmt.Errorf("emeter reply has no get_realtime object")
	}
	var raw rawRealtime
	if err := json.Unmarshal(env.Emeter.GetRealtime, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse realtime object: %w", err)
	}
	if raw.ErrCode != 0 {
		return nil, fmt.Errorf("device reported emeter error code %d", raw.ErrCode)
	}
	return normalizeRealtime(&raw), nil
}

// normalizeRealtime prefers milli-unit fields when present, scaling by
// the appropriate power of ten.
func normalizeRealtime(raw *rawRealtime) *EnergyReading {
	return &EnergyReading{
		PowerW:   scaled(raw.PowerMW, raw.Power, 1000),
		VoltageV: scaled(raw.VoltageMV, raw.Voltage, 1000),
		CurrentA: scaled(raw.CurrentMA, raw.Current, 1000),
		TotalKWh: scaled(raw.TotalWH, raw.Total, 1000),
	}
}

func scaled(milli, whole *float64, factor float64) *float64 {
	if milli != nil {
		v := *milli / factor
		return &v
	}
	return whole
}
