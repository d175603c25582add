package protocol

import "testing"

func TestParseRealtimeResponse_MilliUnits(t *testing.T) {
	payload := []byte(`{"emeter":{"get_realtime":{
		"power_mw":1500,"voltage_mv":120000,"current_ma":125,"total_wh":2450,"err_code":0}}}`)

	r, err := ParseRealtimeResponse(payload)
	if err != nil {
		t.Fatalf("ParseRealtimeResponse() error: %v", err)
	}

	if r.PowerW == nil || *r.PowerW != 1.5 {
		t.Errorf("PowerW = %v, want 1.5", r.PowerW)
	}
	if r.VoltageV == nil || *r.VoltageV != 120.0 {
		t.Errorf("VoltageV = %v, want 120.0", r.VoltageV)
	}
	if r.CurrentA == nil || *r.CurrentA != 0.125 {
		t.Errorf("CurrentA = %v, want 0.125", r.CurrentA)
	}
	if r.TotalKWh == nil || *r.TotalKWh != 2.45 {
		t.Errorf("TotalKWh = %v, want 2.45", r.TotalKWh)
	}
}

func TestParseRealtimeResponse_WholeUnits(t *testing.T) {
	payload := []byte(`{"emeter":{"get_realtime":{
		"power":60.5,"voltage":239.1,"current":0.26,"total":12.034,"err_code":0}}}`)

	r, err := ParseRealtimeResponse(payload)
	if err != nil {
		t.Fatalf("ParseRealtimeResponse() error: %v", err)
	}

	if r.PowerW == nil || *r.PowerW != 60.5 {
		t.Errorf("PowerW = %v, want 60.5 unchanged", r.PowerW)
	}
	if r.VoltageV == nil || *r.VoltageV != 239.1 {
		t.Errorf("VoltageV = %v, want 239.1 unchanged", r.VoltageV)
	}
}

func TestParseRealtimeResponse_PartialReadings(t *testing.T) {
	// Bulbs report power only.
	payload := []byte(`{"emeter":{"get_realtime":{"power_mw":9800,"err_code":0}}}`)

	r, err := ParseRealtimeResponse(payload)
	if err != nil {
		t.Fatalf("ParseRealtimeResponse() error: %v", err)
	}

	if r.PowerW == nil || *r.PowerW != 9.8 {
		t.Errorf("PowerW = %v, want 9.8", r.PowerW)
	}
	if r.VoltageV != nil || r.CurrentA != nil || r.TotalKWh != nil {
		t.Errorf("absent readings must stay nil, got %+v", r)
	}
}

func TestParseRealtimeResponse_DeviceError(t *testing.T) {
	payload := []byte(`{"emeter":{"get_realtime":{"err_code":-1}}}`)
	if _, err := ParseRealtimeResponse(payload); err == nil {
		t.Error("ParseRealtimeResponse() ignored a non-zero err_code")
	}
}

func TestParseRealtimeResponse_Malformed(t *testing.T) {
	for _, payload := range [][]byte{
		[]byte(`{}`),
		[]byte(`{"emeter":{}}`),
		[]byte(`garbage`),
	} {
		if _, err := ParseRealtimeResponse(payload); err == nil {
			t.Errorf("ParseRealtimeResponse(%q) succeeded, want error", payload)
		}
	}
}
