package protocol

import (
	"testing"
)

// sampleSysInfoJSON is a trimmed HS110 (metering plug) sysinfo reply.
const sampleSysInfoJSON = `{"system":{"get_sysinfo":{
	"sw_ver":"1.5.6 Build 191114 Rel.104204",
	"type":"IOT.SMARTPLUGSWITCH",
	"model":"HS110(UK)",
	"mac":"98:25:4a:5f:4e:6f",
	"deviceId":"8006E8A7B1D1",
	"alias":"Office Sconce Left",
	"relay_state":1,
	"rssi":-58,
	"feature":"TIM:ENE",
	"err_code":0}}}`

const sampleBulbJSON = `{"system":{"get_sysinfo":{
	"sw_ver":"1.8.11 Build 191113 Rel.105336",
	"mic_type":"IOT.SMARTBULB",
	"model":"KL130(EU)",
	"mic_mac":"D80D17A5B2C1",
	"alias":"Hallway Lamp",
	"light_state":{"on_off":0,"brightness":40},
	"rssi":-71,
	"err_code":0}}}`

const sampleModernJSON = `{"result":{
	"device_id":"4f7e",
	"device_model":"P110",
	"device_type":"SMART.KASAPLUG",
	"device_alias":"Heater",
	"mac":"AA-BB-CC-DD-EE-FF",
	"firmware_version":"1.1.3"}}`

func TestDecodeDiscovery_Legacy(t *testing.T) {
	info, err := DecodeDiscovery(Obfuscate([]byte(sampleSysInfoJSON)))
	if err != nil {
		t.Fatalf("DecodeDiscovery() error: %v", err)
	}

	if info.Alias != "Office Sconce Left" {
		t.Errorf("Alias = %q, want %q", info.Alias, "Office Sconce Left")
	}
	if info.MAC != "98:25:4A:5F:4E:6F" {
		t.Errorf("MAC = %q, want canonical uppercase form", info.MAC)
	}
	if info.DeviceType != "Plug" {
		t.Errorf("DeviceType = %q, want Plug", info.DeviceType)
	}
	if on, known := info.On(); !known || !on {
		t.Errorf("On() = (%v, %v), want (true, true)", on, known)
	}
	if info.RSSI == nil || *info.RSSI != -58 {
		t.Errorf("RSSI = %v, want -58", info.RSSI)
	}
	if !info.HasEmeter {
		t.Error("HasEmeter = false for a device with ENE feature")
	}
}

func TestDecodeDiscovery_BulbLightState(t *testing.T) {
	info, err := DecodeDiscovery(Obfuscate([]byte(sampleBulbJSON)))
	if err != nil {
		t.Fatalf("DecodeDiscovery() error: %v", err)
	}

	if on, known := info.On(); !known || on {
		t.Errorf("On() = (%v, %v), want (false, true)", on, known)
	}
	if info.Brightness == nil || *info.Brightness != 40 {
		t.Errorf("Brightness = %v, want 40", info.Brightness)
	}
	if info.MAC != "D8:0D:17:A5:B2:C1" {
		t.Errorf("MAC = %q, want separator-free input normalized", info.MAC)
	}
	if info.DeviceType != "Bulb" {
		t.Errorf("DeviceType = %q, want Bulb", info.DeviceType)
	}
}

func TestDecodeDiscovery_Modern(t *testing.T) {
	info, err := DecodeDiscovery([]byte(sampleModernJSON))
	if err != nil {
		t.Fatalf("DecodeDiscovery() error: %v", err)
	}

	if info.Alias != "Heater" {
		t.Errorf("Alias = %q, want Heater", info.Alias)
	}
	if info.MAC != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("MAC = %q, want dashed input normalized", info.MAC)
	}
	if _, known := info.On(); known {
		t.Error("On() reported a power state the structured reply does not carry")
	}
}

func TestDecodeDiscovery_MalformedPayload(t *testing.T) {
	payloads := [][]byte{
		[]byte("not json at all"),
		[]byte(`{"unexpected":true}`),
		Obfuscate([]byte(`{"system":{}}`)),
		{},
	}
	for _, p := range payloads {
		if _, err := DecodeDiscovery(p); err == nil {
			t.Errorf("DecodeDiscovery(%q) succeeded, want error", p)
		}
	}
}

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"98:25:4a:5f:4e:6f", "98:25:4A:5F:4E:6F", false},
		{"AA-BB-CC-DD-EE-FF", "AA:BB:CC:DD:EE:FF", false},
		{"d80d17a5b2c1", "D8:0D:17:A5:B2:C1", false},
		{" C4:BE:84:74:86:37 ", "C4:BE:84:74:86:37", false},
		{"", "", true},
		{"not-a-mac", "", true},
		{"98:25:4a:5f:4e", "", true},
		{"gg:25:4a:5f:4e:6f", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeMAC(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeMAC(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeMAC(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanDeviceType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"IOT.SMARTPLUGSWITCH", "Plug"},
		{"IOT.SMARTBULB", "Bulb"},
		{"SMART.KASAPLUG", "Plug"},
		{"IOT.RANGEEXTENDER.SMARTPLUG", "Extender"},
		{"", ""},
		{"IOT.SOMETHING.NEW", "NEW"},
	}
	for _, tt := range tests {
		if got := CleanDeviceType(tt.in); got != tt.want {
			t.Errorf("CleanDeviceType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
