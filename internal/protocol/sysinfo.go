package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SysInfo is the decoded device self-description from a discovery reply
// or a system.get_sysinfo response. Optional readings are pointers so
// "not reported" is distinguishable from a zero value.
type SysInfo struct {
	Alias      string
	MAC        string // canonical form: uppercase, colon-separated
	Model      string
	DeviceType string
	DeviceID   string
	SWVer      string
	RSSI       *int
	RelayState *int // plugs and switches
	Brightness *int // dimmers and bulbs
	LightOn    *int // bulbs report power via light_state
	HasEmeter  bool
}

// On reports the device power state. The second return value is false
// when the reply carried no power information at all.
func (s *SysInfo) On() (bool, bool) {
	if s.RelayState != nil {
		return *s.RelayState != 0, true
	}
	if s.LightOn != nil {
		return *s.LightOn != 0, true
	}
	return false, false
}

// rawSysInfo mirrors the field soup real firmware emits. Different
// generations use different key names for the same concept.
type rawSysInfo struct {
	Alias      string          `json:"alias"`
	MAC        string          `json:"mac"`
	Mic        string          `json:"mic_mac"`
	Model      string          `json:"model"`
	Type       string          `json:"type"`
	MicType    string          `json:"mic_type"`
	DeviceID   string          `json:"deviceId"`
	SWVer      string          `json:"sw_ver"`
	RSSI       *int            `json:"rssi"`
	RelayState *int            `json:"relay_state"`
	Brightness *int            `json:"brightness"`
	LightState *rawLightState  `json:"light_state"`
	Feature    string          `json:"feature"`
	ErrCode    json.RawMessage `json:"err_code"`
}

type rawLightState struct {
	OnOff      *int `json:"on_off"`
	Brightness *int `json:"brightness"`
}

// legacyEnvelope is the outer object of a legacy reply.
type legacyEnvelope struct {
	System *struct {
		GetSysInfo json.RawMessage `json:"get_sysinfo"`
	} `json:"system"`
}

// modernEnvelope is the outer object of a structured (port 20002) reply.
type modernEnvelope struct {
	Result *struct {
		DeviceID    string `json:"device_id"`
		DeviceModel string `json:"device_model"`
		DeviceType  string `json:"device_type"`
		DeviceAlias string `json:"device_alias"`
		MAC         string `json:"mac"`
		FirmwareVer string `json:"firmware_version"`
	} `json:"result"`
}

// DecodeDiscovery decodes a raw discovery reply, trying the legacy XOR
// encoding first and falling back to the structured form. Payloads that
// match neither yield an error; callers drop them and keep collecting.
func DecodeDiscovery(data []byte) (*SysInfo, error) {
	if info, err := decodeLegacy(Deobfuscate(data)); err == nil {
		return info, nil
	}
	if info, err := decodeModern(data); err == nil {
		return info, nil
	}
	return nil, fmt.Errorf("payload matches neither legacy nor structured discovery encoding")
}

// ParseSysInfoResponse decodes a system.get_sysinfo response payload
// from the TCP control channel (already decrypted by ReadFrame).
func ParseSysInfoResponse(payload []byte) (*SysInfo, error) {
	return decodeLegacy(payload)
}

func decodeLegacy(plain []byte) (*SysInfo, error) {
	var env legacyEnvelope
	if err := json.Unmarshal(plain, &env); err != nil {
		return nil, fmt.Errorf("failed to parse legacy reply: %w", err)
	}
	if env.System == nil || len(env.System.GetSysInfo) == 0 {
		return nil, fmt.Errorf("legacy reply has no system.get_sysinfo object")
	}
	var raw rawSysInfo
	if err := json.Unmarshal(env.System.GetSysInfo, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse sysinfo object: %w", err)
	}

	info := &SysInfo{
		Alias:      raw.Alias,
		Model:      raw.Model,
		DeviceType: CleanDeviceType(firstNonEmpty(raw.Type, raw.MicType)),
		DeviceID:   raw.DeviceID,
		SWVer:      raw.SWVer,
		RSSI:       raw.RSSI,
		RelayState: raw.RelayState,
		Brightness: raw.Brightness,
		HasEmeter:  strings.Contains(strings.ToUpper(raw.Feature), "ENE"),
	}
	if raw.LightState != nil {
		info.LightOn = raw.LightState.OnOff
		if info.Brightness == nil {
			info.Brightness = raw.LightState.Brightness
		}
	}
	if mac, err := NormalizeMAC(firstNonEmpty(raw.MAC, raw.Mic)); err == nil {
		info.MAC = mac
	}
	return info, nil
}

func decodeModern(data []byte) (*SysInfo, error) {
	var env modernEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse structured reply: %w", err)
	}
	if env.Result == nil {
		return nil, fmt.Errorf("structured reply has no result object")
	}
	info := &SysInfo{
		Alias:      env.Result.DeviceAlias,
		Model:      env.Result.DeviceModel,
		DeviceType: CleanDeviceType(env.Result.DeviceType),
		DeviceID:   env.Result.DeviceID,
		SWVer:      env.Result.FirmwareVer,
	}
	if mac, err := NormalizeMAC(env.Result.MAC); err == nil {
		info.MAC = mac
	}
	return info, nil
}

// NormalizeMAC converts a hardware address into canonical form:
// uppercase hex octets separated by colons. Accepts colon, dash, or
// separator-free input.
func NormalizeMAC(s string) (string, error) {
	hex := strings.ToUpper(strings.NewReplacer(":", "", "-", "", ".", "").Replace(strings.TrimSpace(s)))
	if len(hex) != 12 {
		return "", fmt.Errorf("invalid hardware address %q", s)
	}
	for _, c := range hex {
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return "", fmt.Errorf("invalid hardware address %q", s)
		}
	}
	parts := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		parts = append(parts, hex[i:i+2])
	}
	return strings.Join(parts, ":"), nil
}

// CleanDeviceType strips vendor prefixes from device type strings, e.g.
// "IOT.SMARTPLUGSWITCH" becomes "Plug" and "IOT.SMARTBULB" becomes
// "Bulb".
func CleanDeviceType(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "IOT.SMARTPLUGSWITCH", "SMART.KASAPLUG", "SMARTPLUG", "PLUG":
		return "Plug"
	case "IOT.SMARTBULB", "SMART.KASABULB", "SMARTBULB", "BULB":
		return "Bulb"
	case "IOT.IPCAMERA", "CAMERA":
		return "Camera"
	case "IOT.RANGEEXTENDER.SMARTPLUG":
		return "Extender"
	case "":
		return ""
	default:
		// Unknown class: keep the last dotted component.
		parts := strings.Split(raw, ".")
		return parts[len(parts)-1]
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
