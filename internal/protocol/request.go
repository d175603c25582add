package protocol

import "fmt"

// Well-known Kasa ports.
const (
	// LegacyPort carries both legacy UDP discovery and TCP control.
	LegacyPort = 9999

	// ModernPort carries the newer structured discovery protocol.
	ModernPort = 20002
)

// SysInfoQuery returns the system.get_sysinfo request payload. Sent as a
// broadcast probe it doubles as the legacy discovery message.
func SysInfoQuery() []byte {
	return []byte(`{"system":{"get_sysinfo":{}}}`)
}

// SetRelayState returns the payload that switches a plug or switch
// relay on or off.
func SetRelayState(on bool) []byte {
	state := 0
	if on {
		state = 1
	}
	return []byte(fmt.Sprintf(`{"system":{"set_relay_state":{"state":%d}}}`, state))
}

// SetLightState returns the payload that switches a smart bulb on or
// off. Bulbs ignore set_relay_state and expose the transition service
// instead.
func SetLightState(on bool) []byte {
	state := 0
	if on {
		state = 1
	}
	return []byte(fmt.Sprintf(
		`{"smartlife.iot.smartbulb.lightingservice":{"transition_light_state":{"on_off":%d}}}`, state))
}

// SetBrightness returns the payload that sets a dimmer brightness level
// (0-100).
func SetBrightness(level int) []byte {
	return []byte(fmt.Sprintf(
		`{"smartlife.iot.dimmer":{"set_brightness":{"brightness":%d}}}`, level))
}

// EmeterQuery returns the payload that reads realtime energy telemetry
// from metering-capable devices.
func EmeterQuery() []byte {
	return []byte(`{"emeter":{"get_realtime":{}}}`)
}

// ModernProbe returns the fixed 16-byte datagram that solicits a
// discovery reply from devices speaking the newer protocol on
// ModernPort. The trailing four bytes are a CRC the firmware checks
// verbatim.
func ModernProbe() []byte {
	return []byte{
		0x02, 0x00, 0x00, 0x01, 0x01, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x46, 0x3b, 0xe8, 0x78,
	}
}

// DiscoveryProbes returns the probe payloads for a given port, in the
// order they should be sent.
func DiscoveryProbes(port int) [][]byte {
	if port == ModernPort {
		return [][]byte{ModernProbe()}
	}
	return [][]byte{Obfuscate(SysInfoQuery())}
}
