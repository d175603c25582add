// Package protocol implements the TP-Link Kasa smart home wire protocols.
//
// Kasa devices speak two related protocols:
//
//   - A legacy JSON protocol where every payload byte is obfuscated with
//     XOR. Discovery datagrams on UDP port 9999 use a fixed key (0xAB);
//     the TCP control channel on port 9999 uses an autokey variant where
//     the key for each byte is the previous ciphertext byte, and frames
//     are prefixed with a 4-byte big-endian payload length.
//
//   - A newer structured protocol on UDP port 20002 where discovery
//     replies are plain JSON carrying a "result" object. This package
//     only decodes the discovery reply for these devices; full control
//     requires cloud credentials and is out of scope.
//
// # Discovery Decoding
//
// DecodeDiscovery attempts both encodings in priority order: the legacy
// XOR encoding first (success requires a system.get_sysinfo object),
// then the structured "result" form. Payloads matching neither are
// rejected with an error so callers can drop them and continue.
//
// # Requests
//
// Request builders produce the JSON command payloads understood by the
// legacy protocol:
//
//	protocol.SysInfoQuery()        // system.get_sysinfo
//	protocol.SetRelayState(true)   // system.set_relay_state
//	protocol.EmeterQuery()         // emeter.get_realtime
//	protocol.SetBrightness(50)     // smartlife.iot.dimmer.set_brightness
//
// All telemetry readings are normalized to SI-friendly units (watts,
// volts, amps, kilowatt-hours) regardless of whether the firmware
// reports milli-units.
package protocol
