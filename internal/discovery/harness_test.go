package discovery

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kasaops/kasascan/internal/protocol"
)

// fakeState is the mutable state of one fake device.
type fakeState struct {
	mu    sync.Mutex
	alias string
	mac   string
	relay int
}

func (f *fakeState) sysinfoJSON() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf(`{"system":{"get_sysinfo":{
		"alias":%q,"mac":%q,"relay_state":%d,
		"type":"IOT.SMARTPLUGSWITCH","model":"HS110(UK)","sw_ver":"1.5.6",
		"rssi":-55,"feature":"TIM:ENE","err_code":0}}}`, f.alias, f.mac, f.relay)
}

func (f *fakeState) setRelay(v int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relay = v
}

func (f *fakeState) getRelay() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.relay
}

// startUDPResponder binds host:port (port 0 picks a free one) and
// answers every datagram with the payload built by reply. A nil reply
// result suppresses the answer. delay postpones each answer.
func startUDPResponder(t *testing.T, host string, port int, delay time.Duration, reply func() []byte) int {
	t.Helper()
	conn, err := net.ListenPacket("udp4", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		t.Fatalf("failed to bind UDP responder on %s:%d: %v", host, port, err)
	}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 2048)
		for {
			_, src, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			payload := reply()
			if payload == nil {
				continue
			}
			go func(dst net.Addr, p []byte) {
				if delay > 0 {
					time.Sleep(delay)
				}
				_, _ = conn.WriteTo(p, dst)
			}(src, payload)
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr).Port
}

// startTCPDevice binds host:port (0 picks a free one) and speaks the
// framed control protocol, mutating state on commands. Returns the
// bound port and a shutdown func.
func startTCPDevice(t *testing.T, host string, port int, state *fakeState) (int, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		t.Fatalf("failed to bind TCP device on %s:%d: %v", host, port, err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveDeviceConn(conn, state)
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port, func() { ln.Close() }
}

func serveDeviceConn(conn net.Conn, state *fakeState) {
	defer conn.Close()
	for {
		payload, err := protocol.ReadFrame(conn)
		if err != nil {
			return
		}
		req := string(payload)
		var resp string
		switch {
		case strings.Contains(req, "get_sysinfo"):
			resp = state.sysinfoJSON()
		case strings.Contains(req, "set_relay_state"):
			if strings.Contains(req, `"state":1`) {
				state.setRelay(1)
			} else {
				state.setRelay(0)
			}
			resp = `{"system":{"set_relay_state":{"err_code":0}}}`
		case strings.Contains(req, "get_realtime"):
			resp = `{"emeter":{"get_realtime":{
				"power_mw":1500,"voltage_mv":120000,"current_ma":125,"total_wh":2450,"err_code":0}}}`
		case strings.Contains(req, "set_brightness"):
			resp = `{"smartlife.iot.dimmer":{"set_brightness":{"err_code":0}}}`
		default:
			resp = `{"system":{"unknown":{"err_code":-2}}}`
		}
		if err := protocol.WriteFrame(conn, []byte(resp)); err != nil {
			return
		}
	}
}

// legacyReply returns the obfuscated discovery reply for state.
func legacyReply(state *fakeState) func() []byte {
	return func() []byte {
		return protocol.Obfuscate([]byte(state.sysinfoJSON()))
	}
}
