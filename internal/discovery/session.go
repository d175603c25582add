package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/kasaops/kasascan/internal/device"
	"github.com/kasaops/kasascan/internal/protocol"
)

// DefaultControlTimeout bounds one control-channel round trip.
const DefaultControlTimeout = 5 * time.Second

// Session is a stateful handle to one device. Operations on a Session
// are serialized; each operation dials its own connection and closes it
// on every exit path. A failed refresh leaves the last-known fields in
// place and marks the session degraded.
type Session struct {
	host string
	port int

	mu       sync.Mutex
	timeout  time.Duration
	closed   bool
	degraded bool
	info     *protocol.SysInfo
	energy   *protocol.EnergyReading
}

// NewSession creates a session for the device at host. A non-positive
// port selects the standard control port.
func NewSession(host string, port int) *Session {
	if port <= 0 {
		port = protocol.LegacyPort
	}
	return &Session{host: host, port: port, timeout: DefaultControlTimeout}
}

// SessionFromReply creates a session seeded with the self-description
// from a discovery reply, so the device is usable before its first
// refresh.
func SessionFromReply(r *Reply, port int) *Session {
	s := NewSession(r.Addr, port)
	s.info = r.Info
	return s
}

// SetTimeout changes the per-operation timeout.
func (s *Session) SetTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.timeout = d
	}
}

// Host returns the device network address.
func (s *Session) Host() string { return s.host }

// Name returns the last-known display alias, which may be empty.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info == nil {
		return ""
	}
	return s.info.Alias
}

// Degraded reports whether the most recent refresh failed.
func (s *Session) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Record returns an immutable snapshot of the session's last-known
// state.
func (s *Session) Record() device.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info == nil {
		return device.Record{IP: s.host, PowerState: device.PowerUnknown, Degraded: s.degraded}
	}
	rec := device.FromSysInfo(s.info, s.host)
	rec.Energy = s.energy
	rec.Degraded = s.degraded
	return rec
}

// Refresh pulls the full device status. On failure the previously known
// fields are retained and the session is marked degraded; the session
// stays usable.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.roundTrip(ctx, protocol.SysInfoQuery())
	if err != nil {
		s.degraded = true
		return err
	}
	info, err := protocol.ParseSysInfoResponse(resp)
	if err != nil {
		s.degraded = true
		return newDecodeError("refresh", s.host, err)
	}
	s.info = info
	s.degraded = false
	return nil
}

// SetPower switches the device on or off. Bulbs are driven through the
// lighting service, everything else through the relay. On failure the
// previously known power state is unchanged.
func (s *Session) SetPower(ctx context.Context, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload := protocol.SetRelayState(on)
	if s.info != nil && (s.info.LightOn != nil || s.info.DeviceType == "Bulb") {
		payload = protocol.SetLightState(on)
	}

	resp, err := s.roundTrip(ctx, payload)
	if err != nil {
		return err
	}
	code, err := protocol.ResponseErrCode(resp)
	if err != nil {
		return newDecodeError("set power", s.host, err)
	}
	if code != 0 {
		return newUnreachableError("set power", s.host, fmt.Errorf("device reported error code %d", code))
	}

	// Command acknowledged: fold the new state into the last-known view.
	state := 0
	if on {
		state = 1
	}
	if s.info != nil {
		if s.info.LightOn != nil {
			s.info.LightOn = &state
		} else {
			s.info.RelayState = &state
		}
	}
	return nil
}

// SetBrightness sets a dimmer or bulb brightness level (1-100).
func (s *Session) SetBrightness(ctx context.Context, level int) error {
	if level < 1 || level > 100 {
		return fmt.Errorf("brightness %d out of range 1-100", level)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.roundTrip(ctx, protocol.SetBrightness(level))
	if err != nil {
		return err
	}
	code, err := protocol.ResponseErrCode(resp)
	if err != nil {
		return newDecodeError("set brightness", s.host, err)
	}
	if code != 0 {
		return newUnreachableError("set brightness", s.host, fmt.Errorf("device reported error code %d", code))
	}
	if s.info != nil {
		s.info.Brightness = &level
	}
	return nil
}

// ReadEnergy reads and normalizes realtime telemetry from a
// metering-capable device. The reading is also retained for the next
// Record snapshot.
func (s *Session) ReadEnergy(ctx context.Context) (*protocol.EnergyReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.roundTrip(ctx, protocol.EmeterQuery())
	if err != nil {
		return nil, err
	}
	reading, err := protocol.ParseRealtimeResponse(resp)
	if err != nil {
		return nil, newDecodeError("read energy", s.host, err)
	}
	s.energy = reading
	return reading, nil
}

// Close releases the session. Further operations fail. Closing twice is
// harmless.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// roundTrip performs one framed request/response exchange. The
// connection is scoped to the call and closed on every exit path.
// Callers must hold s.mu.
func (s *Session) roundTrip(ctx context.Context, payload []byte) ([]byte, error) {
	if s.closed {
		return nil, newFatalError("command", s.host, errors.New("session is closed"))
	}

	dialer := net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		return nil, newUnreachableError("connect", s.host, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(s.timeout))

	if err := protocol.WriteFrame(conn, payload); err != nil {
		return nil, newUnreachableError("send", s.host, err)
	}
	resp, err := protocol.ReadFrame(conn)
	if err != nil {
		return nil, newUnreachableError("receive", s.host, err)
	}
	return resp, nil
}
