package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kasaops/kasascan/internal/logging"
	"github.com/kasaops/kasascan/internal/protocol"
)

const (
	// DefaultTimeout is the default collection window for one round.
	DefaultTimeout = 5 * time.Second

	// DefaultBroadcast is the limited broadcast address used when no
	// subnet-directed broadcast addresses are configured.
	DefaultBroadcast = "255.255.255.255"

	// maxDatagram is the receive buffer size. Sysinfo replies from the
	// chattiest firmware stay well under 2 KiB.
	maxDatagram = 2048
)

// Reply is one decoded discovery response.
type Reply struct {
	// Addr is the source IP address the reply arrived from.
	Addr string

	// Info is the decoded device self-description.
	Info *protocol.SysInfo

	// ReceivedAt is when the reply was collected.
	ReceivedAt time.Time
}

// Transport sends discovery probes and collects replies within a
// bounded time window. The zero value is not usable; call NewTransport.
type Transport struct {
	// Timeout is the collection window for one round.
	Timeout time.Duration

	// Ports are the discovery ports to probe. Both well-known Kasa
	// ports are probed by default; replies from different ports are
	// merged by source address, last decoded reply wins.
	Ports []int

	// Broadcasts are the broadcast addresses probed during a full
	// round. Usually just the limited broadcast address; add
	// subnet-directed broadcast addresses to reach other segments.
	Broadcasts []string
}

// NewTransport creates a Transport with default settings.
func NewTransport() *Transport {
	return &Transport{
		Timeout:    DefaultTimeout,
		Ports:      []int{protocol.LegacyPort, protocol.ModernPort},
		Broadcasts: []string{DefaultBroadcast},
	}
}

// Discover sends broadcast probes and collects every decodable reply
// that arrives before the timeout. An empty result is a valid outcome.
// The only error returned is failure to open the socket.
func (t *Transport) Discover(ctx context.Context) ([]Reply, error) {
	conn, err := listenUDP(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	targets := t.Broadcasts
	if len(targets) == 0 {
		targets = []string{DefaultBroadcast}
	}
	for _, host := range targets {
		t.sendProbes(conn, host)
	}

	byAddr := t.collect(ctx, conn, t.deadline(), nil)

	replies := make([]Reply, 0, len(byAddr))
	for _, r := range byAddr {
		replies = append(replies, r)
	}
	// Stable order regardless of reply arrival order.
	sort.Slice(replies, func(i, j int) bool { return replies[i].Addr < replies[j].Addr })
	return replies, nil
}

// DiscoverSingle sends unicast probes to one host and waits for the
// first decodable reply.
func (t *Transport) DiscoverSingle(ctx context.Context, host string) (*Reply, error) {
	conn, err := listenUDP(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	t.sendProbes(conn, host)

	byAddr := t.collect(ctx, conn, t.deadline(), func(r Reply) bool { return true })
	for _, r := range byAddr {
		return &r, nil
	}
	return nil, newUnreachableError("probe", host, fmt.Errorf("no reply within %s", t.Timeout))
}

func (t *Transport) deadline() time.Time {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return time.Now().Add(timeout)
}

// sendProbes writes every probe payload for every configured port to
// host. Send errors are logged and skipped; a device that never hears a
// probe simply does not reply.
func (t *Transport) sendProbes(conn net.PacketConn, host string) {
	ports := t.Ports
	if len(ports) == 0 {
		ports = []int{protocol.LegacyPort, protocol.ModernPort}
	}
	ip := net.ParseIP(host)
	if ip == nil {
		logging.Warn("Skipping unparseable probe target", zap.String("host", host))
		return
	}
	for _, port := range ports {
		for _, payload := range protocol.DiscoveryProbes(port) {
			addr := &net.UDPAddr{IP: ip, Port: port}
			if _, err := conn.WriteTo(payload, addr); err != nil {
				logging.Warn("Probe send failed",
					zap.String("target", addr.String()),
					zap.Error(err),
				)
			}
		}
	}
}

// collect reads replies until the deadline passes, the context is
// cancelled, or stop returns true for a decoded reply. Replies are
// keyed by source IP; a later decodable reply from the same host
// replaces the earlier one.
func (t *Transport) collect(ctx context.Context, conn net.PacketConn, deadline time.Time, stop func(Reply) bool) map[string]Reply {
	_ = conn.SetReadDeadline(deadline)

	// Cancellation unblocks the read by expiring the deadline.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	byAddr := make(map[string]Reply)
	buf := make([]byte, maxDatagram)
	for {
		n, src, err := conn.ReadFrom(buf)
		if err != nil {
			// Deadline expiry ends the collection window.
			return byAddr
		}
		host, _, err := net.SplitHostPort(src.String())
		if err != nil {
			host = src.String()
		}

		info, err := protocol.DecodeDiscovery(buf[:n])
		if err != nil {
			logging.Debug("Dropping undecodable reply",
				zap.String("source", host),
				zap.Int("length", n),
			)
			continue
		}
		if info.MAC == "" {
			// Without a hardware address the reply cannot be keyed to
			// a physical device.
			logging.Debug("Dropping reply without hardware address", zap.String("source", host))
			continue
		}

		reply := Reply{Addr: host, Info: info, ReceivedAt: time.Now()}
		byAddr[host] = reply
		if stop != nil && stop(reply) {
			return byAddr
		}
	}
}

// listenUDP opens the probe socket. This is the only fatal failure in a
// discovery round.
func listenUDP(ctx context.Context) (net.PacketConn, error) {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return nil, newFatalError("listen", "", fmt.Errorf("no usable network interface: %w", err))
	}
	return conn, nil
}
