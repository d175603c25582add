package discovery

import (
	"context"
	"net"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kasaops/kasascan/internal/logging"
	"github.com/kasaops/kasascan/internal/protocol"
)

// DefaultRefreshConcurrency bounds the fan-out when refreshing every
// device found in a resolution round.
const DefaultRefreshConcurrency = 8

// Resolver turns a user identifier (IP literal or partial device name)
// into exactly one live Session.
type Resolver struct {
	// Transport performs the discovery rounds.
	Transport *Transport

	// ControlPort is the TCP port sessions talk to. Zero selects the
	// standard control port.
	ControlPort int

	// ControlTimeout bounds each per-device operation.
	ControlTimeout time.Duration

	// RefreshConcurrency bounds parallel refreshes. Zero selects
	// DefaultRefreshConcurrency.
	RefreshConcurrency int
}

// NewResolver creates a Resolver over the given transport.
func NewResolver(t *Transport) *Resolver {
	return &Resolver{Transport: t, ControlPort: protocol.LegacyPort}
}

// Resolve finds the one device the identifier refers to.
//
// An IP literal is probed directly; any failure on that path yields a
// NotFoundError. Anything else triggers a full broadcast round followed
// by a case-insensitive substring match on device names. Zero matches
// yield NotFoundError, more than one yields AmbiguousError with every
// candidate listed. All sessions except the returned one are closed
// before Resolve returns.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*Session, error) {
	if isIPLiteral(identifier) {
		return r.resolveByIP(ctx, identifier)
	}
	return r.resolveByName(ctx, identifier)
}

func (r *Resolver) resolveByIP(ctx context.Context, ip string) (*Session, error) {
	reply, err := r.Transport.DiscoverSingle(ctx, ip)
	if err != nil {
		return nil, &NotFoundError{Identifier: ip, Err: err}
	}

	sess := r.newSession(reply)
	if err := sess.Refresh(ctx); err != nil {
		_ = sess.Close()
		return nil, &NotFoundError{Identifier: ip, Err: err}
	}
	return sess, nil
}

func (r *Resolver) resolveByName(ctx context.Context, name string) (*Session, error) {
	replies, err := r.Transport.Discover(ctx)
	if err != nil {
		return nil, err
	}

	sessions := make([]*Session, 0, len(replies))
	for i := range replies {
		sessions = append(sessions, r.newSession(&replies[i]))
	}
	r.refreshAll(ctx, sessions)

	needle := strings.ToLower(name)
	var matches []*Session
	for _, s := range sessions {
		if strings.Contains(strings.ToLower(s.Name()), needle) {
			matches = append(matches, s)
		}
	}

	switch len(matches) {
	case 0:
		closeAll(sessions)
		return nil, &NotFoundError{Identifier: name}
	case 1:
		for _, s := range sessions {
			if s != matches[0] {
				_ = s.Close()
			}
		}
		return matches[0], nil
	default:
		candidates := make([]Candidate, 0, len(matches))
		for _, s := range matches {
			candidates = append(candidates, Candidate{Name: s.Name(), IP: s.Host()})
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].IP < candidates[j].IP })
		closeAll(sessions)
		return nil, &AmbiguousError{Identifier: name, Candidates: candidates}
	}
}

// refreshAll refreshes every session with bounded fan-out. Individual
// refresh failures leave the session degraded but still matchable via
// its discovery-time alias.
func (r *Resolver) refreshAll(ctx context.Context, sessions []*Session) {
	limit := r.RefreshConcurrency
	if limit <= 0 {
		limit = DefaultRefreshConcurrency
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, s := range sessions {
		g.Go(func() error {
			if err := s.Refresh(ctx); err != nil {
				logging.Debug("Refresh failed during resolution",
					zap.String("host", s.Host()),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Resolver) newSession(reply *Reply) *Session {
	s := SessionFromReply(reply, r.ControlPort)
	if r.ControlTimeout > 0 {
		s.SetTimeout(r.ControlTimeout)
	}
	return s
}

func closeAll(sessions []*Session) {
	for _, s := range sessions {
		_ = s.Close()
	}
}

// isIPLiteral reports whether s is a four-dot numeric IPv4 address.
func isIPLiteral(s string) bool {
	if strings.Count(s, ".") != 3 {
		return false
	}
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil
}
