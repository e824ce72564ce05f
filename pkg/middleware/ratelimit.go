package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/utafrali/LibraryGo/pkg/httputil"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorStore keeps one token bucket per client IP and forgets clients
// that have been idle longer than ttl.
type visitorStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

func newVisitorStore(rps float64, burst int, ttl time.Duration) *visitorStore {
	return &visitorStore{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *visitorStore) limiter(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[ip] = v
	}
	v.lastSeen = s.now()
	return v.limiter
}

func (s *visitorStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	for ip, v := range s.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(s.visitors, ip)
		}
	}
}

func (s *visitorStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

func (s *visitorStore) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// RateLimitConfig configures a RateLimiter.
type RateLimitConfig struct {
	RPS   float64
	Burst int
	// TrustedProxies are the peers whose forwarding headers are believed.
	// Empty means the connection's remote address is always the client.
	TrustedProxies []netip.Prefix
}

// RateLimiter enforces a per-IP token bucket.
type RateLimiter struct {
	store   *visitorStore
	proxies []netip.Prefix
	logger  *slog.Logger
}

// NewRateLimiter allows cfg.RPS requests per second per client IP with
// cfg.Burst. Idle clients are swept until ctx is cancelled.
func NewRateLimiter(ctx context.Context, cfg RateLimitConfig, logger *slog.Logger) *RateLimiter {
	store := newVisitorStore(cfg.RPS, cfg.Burst, 3*time.Minute)
	go store.sweepLoop(ctx)
	return &RateLimiter{store: store, proxies: cfg.TrustedProxies, logger: logger}
}

// ParseTrustedProxies parses CIDR prefixes or bare addresses.
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", v, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", v, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// Handler returns middleware that answers 429 once a client exceeds its budget.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, rl.proxies)
		lim := rl.store.limiter(ip)
		if !lim.Allow() {
			rl.logger.WarnContext(r.Context(), "rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
			)
			retry := time.Second
			if lim.Limit() > 0 {
				retry = time.Duration(float64(time.Second) / float64(lim.Limit()))
			}
			w.Header().Set("Retry-After", formatSeconds(retry))
			httputil.WriteErrorBody(w, r, http.StatusTooManyRequests, httputil.ErrorResponse{
				Code:    "RATE_LIMITED",
				Message: "too many requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func formatSeconds(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// clientIP returns the connection's remote address unless that peer is a
// trusted proxy. Behind a trusted proxy it walks X-Forwarded-For from the
// right and returns the first hop that is not itself trusted, falling back
// to X-Real-IP.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := remoteHost(r.RemoteAddr)
	addr, err := netip.ParseAddr(peer)
	if err != nil || !isTrusted(addr, trusted) {
		return peer
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		var leftmost string
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				continue
			}
			hop = hop.Unmap()
			if !isTrusted(hop, trusted) {
				return hop.String()
			}
			leftmost = hop.String()
		}
		if leftmost != "" {
			return leftmost
		}
	}
	if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xri.Unmap().String()
	}
	return peer
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
