package server

import (
	"sync"

	"golang.org/x/time/rate"

	apperrors "github.com/RajeshKalidandi/healthconnect-platform/internal/errors"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/metrics"
)

// ConnectionLimiter gates websocket admission with three checks: a
// global connection cap, a per-IP cap and a token-bucket rate limit on
// connection attempts.
type ConnectionLimiter struct {
	mu       sync.Mutex
	total    int
	perIP    map[string]int
	maxConn  int
	maxPerIP int
	limiter  *rate.Limiter
}

// NewConnectionLimiter creates an admission limiter.
func NewConnectionLimiter(maxConn, maxPerIP int, ratePerSecond float64, burst int) *ConnectionLimiter {
	return &ConnectionLimiter{
		perIP:    make(map[string]int),
		maxConn:  maxConn,
		maxPerIP: maxPerIP,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// Acquire admits one connection from ip or returns an error naming the
// exceeded limit. A successful Acquire must be paired with Release.
func (l *ConnectionLimiter) Acquire(ip string) error {
	if !l.limiter.Allow() {
		metrics.ConnectionsRejected.WithLabelValues("rate").Inc()
		return apperrors.New(apperrors.KindUnavailable, "connection rate limit exceeded")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxConn {
		metrics.ConnectionsRejected.WithLabelValues("global").Inc()
		return apperrors.New(apperrors.KindUnavailable, "connection limit reached")
	}
	if l.perIP[ip] >= l.maxPerIP {
		metrics.ConnectionsRejected.WithLabelValues("per_ip").Inc()
		return apperrors.New(apperrors.KindUnavailable, "per-client connection limit reached")
	}

	l.total++
	l.perIP[ip]++
	return nil
}

// Release returns one admitted connection from ip.
func (l *ConnectionLimiter) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total > 0 {
		l.total--
	}
	if n := l.perIP[ip]; n > 1 {
		l.perIP[ip] = n - 1
	} else {
		delete(l.perIP, ip)
	}
}

// Active returns the number of admitted connections.
func (l *ConnectionLimiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}
