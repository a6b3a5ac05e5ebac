package middleware

import (
	"net/http"
	"sync"
)

// ConcurrencyLimiter bounds in-flight requests per route. A route that
// already serves n requests answers 503 and the rejection is counted.
type ConcurrencyLimiter struct {
	n       int
	metrics *Metrics

	mu     sync.Mutex
	routes map[string]chan struct{}
}

// NewConcurrencyLimiter allows n requests in flight on every wrapped route.
// metrics may be nil.
func NewConcurrencyLimiter(n int, metrics *Metrics) *ConcurrencyLimiter {
	if n <= 0 {
		n = 1
	}
	return &ConcurrencyLimiter{n: n, metrics: metrics, routes: make(map[string]chan struct{})}
}

func (l *ConcurrencyLimiter) slots(route string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.routes[route]
	if !ok {
		sem = make(chan struct{}, l.n)
		l.routes[route] = sem
	}
	return sem
}

// Wrap limits next under the given route label, the mux pattern.
func (l *ConcurrencyLimiter) Wrap(route string, next http.Handler) http.Handler {
	sem := l.slots(route)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			next.ServeHTTP(w, r)
		default:
			l.metrics.Rejected(route, "concurrency")
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
