package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"scadenze/internal/cache"
	"scadenze/internal/engine"
	applog "scadenze/internal/log"
	"scadenze/internal/services"
	"scadenze/internal/store"
)

type Server struct {
	http.Server
	store       *store.Store
	engine      *engine.Engine
	processor   *services.Processor
	rateLimiter *rateLimiter

	// Read cache for the schedule views, keyed by as-of date. Flushed after
	// every successful mutation.
	viewCache    *cache.LRUCache[[]ObligationView]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, st *store.Store, eng *engine.Engine, proc *services.Processor) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:        st,
		engine:       eng,
		processor:    proc,
		rateLimiter:  newRateLimiter(),
		viewCache:    cache.NewLRUCache[[]ObligationView](100, time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.viewCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/obligations", s.withRequestContext(s.handleObligations))
	mux.HandleFunc("/obligations/", s.withRequestContext(s.handleObligationSubtree))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withRequestContext adds security headers, rate limiting, and request logging.
func (s *Server) withRequestContext(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := clientAddr(r)
		requestID := generateRequestID()

		logger := applog.ForComponent(applog.ComponentHTTP).With(
			"request_id", requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = applog.IntoContext(ctx, logger)
		r = r.WithContext(ctx)

		logger.InfoContext(ctx, "Request started",
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		// Rate limit the mutating verbs only; reads are cache-backed.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded")
			w.Header().Set("Retry-After", "60")
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		logger.InfoContext(ctx, "Request completed",
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds())
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// invalidateViews flushes the schedule view cache after a mutation.
func (s *Server) invalidateViews() {
	s.viewCache.Clear()
}

// handleObligations serves the collection: list on GET, create on POST.
func (s *Server) handleObligations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListObligations(w, r)
	case http.MethodPost:
		s.handleCreateObligation(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

// handleObligationSubtree routes /obligations/... paths: the schedule views
// and the per-obligation item operations.
func (s *Server) handleObligationSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/obligations/"), "/")

	switch rest {
	case "":
		NotFoundError("not found").Write(w)
		return
	case "due":
		s.handleDue(w, r)
		return
	case "upcoming":
		s.handleUpcoming(w, r)
		return
	case "execute-due":
		s.handleExecuteDue(w, r)
		return
	}

	segments := strings.Split(rest, "/")
	id, err := parseID(segments[0])
	if err != nil {
		NotFoundError("not found").Write(w)
		return
	}

	switch len(segments) {
	case 1:
		s.handleObligationItem(w, r, id)
	case 2:
		s.handleObligationAction(w, r, id, segments[1])
	default:
		NotFoundError("not found").Write(w)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
