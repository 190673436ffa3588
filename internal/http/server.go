package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"cassa/internal/cache"
	applog "cassa/internal/log"
	"cassa/internal/report"
	"cassa/internal/services"
	appweb "cassa/web"
)

type Server struct {
	http.Server
	templates   *template.Template
	svc         *services.LedgerService
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	logs        *applog.StructuredLogger
	now         func() time.Time

	// Memoized report views, keyed by (state version, period key).
	summaryCache *cache.LRUCache[report.Summary]
	trendCache   *cache.LRUCache[[]report.TrendPoint]

	reportCleanup *cache.Manager
	shutdownOnce  sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.LedgerService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:          svc,
		rateLimiter:  newRateLimiter(),
		metrics:      &securityMetrics{},
		logs:         applog.NewStructuredLogger(applog.NewFromEnv(applog.ComponentHTTP)),
		now:          time.Now,
		summaryCache: cache.NewLRUCache[report.Summary](100, 5*time.Minute),
		trendCache:   cache.NewLRUCache[[]report.TrendPoint](50, 5*time.Minute),
	}

	// Periodic cleanup for both report caches.
	s.reportCleanup = cache.NewManager(s.summaryCache, s.trendCache)
	s.reportCleanup.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	// Records
	mux.HandleFunc("/expenses", s.withSecurityHeaders(s.handleCreateExpense))
	mux.HandleFunc("/expenses/edit", s.withSecurityHeaders(s.handleEditExpense))
	mux.HandleFunc("/expenses/delete", s.withSecurityHeaders(s.handleDeleteExpense))
	mux.HandleFunc("/incomes", s.withSecurityHeaders(s.handleCreateIncome))
	mux.HandleFunc("/incomes/edit", s.withSecurityHeaders(s.handleEditIncome))
	mux.HandleFunc("/incomes/delete", s.withSecurityHeaders(s.handleDeleteIncome))

	// Fixed bills
	mux.HandleFunc("/fixed", s.withSecurityHeaders(s.handleCreateFixed))
	mux.HandleFunc("/fixed/edit", s.withSecurityHeaders(s.handleEditFixed))
	mux.HandleFunc("/fixed/delete", s.withSecurityHeaders(s.handleDeleteFixed))
	mux.HandleFunc("/fixed/toggle", s.withSecurityHeaders(s.handleToggleFixed))
	mux.HandleFunc("/fixed/reset", s.withSecurityHeaders(s.handleResetFixed))

	// Envelopes
	mux.HandleFunc("/envelopes", s.withSecurityHeaders(s.handleCreateEnvelope))
	mux.HandleFunc("/envelopes/edit", s.withSecurityHeaders(s.handleEditEnvelope))
	mux.HandleFunc("/envelopes/delete", s.withSecurityHeaders(s.handleDeleteEnvelope))
	mux.HandleFunc("/envelopes/fund", s.withSecurityHeaders(s.handleFundEnvelope))
	mux.HandleFunc("/envelopes/spend", s.withSecurityHeaders(s.handleSpendEnvelope))

	// Settings
	mux.HandleFunc("/categories", s.withSecurityHeaders(s.handleCreateCategory))
	mux.HandleFunc("/settings/payday", s.withSecurityHeaders(s.handleUpdatePayday))

	// UI partials
	mux.HandleFunc("/ui/overview", s.withSecurityHeaders(s.handleOverview))
	mux.HandleFunc("/ui/trend", s.withSecurityHeaders(s.handleTrend))
	mux.HandleFunc("/ui/envelope-log", s.withSecurityHeaders(s.handleEnvelopeLog))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.reportCleanup != nil {
			s.reportCleanup.Stop()
		}

		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// invalidateReports drops every memoized view. Any mutation changes the
// state version, so everything cached is stale at once.
func (s *Server) invalidateReports() {
	s.summaryCache.Purge()
	s.trendCache.Purge()
}

// reportKey builds a memoization key scoped to one state version.
func reportKey(version int64, suffix string) string {
	return strconv.FormatInt(version, 10) + ":" + suffix
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)

		if detectSuspiciousRequest(r, s.metrics) {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				"client_ip", clientIP,
				"method", r.Method,
				"url", r.URL.Path,
				"user_agent", r.Header.Get("User-Agent"))
		}

		// Generate request ID for tracing
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		s.logs.LogHTTPStart(ctx, r, requestID, clientIP)

		// Rate limit mutations only; reads are cheap and cached.
		if r.Method == http.MethodPost || r.Method == http.MethodDelete {
			if !s.rateLimiter.allow(clientIP, s.metrics) {
				slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Capture the status code for the completion log
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.logs.LogHTTPEnd(ctx, r, requestID, rw.statusCode, duration.Milliseconds(), clientIP)
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

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
