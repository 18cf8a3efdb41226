package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"autoservice/internal/config"
	"autoservice/internal/console"
	"autoservice/internal/metrics"
	"autoservice/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Deps are the services the HTTP API is built on. States and Ready may be nil.
type Deps struct {
	Bookings    *service.BookingService
	Catalog     *service.CatalogService
	Submissions *service.SubmissionService
	States      *service.StateService
	Sessions    *console.Registry
	Ready       func(ctx context.Context) error
	Logger      *zerolog.Logger
}

// HTTPServer exposes the public booking form API and the admin console.
type HTTPServer struct {
	cfg     config.APIConfig
	deps    Deps
	auth    *Auth
	limiter *rateLimiter
	logger  *zerolog.Logger
	server  *http.Server
	now     func() time.Time
}

func NewHTTPServer(cfg *config.Config, deps Deps) *HTTPServer {
	logger := deps.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "http").Logger()

	srv := &HTTPServer{
		cfg:     cfg.API,
		deps:    deps,
		auth:    NewAuth(cfg.Admin, deps.Sessions),
		limiter: newRateLimiter(cfg.API.RateLimit),
		logger:  &l,
		now:     time.Now,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.limiter.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Post("/bookings", s.handleCreateBooking)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", s.handleLogin)

			r.Group(func(r chi.Router) {
				r.Use(s.auth.Middleware)

				r.Post("/logout", s.handleLogout)
				r.Get("/me", s.handleMe)
				r.Get("/bookings/export.xlsx", s.handleExport)
				r.Put("/services/{key}/price", s.handleUpdatePrice)

				r.Route("/console", func(r chi.Router) {
					r.Get("/", s.handleConsole)
					r.Put("/filter", s.handleSetFilter)
					r.Post("/refresh", s.handleRefresh)
					r.Post("/bookings/{id}/approve", s.handleApprove)
					r.Post("/bookings/{id}/decline", s.handleDecline)
					r.Put("/bookings/{id}/notes", s.handleSetNotes)
					r.Post("/bookings/{id}/notes/edit", s.handleBeginNotes)
					r.Put("/notes/draft", s.handleNotesDraft)
					r.Post("/notes/save", s.handleSaveNotes)
					r.Post("/notes/cancel", s.handleCancelNotes)
					r.Get("/calendar", s.handleCalendar)
					r.Post("/calendar/next", s.handleCalendarNext)
					r.Post("/calendar/prev", s.handleCalendarPrev)
					r.Get("/ws", s.handleWS)
				})
			})
		})
	})

	return r
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("readiness check failed")
			writeError(w, http.StatusServiceUnavailable, "not_ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.IncHTTP(route, strconv.Itoa(recorder.status))

		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// clientIP is the request address without port. RealIP has already applied
// X-Forwarded-For / X-Real-IP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrade through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
