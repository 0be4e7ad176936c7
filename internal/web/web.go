package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"inkdash/internal/config"
	"inkdash/internal/convert"
	"inkdash/internal/dashboard"
	appLog "inkdash/internal/log"
	"inkdash/internal/model"
	"inkdash/internal/render"
)

// Refresher is the part of dashboard.Pipeline the server needs.
type Refresher interface {
	Run(ctx context.Context) (dashboard.Result, error)
	Last() (dashboard.Result, bool)
}

// Server exposes the latest dashboard render over HTTP.
type Server struct {
	cfg      *config.Config
	pipeline Refresher
	mux      *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, pipeline Refresher) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe serves on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Either field empty means disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="inkdash", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/dashboard.png", s.handleImage)
	s.mux.HandleFunc("/dashboard.bin", s.handleFrame)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/refresh", s.handleRefresh)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleImage serves the artifact from disk, so it keeps working across
// restarts before the first refresh.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, s.cfg.Output)
}

// handleFrame serves the last frame packed at 4 bits per pixel for panels
// that pull raw framebuffers.
func (s *Server) handleFrame(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.pipeline.Last()
	if !ok || res.Frame == nil {
		writeError(w, http.StatusServiceUnavailable, "no render yet")
		return
	}
	b := res.Frame.Bounds()
	data := convert.Pack4(res.Frame)

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Frame-Width", strconv.Itoa(b.Dx()))
	w.Header().Set("X-Frame-Height", strconv.Itoa(b.Dy()))
	w.Header().Set("Last-Modified", res.RenderedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events          []model.Event  `json:"events"`
	Summary         render.Summary `json:"summary"`
	RenderedAt      time.Time      `json:"rendered_at"`
	DisplayTimeZone string         `json:"display_timezone"`
}

func newEventsResponse(res dashboard.Result) eventsResponse {
	events := res.Events
	if events == nil {
		events = []model.Event{}
	}
	return eventsResponse{
		Events:          events,
		Summary:         res.Summary,
		RenderedAt:      res.RenderedAt,
		DisplayTimeZone: res.RenderedAt.Location().String(),
	}
}

// handleEvents returns the events of the last successful render.
func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.pipeline.Last()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no render yet")
		return
	}
	writeJSON(w, http.StatusOK, newEventsResponse(res))
}

// handleRefresh runs one refresh synchronously.
//
// POST /api/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res, err := s.pipeline.Run(r.Context())
	if err != nil {
		appLog.Error("api refresh failed", err)
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, newEventsResponse(res))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
