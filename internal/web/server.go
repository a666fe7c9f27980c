package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/floorplan/internal/editor"
	"github.com/vbonduro/floorplan/internal/layout"
	"github.com/vbonduro/floorplan/internal/service"
)

// Options tunes the editor surface.
type Options struct {
	// Stage is the canvas size used when a client opens an editor without
	// naming one.
	Stage editor.Stage
	// MaxStageSize caps either side of a stage a client may ask for.
	MaxStageSize float64
	// SessionIdleTimeout closes sessions untouched for this long. Zero keeps
	// them until they are closed explicitly.
	SessionIdleTimeout time.Duration
}

type Server struct {
	areas    *service.AreaService
	editor   *service.EditorService
	sessions *sessionRegistry
	opts     Options
	mux      *http.ServeMux
	logger   *slog.Logger
}

// NewServer exposes the area catalogue and the floor-plan editor as a JSON
// API.
func NewServer(areas *service.AreaService, editorSvc *service.EditorService, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		areas:    areas,
		editor:   editorSvc,
		sessions: newSessionRegistry(),
		opts:     opts,
		mux:      http.NewServeMux(),
		logger:   logger,
	}
	s.registerRoutes()
	return s
}

var errInvalidStage = errors.New("invalid stage size")

// checkStage rejects stages that are empty or too large to render.
func (s *Server) checkStage(stage editor.Stage) error {
	if !(stage.Width > 0 && stage.Height > 0) {
		return fmt.Errorf("%w: %gx%g must be positive", errInvalidStage, stage.Width, stage.Height)
	}
	if s.opts.MaxStageSize > 0 && (stage.Width > s.opts.MaxStageSize || stage.Height > s.opts.MaxStageSize) {
		return fmt.Errorf("%w: %gx%g exceeds %g", errInvalidStage, stage.Width, stage.Height, s.opts.MaxStageSize)
	}
	return nil
}

// closeSessions closes sessions already taken out of the registry.
func (s *Server) closeSessions(entries []*sessionEntry, reason string) {
	for _, e := range entries {
		e.mu.Lock()
		s.editor.Close(e.sess)
		e.mu.Unlock()
		s.logger.Info("editor session dropped",
			"session_id", e.sess.ID, "area_id", e.sess.AreaID, "reason", reason)
	}
}

// closeIdleSessions closes every session not used since now minus the idle
// timeout and reports how many it closed.
func (s *Server) closeIdleSessions(now time.Time) int {
	if s.opts.SessionIdleTimeout <= 0 {
		return 0
	}
	idle := s.sessions.removeIdle(now.Add(-s.opts.SessionIdleTimeout))
	s.closeSessions(idle, "idle")
	return len(idle)
}

func (s *Server) sweepIdleSessions(ctx context.Context) {
	interval := min(s.opts.SessionIdleTimeout, time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.closeIdleSessions(now)
		}
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/areas", http.StatusSeeOther)
	})
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.len()})
	})

	s.mux.HandleFunc("GET /kinds", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, layout.Kinds)
	})

	s.mux.HandleFunc("GET /areas", s.handleListAreas)
	s.mux.HandleFunc("POST /areas", s.handleCreateArea)
	s.mux.HandleFunc("GET /areas/{id}", s.handleGetArea)
	s.mux.HandleFunc("PATCH /areas/{id}", s.handleUpdateArea)
	s.mux.HandleFunc("DELETE /areas/{id}", s.handleDeleteArea)
	s.mux.HandleFunc("GET /areas/{id}/snapshot.png", s.handleGetSnapshot)
	s.mux.HandleFunc("GET /areas/{id}/tables.xlsx", s.handleExportTables)
	s.mux.HandleFunc("POST /areas/{id}/editor", s.handleOpenEditor)

	s.mux.HandleFunc("GET /editor/{sid}", s.withSession(s.handleEditorState))
	s.mux.HandleFunc("DELETE /editor/{sid}", s.handleCloseEditor)
	s.mux.HandleFunc("POST /editor/{sid}/items", s.withSession(s.handleAddItem))
	s.mux.HandleFunc("PATCH /editor/{sid}/items/{itemID}", s.withSession(s.handleUpdateItem))
	s.mux.HandleFunc("DELETE /editor/{sid}/items/{itemID}", s.withSession(s.handleRemoveItem))
	s.mux.HandleFunc("POST /editor/{sid}/items/{itemID}/duplicate", s.withSession(s.handleDuplicateItem))
	s.mux.HandleFunc("POST /editor/{sid}/events", s.withSession(s.handleEvent))
	s.mux.HandleFunc("POST /editor/{sid}/autonumber", s.withSession(s.handleAutoNumber))
	s.mux.HandleFunc("POST /editor/{sid}/draft", s.withSession(s.handleSaveDraft))
	s.mux.HandleFunc("POST /editor/{sid}/publish", s.withSession(s.handlePublish))
	s.mux.HandleFunc("GET /editor/{sid}/export.png", s.withSession(s.handleExport))
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self' data:; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	if s.opts.SessionIdleTimeout > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go s.sweepIdleSessions(ctx)
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}
