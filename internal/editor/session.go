package editor

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/vbonduro/floorplan/internal/layout"
)

// Callbacks are supplied by whoever opens the editor. OnSaved fires after a
// successful publish, OnClose when the session is closed.
type Callbacks struct {
	OnClose func()
	OnSaved func()
}

// Stage is the live canvas size the session edits against.
type Stage struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Session is one open editor on one area. All state the editor mutates hangs
// off the session, so independent sessions never observe each other.
type Session struct {
	ID     string
	AreaID int64
	Stage  Stage

	ctrl      *Controller
	callbacks Callbacks
	closed    bool
}

func NewSession(areaID int64, doc *layout.Document, stage Stage, snap bool, callbacks Callbacks, logger *slog.Logger) *Session {
	id := uuid.NewString()
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ID:        id,
		AreaID:    areaID,
		Stage:     stage,
		ctrl:      NewController(doc, snap, logger.With("session_id", id, "area_id", areaID)),
		callbacks: callbacks,
	}
}

func (s *Session) Controller() *Controller { return s.ctrl }

func (s *Session) Document() *layout.Document { return s.ctrl.Document() }

// ResizeStage rescales the document to a new live canvas size, e.g. when the
// editor window is resized. Non-positive sizes are ignored.
func (s *Session) ResizeStage(stage Stage) {
	if stage.Width <= 0 || stage.Height <= 0 || stage == s.Stage {
		return
	}
	s.ctrl.doc = layout.ScaleTo(s.ctrl.doc, stage.Width, stage.Height)
	s.Stage = stage
}

func (s *Session) Closed() bool { return s.closed }

func (s *Session) NotifySaved() {
	if s.callbacks.OnSaved != nil {
		s.callbacks.OnSaved()
	}
}

// Close discards the session. Calling it twice fires OnClose once.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.ctrl.CancelPolygon()
	if s.callbacks.OnClose != nil {
		s.callbacks.OnClose()
	}
}
