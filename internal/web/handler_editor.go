package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vbonduro/floorplan/internal/editor"
	"github.com/vbonduro/floorplan/internal/geometry"
	"github.com/vbonduro/floorplan/internal/layout"
	"github.com/vbonduro/floorplan/internal/service"
)

// sessionView is what every editor endpoint answers with, so the client can
// redraw from a single response.
type sessionView struct {
	Session   string           `json:"session"`
	AreaID    int64            `json:"areaId"`
	Stage     editor.Stage     `json:"stage"`
	Document  *layout.Document `json:"document"`
	State     editor.State     `json:"state"`
	LoadError string           `json:"loadError,omitempty"`
	Item      *layout.Item     `json:"item,omitempty"`
	Handled   *bool            `json:"handled,omitempty"`
}

func viewOf(e *sessionEntry) sessionView {
	v := sessionView{
		Session:  e.sess.ID,
		AreaID:   e.sess.AreaID,
		Stage:    e.sess.Stage,
		Document: e.sess.Document(),
		State:    e.sess.Controller().State(),
	}
	if e.loadErr != nil {
		v.LoadError = e.loadErr.Error()
	}
	return v
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, e *sessionEntry)

// withSession resolves {sid} and holds the session lock for the request.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := s.sessions.get(r.PathValue("sid"))
		if !ok {
			writeErrorMessage(w, http.StatusNotFound, "editor session not found")
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.sess.Closed() {
			s.writeError(w, r, service.ErrSessionClosed)
			return
		}
		h(w, r, e)
	}
}

func (s *Server) handleOpenEditor(w http.ResponseWriter, r *http.Request) {
	areaID, err := parseID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid area id")
		return
	}
	stage := s.opts.Stage
	if err := decodeJSON(w, r, &stage, true); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.checkStage(stage); err != nil {
		s.writeError(w, r, err)
		return
	}

	logger := s.logger.With("area_id", areaID)
	callbacks := editor.Callbacks{
		OnSaved: func() { logger.Info("floor plan saved") },
		OnClose: func() { logger.Info("editor session closed") },
	}
	sess, err := s.editor.Open(r.Context(), areaID, stage, callbacks)
	var loadErr *service.LoadError
	if err != nil && !errors.As(err, &loadErr) {
		s.writeError(w, r, err)
		return
	}

	e := s.sessions.add(sess, err)
	writeJSON(w, http.StatusCreated, viewOf(e))
}

func (s *Server) handleEditorState(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	writeJSON(w, http.StatusOK, viewOf(e))
}

// handleCloseEditor discards the session and every unpublished change.
func (s *Server) handleCloseEditor(w http.ResponseWriter, r *http.Request) {
	e, ok := s.sessions.remove(r.PathValue("sid"))
	if !ok {
		writeErrorMessage(w, http.StatusNotFound, "editor session not found")
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s.editor.Close(e.sess)
	w.WriteHeader(http.StatusNoContent)
}

type addItemRequest struct {
	Kind   layout.Kind `json:"kind"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Width  float64     `json:"width,omitempty"`
	Height float64     `json:"height,omitempty"`
	Seats  int         `json:"seats,omitempty"`
	Label  string      `json:"label,omitempty"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	it, err := e.sess.Controller().AddItem(req.Kind, geometry.Point{X: req.X, Y: req.Y}, layout.Defaults{
		Width:  req.Width,
		Height: req.Height,
		Seats:  req.Seats,
		Label:  req.Label,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v := viewOf(e)
	v.Item = &it
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	var patch layout.Patch
	if err := decodeJSON(w, r, &patch, false); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	it, err := e.sess.Controller().UpdateItem(r.PathValue("itemID"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v := viewOf(e)
	v.Item = &it
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	if err := e.sess.Controller().RemoveItem(r.PathValue("itemID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(e))
}

func (s *Server) handleDuplicateItem(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	it, err := e.sess.Controller().DuplicateItem(r.PathValue("itemID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v := viewOf(e)
	v.Item = &it
	writeJSON(w, http.StatusCreated, v)
}

// event is one pointer or keyboard gesture. X/Y are model coordinates except
// for "click" and "zoom", which report the pointer in view coordinates.
type event struct {
	Type     string     `json:"type"`
	ID       string     `json:"id,omitempty"`
	X        float64    `json:"x,omitempty"`
	Y        float64    `json:"y,omitempty"`
	DX       float64    `json:"dx,omitempty"`
	DY       float64    `json:"dy,omitempty"`
	ScaleX   float64    `json:"scaleX,omitempty"`
	ScaleY   float64    `json:"scaleY,omitempty"`
	Rotation float64    `json:"rotation,omitempty"`
	Factor   float64    `json:"factor,omitempty"`
	Key      editor.Key `json:"key,omitempty"`
	Enabled  bool       `json:"enabled,omitempty"`
	Width    float64    `json:"width,omitempty"`
	Height   float64    `json:"height,omitempty"`
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	var ev event
	if err := decodeJSON(w, r, &ev, false); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	item, handled, err := s.applyEvent(e.sess, ev)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v := viewOf(e)
	v.Item = item
	v.Handled = handled
	writeJSON(w, http.StatusOK, v)
}

var errUnknownEvent = errors.New("unknown event type")

func (s *Server) applyEvent(sess *editor.Session, ev event) (*layout.Item, *bool, error) {
	c := sess.Controller()
	switch ev.Type {
	case "select":
		return nil, nil, c.Select(ev.ID)
	case "click":
		c.ClickCanvas(geometry.Point{X: ev.X, Y: ev.Y})
		return nil, nil, nil
	case "drag-end":
		it, err := c.DragEnd(ev.ID, geometry.Point{X: ev.X, Y: ev.Y})
		return &it, nil, err
	case "transform-end":
		it, err := c.TransformEnd(ev.ID, editor.Transform{ScaleX: ev.ScaleX, ScaleY: ev.ScaleY, Rotation: ev.Rotation})
		return &it, nil, err
	case "zoom":
		c.Zoom(geometry.Point{X: ev.X, Y: ev.Y}, ev.Factor)
		return nil, nil, nil
	case "pan":
		c.Pan(ev.DX, ev.DY)
		return nil, nil, nil
	case "reset-view":
		c.ResetView()
		return nil, nil, nil
	case "snap":
		c.SetSnap(ev.Enabled)
		return nil, nil, nil
	case "resize":
		stage := editor.Stage{Width: ev.Width, Height: ev.Height}
		if err := s.checkStage(stage); err != nil {
			return nil, nil, err
		}
		sess.ResizeStage(stage)
		return nil, nil, nil
	case "start-polygon":
		c.StartPolygon()
		return nil, nil, nil
	case "key":
		handled, created, err := c.HandleKey(ev.Key)
		return created, &handled, err
	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnknownEvent, ev.Type)
	}
}

func (s *Server) handleAutoNumber(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	e.sess.Document().AutoNumber()
	writeJSON(w, http.StatusOK, viewOf(e))
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	if err := s.editor.SaveDraft(r.Context(), e.sess); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(e))
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	if err := s.editor.Publish(r.Context(), e.sess); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(e))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	grid, _ := strconv.ParseBool(r.URL.Query().Get("grid"))
	var buf bytes.Buffer
	if err := s.editor.Export(e.sess, &buf, grid); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="floorplan-area-%d.png"`, e.sess.AreaID))
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Error("failed to write export", "area_id", e.sess.AreaID, "error", err)
	}
}
