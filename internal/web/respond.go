package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/vbonduro/floorplan/internal/editor"
	"github.com/vbonduro/floorplan/internal/export"
	"github.com/vbonduro/floorplan/internal/layout"
	"github.com/vbonduro/floorplan/internal/service"
	"github.com/vbonduro/floorplan/internal/store"
)

const maxBodySize = 1 << 20 // 1 MB

type errorBody struct {
	Error      string        `json:"error"`
	Field      string        `json:"field,omitempty"`
	Step       service.Step  `json:"step,omitempty"`
	ItemID     string        `json:"itemId,omitempty"`
	Phase      service.Phase `json:"phase,omitempty"`
	Consistent *bool         `json:"consistent,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and reported as a 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *service.ValidationError
		perr *service.PublishError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:  err.Error(),
			Field:  verr.Field,
			Step:   verr.Step,
			ItemID: verr.ItemID,
		})
	case errors.As(err, &perr):
		consistent := perr.Consistent
		writeJSON(w, http.StatusBadGateway, errorBody{
			Error:      err.Error(),
			Phase:      perr.Phase,
			Consistent: &consistent,
		})
	case errors.Is(err, layout.ErrItemNotFound),
		errors.Is(err, service.ErrAreaNotFound),
		errors.Is(err, store.ErrAreaNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, layout.ErrUnknownKind), errors.Is(err, errUnknownEvent),
		errors.Is(err, errInvalidStage):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, editor.ErrPolygonTooShort), errors.Is(err, export.ErrSnapshotTooLarge):
		writeErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, editor.ErrNotDrawing):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrSessionClosed):
		writeErrorMessage(w, http.StatusGone, err.Error())
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a size-limited JSON body into v. An empty body leaves v
// untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// parseID extracts the {id} path variable and returns it as int64.
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
