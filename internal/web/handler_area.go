package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vbonduro/floorplan/internal/snapshotstore"
)

const maxAreaNameLen = 200

type areaRequest struct {
	Name string `json:"name"`
}

func (r areaRequest) validName() (string, string) {
	name := strings.TrimSpace(r.Name)
	switch {
	case name == "":
		return "", "area name required"
	case len(name) > maxAreaNameLen:
		return "", "area name too long"
	}
	return name, ""
}

func (s *Server) handleListAreas(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.areas.ListAreaSummaries(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleCreateArea(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	name, problem := req.validName()
	if problem != "" {
		writeErrorMessage(w, http.StatusBadRequest, problem)
		return
	}

	area, err := s.areas.CreateArea(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, area)
}

func (s *Server) handleGetArea(w http.ResponseWriter, r *http.Request) {
	areaID, err := parseID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid area id")
		return
	}

	area, err := s.areas.GetArea(r.Context(), areaID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if area == nil {
		writeErrorMessage(w, http.StatusNotFound, "area not found")
		return
	}
	writeJSON(w, http.StatusOK, area)
}

func (s *Server) handleUpdateArea(w http.ResponseWriter, r *http.Request) {
	areaID, err := parseID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid area id")
		return
	}
	var req areaRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	name, problem := req.validName()
	if problem != "" {
		writeErrorMessage(w, http.StatusBadRequest, problem)
		return
	}

	area, err := s.areas.UpdateArea(r.Context(), areaID, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, area)
}

func (s *Server) handleDeleteArea(w http.ResponseWriter, r *http.Request) {
	areaID, err := parseID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid area id")
		return
	}

	if err := s.areas.DeleteArea(r.Context(), areaID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.closeSessions(s.sessions.removeArea(areaID), "area deleted")
	w.WriteHeader(http.StatusNoContent)
}

// handleGetSnapshot serves the preview stored on the area's last publish.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	areaID, err := parseID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid area id")
		return
	}

	rc, err := s.editor.OpenSnapshot(r.Context(), areaID)
	if errors.Is(err, snapshotstore.ErrNotFound) {
		writeErrorMessage(w, http.StatusNotFound, "no published snapshot")
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", "image/png")
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("failed to stream snapshot", "area_id", areaID, "error", err)
	}
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleExportTables(w http.ResponseWriter, r *http.Request) {
	areaID, err := parseID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid area id")
		return
	}

	var buf bytes.Buffer
	if err := s.areas.ExportTables(r.Context(), areaID, &buf); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tables-area-%d.xlsx"`, areaID))
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Error("failed to write table export", "area_id", areaID, "error", err)
	}
}
