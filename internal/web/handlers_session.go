package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/sales-ai-analyst/internal/core"
	"github.com/JonMunkholm/sales-ai-analyst/internal/quality"
)

// handleSetMode switches the analysis mode.
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	in, err := input(w, r, "mode")
	if err != nil {
		s.respond(w, r, core.ViewState{}, err)
		return
	}
	mode, err := quality.ParseMode(in["mode"])
	if err != nil {
		s.respond(w, r, core.ViewState{}, err)
		return
	}
	view, err := s.service.SetMode(r.Context(), sessionID(r), mode)
	s.respond(w, r, view, err)
}

// handleLoadSample shows the sample dataset for the current mode.
func (s *Server) handleLoadSample(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.LoadSample(r.Context(), sessionID(r))
	s.respond(w, r, view, err)
}

// handleRemoveSample hides the sample dataset.
func (s *Server) handleRemoveSample(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.RemoveSample(sessionID(r))
	s.respond(w, r, view, err)
}

// handleRemoveFile clears the active table.
func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.RemoveFile(r.Context(), sessionID(r))
	s.respond(w, r, view, err)
}

// handleToggleEdit turns edit mode on or off.
func (s *Server) handleToggleEdit(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.ToggleEdit(sessionID(r))
	s.respond(w, r, view, err)
}

// handleEditCell sets one cell. Rows are 1-based.
func (s *Server) handleEditCell(w http.ResponseWriter, r *http.Request) {
	in, err := input(w, r, "row", "column", "value")
	if err != nil {
		s.respond(w, r, core.ViewState{}, err)
		return
	}
	row, err := strconv.Atoi(strings.TrimSpace(in["row"]))
	if err != nil {
		s.respond(w, r, core.ViewState{}, fmt.Errorf("%w: row %q", quality.ErrRowOutOfRange, in["row"]))
		return
	}
	view, err := s.service.EditCell(sessionID(r), row, in["column"], in["value"])
	s.respond(w, r, view, err)
}

// handleAddColumn appends an empty column to the active table.
func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	in, err := input(w, r, "name")
	if err != nil {
		s.respond(w, r, core.ViewState{}, err)
		return
	}
	view, err := s.service.AddColumn(sessionID(r), in["name"])
	s.respond(w, r, view, err)
}

// handleSaveChanges leaves edit mode and re-runs the quality check.
func (s *Server) handleSaveChanges(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.SaveChanges(r.Context(), sessionID(r))
	s.respond(w, r, view, err)
}
