package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/JonMunkholm/sales-ai-analyst/internal/core"
	"github.com/JonMunkholm/sales-ai-analyst/internal/logging"
)

// multipartOverhead allows for boundaries and part headers on top of the
// file size limit.
const multipartOverhead = 1 << 20

// handleUpload streams the "file" part of a multipart form into the
// analyzer. The body is never buffered whole.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	if r.ContentLength > maxSize+multipartOverhead {
		s.respond(w, r, core.ViewState{}, core.ErrFileTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	part, err := filePart(r)
	if err != nil {
		s.respond(w, r, core.ViewState{}, err)
		return
	}
	defer part.Close()

	view, err := s.service.Upload(r.Context(), sessionID(r), core.FileUpload{
		Name:        part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
		Size:        -1,
		Body:        part,
	})
	s.respond(w, r, view, err)
}

// filePart returns the first multipart part named "file" that carries a
// file name.
func filePart(r *http.Request) (*multipart.Part, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNoFile, err)
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, core.ErrNoFile
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, core.ErrFileTooLarge
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrNoFile, err)
		}
		if part.FormName() == "file" && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

// handleExport downloads the active table and its quality report as XLSX.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	wb, name, err := s.service.Export(sessionID(r))
	if err != nil {
		s.respond(w, r, core.ViewState{}, err)
		return
	}
	defer wb.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", name, url.PathEscape(name)))
	if _, err := wb.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Error("export write failed", "error", err)
	}
}
