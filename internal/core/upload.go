package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/sales-ai-analyst/internal/logging"
	"github.com/JonMunkholm/sales-ai-analyst/internal/quality"
	"github.com/google/uuid"
)

// DefaultMaxFileSize is the upload size limit when none is configured (100MB).
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// DefaultUploadTimeout bounds parsing and analysis of one upload.
const DefaultUploadTimeout = 2 * time.Minute

// FileUpload is one file received from the browser.
type FileUpload struct {
	Name        string
	ContentType string
	Size        int64 // as declared by the client; -1 when unknown
	Body        io.Reader
}

// Browsers label .csv files inconsistently, so these types are accepted
// when the name ends in .csv.
var genericCSVTypes = map[string]bool{
	"":                            true,
	"application/octet-stream":    true,
	"application/vnd.ms-excel":    true,
	"application/csv":             true,
	"application/x-csv":           true,
	"text/plain":                  true,
	"text/x-csv":                  true,
	"text/comma-separated-values": true,
}

// CheckFileType accepts text/csv, or a .csv name with a generic media type.
func CheckFileType(name, contentType string) error {
	mediaType := ""
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return fmt.Errorf("%w: %s (%s)", ErrInvalidFileType, name, contentType)
		}
		mediaType = strings.ToLower(mt)
	}
	if mediaType == "text/csv" {
		return nil
	}
	if strings.EqualFold(filepath.Ext(name), ".csv") && genericCSVTypes[mediaType] {
		return nil
	}
	return fmt.Errorf("%w: %s (%s)", ErrInvalidFileType, name, contentType)
}

// Upload parses and analyses a file for the session's current mode.
//
// Failures before parsing (wrong type, too large, system busy) leave the
// active table untouched, set the session error and are returned. An
// empty or unreadable CSV becomes an empty table and is reported through
// the view state only. When several uploads overlap, the one started last
// wins and older results are dropped.
func (s *Service) Upload(ctx context.Context, sessionID string, f FileUpload) (ViewState, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return ViewState{}, err
	}
	log := logging.WithFields(logging.WithSessionID(ctx, sessionID), "file", f.Name, "upload_id", uuid.NewString())

	sess.mu.Lock()
	mode := sess.mode
	sess.mu.Unlock()

	if !mode.Analyzable() {
		return s.fail(sess, ErrModeNotAnalyzable)
	}
	if err := CheckFileType(f.Name, f.ContentType); err != nil {
		log.Info("upload rejected", "content_type", f.ContentType)
		return s.fail(sess, err)
	}
	if f.Size > s.maxFileSize {
		return s.fail(sess, ErrFileTooLarge)
	}

	seq := sess.beginUpload()

	uploadCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()
	if err := s.limiter.Acquire(uploadCtx); err != nil {
		log.Warn("upload slot unavailable", "error", err)
		return s.fail(sess, err)
	}
	defer s.limiter.Release()

	start := time.Now()
	table, parseErr := quality.Parse(WrapForStreaming(NewSizeLimitReader(f.Body, s.maxFileSize)))
	if errors.Is(parseErr, ErrFileTooLarge) {
		return s.fail(sess, ErrFileTooLarge)
	}
	if parseErr != nil && !errors.Is(parseErr, quality.ErrEmptyInput) && !errors.Is(parseErr, quality.ErrMalformedInput) {
		return s.fail(sess, parseErr)
	}
	if err := uploadCtx.Err(); err != nil {
		return s.fail(sess, err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.claim(seq) {
		log.Info("discarding superseded upload", "seq", seq)
		return sess.snapshot(), nil
	}

	sess.fileName = f.Name
	if parseErr != nil {
		sess.applyAnalysis(quality.NewTable(nil))
		sess.setError(parseErr)
		log.Warn("upload has no usable CSV content", "error", parseErr)
		return sess.snapshot(), nil
	}

	res := sess.applyAnalysis(table)
	log.Info("upload analysed",
		"mode", mode,
		"rows", res.Rows,
		"columns", res.Columns,
		"missing_columns", len(res.MissingColumns),
		"quality", res.Quality,
		"duration", time.Since(start),
	)
	return sess.snapshot(), nil
}

// fail records err as the session's visible error and returns it.
func (s *Service) fail(sess *Session, err error) (ViewState, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.setError(err)
	return sess.snapshot(), err
}
