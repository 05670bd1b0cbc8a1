package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/sales-ai-analyst/internal/auth"
	"github.com/JonMunkholm/sales-ai-analyst/internal/logging"
	"github.com/JonMunkholm/sales-ai-analyst/internal/quality"
)

// Authenticator checks credentials against the login backend.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (auth.Result, error)
}

// Options configures a Service. Zero values get defaults; Auth and
// Accounts may be nil, which disables login and account details.
type Options struct {
	Sessions      *SessionStore
	Limiter       *UploadLimiter
	Samples       *SampleCatalog
	Auth          Authenticator
	Accounts      AccountStore
	MaxFileSize   int64
	UploadTimeout time.Duration
}

// Service owns every session and runs the dashboard operations on them.
type Service struct {
	sessions      *SessionStore
	limiter       *UploadLimiter
	samples       *SampleCatalog
	auth          Authenticator
	accounts      AccountStore
	maxFileSize   int64
	uploadTimeout time.Duration
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	s := &Service{
		sessions:      opts.Sessions,
		limiter:       opts.Limiter,
		samples:       opts.Samples,
		auth:          opts.Auth,
		accounts:      opts.Accounts,
		maxFileSize:   opts.MaxFileSize,
		uploadTimeout: opts.UploadTimeout,
	}
	if s.sessions == nil {
		s.sessions = NewSessionStore(DefaultSessionTTL)
	}
	if s.limiter == nil {
		s.limiter = NewUploadLimiter(DefaultMaxConcurrentUploads, DefaultMaxWaitTime)
	}
	if s.maxFileSize <= 0 {
		s.maxFileSize = DefaultMaxFileSize
	}
	if s.samples == nil {
		s.samples = NewSampleCatalog(EmbeddedSamples(), s.maxFileSize)
	}
	if s.uploadTimeout <= 0 {
		s.uploadTimeout = DefaultUploadTimeout
	}
	return s
}

// Sessions returns the session store.
func (s *Service) Sessions() *SessionStore { return s.sessions }

// Limiter returns the upload limiter.
func (s *Service) Limiter() *UploadLimiter { return s.limiter }

// Samples returns the sample catalog.
func (s *Service) Samples() *SampleCatalog { return s.samples }

// NewSession starts a session and returns its initial view.
func (s *Service) NewSession() ViewState {
	sess := s.sessions.Create()
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot()
}

// Snapshot returns the session's current view.
func (s *Service) Snapshot(sessionID string) (ViewState, error) {
	return s.update(sessionID, func(*Session) error { return nil })
}

// update runs fn with the session locked and returns the resulting view.
func (s *Service) update(sessionID string, fn func(*Session) error) (ViewState, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return ViewState{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	err = fn(sess)
	return sess.snapshot(), err
}

// SetMode switches the analysis mode. The sample panel is cleared and an
// active table is re-checked against the new mode's columns.
func (s *Service) SetMode(ctx context.Context, sessionID string, mode quality.Mode) (ViewState, error) {
	if quality.Spec(mode).Mode != mode {
		return ViewState{}, fmt.Errorf("%w: %q", quality.ErrUnknownMode, mode)
	}
	return s.update(sessionID, func(sess *Session) error {
		if sess.mode == mode {
			return nil
		}
		sess.mode = mode
		sess.sample = nil
		sess.sampleRes = nil

		if !mode.Analyzable() {
			sess.result = nil
			sess.editing = false
			sess.errMsg = nil
			sess.warning = ""
		} else if sess.table != nil {
			sess.applyAnalysis(sess.table)
		}
		sessionLogger(ctx, sess.ID).Info("mode changed", "mode", mode)
		return nil
	})
}

// LoadSample fetches the example dataset for the current mode into the
// sample panel. A fetch failure leaves the panel empty and is returned.
func (s *Service) LoadSample(ctx context.Context, sessionID string) (ViewState, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return ViewState{}, err
	}
	sess.mu.Lock()
	mode := sess.mode
	sess.mu.Unlock()

	t, loadErr := s.samples.Load(ctx, mode)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.mode != mode {
		return sess.snapshot(), nil
	}
	if loadErr != nil {
		sessionLogger(ctx, sessionID).Warn("sample load failed", "mode", mode, "error", loadErr)
		sess.sample = nil
		sess.sampleRes = nil
		return sess.snapshot(), loadErr
	}
	res := quality.Analyze(t, mode)
	sess.sample = t
	sess.sampleRes = &res
	return sess.snapshot(), nil
}

// RemoveSample clears the sample panel.
func (s *Service) RemoveSample(sessionID string) (ViewState, error) {
	return s.update(sessionID, func(sess *Session) error {
		sess.sample = nil
		sess.sampleRes = nil
		return nil
	})
}

// RemoveFile clears the active table and any uploads still in flight.
func (s *Service) RemoveFile(ctx context.Context, sessionID string) (ViewState, error) {
	return s.update(sessionID, func(sess *Session) error {
		sess.supersedeUploads()
		sess.clearTable()
		sessionLogger(ctx, sess.ID).Info("file removed")
		return nil
	})
}

// ToggleEdit switches edit mode on or off for the active table.
func (s *Service) ToggleEdit(sessionID string) (ViewState, error) {
	return s.update(sessionID, func(sess *Session) error {
		if sess.table == nil {
			return ErrNoActiveTable
		}
		sess.editing = !sess.editing
		return nil
	})
}

// EditCell sets one cell. row is 1-based, matching the reports.
func (s *Service) EditCell(sessionID string, row int, column, value string) (ViewState, error) {
	return s.update(sessionID, func(sess *Session) error {
		if err := sess.editable(); err != nil {
			return err
		}
		return sess.table.SetCell(row-1, column, value)
	})
}

// AddColumn appends an empty column to the active table.
func (s *Service) AddColumn(sessionID, name string) (ViewState, error) {
	return s.update(sessionID, func(sess *Session) error {
		if err := sess.editable(); err != nil {
			return err
		}
		_, err := sess.table.AddColumn(name)
		return err
	})
}

// SaveChanges leaves edit mode and re-runs the quality check on the edited
// table. Edit mode turns straight back on if columns are still missing.
func (s *Service) SaveChanges(ctx context.Context, sessionID string) (ViewState, error) {
	return s.update(sessionID, func(sess *Session) error {
		if sess.table == nil {
			return ErrNoActiveTable
		}
		sess.editing = false
		res := sess.applyAnalysis(sess.table)
		sessionLogger(ctx, sess.ID).Info("changes saved",
			"rows", res.Rows,
			"missing_columns", len(res.MissingColumns),
			"quality", res.Quality,
		)
		return nil
	})
}

// Login checks credentials and, on success, moves the session to a new ID
// with the email attached. It returns the ID the caller must use from now
// on; rejected credentials keep the original ID and return the backend's
// result with a nil error.
func (s *Service) Login(ctx context.Context, sessionID, email, password string) (auth.Result, string, error) {
	if s.auth == nil {
		return auth.Result{}, sessionID, auth.ErrUnavailable
	}
	if _, err := s.sessions.Get(sessionID); err != nil {
		return auth.Result{}, sessionID, err
	}

	res, err := s.auth.Login(ctx, email, password)
	if err != nil {
		logging.FromContext(ctx).Warn("login request failed", "error", err)
		return res, sessionID, err
	}
	if !res.Success {
		logging.FromContext(ctx).Info("login rejected", "message", res.Message)
		return res, sessionID, nil
	}

	sess, err := s.sessions.Rotate(sessionID)
	if err != nil {
		return auth.Result{}, sessionID, err
	}
	sess.mu.Lock()
	sess.email = strings.ToLower(strings.TrimSpace(email))
	sess.mu.Unlock()
	sessionLogger(ctx, sess.ID).Info("user signed in", "previous_session_id", sessionID)
	return res, sess.ID, nil
}

// LoginEnabled reports whether a login backend is configured.
func (s *Service) LoginEnabled() bool { return s.auth != nil }

// Logout ends the session.
func (s *Service) Logout(sessionID string) {
	s.sessions.Delete(sessionID)
}

// SignedIn reports whether the session has a logged-in user.
func (s *Service) SignedIn(sessionID string) bool {
	v, err := s.Snapshot(sessionID)
	return err == nil && v.Email != ""
}

func sessionLogger(ctx context.Context, sessionID string) *slog.Logger {
	return logging.FromContext(logging.WithSessionID(ctx, sessionID))
}

// IsSessionError reports whether err means the session is gone.
func IsSessionError(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
