package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sales-ai-analyst/internal/quality"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 12 * time.Hour

// Session holds one visitor's dashboard state. All fields are guarded by mu.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	lastSeen  time.Time
	email     string
	mode      quality.Mode
	fileName  string
	table     *quality.Table
	result    *quality.Result
	sample    *quality.Table
	sampleRes *quality.Result
	editing   bool
	errMsg    *UserMessage
	warning   string

	// uploadSeq counts uploads started; appliedSeq is the newest one whose
	// outcome reached the view. Older completions are discarded.
	uploadSeq  uint64
	appliedSeq uint64
}

// beginUpload reserves a sequence number for a new upload.
func (s *Session) beginUpload() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadSeq++
	return s.uploadSeq
}

// claim marks seq as applied. It reports false when a newer upload or
// removal already reached the view. Caller holds mu.
func (s *Session) claim(seq uint64) bool {
	if seq <= s.appliedSeq {
		return false
	}
	s.appliedSeq = seq
	return true
}

// supersedeUploads makes every in-flight upload stale. Caller holds mu.
func (s *Session) supersedeUploads() {
	s.uploadSeq++
	s.appliedSeq = s.uploadSeq
}

// applyAnalysis runs the orchestration policy on t and records the outcome:
// missing columns switch on edit mode and set the error; otherwise edit
// mode ends and a sub-perfect score sets the warning. Caller holds mu.
func (s *Session) applyAnalysis(t *quality.Table) quality.Result {
	res := quality.Analyze(t, s.mode)
	s.table = t
	s.result = &res

	if err := res.Err(); err != nil {
		msg := MapError(err)
		s.editing = true
		s.errMsg = &msg
		s.warning = ""
		return res
	}
	s.editing = false
	s.errMsg = nil
	s.warning = res.Warning()
	return res
}

func (s *Session) setError(err error) {
	if err == nil {
		s.errMsg = nil
		return
	}
	msg := MapError(err)
	s.errMsg = &msg
}

// editable reports why the active table cannot be edited, if it cannot.
func (s *Session) editable() error {
	if s.table == nil {
		return ErrNoActiveTable
	}
	if !s.editing {
		return ErrNotEditing
	}
	return nil
}

func (s *Session) clearTable() {
	s.fileName = ""
	s.table = nil
	s.result = nil
	s.editing = false
	s.errMsg = nil
	s.warning = ""
}

// ViewState is a read-only copy of a session for rendering.
type ViewState struct {
	SessionID     string          `json:"sessionId"`
	Email         string          `json:"email,omitempty"`
	Mode          quality.Mode    `json:"mode"`
	Analyzable    bool            `json:"analyzable"`
	FileName      string          `json:"fileName,omitempty"`
	Records       [][]string      `json:"records,omitempty"`
	Result        *quality.Result `json:"result,omitempty"`
	SampleFile    string          `json:"sampleFile,omitempty"`
	SampleRecords [][]string      `json:"sampleRecords,omitempty"`
	SampleResult  *quality.Result `json:"sampleResult,omitempty"`
	Editing       bool            `json:"editing"`
	Error         *UserMessage    `json:"error,omitempty"`
	Warning       string          `json:"warning,omitempty"`
}

// HasTable reports whether a file is loaded.
func (v ViewState) HasTable() bool { return len(v.Records) > 0 }

// snapshot copies the session. Caller holds mu.
func (s *Session) snapshot() ViewState {
	v := ViewState{
		SessionID:  s.ID,
		Email:      s.email,
		Mode:       s.mode,
		Analyzable: s.mode.Analyzable(),
		FileName:   s.fileName,
		Editing:    s.editing,
		Warning:    s.warning,
	}
	if s.table != nil {
		v.Records = s.table.Records()
	}
	if s.result != nil {
		r := *s.result
		v.Result = &r
	}
	if s.sample != nil {
		v.SampleFile = quality.Spec(s.mode).SampleFile
		v.SampleRecords = s.sample.Records()
	}
	if s.sampleRes != nil {
		r := *s.sampleRes
		v.SampleResult = &r
	}
	if s.errMsg != nil {
		m := *s.errMsg
		v.Error = &m
	}
	return v
}

// SessionStore keeps sessions in memory and expires idle ones.
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates a store whose sessions expire after ttl idle.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session in Sales Analysis mode.
func (st *SessionStore) Create() *Session {
	now := st.now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		lastSeen:  now,
		mode:      quality.SalesAnalysis,
	}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns a live session and refreshes its idle timer.
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	now := st.now()
	s.mu.Lock()
	expired := now.Sub(s.lastSeen) > st.ttl
	if !expired {
		s.lastSeen = now
	}
	s.mu.Unlock()

	if expired {
		st.Delete(id)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Rotate moves the session's dashboard state to a fresh ID and removes the
// old one, so an ID seen before sign-in stops working after it.
func (st *SessionStore) Rotate(id string) (*Session, error) {
	old, err := st.Get(id)
	if err != nil {
		return nil, err
	}

	now := st.now()
	old.mu.Lock()
	s := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		lastSeen:   now,
		email:      old.email,
		mode:       old.mode,
		fileName:   old.fileName,
		table:      old.table,
		result:     old.result,
		sample:     old.sample,
		sampleRes:  old.sampleRes,
		editing:    old.editing,
		errMsg:     old.errMsg,
		warning:    old.warning,
		uploadSeq:  old.uploadSeq,
		appliedSeq: old.uploadSeq,
	}
	old.supersedeUploads()
	old.mu.Unlock()

	st.mu.Lock()
	delete(st.sessions, id)
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s, nil
}

// Delete removes a session.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len returns the number of stored sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes expired sessions and returns how many were dropped.
func (st *SessionStore) Sweep() int {
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		s.mu.Lock()
		expired := now.Sub(s.lastSeen) > st.ttl
		s.mu.Unlock()
		if expired {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (st *SessionStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}
