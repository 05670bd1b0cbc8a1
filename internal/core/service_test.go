package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/JonMunkholm/sales-ai-analyst/internal/auth"
	"github.com/JonMunkholm/sales-ai-analyst/internal/quality"
)

const salesCSV = `Transaction ID,Date and Time,Value,Product Code
T1,2024-03-01 09:15,10.00,P1
T2,2024-03-01 10:00,12.50,P2
T3,2024-03-02 11:30,7.25,P3
`

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(Options{MaxFileSize: 1 << 20, UploadTimeout: 5 * time.Second})
}

func csvUpload(name, body string) FileUpload {
	return FileUpload{Name: name, ContentType: "text/csv", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func newSessionInMode(t *testing.T, svc *Service, mode quality.Mode) string {
	t.Helper()
	id := svc.NewSession().SessionID
	if _, err := svc.SetMode(context.Background(), id, mode); err != nil {
		t.Fatalf("SetMode(%s): %v", mode, err)
	}
	return id
}

func TestUpload_CleanSalesFile(t *testing.T) {
	svc := newTestService(t)
	id := newSessionInMode(t, svc, quality.SalesAnalysis)

	v, err := svc.Upload(context.Background(), id, csvUpload("sales.csv", salesCSV))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if v.Error != nil {
		t.Errorf("unexpected error message %+v", v.Error)
	}
	if v.Editing {
		t.Error("clean file should not enter edit mode")
	}
	if v.Warning != "" {
		t.Errorf("perfect file should not warn, got %q", v.Warning)
	}
	if v.Result == nil || v.Result.Quality != 100 {
		t.Fatalf("Result = %+v, want quality 100", v.Result)
	}
	if v.FileName != "sales.csv" || len(v.Records) != 4 {
		t.Errorf("FileName=%q records=%d", v.FileName, len(v.Records))
	}
}

func TestUpload_MissingColumnsEntersEditMode(t *testing.T) {
	svc := newTestService(t)
	id := newSessionInMode(t, svc, quality.CategoricalAnalysis)

	v, err := svc.Upload(context.Background(), id, csvUpload("sales.csv", salesCSV))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !v.Editing {
		t.Error("missing columns should enter edit mode")
	}
	if v.Error == nil || v.Error.Code != "VAL004" {
		t.Fatalf("Error = %+v, want VAL004", v.Error)
	}
	for _, col := range []string{"Product Category", "Product Method", "Customer Segment"} {
		if !strings.Contains(v.Error.Message, col) {
			t.Errorf("error message %q does not name %q", v.Error.Message, col)
		}
	}
	if v.Result.Scanned() {
		t.Error("scans should be skipped when columns are missing")
	}
	if len(v.Records) != 4 {
		t.Errorf("partially valid table should still be shown, got %d records", len(v.Records))
	}
}

func TestUpload_WarnsBelowPerfectScore(t *testing.T) {
	svc := newTestService(t)
	id := newSessionInMode(t, svc, quality.SalesAnalysis)

	body := salesCSV + "T4,,3.00,P4\nT1,2024-03-01 09:15,10.00,P1\n"
	v, err := svc.Upload(context.Background(), id, csvUpload("sales.csv", body))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if v.Warning == "" {
		t.Error("expected a quality warning")
	}
	if v.Result.Duplicates.DuplicateCount != 1 {
		t.Errorf("DuplicateCount = %d, want 1", v.Result.Duplicates.DuplicateCount)
	}
	if v.Result.Missing.Columns["Date and Time"].Count != 1 {
		t.Errorf("missing Date and Time = %+v", v.Result.Missing.Columns["Date and Time"])
	}
}

func TestUpload_InvalidFileTypeKeepsTable(t *testing.T) {
	svc := newTestService(t)
	id := newSessionInMode(t, svc, quality.SalesAnalysis)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, id, csvUpload("sales.csv", salesCSV)); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	bad := FileUpload{Name: "report.pdf", ContentType: "application/pdf", Size: 3, Body: strings.NewReader("%PD")}
	v, err := svc.Upload(ctx, id, bad)
	if !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("expected ErrInvalidFileType, got %v", err)
	}
	if v.Error == nil || v.Error.Message != "Please upload a valid CSV file." {
		t.Errorf("Error = %+v", v.Error)
	}
	if v.FileName != "sales.csv" || len(v.Records) != 4 {
		t.Error("rejected upload should leave the previous table in place")
	}
}

func TestUpload_EmptyFileIsVacuousTable(t *testing.T) {
	svc := newTestService(t)
	id := newSessionInMode(t, svc, quality.SalesAnalysis)

	v, err := svc.Upload(context.Background(), id, csvUpload("empty.csv", ""))
	if err != nil {
		t.Fatalf("empty file should not be a hard failure: %v", err)
	}
	if v.Error == nil || v.Error.Code != "FILE005" {
		t.Errorf("Error = %+v, want FILE005", v.Error)
	}
	if got := len(v.Result.MissingColumns); got != 4 {
		t.Errorf("MissingColumns = %d, want all 4", got)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	svc := NewService(Options{MaxFileSize: 16})
	id := svc.NewSession().SessionID

	up := csvUpload("sales.csv", salesCSV)
	up.Size = -1
	_, err := svc.Upload(context.Background(), id, up)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestUpload_OtherModeRejected(t *testing.T) {
	svc := newTestService(t)
	id := newSessionInMode(t, svc, quality.Other)

	_, err := svc.Upload(context.Background(), id, csvUpload("sales.csv", salesCSV))
	if !errors.Is(err, ErrModeNotAnalyzable) {
		t.Fatalf("expected ErrModeNotAnalyzable, got %v", err)
	}
}

func TestUpload_BusyWhenNoSlot(t *testing.T) {
	limiter := NewUploadLimiter(1, 20*time.Millisecond)
	svc := NewService(Options{Limiter: limiter})
	id := svc.NewSession().SessionID

	if !limiter.TryAcquire() {
		t.Fatal("TryAcquire failed")
	}
	defer limiter.Release()

	v, err := svc.Upload(context.Background(), id, csvUpload("sales.csv", salesCSV))
	if !errors.Is(err, ErrTooManyUploads) {
		t.Fatalf("expected ErrTooManyUploads, got %v", err)
	}
	if v.Error == nil || v.Error.Code != "UPL002" {
		t.Errorf("Error = %+v, want UPL002", v.Error)
	}
}

func TestSession_LastUploadWins(t *testing.T) {
	sess := NewSessionStore(time.Hour).Create()

	first := sess.beginUpload()
	second := sess.beginUpload()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.claim(second) {
		t.Fatal("newest upload should apply")
	}
	if sess.claim(first) {
		t.Error("older upload completing later must be discarded")
	}
}

// gatedReader signals started on its first Read and then waits for
// release before serving its content.
type gatedReader struct {
	started chan struct{}
	release chan struct{}
	once    bool
	r       *strings.Reader
}

func (g *gatedReader) Read(p []byte) (int, error) {
	if !g.once {
		g.once = true
		close(g.started)
		<-g.release
	}
	return g.r.Read(p)
}

func TestUpload_OverlappingUploadsKeepNewest(t *testing.T) {
	svc := newTestService(t)
	id := newSessionInMode(t, svc, quality.SalesAnalysis)
	ctx := context.Background()

	const oldCSV = "Transaction ID,Date and Time,Value,Product Code\nOLD1,2024-01-01 08:00,1.00,X1\n"
	body := &gatedReader{
		started: make(chan struct{}),
		release: make(chan struct{}),
		r:       strings.NewReader(oldCSV),
	}

	type outcome struct {
		v   ViewState
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := svc.Upload(ctx, id, FileUpload{Name: "old.csv", ContentType: "text/csv", Size: -1, Body: body})
		done <- outcome{v, err}
	}()

	select {
	case <-body.started:
	case <-time.After(time.Second):
		t.Fatal("older upload never started reading")
	}

	if _, err := svc.Upload(ctx, id, csvUpload("new.csv", salesCSV)); err != nil {
		t.Fatalf("newer Upload: %v", err)
	}
	close(body.release)

	var old outcome
	select {
	case old = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("older upload did not finish")
	}
	if old.err != nil {
		t.Fatalf("older Upload: %v", old.err)
	}

	v, err := svc.Snapshot(id)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if v.FileName != "new.csv" {
		t.Errorf("FileName = %q, want new.csv", v.FileName)
	}
	if len(v.Records) != 4 || v.Records[1][0] != "T1" {
		t.Errorf("Records = %v, want the newer file's table", v.Records)
	}
	if v.Result == nil || v.Result.Rows != 3 {
		t.Errorf("Result = %+v, want analysis of the 3-row newer file", v.Result)
	}
}

func TestRemoveFile_SupersedesInFlightUpload(t *testing.T) {
	svc := newTestService(t)
	id := svc.NewSession().SessionID
	sess, _ := svc.Sessions().Get(id)

	seq := sess.beginUpload()
	if _, err := svc.RemoveFile(context.Background(), id); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.claim(seq) {
		t.Error("upload started before removal must not apply")
	}
}

func TestRemoveFile_ClearsState(t *testing.T) {
	svc := newTestService(t)
	id := newSessionInMode(t, svc, quality.CategoricalAnalysis)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, id, csvUpload("sales.csv", salesCSV)); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	v, err := svc.RemoveFile(ctx, id)
	if err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if v.HasTable() || v.Editing || v.Error != nil || v.Result != nil || v.FileName != "" {
		t.Errorf("state not cleared: %+v", v)
	}
}

func TestEditFlow_AddMissingColumnsAndSave(t *testing.T) {
	svc := newTestService(t)
	id := newSessionInMode(t, svc, quality.CategoricalAnalysis)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, id, csvUpload("sales.csv", salesCSV)); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	for _, col := range []string{"Product Category", "Product Method", "Customer Segment"} {
		if _, err := svc.AddColumn(id, col); err != nil {
			t.Fatalf("AddColumn(%s): %v", col, err)
		}
		for row := 1; row <= 3; row++ {
			if _, err := svc.EditCell(id, row, col, "x"); err != nil {
				t.Fatalf("EditCell(%d, %s): %v", row, col, err)
			}
		}
	}

	v, err := svc.SaveChanges(ctx, id)
	if err != nil {
		t.Fatalf("SaveChanges: %v", err)
	}
	if v.Editing {
		t.Error("save with all columns present should leave edit mode")
	}
	if v.Error != nil {
		t.Errorf("unexpected error %+v", v.Error)
	}
	if !v.Result.Scanned() {
		t.Fatal("scans should run after the columns are added")
	}
	// Rows T1..T3 differ on Transaction ID, so no duplicates, no missing cells.
	if v.Result.Quality != 100 {
		t.Errorf("Quality = %v, want 100", v.Result.Quality)
	}
}

func TestSaveChanges_StillMissingStaysInEditMode(t *testing.T) {
	svc := newTestService(t)
	id := newSessionInMode(t, svc, quality.CategoricalAnalysis)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, id, csvUpload("sales.csv", salesCSV)); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := svc.AddColumn(id, "Product Category"); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	v, err := svc.SaveChanges(ctx, id)
	if err != nil {
		t.Fatalf("SaveChanges: %v", err)
	}
	if !v.Editing {
		t.Error("edit mode should turn back on while columns are missing")
	}
	if strings.Contains(v.Error.Message, "Product Category") {
		t.Errorf("added column still reported missing: %q", v.Error.Message)
	}
}

func TestEditCell_Errors(t *testing.T) {
	svc := newTestService(t)
	id := newSessionInMode(t, svc, quality.SalesAnalysis)

	if _, err := svc.EditCell(id, 1, "Value", "1"); !errors.Is(err, ErrNoActiveTable) {
		t.Errorf("no table: got %v", err)
	}
	if _, err := svc.Upload(context.Background(), id, csvUpload("sales.csv", salesCSV)); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := svc.EditCell(id, 1, "Value", "1"); !errors.Is(err, ErrNotEditing) {
		t.Errorf("not editing: got %v", err)
	}
	if _, err := svc.ToggleEdit(id); err != nil {
		t.Fatalf("ToggleEdit: %v", err)
	}
	if _, err := svc.EditCell(id, 9, "Value", "1"); !errors.Is(err, quality.ErrRowOutOfRange) {
		t.Errorf("row out of range: got %v", err)
	}
	if _, err := svc.EditCell(id, 1, "Nope", "1"); !errors.Is(err, quality.ErrUnknownColumn) {
		t.Errorf("unknown column: got %v", err)
	}
	v, err := svc.EditCell(id, 2, "Value", "99.00")
	if err != nil {
		t.Fatalf("EditCell: %v", err)
	}
	if got := v.Records[2][2]; got != "99.00" {
		t.Errorf("edited cell = %q", got)
	}
}

func TestSetMode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := newSessionInMode(t, svc, quality.SalesAnalysis)

	if _, err := svc.Upload(ctx, id, csvUpload("sales.csv", salesCSV)); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	v, err := svc.SetMode(ctx, id, quality.InventoryAnalysis)
	if err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if !v.Editing || v.Error == nil || v.Error.Code != "VAL004" {
		t.Errorf("switching to a stricter mode should re-check columns: %+v", v)
	}

	v, err = svc.SetMode(ctx, id, quality.Other)
	if err != nil {
		t.Fatalf("SetMode(Other): %v", err)
	}
	if v.Analyzable || v.Result != nil || v.Editing || v.Error != nil {
		t.Errorf("Other mode should show no analysis: %+v", v)
	}

	if _, err := svc.SetMode(ctx, id, quality.Mode("Forecasts")); !errors.Is(err, quality.ErrUnknownMode) {
		t.Errorf("unknown mode: got %v", err)
	}
}

func TestLoadSample(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := newSessionInMode(t, svc, quality.ProductAnalysis)

	v, err := svc.LoadSample(ctx, id)
	if err != nil {
		t.Fatalf("LoadSample: %v", err)
	}
	if v.SampleFile != "product_analysis.csv" || len(v.SampleRecords) < 2 {
		t.Fatalf("sample not loaded: file=%q records=%d", v.SampleFile, len(v.SampleRecords))
	}
	if v.SampleResult == nil || len(v.SampleResult.MissingColumns) != 0 {
		t.Errorf("sample should satisfy its own mode: %+v", v.SampleResult)
	}

	v, err = svc.RemoveSample(id)
	if err != nil {
		t.Fatalf("RemoveSample: %v", err)
	}
	if v.SampleRecords != nil {
		t.Error("sample panel not cleared")
	}
}

func TestLoadSample_FetchFailureLeavesPanelEmpty(t *testing.T) {
	catalog := NewSampleCatalog(NewFSSource(fstest.MapFS{}), 0)
	svc := NewService(Options{Samples: catalog})
	id := svc.NewSession().SessionID

	v, err := svc.LoadSample(context.Background(), id)
	if err == nil {
		t.Fatal("expected an error for a missing sample")
	}
	if v.SampleRecords != nil {
		t.Error("sample panel should stay empty")
	}
	if got := MapError(err).Code; got != "NET001" {
		t.Errorf("code = %s, want NET001", got)
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	store := NewSessionStore(time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	a := store.Create()
	b := store.Create()

	now = now.Add(30 * time.Second)
	if _, err := store.Get(a.ID); err != nil {
		t.Fatalf("Get within TTL: %v", err)
	}

	now = now.Add(45 * time.Second)
	if removed := store.Sweep(); removed != 1 {
		t.Errorf("Sweep removed %d, want 1", removed)
	}
	if _, err := store.Get(b.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expired session: got %v", err)
	}
	if _, err := store.Get(a.ID); err != nil {
		t.Errorf("recently used session should survive: %v", err)
	}
}

type fakeAuth struct {
	res auth.Result
	err error
}

func (f fakeAuth) Login(context.Context, string, string) (auth.Result, error) {
	return f.res, f.err
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	svc := NewService(Options{Auth: fakeAuth{res: auth.Result{Success: true}}})
	id := svc.NewSession().SessionID
	_, newID, err := svc.Login(ctx, id, "owner@shop.test", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !svc.SignedIn(newID) {
		t.Error("session should be signed in")
	}
	svc.Logout(newID)
	if _, err := svc.Snapshot(newID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("logout should end the session, got %v", err)
	}

	svc = NewService(Options{Auth: fakeAuth{res: auth.Result{Message: auth.MsgIncorrectPassword}}})
	id = svc.NewSession().SessionID
	res, sameID, err := svc.Login(ctx, id, "owner@shop.test", "bad")
	if err != nil || res.Success {
		t.Fatalf("rejected login: res=%+v err=%v", res, err)
	}
	if sameID != id {
		t.Errorf("rejected login changed the session ID: %q -> %q", id, sameID)
	}
	if svc.SignedIn(id) {
		t.Error("rejected login must not sign in")
	}

	svc = NewService(Options{})
	if _, _, err := svc.Login(ctx, svc.NewSession().SessionID, "a", "b"); !errors.Is(err, auth.ErrUnavailable) {
		t.Errorf("no authenticator: got %v", err)
	}
}

func TestLogin_RotatesSessionAndKeepsState(t *testing.T) {
	ctx := context.Background()
	svc := NewService(Options{
		Auth:        fakeAuth{res: auth.Result{Success: true}},
		MaxFileSize: 1 << 20,
	})
	id := newSessionInMode(t, svc, quality.CategoricalAnalysis)
	if _, err := svc.Upload(ctx, id, csvUpload("sales.csv", salesCSV)); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	_, newID, err := svc.Login(ctx, id, "Owner@Shop.test ", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if newID == id {
		t.Fatal("successful login must issue a new session ID")
	}
	if _, err := svc.Snapshot(id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("old session ID still valid: %v", err)
	}

	v, err := svc.Snapshot(newID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if v.SessionID != newID || v.Email != "owner@shop.test" {
		t.Errorf("SessionID=%q Email=%q", v.SessionID, v.Email)
	}
	if v.Mode != quality.CategoricalAnalysis || v.FileName != "sales.csv" || !v.HasTable() {
		t.Errorf("dashboard state not carried over: %+v", v)
	}
	if svc.Sessions().Len() != 1 {
		t.Errorf("Len = %d, want 1", svc.Sessions().Len())
	}
}

func TestSessionStore_RotateDropsInFlightUploads(t *testing.T) {
	store := NewSessionStore(time.Hour)
	old := store.Create()
	seq := old.beginUpload()

	rotated, err := store.Rotate(old.ID)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	old.mu.Lock()
	stale := old.claim(seq)
	old.mu.Unlock()
	if stale {
		t.Error("upload started before rotation must not apply to the old session")
	}

	next := rotated.beginUpload()
	rotated.mu.Lock()
	defer rotated.mu.Unlock()
	if !rotated.claim(next) {
		t.Error("upload started after rotation should apply")
	}
	if _, err := store.Rotate("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Rotate(missing): got %v", err)
	}
}
