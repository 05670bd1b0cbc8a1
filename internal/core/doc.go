// Package core provides the business logic behind the analyst dashboard.
//
// Everything here is independent of HTTP. The web server, the csvquality
// command and tests all drive the same [Service].
//
// # Sessions
//
// Each browser gets a [Session] from the [SessionStore]. A session holds the
// selected [quality.Mode], at most one uploaded table, the sample table for
// the mode and the edit-mode flag. Operations on a session are serialised by
// its mutex and return a [ViewState] snapshot for rendering.
//
// # Uploads
//
// [Service.Upload] checks the file type, then streams the body through
// [NewSizeLimitReader] and [WrapForStreaming] into [quality.Parse]. The
// [UploadLimiter] bounds concurrent parses. A newer upload on the same
// session supersedes an older one still in flight; the older result is
// discarded.
//
// Empty or malformed CSV is loaded as an empty table so the missing-column
// check still reports what the mode needs.
//
// # Samples
//
// [SampleCatalog] loads the sample dataset for each mode from a
// [SampleSource]: the embedded copies, a directory, or a base URL.
//
// # Editing
//
// In edit mode cells can be changed and columns added. [Service.SaveChanges]
// leaves edit mode and re-runs the analysis on the edited table.
//
// # Export
//
// [ExportWorkbook] writes the table and its quality report to an XLSX
// workbook.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages using [MapError]. See
// error_messages.go for the code reference.
package core
