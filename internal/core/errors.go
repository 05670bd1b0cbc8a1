package core

import "errors"

var (
	// ErrInvalidFileType is returned for uploads that are not CSV.
	ErrInvalidFileType = errors.New("invalid file type: only CSV files are accepted")

	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNoFile is returned when a request carries no file.
	ErrNoFile = errors.New("no file provided")

	// ErrInvalidRequest is returned when request input cannot be decoded.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrModeNotAnalyzable is returned for uploads outside an analysis mode.
	ErrModeNotAnalyzable = errors.New("selected mode does not accept uploads")

	// ErrNotEditing is returned for cell edits while edit mode is off.
	ErrNotEditing = errors.New("not in edit mode")

	// ErrNoActiveTable is returned for edits when no file is loaded.
	ErrNoActiveTable = errors.New("no active table")

	// ErrNoSample is returned when the selected mode has no sample dataset.
	ErrNoSample = errors.New("no sample dataset for mode")

	// ErrSessionNotFound is returned for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotSignedIn is returned for account operations without a login.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrAccountsUnavailable is returned when no account store is configured.
	ErrAccountsUnavailable = errors.New("account storage is not configured")

	// ErrAccountIncomplete is returned when required account fields are empty.
	ErrAccountIncomplete = errors.New("account details incomplete")
)
