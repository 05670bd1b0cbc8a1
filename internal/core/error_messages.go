// Package core provides the business logic behind the analyst dashboard.
//
// # Error Codes Reference
//
// Technical errors are mapped to user-facing messages with a short code the
// user can quote to support. Codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Invalid file type: only CSV uploads are accepted
//	          Patterns: "invalid file type"
//	FILE002 - File too large: file exceeds the configured upload limit
//	          Patterns: "file too large"
//	FILE003 - Invalid CSV: the file could not be read as CSV
//	          Patterns: "invalid csv"
//	FILE004 - No file: no file was attached to the request
//	          Patterns: "no file provided"
//	FILE005 - Empty file: the file has no header line
//	          Patterns: "empty file"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid request: a form or JSON body could not be read
//	VAL004 - Missing columns: required columns for the mode are absent
//	         Matched by type (*quality.MissingColumnsError); the message
//	         names every missing column.
//	VAL005 - Column not found: an edit named a column the table lacks
//	VAL008 - Row out of range: an edit named a row the table lacks
//	VAL009 - Column exists: a column with that name is already present
//
// # Mode Errors (MODE001-MODE099)
//
//	MODE001 - Unknown analysis mode
//	MODE002 - The selected mode does not accept uploads
//
// # Editing Errors (EDT001-EDT099)
//
//	EDT001 - Edit mode is off
//	EDT002 - No file is loaded
//
// # Network Errors (NET001-NET099)
//
//	NET001 - Sample dataset could not be fetched
//
// # Session and Account Errors (AUTH, SES, ACC)
//
//	AUTH002 - Not signed in
//	AUTH003 - Login service unreachable
//	SES001  - Session expired
//	ACC001  - Account not found
//	ACC002  - Account storage is not configured
//	ACC003  - Account details incomplete
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - Too many uploads in progress
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//
// # Rate Limiting (RATE001)
//
// # Default Error (ERR000)
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come before general ones.
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/sales-ai-analyst/internal/quality"
)

// UserMessage is what the dashboard shows for an error.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{"invalid file type", UserMessage{"Please upload a valid CSV file.", "Choose a file saved as .csv", "FILE001"}},
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller parts", "FILE002"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Ensure the file is comma-separated with a header line", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV file to upload", "FILE004"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Upload a CSV file with a header line and data rows", "FILE005"}},

	// Validation errors
	{"invalid request", UserMessage{"The request could not be read", "Check the submitted values and try again", "VAL001"}},
	{"column not found", UserMessage{"Column not found in the table", "Check the column name", "VAL005"}},
	{"row out of range", UserMessage{"Row not found in the table", "Check the row number", "VAL008"}},
	{"already exists", UserMessage{"A column with this name already exists", "Choose a different column name", "VAL009"}},

	// Mode errors
	{"unknown analysis mode", UserMessage{"Unknown analysis mode", "Pick one of the analysis modes from the sidebar", "MODE001"}},
	{"does not accept uploads", UserMessage{"This page does not accept uploads", "Select an analysis mode first", "MODE002"}},

	// Editing errors
	{"not in edit mode", UserMessage{"Editing is turned off", "Click edit before changing cells", "EDT001"}},
	{"no active table", UserMessage{"No file is loaded", "Upload a CSV file first", "EDT002"}},

	// Network errors
	{"sample", UserMessage{"Sample dataset could not be loaded", "Please try again later", "NET001"}},

	// Session and account errors
	{"not signed in", UserMessage{"You are not signed in", "Log in to continue", "AUTH002"}},
	{"login service", UserMessage{"An error occurred during login", "Please try again in a few moments", "AUTH003"}},
	{"session not found", UserMessage{"Your session has expired", "Reload the page to start a new session", "SES001"}},
	{"account not found", UserMessage{"Account not found", "Fill in your details and save them", "ACC001"}},
	{"account storage", UserMessage{"Account details cannot be saved right now", "Contact support", "ACC002"}},
	{"account details incomplete", UserMessage{"Some required account details are missing", "Full name, email and shop name are required", "ACC003"}},

	// Upload errors
	{"too many concurrent uploads", UserMessage{"System is busy processing other uploads", "Please wait a moment and try again", "UPL002"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or try again later", "UPL005"}},

	// Rate limiting
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-facing message.
// Missing-column errors name every missing column; everything else is
// matched against the pattern table, falling back to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var mce *quality.MissingColumnsError
	if errors.As(err, &mce) {
		return UserMessage{
			Message: "Missing required columns: " + strings.Join(mce.Columns, ", "),
			Action:  "Add the missing columns in edit mode, then save",
			Code:    "VAL004",
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders an error as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}
