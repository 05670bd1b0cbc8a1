// Package auth talks to the login backend and maps its answers onto the
// login form's fields.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable is returned when the login backend cannot be reached or
// answers with something other than a login result.
var ErrUnavailable = errors.New("login service unavailable")

// Messages the backend uses for field-specific failures.
const (
	MsgIncorrectPassword = "Incorrect password"
	MsgInvalidEmail      = "Invalid email ID"
)

// Messages shown on the form.
const (
	MsgGenericFailure = "Invalid email or password"
	MsgRequestFailed  = "An error occurred during login"
)

// Result is the backend's answer to a login attempt.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client posts credentials to a login endpoint.
type Client struct {
	loginURL string
	http     *http.Client
}

// NewClient creates a client for loginURL.
func NewClient(loginURL string, timeout time.Duration) *Client {
	return &Client{
		loginURL: loginURL,
		http:     &http.Client{Timeout: timeout},
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login posts the credentials. A rejected login is a Result with Success
// false and a nil error; the error is reserved for transport failures.
func (c *Client) Login(ctx context.Context, email, password string) (Result, error) {
	body, err := json.Marshal(loginRequest{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var res Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&res); err != nil {
		return Result{}, fmt.Errorf("%w: status %d: %v", ErrUnavailable, resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 {
		res.Success = false
	}
	return res, nil
}

// FieldErrors holds the messages shown under each login form field.
type FieldErrors struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Empty reports whether there is nothing to show.
func (f FieldErrors) Empty() bool {
	return f.Email == "" && f.Password == ""
}

// FieldErrorsFor decides which field shows which message for a login
// outcome. A successful result yields no errors.
func FieldErrorsFor(res Result, err error) FieldErrors {
	if err != nil {
		return FieldErrors{Password: MsgRequestFailed}
	}
	if res.Success {
		return FieldErrors{}
	}
	switch res.Message {
	case MsgIncorrectPassword:
		return FieldErrors{Password: MsgIncorrectPassword}
	case MsgInvalidEmail:
		return FieldErrors{Email: MsgInvalidEmail}
	default:
		return FieldErrors{Password: MsgGenericFailure}
	}
}
