// ABOUTME: Auth request/response schemas for the backend login and identity endpoints
// ABOUTME: Validates response shapes at the boundary and reports unexpected ones as ParseError

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LoginRequest represents credentials for authentication
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned to the browser after a login attempt. Tokens never leave the server.
type LoginResponse struct {
	Success bool   `json:"success"`
	User    *User  `json:"user,omitempty"`
	Error   string `json:"error,omitempty"`
}

// LoginResult is the validated body of a successful backend login.
type LoginResult struct {
	Token string
	User  *User
}

// ParseError reports a backend response whose shape does not match any known schema.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected response shape: %s: %v", e.Reason, e.Err)
	}
	return "unexpected response shape: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseMeResponse decodes the identity endpoint body. The backend returns either the
// user record itself or an envelope {"user": {...}}; both yield the same User.
func ParseMeResponse(data []byte) (*User, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	if wrapped, ok := fields["user"]; ok {
		return decodeUser(wrapped)
	}
	_, hasID := fields["id"]
	_, hasUsername := fields["username"]
	if !hasID && !hasUsername {
		return nil, &ParseError{Reason: "neither a user record nor a user envelope"}
	}
	return decodeUser(data)
}

// ParseLoginResponse decodes {"token": "...", "user": {...}}. The token is optional
// here; whether it is required depends on the deployment mode.
func ParseLoginResponse(data []byte) (*LoginResult, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	rawUser, ok := fields["user"]
	if !ok {
		return nil, &ParseError{Reason: "login response has no user"}
	}
	user, err := decodeUser(rawUser)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{User: user}
	if rawToken, ok := fields["token"]; ok && !isNull(rawToken) {
		if err := json.Unmarshal(rawToken, &result.Token); err != nil {
			return nil, &ParseError{Reason: "token is not a string", Err: err}
		}
	}
	return result, nil
}

// BackendMessage extracts a human readable message from an error body,
// checking "message" then "error". Returns "" when neither is a string.
func BackendMessage(data []byte) string {
	var body struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	for _, raw := range []json.RawMessage{body.Message, body.Error} {
		var s string
		if len(raw) > 0 && json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	return ""
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &ParseError{Reason: "expected a JSON object"}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, &ParseError{Reason: "malformed JSON", Err: err}
	}
	return fields, nil
}

func decodeUser(data []byte) (*User, error) {
	trimmed := bytes.TrimSpace(data)
	if isNull(trimmed) {
		return nil, &ParseError{Reason: "user is null"}
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &ParseError{Reason: "user is not an object"}
	}
	var u User
	if err := json.Unmarshal(trimmed, &u); err != nil {
		return nil, &ParseError{Reason: "invalid user record", Err: err}
	}
	if u.ID == 0 && u.Username == "" {
		return nil, &ParseError{Reason: "user record has neither id nor username"}
	}
	return &u, nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
