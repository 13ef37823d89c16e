// ABOUTME: Identity record returned by the church administration backend
// ABOUTME: Tolerates role_id and is_active arriving as numbers, strings or booleans

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SuperAdminRoleID is the role identifier the backend assigns to super administrators.
const SuperAdminRoleID = 1

// FlexInt decodes a JSON number, numeric string, boolean or null into an int.
// The backend is inconsistent about the type of flag and identifier columns.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("invalid boolean %s: %w", data, err)
		}
		if b {
			*f = 1
		} else {
			*f = 0
		}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := parseNumeric(s)
		if err != nil {
			return err
		}
		*f = FlexInt(n)
		return nil
	default:
		n, err := parseNumeric(string(data))
		if err != nil {
			return err
		}
		*f = FlexInt(n)
		return nil
	}
}

func parseNumeric(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	// float64(math.MaxInt) rounds up to 2^63, which int cannot hold.
	if v < math.MinInt || v >= math.MaxInt {
		return 0, fmt.Errorf("number out of range: %q", s)
	}
	return int(v), nil
}

// User is the identity record of the logged in console user.
type User struct {
	ID             FlexInt  `json:"id"`
	Username       string   `json:"username"`
	RoleID         FlexInt  `json:"role_id"`
	Active         FlexInt  `json:"is_active"`
	Name           string   `json:"name,omitempty"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Photo          string   `json:"photo,omitempty"`
	OrganizationID *FlexInt `json:"organization_id,omitempty"`

	// Extra keeps profile fields this package does not model.
	Extra map[string]json.RawMessage `json:"-"`
}

var knownUserFields = map[string]bool{
	"id": true, "username": true, "role_id": true, "is_active": true,
	"name": true, "email": true, "phone": true, "photo": true, "organization_id": true,
}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if knownUserFields[k] {
			delete(raw, k)
		}
	}
	if len(raw) > 0 {
		p.Extra = raw
	}

	*u = User(p)
	return nil
}

// MarshalJSON writes the known fields followed by Extra.
func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	base, err := json.Marshal(plain(u))
	if err != nil {
		return nil, err
	}
	if len(u.Extra) == 0 {
		return base, nil
	}

	merged := make(map[string]json.RawMessage, len(u.Extra)+len(knownUserFields))
	for k, v := range u.Extra {
		merged[k] = v
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(base, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// IsActive reports whether the backend marks the account as active.
func (u *User) IsActive() bool {
	return u != nil && u.Active != 0
}

// IsSuperAdmin reports whether the user holds the super administrator role.
func (u *User) IsSuperAdmin() bool {
	return u != nil && int(u.RoleID) == SuperAdminRoleID
}

// Clone returns a deep copy so callers cannot mutate session-owned state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.OrganizationID != nil {
		org := *u.OrganizationID
		c.OrganizationID = &org
	}
	if u.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(u.Extra))
		for k, v := range u.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}
