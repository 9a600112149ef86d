// Package session owns the persisted browser session of ledgerweb: the
// bearer token issued by the backend and the user record it belongs to.
//
// A Store is one tab's view of the record shared by every tab of the same
// browser context. Components never read the storage directly -- they get a
// Snapshot from the Store and subscribe to its change notifications.
package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// User is the identity portion of a session. Only ID is required; the profile
// fields are whatever the backend returned at login time.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
}

// UnmarshalJSON accepts the user id as either a JSON string or a JSON number.
// Backends backed by document stores emit strings, SQL-backed ones numbers.
func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    json.RawMessage `json:"id"`
		Name  string          `json:"name"`
		Email string          `json:"email"`
		Image string          `json:"image"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := decodeID(raw.ID)
	if err != nil {
		return err
	}

	*u = User{ID: id, Name: raw.Name, Email: raw.Email, Image: raw.Image}
	return nil
}

// decodeID turns a raw JSON id into its string form. A missing or null id
// decodes to "" and is rejected later by validation.
func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("user id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return "", fmt.Errorf("user id must be a string or number: %w", err)
	}
	return n.String(), nil
}

// Session is the authenticated identity for one browser context.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Validate reports whether the session carries the fields every consumer
// relies on. Other screens build their backend requests from User.ID, so a
// record without one is worthless.
func (s Session) Validate() error {
	if s.User.ID == "" {
		return fmt.Errorf("session user has no id")
	}
	return nil
}

// Snapshot is the result of reading the store: either a valid session or
// nothing. The zero value is Absent.
type Snapshot struct {
	session *Session
}

// Absent returns the "no session" snapshot.
func Absent() Snapshot {
	return Snapshot{}
}

// Valid wraps a session that has already passed Validate.
func Valid(s Session) Snapshot {
	return Snapshot{session: &s}
}

// Session returns the wrapped session and whether there is one.
func (s Snapshot) Session() (Session, bool) {
	if s.session == nil {
		return Session{}, false
	}
	return *s.session, true
}

// Authenticated reports whether the snapshot holds a session with a user.
func (s Snapshot) Authenticated() bool {
	return s.session != nil && s.session.User.ID != ""
}

// UserID returns the id of the signed-in user, or "" when absent.
func (s Snapshot) UserID() string {
	if s.session == nil {
		return ""
	}
	return s.session.User.ID
}

// Equal compares two snapshots by value.
func (s Snapshot) Equal(other Snapshot) bool {
	if s.session == nil || other.session == nil {
		return s.session == nil && other.session == nil
	}
	return *s.session == *other.session
}

// String is used in log lines; it never includes the token.
func (s Snapshot) String() string {
	if s.session == nil {
		return "absent"
	}
	return "user:" + s.session.User.ID
}
