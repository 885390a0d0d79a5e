package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Entity kinds.
const (
	KindProfile    = "Profile"
	KindConference = "Conference"
	KindSession    = "Session"
	KindSpeaker    = "Speaker"
)

// Key identifies a stored entity. Parent-scoped entities carry their owner in
// ParentKind/ParentID; root entities leave both empty. Storage identity is
// (Kind, ID); the parent pair drives ancestor queries.
type Key struct {
	ParentKind string `json:"parent_kind,omitempty"`
	ParentID   string `json:"parent_id,omitempty"`
	Kind       string `json:"kind"`
	ID         string `json:"id"`
}

// NewKey returns a root key.
func NewKey(kind, id string) Key {
	return Key{Kind: kind, ID: id}
}

// NewChildKey returns a key owned by parent.
func NewChildKey(parent Key, kind, id string) Key {
	return Key{ParentKind: parent.Kind, ParentID: parent.ID, Kind: kind, ID: id}
}

// ProfileKey returns the key of the profile owned by userID.
func ProfileKey(userID string) Key {
	return NewKey(KindProfile, userID)
}

// HasParent reports whether k is parent-scoped.
func (k Key) HasParent() bool {
	return k.ParentKind != "" && k.ParentID != ""
}

// IsChildOf reports whether k is scoped under parent.
func (k Key) IsChildOf(parent Key) bool {
	return k.ParentKind == parent.Kind && k.ParentID == parent.ID
}

func (k Key) String() string {
	if k.HasParent() {
		return fmt.Sprintf("%s:%s/%s:%s", k.ParentKind, k.ParentID, k.Kind, k.ID)
	}
	return fmt.Sprintf("%s:%s", k.Kind, k.ID)
}

// Encode returns the websafe reference string for k.
func (k Key) Encode() string {
	raw := strings.Join([]string{k.ParentKind, k.ParentID, k.Kind, k.ID}, "\x1f")
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeKey parses a websafe reference produced by Key.Encode.
func DecodeKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	parts := strings.Split(string(raw), "\x1f")
	if len(parts) != 4 {
		return Key{}, ErrInvalidKey
	}
	k := Key{ParentKind: parts[0], ParentID: parts[1], Kind: parts[2], ID: parts[3]}
	if k.Kind == "" || k.ID == "" || (k.ParentKind == "") != (k.ParentID == "") {
		return Key{}, ErrInvalidKey
	}
	return k, nil
}

// DecodeKeyOfKind parses s and checks that it names an entity of kind.
func DecodeKeyOfKind(s, kind string) (Key, error) {
	k, err := DecodeKey(s)
	if err != nil {
		return Key{}, err
	}
	if k.Kind != kind {
		return Key{}, fmt.Errorf("%w: expected %s key, got %s", ErrInvalidKey, kind, k.Kind)
	}
	return k, nil
}
