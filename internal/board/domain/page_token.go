package domain

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// pageTokenVersion tags the token schema. A token carrying any other
// version decodes as "start of board".
const pageTokenVersion = 1

// PageToken is the opaque continuation state for one board, three
// parallel per-column maps kept atomic in a single structure:
//   - Cursor: oldest receivedAt returned so far (strictly-older reads)
//   - RemoteExhausted: the remote source has no further pages
//   - RemotePageToken: the remote list continuation per column
//
// It is never persisted; it round-trips through the client as
// base64-encoded JSON.
type PageToken struct {
	Version         int                   `json:"v"`
	Cursor          map[string]*time.Time `json:"cursor"`
	RemoteExhausted map[string]bool       `json:"remoteExhausted"`
	RemotePageToken map[string]*string    `json:"remotePageToken"`
}

// NewPageToken returns an empty token meaning "start of board".
func NewPageToken() *PageToken {
	return &PageToken{
		Version:         pageTokenVersion,
		Cursor:          make(map[string]*time.Time),
		RemoteExhausted: make(map[string]bool),
		RemotePageToken: make(map[string]*string),
	}
}

// Encode serializes the token for the client.
func (t *PageToken) Encode() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodePageToken parses a client-supplied token. Malformed input,
// an empty string, or a version mismatch all decode to a fresh token;
// decode failure is never an error for the caller.
func DecodePageToken(raw string) *PageToken {
	if raw == "" {
		return NewPageToken()
	}
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return NewPageToken()
	}
	var t PageToken
	if err := json.Unmarshal(data, &t); err != nil || t.Version != pageTokenVersion {
		return NewPageToken()
	}
	if t.Cursor == nil {
		t.Cursor = make(map[string]*time.Time)
	}
	if t.RemoteExhausted == nil {
		t.RemoteExhausted = make(map[string]bool)
	}
	if t.RemotePageToken == nil {
		t.RemotePageToken = make(map[string]*string)
	}
	return &t
}
