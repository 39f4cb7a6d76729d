package model

import (
	"encoding/json"
	"strings"
	"time"
)

// AppState is a key-value record of application state stored as JSON.
// Keys use the format "{namespace}:{name}" (e.g. "app:settings").
type AppState struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Namespace returns the part of the key before the first colon.
func (s *AppState) Namespace() string {
	ns, _, _ := strings.Cut(s.Key, ":")
	return ns
}

// Decode unmarshals the stored value into v.
func (s *AppState) Decode(v any) error {
	return json.Unmarshal(s.Value, v)
}
