// Package idgen generates short, URL-safe identifiers for snapshots and
// requests, backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes of the generated identifier kinds.
const (
	SnapshotPrefix = "snap-"
	RequestPrefix  = "req-"
)

// Alphabet is lower-case only so identifiers are safe in S3 keys and file
// names on case-insensitive file systems.
const Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Length is the number of random characters (excluding the prefix).
const Length = 12

// SnapshotID returns a new identifier for an exported snapshot.
func SnapshotID() (string, error) {
	return WithPrefix(SnapshotPrefix)
}

// RequestID returns a new identifier for an incoming API request.
func RequestID() (string, error) {
	return WithPrefix(RequestPrefix)
}

// WithPrefix returns a new identifier with the given prefix.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
