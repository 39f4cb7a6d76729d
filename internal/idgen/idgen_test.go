package idgen

import (
	"regexp"
	"testing"
)

func TestSnapshotID(t *testing.T) {
	pattern := regexp.MustCompile(`^snap-[a-z0-9]{12}$`)
	for i := 0; i < 100; i++ {
		id, err := SnapshotID()
		if err != nil {
			t.Fatalf("SnapshotID() error on iteration %d: %v", i, err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("SnapshotID() = %q, does not match %s", id, pattern)
		}
	}
}

func TestRequestID_Prefix(t *testing.T) {
	id, err := RequestID()
	if err != nil {
		t.Fatalf("RequestID() error: %v", err)
	}
	if id[:len(RequestPrefix)] != RequestPrefix {
		t.Errorf("RequestID() = %q, want prefix %q", id, RequestPrefix)
	}
	if len(id) != len(RequestPrefix)+Length {
		t.Errorf("RequestID() length = %d, want %d", len(id), len(RequestPrefix)+Length)
	}
}

func TestWithPrefix_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := WithPrefix("x-")
		if err != nil {
			t.Fatalf("WithPrefix() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q after %d iterations", id, i)
		}
		seen[id] = struct{}{}
	}
}
