// Package storage defines the durable structured log behind hybrid memory.
//
// A driver persists conversation turns in sequence order together with the
// embedding recorded for each turn, so the in-memory vector index can be
// rebuilt when a store is reopened. Sequence ids are assigned by the driver,
// start at 1, and are strictly increasing and gap-free.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// Role is the speaker of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// ParseRole converts s into a Role. Matching ignores case and surrounding
// whitespace.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAgent:
		return RoleAgent, nil
	default:
		return "", fmt.Errorf("invalid role %q: must be %q or %q", s, RoleUser, RoleAgent)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAgent
}

// Record is an immutable entry of the structured log.
type Record struct {
	Seq     int64  `json:"seq"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Turn is a Record together with the embedding stored for it.
type Turn struct {
	Record

	Embedding []float32
}

// Driver defines the interface for persisting and retrieving turns in a
// storage backend.
type Driver interface {
	// Append assigns the next sequence id and stores the record and its
	// embedding in a single transaction. Either both are persisted or neither is.
	Append(ctx context.Context, role Role, content string, embedding []float32) (Record, error)

	// History returns every record ordered by ascending sequence id.
	History(ctx context.Context) ([]Record, error)

	// Turns returns every record with its embedding, ordered by ascending
	// sequence id.
	Turns(ctx context.Context) ([]Turn, error)

	// Dimensions returns the embedding size the store was created with.
	Dimensions() int

	// Close closes the store and releases any resources.
	Close() error
}
