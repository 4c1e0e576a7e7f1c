package waitlist

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrStoreFailure wraps persistence errors surfaced by Join.
	ErrStoreFailure = errors.New("waitlist store failure")
	ErrNotFound     = errors.New("waitlist entry not found")
)

// Status is the lifecycle state of an entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusNotified  Status = "notified"
	StatusConverted Status = "converted"
)

type Entry struct {
	ID        string
	Email     string
	Status    Status
	CreatedAt time.Time
}

// InsertResult reports the outcome of Store.Insert. Created is false when the email was
// already present; ID is then the existing entry's id.
type InsertResult struct {
	ID      string
	Created bool
}

// Store persists waitlist entries. Insert must treat a duplicate email as a non-error
// outcome.
type Store interface {
	Insert(ctx context.Context, email string) (InsertResult, error)
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// CanonicalEmail is the form emails are stored and de-duplicated under.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
