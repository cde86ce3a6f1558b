package db

import (
	"context"

	"github.com/pkg/errors"

	"site-ingest/pkg/domain"
)

// Table (and collection) names shared by every backend.
const (
	ContentTable      = "website_content"
	NotificationTable = "content_notifications"
)

var (
	// ErrNotFound is returned when an update targets an id the store does not hold.
	ErrNotFound = errors.New("content record not found")

	// ErrDuplicateIdentity means more than one stored record carries the same
	// (source_url, title) pair, or an insert would create a second one.
	ErrDuplicateIdentity = errors.New("duplicate content identity")
)

// Store is the read/write contract the reconciler depends on.
type Store interface {
	// FindByKey returns the record with the given identity key, nil when there is
	// none, or ErrDuplicateIdentity when the store holds more than one.
	FindByKey(ctx context.Context, key domain.IdentityKey) (*domain.ContentRecord, error)

	// Insert stores a new record and returns its id.
	Insert(ctx context.Context, record domain.ContentRecord) (string, error)

	// Update rewrites the mutable fields of the record with the given id.
	Update(ctx context.Context, id string, fields domain.ContentUpdate) error

	// LogChange appends an event to the change log.
	LogChange(ctx context.Context, event domain.ChangeEvent) error
}

// RecentReader lists the most recently scraped records, newest first.
type RecentReader interface {
	Recent(ctx context.Context, limit int) ([]domain.ContentRecord, error)
}

// Migrator creates the tables, collections and indexes a backend needs.
type Migrator interface {
	EnsureSchema(ctx context.Context) error
}

// ContentStore is what every backend in this package provides.
type ContentStore interface {
	Store
	RecentReader
	Migrator
}
