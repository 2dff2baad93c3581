package repository

import (
	"context"

	"github.com/iconidentify/groupgrab/internal/domain"
)

// LinkRepository is the dedup store. The bare URL row is the gate: once a
// URL is present it is never archived again.
type LinkRepository interface {
	// Init creates the schema. Safe to call repeatedly.
	Init(ctx context.Context) error

	// IsArchived reports whether the exact URL string has a row.
	IsArchived(ctx context.Context, url string) (bool, error)

	// RecordArchive inserts one row. A URL that is already present fails
	// with domain.ErrDuplicateArchival.
	RecordArchive(ctx context.Context, link *domain.ArchivedLink) error

	// List returns rows newest first.
	List(ctx context.Context, filter ListFilter) ([]*domain.ArchivedLink, error)

	// Count returns the number of rows matching the filter. Limit and
	// offset are ignored.
	Count(ctx context.Context, filter ListFilter) (int, error)

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// Close releases the database handle.
	Close() error
}

// ListFilter narrows List and Count. Zero values match everything.
type ListFilter struct {
	GroupName string
	Platform  domain.Platform
	Limit     int
	Offset    int
}
