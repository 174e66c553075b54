// Package store persists contacts, intent scores, audiences and search
// records. Two backends implement Store: Postgres (pgx) and SQLite.
package store

import (
	"context"
	"time"

	"github.com/sells-group/intent-engine/internal/model"
)

// Store defines the persistence interface for the intent engine.
type Store interface {
	// Contacts
	CreateContact(ctx context.Context, c *model.Contact) error
	GetContact(ctx context.Context, id int64) (*model.Contact, error)
	GetContactByEmail(ctx context.Context, email string) (*model.Contact, error)
	UpdateContact(ctx context.Context, id int64, patch model.ContactPatch) (*model.Contact, error)
	DeleteContact(ctx context.Context, id int64) error
	ListContacts(ctx context.Context, filters model.AudienceFilters, page, pageSize int) (int, []model.Contact, error)
	ContactsByIDs(ctx context.Context, ids []int64) ([]model.Contact, error)
	FilterContacts(ctx context.Context, filters model.AudienceFilters) ([]model.Contact, error)
	SetEnrichment(ctx context.Context, id int64, data map[string]any, backfill model.ContactPatch, at time.Time) error

	// Intent scores
	UnscoredContacts(ctx context.Context) ([]model.Contact, error)
	InsertScores(ctx context.Context, scores []model.IntentScore) error
	ReplaceScore(ctx context.Context, contactID int64, score model.IntentScore) (*model.IntentScore, error)

	// Audiences
	CreateAudience(ctx context.Context, a *model.Audience) error
	GetAudience(ctx context.Context, id int64) (*model.Audience, error)
	UpdateAudience(ctx context.Context, id int64, patch model.AudiencePatch) (*model.Audience, error)
	DeleteAudience(ctx context.Context, id int64) error
	ListAudiences(ctx context.Context) ([]model.Audience, error)
	ReplaceMemberships(ctx context.Context, audienceID int64, contactIDs []int64) error
	AudienceContactIDs(ctx context.Context, audienceID int64) ([]int64, error)

	// Search provenance log (append-only)
	InsertSearchRecord(ctx context.Context, rec *model.SearchRecord) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// DefaultPageSize is applied when a list request leaves page_size unset.
const DefaultPageSize = 50

// ClampPage normalizes 1-based pagination parameters against an upper bound.
func ClampPage(page, pageSize, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return page, pageSize
}
