// Package audience builds and maintains materialized contact segments.
package audience

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/intent-engine/internal/model"
	"github.com/sells-group/intent-engine/internal/store"
)

// previewSize is how many matching contacts a preview returns.
const previewSize = 5

// Engine evaluates audience filters and keeps memberships in sync.
type Engine struct {
	store store.Store
}

// NewEngine creates an audience engine.
func NewEngine(st store.Store) *Engine {
	return &Engine{store: st}
}

// Preview reports how many contacts a filter set matches, plus the first few
// in stable id order.
type Preview struct {
	MatchingContacts int             `json:"matching_contacts"`
	Preview          []model.Contact `json:"preview"`
}

// Preview evaluates filters without persisting anything.
func (e *Engine) Preview(ctx context.Context, filters model.AudienceFilters) (*Preview, error) {
	contacts, err := e.store.FilterContacts(ctx, filters)
	if err != nil {
		return nil, err
	}
	head := contacts
	if len(head) > previewSize {
		head = head[:previewSize]
	}
	if head == nil {
		head = []model.Contact{}
	}
	return &Preview{MatchingContacts: len(contacts), Preview: head}, nil
}

// Create stores a new audience and materializes its membership set.
func (e *Engine) Create(ctx context.Context, name, description string, filters model.AudienceFilters) (*model.Audience, error) {
	a := &model.Audience{Name: name, Description: description, Filters: filters}
	if err := e.store.CreateAudience(ctx, a); err != nil {
		return nil, err
	}
	if !filters.Empty() {
		if err := e.rebuild(ctx, a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Update applies a partial update. When the filter specification changes the
// membership set is rebuilt from scratch; name or description edits leave it
// alone.
func (e *Engine) Update(ctx context.Context, id int64, patch model.AudiencePatch) (*model.Audience, error) {
	a, err := e.store.UpdateAudience(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if patch.Filters != nil {
		if err := e.rebuild(ctx, a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Delete removes an audience. Member contacts themselves are untouched.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	return e.store.DeleteAudience(ctx, id)
}

// Get returns one audience.
func (e *Engine) Get(ctx context.Context, id int64) (*model.Audience, error) {
	return e.store.GetAudience(ctx, id)
}

// List returns all audiences.
func (e *Engine) List(ctx context.Context) ([]model.Audience, error) {
	return e.store.ListAudiences(ctx)
}

// Contacts pages through an audience's members in stable id order.
func (e *Engine) Contacts(ctx context.Context, id int64, page, pageSize int) (int, []model.Contact, error) {
	if _, err := e.store.GetAudience(ctx, id); err != nil {
		return 0, nil, err
	}
	ids, err := e.store.AudienceContactIDs(ctx, id)
	if err != nil {
		return 0, nil, err
	}

	total := len(ids)
	start := (page - 1) * pageSize
	if start >= total {
		return total, []model.Contact{}, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	contacts, err := e.store.ContactsByIDs(ctx, ids[start:end])
	if err != nil {
		return 0, nil, err
	}
	return total, contacts, nil
}

func (e *Engine) rebuild(ctx context.Context, a *model.Audience) error {
	contacts, err := e.store.FilterContacts(ctx, a.Filters)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.ID)
	}
	if err := e.store.ReplaceMemberships(ctx, a.ID, ids); err != nil {
		return err
	}
	a.ContactCount = len(ids)

	zap.L().Info("audience rebuilt",
		zap.Int64("audience_id", a.ID),
		zap.String("name", a.Name),
		zap.Int("contact_count", len(ids)))
	return nil
}
