package api

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intent-engine/internal/model"
	"github.com/sells-group/intent-engine/internal/store"
	"github.com/sells-group/intent-engine/pkg/skiptrace"
)

// EnrichmentResult reports one enrichment attempt. Failures of the upstream
// API fold into Success=false; only an unknown contact id is an error.
type EnrichmentResult struct {
	Success        bool     `json:"success"`
	Message        string   `json:"message"`
	EnrichedFields []string `json:"enriched_fields"`
}

// BulkEnrichmentResult aggregates a sequential bulk run.
type BulkEnrichmentResult struct {
	Total      int               `json:"total"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Errors     []BulkEnrichError `json:"errors"`
}

// BulkEnrichError ties a failure message to the contact it concerns.
type BulkEnrichError struct {
	ContactID int64  `json:"contact_id"`
	Error     string `json:"error"`
}

// Enricher enriches contacts through the skip-trace client.
type Enricher struct {
	store  store.Store
	client skiptrace.Client
}

// NewEnricher creates an enricher.
func NewEnricher(st store.Store, client skiptrace.Client) *Enricher {
	return &Enricher{store: st, client: client}
}

// EnrichContact looks up one contact and stores whatever the provider
// returns, back-filling core fields that are still empty.
func (e *Enricher) EnrichContact(ctx context.Context, contactID int64) (*EnrichmentResult, error) {
	contact, err := e.store.GetContact(ctx, contactID)
	if err != nil {
		return nil, err
	}

	data, err := e.client.Lookup(ctx, skiptrace.Request{
		Email:     contact.Email,
		Phone:     contact.Phone,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
	})
	if err != nil {
		if eris.Is(err, skiptrace.ErrNotConfigured) {
			return &EnrichmentResult{Message: "Skip-trace API not configured", EnrichedFields: []string{}}, nil
		}
		return &EnrichmentResult{
			Message:        fmt.Sprintf("Enrichment failed: %v", err),
			EnrichedFields: []string{},
		}, nil
	}
	if len(data) == 0 {
		return &EnrichmentResult{Message: "No enrichment data found", EnrichedFields: []string{}}, nil
	}

	backfill := model.ContactPatch{}
	strField := func(key string) *string {
		if v, ok := data[key].(string); ok && v != "" {
			return &v
		}
		return nil
	}
	backfill.Phone = strField("phone")
	backfill.Email = strField("email")
	backfill.City = strField("city")
	backfill.State = strField("state")

	if err := e.store.SetEnrichment(ctx, contactID, data, backfill, time.Now().UTC()); err != nil {
		if eris.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return &EnrichmentResult{
			Message:        fmt.Sprintf("Enrichment failed: %v", err),
			EnrichedFields: []string{},
		}, nil
	}

	fields := make([]string, 0, len(data))
	for k := range data {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	zap.L().Info("contact enriched",
		zap.Int64("contact_id", contactID),
		zap.Int("fields", len(fields)))

	return &EnrichmentResult{
		Success:        true,
		Message:        "Contact enriched successfully",
		EnrichedFields: fields,
	}, nil
}

// BulkEnrich enriches contacts one at a time. Per-contact failures are
// tallied and reported; only an unexpected storage error aborts the run.
func (e *Enricher) BulkEnrich(ctx context.Context, contactIDs []int64) (*BulkEnrichmentResult, error) {
	result := &BulkEnrichmentResult{Total: len(contactIDs), Errors: []BulkEnrichError{}}

	for _, id := range contactIDs {
		res, err := e.EnrichContact(ctx, id)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkEnrichError{ContactID: id, Error: err.Error()})
			continue
		}
		if res.Success {
			result.Successful++
		} else {
			result.Failed++
			result.Errors = append(result.Errors, BulkEnrichError{ContactID: id, Error: res.Message})
		}
	}
	return result, nil
}
