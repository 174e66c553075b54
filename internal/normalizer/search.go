package normalizer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intent-engine/internal/model"
	"github.com/sells-group/intent-engine/internal/store"
	"github.com/sells-group/intent-engine/pkg/serpapi"
)

// SearchImportResult summarizes one search-and-import run.
type SearchImportResult struct {
	SearchID        int64  `json:"search_id"`
	Query           string `json:"query"`
	ResultsCount    int    `json:"results_count"`
	ContactsCreated int    `json:"contacts_created"`
}

// ImportSearch executes a search and imports every parseable result as a
// contact. The raw response is logged to the search provenance table before
// any contact is created, so a partial import is still traceable.
func ImportSearch(ctx context.Context, st store.Store, client serpapi.Client, query, location string, numResults int) (*SearchImportResult, error) {
	resp, err := client.Search(ctx, query, location, numResults)
	if err != nil {
		return nil, err
	}

	rec := model.SearchRecord{
		Query:        query,
		ResultsCount: len(resp.OrganicResults),
		RawResponse:  resp.Raw,
	}
	if err := st.InsertSearchRecord(ctx, &rec); err != nil {
		return nil, err
	}

	created := 0
	add := func(c model.Contact) error {
		err := st.CreateContact(ctx, &c)
		if err == nil {
			created++
			return nil
		}
		// Local results sometimes repeat a business already stored.
		if eris.Is(err, model.ErrDuplicateEmail) {
			return nil
		}
		return err
	}

	for _, res := range resp.OrganicResults {
		if err := add(ContactFromOrganic(res, query)); err != nil {
			return nil, err
		}
	}
	for _, res := range resp.LocalResults {
		if err := add(ContactFromLocal(res, query, location)); err != nil {
			return nil, err
		}
	}

	zap.L().Info("search import complete",
		zap.String("query", query),
		zap.Int64("search_id", rec.ID),
		zap.Int("organic_results", len(resp.OrganicResults)),
		zap.Int("local_results", len(resp.LocalResults)),
		zap.Int("contacts_created", created))

	return &SearchImportResult{
		SearchID:        rec.ID,
		Query:           query,
		ResultsCount:    len(resp.OrganicResults) + len(resp.LocalResults),
		ContactsCreated: created,
	}, nil
}
