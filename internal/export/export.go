// Package export projects contact sets into CSV, hashed-identifier and
// webhook delivery formats.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intent-engine/internal/hashing"
	"github.com/sells-group/intent-engine/internal/model"
	"github.com/sells-group/intent-engine/internal/store"
)

// Format selects an export variant.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatHashed  Format = "hashed"
	FormatWebhook Format = "webhook"
)

// defaultFields is the column list used when the caller does not supply one.
var defaultFields = []string{
	"id", "first_name", "last_name", "email", "phone",
	"company", "industry", "location", "city", "state", "country",
}

// Request selects the contacts to export and the output shape. Explicit
// contact IDs win over an audience; one of the two must be present.
type Request struct {
	Format     Format   `json:"format"`
	ContactIDs []int64  `json:"contact_ids,omitempty"`
	AudienceID *int64   `json:"audience_id,omitempty"`
	Fields     []string `json:"fields,omitempty"`
	WebhookURL string   `json:"webhook_url,omitempty"`
}

// Result reports one export run. Content is set for file formats; WebhookSent
// is set only for webhook delivery.
type Result struct {
	ExportID    string `json:"export_id"`
	Format      Format `json:"format"`
	RecordCount int    `json:"record_count"`
	Content     string `json:"content,omitempty"`
	WebhookSent *bool  `json:"webhook_sent,omitempty"`
	Message     string `json:"message"`
}

// Filename derives the download filename from the request.
func (r Request) Filename() string {
	if r.AudienceID != nil {
		return fmt.Sprintf("audience_%d_%s.csv", *r.AudienceID, r.Format)
	}
	return fmt.Sprintf("export_%s.csv", r.Format)
}

// Engine executes exports against the store.
type Engine struct {
	store store.Store
	http  *http.Client
}

// NewEngine creates an export engine. webhookTimeout bounds outbound webhook
// POSTs.
func NewEngine(st store.Store, webhookTimeout time.Duration) *Engine {
	if webhookTimeout <= 0 {
		webhookTimeout = 30 * time.Second
	}
	return &Engine{
		store: st,
		http:  &http.Client{Timeout: webhookTimeout},
	}
}

// Export runs one export. Webhook delivery failures are reported in the
// result, never as an error; selection and format problems are errors.
func (e *Engine) Export(ctx context.Context, req Request) (*Result, error) {
	switch req.Format {
	case FormatCSV, FormatHashed, FormatWebhook:
	default:
		return nil, eris.Wrapf(model.ErrValidation, "export: unsupported format %q", req.Format)
	}
	if req.Format == FormatWebhook && req.WebhookURL == "" {
		return nil, eris.Wrap(model.ErrValidation, "export: webhook_url required for webhook export")
	}

	contacts, err := e.selectContacts(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return &Result{
			ExportID:    uuid.New().String(),
			Format:      req.Format,
			RecordCount: 0,
			Message:     "No contacts to export",
		}, nil
	}

	fields := req.Fields
	if len(fields) == 0 {
		fields = defaultFields
	}

	var result *Result
	switch req.Format {
	case FormatCSV:
		result, err = exportCSV(contacts, fields)
	case FormatHashed:
		result, err = exportHashed(contacts)
	case FormatWebhook:
		result = e.exportWebhook(ctx, contacts, req.WebhookURL, fields)
	}
	if err != nil {
		return nil, err
	}

	result.ExportID = uuid.New().String()
	zap.L().Info("export complete",
		zap.String("export_id", result.ExportID),
		zap.String("format", string(result.Format)),
		zap.Int("record_count", result.RecordCount))
	return result, nil
}

// selectContacts resolves the export's contact set: explicit IDs first, then
// audience membership.
func (e *Engine) selectContacts(ctx context.Context, req Request) ([]model.Contact, error) {
	if len(req.ContactIDs) > 0 {
		return e.store.ContactsByIDs(ctx, req.ContactIDs)
	}
	if req.AudienceID != nil {
		if _, err := e.store.GetAudience(ctx, *req.AudienceID); err != nil {
			return nil, err
		}
		ids, err := e.store.AudienceContactIDs(ctx, *req.AudienceID)
		if err != nil {
			return nil, err
		}
		return e.store.ContactsByIDs(ctx, ids)
	}
	return nil, eris.Wrap(model.ErrValidation, "export: no selection criteria")
}

// fieldValue resolves one projected column. The virtual intent_score field
// maps to the tier label of the latest score. Missing values render empty.
func fieldValue(c *model.Contact, field string) string {
	switch field {
	case "id":
		return strconv.FormatInt(c.ID, 10)
	case "first_name":
		return c.FirstName
	case "last_name":
		return c.LastName
	case "email":
		return c.Email
	case "phone":
		return c.Phone
	case "company":
		return c.Company
	case "industry":
		return c.Industry
	case "location":
		return c.Location
	case "city":
		return c.City
	case "state":
		return c.State
	case "country":
		return c.Country
	case "source":
		return string(c.Source)
	case "intent_score":
		return c.LatestTier()
	default:
		return ""
	}
}

func exportCSV(contacts []model.Contact, fields []string) (*Result, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	if err := w.Write(fields); err != nil {
		return nil, eris.Wrap(err, "export: write csv header")
	}
	row := make([]string, len(fields))
	for i := range contacts {
		for j, field := range fields {
			row[j] = fieldValue(&contacts[i], field)
		}
		if err := w.Write(row); err != nil {
			return nil, eris.Wrap(err, "export: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "export: flush csv")
	}

	return &Result{
		Format:      FormatCSV,
		RecordCount: len(contacts),
		Content:     buf.String(),
		Message:     fmt.Sprintf("Exported %d contacts as CSV", len(contacts)),
	}, nil
}

func exportHashed(contacts []model.Contact) (*Result, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"hashed_email"}); err != nil {
		return nil, eris.Wrap(err, "export: write csv header")
	}
	count := 0
	for i := range contacts {
		if contacts[i].Email == "" {
			continue
		}
		if err := w.Write([]string{hashing.HashEmail(contacts[i].Email)}); err != nil {
			return nil, eris.Wrap(err, "export: write csv row")
		}
		count++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "export: flush csv")
	}

	return &Result{
		Format:      FormatHashed,
		RecordCount: count,
		Content:     buf.String(),
		Message:     fmt.Sprintf("Exported %d hashed emails", count),
	}, nil
}

// exportWebhook POSTs the projected rows to the destination URL. Delivery is
// fire-and-forget: any non-2xx status or transport error is reported in the
// result, and there is no retry.
func (e *Engine) exportWebhook(ctx context.Context, contacts []model.Contact, url string, fields []string) *Result {
	rows := make([]map[string]any, 0, len(contacts))
	for i := range contacts {
		row := make(map[string]any, len(fields))
		for _, field := range fields {
			if field == "id" {
				row[field] = contacts[i].ID
				continue
			}
			if v := fieldValue(&contacts[i], field); v != "" {
				row[field] = v
			} else {
				row[field] = nil
			}
		}
		rows = append(rows, row)
	}

	sent := false
	result := &Result{
		Format:      FormatWebhook,
		RecordCount: len(contacts),
		WebhookSent: &sent,
	}

	body, err := json.Marshal(map[string]any{"contacts": rows})
	if err != nil {
		result.Message = fmt.Sprintf("Webhook failed: %v", err)
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		result.Message = fmt.Sprintf("Webhook failed: %v", err)
		return result
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		result.Message = fmt.Sprintf("Webhook failed: %v", err)
		return result
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		sent = true
		result.Message = fmt.Sprintf("Sent %d contacts to webhook", len(contacts))
	default:
		result.Message = fmt.Sprintf("Webhook failed with status %d", resp.StatusCode)
	}
	return result
}
