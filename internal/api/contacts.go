package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/intent-engine/internal/model"
	"github.com/sells-group/intent-engine/internal/store"
)

// maxContactPageSize bounds the contacts list page size.
const maxContactPageSize = 1000

// contactListResponse is the paginated contacts envelope.
type contactListResponse struct {
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Contacts []model.Contact `json:"contacts"`
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parseTimeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Date-only form is accepted too.
		t, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func filtersFromQuery(r *http.Request) (model.AudienceFilters, error) {
	q := r.URL.Query()
	f := model.AudienceFilters{
		SearchQuery: q.Get("search"),
		Industry:    q.Get("industry"),
		Location:    q.Get("location"),
		City:        q.Get("city"),
		State:       q.Get("state"),
		Country:     q.Get("country"),
		IntentLevel: q.Get("intent_level"),
	}
	var err error
	if f.DateFrom, err = parseTimeParam(q.Get("date_from")); err != nil {
		return f, err
	}
	if f.DateTo, err = parseTimeParam(q.Get("date_to")); err != nil {
		return f, err
	}
	return f, nil
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	filters, err := filtersFromQuery(r)
	if err != nil {
		writeBadRequest(w, "Invalid date filter: "+err.Error())
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	page, pageSize = store.ClampPage(page, pageSize, maxContactPageSize)

	total, contacts, err := s.store.ListContacts(r.Context(), filters, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}
	writeJSON(w, http.StatusOK, contactListResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Contacts: contacts,
	})
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeBadRequest(w, "Invalid contact id")
		return
	}
	contact, err := s.store.GetContact(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

// contactCreateRequest is the create payload. Source defaults to "manual".
type contactCreateRequest struct {
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone"`
	Company   string       `json:"company"`
	Industry  string       `json:"industry"`
	Location  string       `json:"location"`
	City      string       `json:"city"`
	State     string       `json:"state"`
	Country   string       `json:"country"`
	Source    model.Source `json:"source"`
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var req contactCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	if req.Email != "" {
		existing, err := s.store.GetContactByEmail(r.Context(), req.Email)
		if err != nil {
			writeError(w, err)
			return
		}
		if existing != nil {
			writeBadRequest(w, "Contact with this email already exists")
			return
		}
	}

	source := req.Source
	if source == "" {
		source = model.SourceManual
	}
	contact := model.Contact{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Company:   req.Company,
		Industry:  req.Industry,
		Location:  req.Location,
		City:      req.City,
		State:     req.State,
		Country:   req.Country,
		Source:    source,
	}
	if err := s.store.CreateContact(r.Context(), &contact); err != nil {
		writeError(w, err)
		return
	}

	// A scoring failure must not lose the contact row.
	if _, err := s.scorer.Recalculate(r.Context(), contact.ID); err != nil {
		zap.L().Warn("initial scoring failed", zap.Int64("contact_id", contact.ID), zap.Error(err))
	}

	fresh, err := s.store.GetContact(r.Context(), contact.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fresh)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeBadRequest(w, "Invalid contact id")
		return
	}

	var patch model.ContactPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	if _, err := s.store.UpdateContact(r.Context(), id, patch); err != nil {
		writeError(w, err)
		return
	}

	if _, err := s.scorer.Recalculate(r.Context(), id); err != nil {
		zap.L().Warn("rescoring failed", zap.Int64("contact_id", id), zap.Error(err))
	}

	fresh, err := s.store.GetContact(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fresh)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeBadRequest(w, "Invalid contact id")
		return
	}
	if err := s.store.DeleteContact(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleEnrichContact(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeBadRequest(w, "Invalid contact id")
		return
	}
	result, err := s.enricher.EnrichContact(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRecalculateIntent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeBadRequest(w, "Invalid contact id")
		return
	}
	score, err := s.scorer.Recalculate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contact_id":  id,
		"score":       score.Score,
		"score_value": score.ScoreValue,
		"message":     "Intent score recalculated",
	})
}
