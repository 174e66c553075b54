package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/sells-group/intent-engine/internal/model"
	"github.com/sells-group/intent-engine/internal/store"
)

// maxAudiencePageSize bounds the audience-contacts page size.
const maxAudiencePageSize = 100

type audienceListResponse struct {
	Total     int              `json:"total"`
	Audiences []model.Audience `json:"audiences"`
}

type audienceCreateRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Filters     model.AudienceFilters `json:"filters"`
}

func (s *Server) handleListAudiences(w http.ResponseWriter, r *http.Request) {
	audiences, err := s.audiences.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if audiences == nil {
		audiences = []model.Audience{}
	}
	writeJSON(w, http.StatusOK, audienceListResponse{Total: len(audiences), Audiences: audiences})
}

func (s *Server) handleCreateAudience(w http.ResponseWriter, r *http.Request) {
	var req audienceCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeBadRequest(w, "Audience name is required")
		return
	}
	a, err := s.audiences.Create(r.Context(), req.Name, req.Description, req.Filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handlePreviewAudience(w http.ResponseWriter, r *http.Request) {
	var filters model.AudienceFilters
	if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	preview, err := s.audiences.Preview(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleGetAudience(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeBadRequest(w, "Invalid audience id")
		return
	}
	a, err := s.audiences.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleUpdateAudience(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeBadRequest(w, "Invalid audience id")
		return
	}
	var patch model.AudiencePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	a, err := s.audiences.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAudience(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeBadRequest(w, "Invalid audience id")
		return
	}
	if err := s.audiences.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleAudienceContacts(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeBadRequest(w, "Invalid audience id")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	page, pageSize = store.ClampPage(page, pageSize, maxAudiencePageSize)

	total, contacts, err := s.audiences.Contacts(r.Context(), id, page, pageSize)
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
