package api

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/intent-engine/internal/normalizer"
)

// csvPreviewRows caps the rows returned by the CSV preview endpoint.
const csvPreviewRows = 5

type serpSearchRequest struct {
	Query      string `json:"query"`
	Location   string `json:"location"`
	NumResults int    `json:"num_results"`
}

func (s *Server) handleSerpAPISearch(w http.ResponseWriter, r *http.Request) {
	var req serpSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeBadRequest(w, "Search query is required")
		return
	}
	if req.NumResults <= 0 {
		req.NumResults = 10
	}

	result, err := normalizer.ImportSearch(r.Context(), s.store, s.search, req.Query, req.Location, req.NumResults)
	if err != nil {
		writeBadRequest(w, "Search failed: "+err.Error())
		return
	}

	if _, err := s.scorer.ScoreAllUnscored(r.Context()); err != nil {
		zap.L().Warn("scoring imported search contacts failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, result)
}

func csvFile(w http.ResponseWriter, r *http.Request) (multipart.File, string, bool) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "Missing file upload")
		return nil, "", false
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		file.Close()
		writeBadRequest(w, "File must be a CSV")
		return nil, "", false
	}
	return file, header.Filename, true
}

func (s *Server) handleCSVUpload(w http.ResponseWriter, r *http.Request) {
	file, filename, ok := csvFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := normalizer.ImportCSV(r.Context(), s.store, file, filename)
	if err != nil {
		writeBadRequest(w, "CSV import failed: "+err.Error())
		return
	}

	if _, err := s.scorer.ScoreAllUnscored(r.Context()); err != nil {
		zap.L().Warn("scoring imported CSV contacts failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCSVPreview(w http.ResponseWriter, r *http.Request) {
	file, _, ok := csvFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	preview, err := normalizer.PreviewCSV(file, csvPreviewRows)
	if err != nil {
		writeBadRequest(w, "CSV preview failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, preview)
}
