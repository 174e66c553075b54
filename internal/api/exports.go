package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sells-group/intent-engine/internal/export"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req export.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	result, err := s.exports.Export(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExportDownload(w http.ResponseWriter, r *http.Request) {
	var req export.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	if req.Format == export.FormatWebhook {
		writeBadRequest(w, "Use POST /exports for webhook export")
		return
	}
	result, err := s.exports.Export(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", req.Filename()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(result.Content))
}
