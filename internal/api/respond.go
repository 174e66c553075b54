package api

import (
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intent-engine/internal/model"
)

// errorBody is the uniform error envelope.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

// writeError maps the error taxonomy onto HTTP statuses: NotFound → 404,
// validation and duplicates → 400, anything else → 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "Not found"})
	case eris.Is(err, model.ErrDuplicateEmail):
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "Contact with this email already exists"})
	case eris.Is(err, model.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error()})
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "Internal server error"})
	}
}

func writeBadRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Detail: detail})
}
