package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devflowhub/engine/internal/api/middleware"
	"github.com/devflowhub/engine/internal/api/types"
	"github.com/devflowhub/engine/internal/api/validators"
	appErr "github.com/devflowhub/engine/pkg/errors"
	"github.com/devflowhub/engine/pkg/logger"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to its HTTP status. Internal details are logged, not returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := types.StatusFor(err)
	apiErr := types.FromAppError(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		if status == http.StatusInternalServerError {
			apiErr = &types.APIError{Code: string(appErr.CodeInternal), Message: "internal error"}
		}
	}
	writeJSON(w, status, types.APIResponse{Success: false, Error: apiErr, Meta: meta(r)})
}

func writeErrorStr(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: &types.APIError{Code: string(appErr.CodeInvalid), Message: msg}, Meta: meta(r)})
}

func meta(r *http.Request) *types.Meta {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		return &types.Meta{RequestID: id}
	}
	return nil
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeErrorStr(w, r, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := validators.New().Struct(dst); err != nil {
		writeErrorStr(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.GetUserUUID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, types.APIResponse{Success: false, Error: &types.APIError{Code: string(appErr.CodeUnauthorized), Message: "unauthorized"}})
	}
	return id, ok
}
