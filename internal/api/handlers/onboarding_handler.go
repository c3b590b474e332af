package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devflowhub/engine/internal/api/types"
	"github.com/devflowhub/engine/internal/services"
)

type OnboardingHandler struct {
	onboarding services.OnboardingService
}

func NewOnboardingHandler(onboarding services.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{onboarding: onboarding}
}

// Get returns the caller's progress, creating the record on first access.
func (h *OnboardingHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	v, err := h.onboarding.GetProgress(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: v})
}

func (h *OnboardingHandler) CompleteStep(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	v, err := h.onboarding.CompleteStep(r.Context(), uid, chi.URLParam(r, "step"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: v})
}
