package handlers

import (
	"net/http"

	"github.com/devflowhub/engine/internal/api/types"
	"github.com/devflowhub/engine/internal/toolmap"
)

type ToolsHandler struct{}

func NewToolsHandler() *ToolsHandler { return &ToolsHandler{} }

func (h *ToolsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: toolmap.All()})
}

// Resolve accepts a module id, provider id or storage enum in ?id=.
func (h *ToolsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	t, err := toolmap.Resolve(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: t})
}
