package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/devflowhub/engine/internal/api/types"
	"github.com/devflowhub/engine/internal/models"
	"github.com/devflowhub/engine/internal/services"
	"github.com/devflowhub/engine/internal/toolmap"
)

type ProjectsHandler struct {
	projects services.ProjectService
}

func NewProjectsHandler(projects services.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{projects: projects}
}

// projectView adds the resolved identifiers of the selected tool.
type projectView struct {
	*models.Project
	Integration *toolmap.Tool `json:"integration,omitempty"`
}

func newProjectView(p *models.Project) projectView {
	v := projectView{Project: p}
	if p.Tool != nil {
		if t, err := toolmap.Resolve(string(*p.Tool)); err == nil {
			v.Integration = &t
		}
	}
	return v
}

func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	includeArchived, _ := strconv.ParseBool(r.URL.Query().Get("include_archived"))
	items, err := h.projects.ListProjects(r.Context(), uid, &services.ProjectFilters{IncludeArchived: includeArchived})
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	start := (page - 1) * size
	end := start + size
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	views := make([]projectView, 0, end-start)
	for i := start; i < end; i++ {
		views = append(views, newProjectView(&items[i]))
	}
	resp := types.APIResponse{Success: true, Data: views, Meta: &types.Meta{Page: page, PageSize: size, Total: int64(len(items))}}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req types.ProjectCreateRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.projects.CreateProject(r.Context(), uid, &services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Tool:        req.Tool,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: newProjectView(p)})
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, pid, ok := h.ids(w, r)
	if !ok {
		return
	}
	p, err := h.projects.GetProject(r.Context(), pid, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: newProjectView(p)})
}

func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, pid, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req types.ProjectUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.projects.UpdateProject(r.Context(), pid, uid, &services.UpdateProjectInput{
		Description: req.Description,
		Archived:    req.Archived,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: newProjectView(p)})
}

func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, pid, ok := h.ids(w, r)
	if !ok {
		return
	}
	if err := h.projects.DeleteProject(r.Context(), pid, uid); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetTool selects the project's integration from any tool spelling.
func (h *ProjectsHandler) SetTool(w http.ResponseWriter, r *http.Request) {
	uid, pid, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req types.SetToolRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.projects.SetTool(r.Context(), pid, uid, req.Tool)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: newProjectView(p)})
}

func (h *ProjectsHandler) ids(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	uid, ok := userID(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	pid, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorStr(w, r, http.StatusBadRequest, "invalid project id")
		return uuid.Nil, uuid.Nil, false
	}
	return uid, pid, true
}
