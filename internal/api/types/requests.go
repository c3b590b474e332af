package types

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProjectCreateRequest struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description"`
	Tool        string `json:"tool" validate:"omitempty,max=64"`
}

type ProjectUpdateRequest struct {
	Description *string `json:"description"`
	Archived    *bool   `json:"archived"`
}

// SetToolRequest accepts any spelling of a tool: module, provider or storage enum.
type SetToolRequest struct {
	Tool string `json:"tool" validate:"required,max=64"`
}

type UsageEventRequest struct {
	ProjectID  string         `json:"project_id" validate:"omitempty,max=64"`
	Tool       string         `json:"tool" validate:"required,max=64"`
	Action     string         `json:"action" validate:"required,max=64"`
	DurationMs *int64         `json:"duration_ms" validate:"omitempty,gte=0"`
	Metadata   map[string]any `json:"metadata"`
}
