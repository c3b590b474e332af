package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/devflowhub/engine/internal/api/handlers"
	"github.com/devflowhub/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Set(zap.NewNop())
	os.Exit(m.Run())
}

func testRouter() http.Handler {
	return NewRouter(Dependencies{
		HMACSecret:        []byte("secret"),
		CORSOrigins:       []string{"*"},
		HealthHandler:     handlers.NewHealthHandler(),
		AuthHandler:       handlers.NewAuthHandler(nil),
		ToolsHandler:      handlers.NewToolsHandler(),
		ProjectsHandler:   handlers.NewProjectsHandler(nil),
		OnboardingHandler: handlers.NewOnboardingHandler(nil),
		UsageHandler:      handlers.NewUsageHandler(nil),
	})
}

func TestPublicRoutes(t *testing.T) {
	r := testRouter()
	for _, path := range []string{"/healthz", "/readyz", "/api/v1/tools", "/api/v1/tools/resolve?id=cursor"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"), path)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := testRouter()
	cases := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/projects"},
		{http.MethodPut, "/api/v1/projects/00000000-0000-0000-0000-000000000001/tool"},
		{http.MethodGet, "/api/v1/onboarding"},
		{http.MethodPost, "/api/v1/onboarding/steps/usedAssistant"},
		{http.MethodPost, "/api/v1/usage"},
		{http.MethodGet, "/api/v1/usage/summary"},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(c.method, c.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, c.path)
	}
}
