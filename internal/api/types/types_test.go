package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	appErr "github.com/devflowhub/engine/pkg/errors"
)

func TestStatusFor(t *testing.T) {
	cases := map[appErr.Code]int{
		appErr.CodeInvalid:       http.StatusBadRequest,
		appErr.CodeUnauthorized:  http.StatusUnauthorized,
		appErr.CodeForbidden:     http.StatusForbidden,
		appErr.CodeNotFound:      http.StatusNotFound,
		appErr.CodeAlreadyExists: http.StatusConflict,
		appErr.CodeUnavailable:   http.StatusServiceUnavailable,
		appErr.CodeInternal:      http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusFor(fmt.Errorf("ctx: %w", appErr.New(code, "x"))), code)
	}
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}

func TestFromAppError(t *testing.T) {
	assert.Nil(t, FromAppError(nil))
	assert.Equal(t, &APIError{Code: "invalid", Message: "unknown tool"}, FromAppError(fmt.Errorf("w: %w", appErr.New(appErr.CodeInvalid, "unknown tool"))))
	assert.Equal(t, &APIError{Code: "unknown", Message: "boom"}, FromAppError(errors.New("boom")))
}
