package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubauth/internal/delivery/api/response"
	"hubauth/internal/delivery/api/validator"
	domainerrors "hubauth/internal/domain/errors"
	"hubauth/internal/errors"
)

func renderError(t *testing.T, err error) (int, response.ErrorResponse) {
	t.Helper()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	NewErrorMiddleware(discardLogger()).HandleHTTPError(err, c)

	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return rec.Code, body
}

func rawDetails(body response.ErrorResponse) string {
	if body.Error == nil || body.Error.Details == nil {
		return ""
	}
	if detail, ok := body.Error.Details.(string); ok {
		return detail
	}

	return ""
}

func TestErrorMiddleware_HandleHTTPError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		details bool
	}{
		{"email taken", domainerrors.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN", false},
		{"weak password with reason", domainerrors.ErrWeakPassword.WrapMessage("password must be at least 4 characters"), http.StatusBadRequest, "WEAK_PASSWORD", true},
		{"not found", domainerrors.ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND", false},
		{"joined unauthorized", errors.Join(domainerrors.ErrUnauthorized, domainerrors.ErrMalformedSubject), http.StatusUnauthorized, "UNAUTHORIZED", false},
		{"malformed hash", domainerrors.ErrMalformedHash, http.StatusUnprocessableEntity, "MALFORMED_HASH", false},
		{"wrapped malformed hash", domainerrors.ErrMalformedHash.WrapMessage("bcrypt prefix missing"), http.StatusUnprocessableEntity, "MALFORMED_HASH", false},
		{"invalid credentials over corrupt hash", errors.Join(domainerrors.ErrInvalidCredentials, domainerrors.ErrMalformedHash), http.StatusUnauthorized, "INVALID_CREDENTIALS", false},
		{"database failure", errors.Wrap(domainerrors.NewDatabaseExecuteError(errors.New("conn refused"), "insert"), "create"), http.StatusInternalServerError, "DATABASE_EXECUTE_FAILED", false},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "method not allowed"), http.StatusMethodNotAllowed, "HTTP_ERROR", false},
		{"validation", &validator.ValidationError{Fields: map[string]string{"email": "is required"}}, http.StatusBadRequest, "VALIDATION_FAILED", true},
		{"unknown", errors.New("kaboom"), http.StatusInternalServerError, "INTERNAL_ERROR", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := renderError(t, tt.err)

			assert.Equal(t, tt.status, status)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
			assert.Equal(t, tt.details, body.Error.Details != nil)
			assert.NotContains(t, body.Error.Message, "kaboom")
			assert.NotContains(t, rawDetails(body), "malformed")
		})
	}
}
