// AngelaMos | 2026
// errors_test.go

package core

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAppErrorMapsSentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("get order: %w", ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("approve: %w", ErrConflict), http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("create: %w", ErrInvalidInput), http.StatusBadRequest, "VALIDATION_ERROR"},
		{fmt.Errorf("panel: %w", ErrUpstream), http.StatusBadGateway, "UPSTREAM_ERROR"},
		{fmt.Errorf("verify: %w", ErrTokenExpired), http.StatusUnauthorized, "UNAUTHORIZED"},
		{fmt.Errorf("owner: %w", ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		appErr := ToAppError(tt.err)
		assert.Equal(t, tt.status, appErr.Status, tt.err.Error())
		assert.Equal(t, tt.code, appErr.Code, tt.err.Error())
	}
}

func TestToAppErrorKeepsWrappedAppError(t *testing.T) {
	err := fmt.Errorf("create order: %w", ValidationError("amount does not match plan price"))

	appErr := ToAppError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "amount does not match plan price", appErr.Message)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestJSONErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, ConflictError("order is not awaiting verification"))

	assert.Equal(t, http.StatusConflict, rec.Code)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "CONFLICT", body.Error.Code)
	assert.Equal(t, "order is not awaiting verification", body.Error.Message)
}
