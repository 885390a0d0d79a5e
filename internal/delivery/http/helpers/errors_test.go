package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conferencecentral/internal/domain"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid input", fmt.Errorf("%w: name is required", domain.ErrInvalidInput), http.StatusBadRequest, ErrCodeBadRequest},
		{"invalid key", domain.ErrInvalidKey, http.StatusBadRequest, ErrCodeBadRequest},
		{"invalid filter", domain.ErrInvalidFilter, http.StatusBadRequest, ErrCodeBadRequest},
		{"two inequalities", domain.ErrUnsupportedInequality, http.StatusBadRequest, ErrCodeBadRequest},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
		{"not found", domain.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"not in wishlist", domain.ErrNotFoundInWishlist, http.StatusNotFound, ErrCodeNotFound},
		{"sold out", domain.ErrCapacityExceeded, http.StatusConflict, ErrCodeCapacityExceeded},
		{"already registered", fmt.Errorf("%w: already registered", domain.ErrConflict), http.StatusConflict, ErrCodeConflict},
		{"tx conflict", domain.ErrTxConflict, http.StatusConflict, ErrCodeConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := StatusForError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestWriteServiceError_HidesInternalMessage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest(http.MethodGet, "/speakers", nil)
	rr := httptest.NewRecorder()

	WriteServiceError(rr, req, logger, errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var envelope APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, ErrCodeInternalError, envelope.Error.Code)
	assert.NotContains(t, envelope.Error.Message, "pq")
}

type createThing struct {
	Name string `json:"name"`
}

func (c createThing) Validate() []string {
	if c.Name == "" {
		return []string{"name is required"}
	}
	return nil
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantOK   bool
		wantCode int
	}{
		{"valid", `{"name":"DevFest"}`, true, http.StatusOK},
		{"unknown field", `{"name":"DevFest","extra":1}`, false, http.StatusBadRequest},
		{"malformed", `{`, false, http.StatusBadRequest},
		{"validation fails", `{"name":""}`, false, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/things", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			var dest createThing
			ok := DecodeAndValidate(rr, req, &dest)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCode, rr.Code)
		})
	}
}
