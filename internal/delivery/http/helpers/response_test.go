package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSONSuccess(rr, http.StatusCreated, true)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":true,"error":null}`, rr.Body.String())

	rr = httptest.NewRecorder()
	WriteJSONError(rr, http.StatusConflict, ErrCodeCapacityExceeded, "no seats available")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"data":null,"error":{"code":"capacity_exceeded","message":"no seats available"}}`, rr.Body.String())
}
