package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	JSONSuccess(w, map[string]string{"key": "value"}, map[string]int{"total": 10})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response SuccessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.True(t, response.Success)
	assert.NotNil(t, response.Data)
	assert.NotNil(t, response.Meta)
}

func TestJSONSuccessWithRequest_MergesRequestID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(ContextWithRequestID(r.Context(), "req-1"))
	w := httptest.NewRecorder()

	JSONSuccessWithRequest(r, w, []string{"a"}, map[string]interface{}{"total": 1})

	var response struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "req-1", response.Meta["request_id"])
	assert.EqualValues(t, 1, response.Meta["total"])
}

func TestJSONSuccessCreatedWithRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()

	JSONSuccessCreatedWithRequest(r, w, map[string]string{"isbn": "1"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), `"meta"`)
}

func TestJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	details := []ErrorDetail{{Field: "isbn", Message: "isbn is required"}}

	JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.False(t, response.Success)
	assert.Equal(t, "VALIDATION_ERROR", response.Error.Code)
	assert.Equal(t, "Invalid input", response.Error.Message)
	require.Len(t, response.Error.Details, 1)
	assert.Equal(t, "isbn", response.Error.Details[0].Field)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		ISBN string `json:"isbn"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"isbn":"123"}`},
		{name: "empty", body: ``, wantErr: "empty"},
		{name: "unknown field", body: `{"isbn":"1","extra":true}`, wantErr: "unknown field"},
		{name: "trailing object", body: `{"isbn":"1"}{"isbn":"2"}`, wantErr: "single JSON object"},
		{name: "malformed", body: `{"isbn":`, wantErr: "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(r, &p)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "123", p.ISBN)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
