package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BaSui01/searchflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code types.ErrorCode
		want int
	}{
		{types.ErrInvalidRequest, http.StatusBadRequest},
		{types.ErrCredentialMissing, http.StatusUnauthorized},
		{types.ErrSessionNotFound, http.StatusNotFound},
		{types.ErrSessionBusy, http.StatusConflict},
		{types.ErrRateLimited, http.StatusTooManyRequests},
		{types.ErrRunTerminated, http.StatusGatewayTimeout},
		{types.ErrToolTransport, http.StatusBadGateway},
		{types.ErrProviderUnavailable, http.StatusServiceUnavailable},
		{types.ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, mapErrorCodeToHTTPStatus(tt.code))
		})
	}
}

func TestWriteError(t *testing.T) {
	t.Run("typed error keeps explicit status", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(types.WithTraceID(r.Context(), "req-1"))

		WriteError(w, r, types.NewError(types.ErrSessionBusy, "busy").WithHTTPStatus(http.StatusTeapot), zap.NewNop())

		assert.Equal(t, http.StatusTeapot, w.Code)
		resp := decodeData(t, w, nil)
		assert.False(t, resp.Success)
		assert.Equal(t, "req-1", resp.RequestID)
		assert.Equal(t, string(types.ErrSessionBusy), resp.Error.Code)
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"), nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decodeData(t, w, nil)
		assert.Equal(t, string(types.ErrInternalError), resp.Error.Code)
		assert.NotContains(t, w.Body.String(), "boom")
	})
}

func TestDecodeJSONBody_TooLarge(t *testing.T) {
	body := `{"content":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	w := httptest.NewRecorder()

	var dst struct {
		Content string `json:"content"`
	}
	err := DecodeJSONBody(w, r, &dst, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestValidateContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"Application/JSON", true},
		{"text/plain", false},
		{"", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
		r.Header.Set("Content-Type", tt.contentType)
		w := httptest.NewRecorder()
		assert.Equal(t, tt.want, ValidateContentType(w, r, nil), tt.contentType)
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	_, err := rw.Write([]byte("hello"))
	require.NoError(t, err)
	rw.WriteHeader(http.StatusTeapot) // ignored after the first write
	rw.Flush()

	assert.Equal(t, http.StatusOK, rw.StatusCode)
	assert.Equal(t, int64(5), rw.BytesWritten)
	assert.True(t, rec.Flushed)
	assert.Same(t, rec, rw.Unwrap())

	_, _, err = rw.Hijack()
	assert.Error(t, err, "httptest.ResponseRecorder cannot be hijacked")
}
