package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminContext(t *testing.T) {
	t.Run("Set", func(t *testing.T) {
		ctx := WithAdmin(context.Background(), "admin")
		u, ok := AdminFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, "admin", u)
	})

	t.Run("Empty", func(t *testing.T) {
		_, ok := AdminFromContext(context.Background())
		assert.False(t, ok)
	})
}

func TestIsInternalRequest(t *testing.T) {
	t.Run("Returns false for empty context", func(t *testing.T) {
		assert.False(t, IsInternalRequest(context.Background()))
	})

	t.Run("Returns true for internal request", func(t *testing.T) {
		assert.True(t, IsInternalRequest(WithInternalRequest(context.Background())))
	})
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSONError(w, "bad request", http.StatusBadRequest)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "bad request", body["error"])
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("Valid", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
		var p payload
		require.NoError(t, DecodeJSON(httptest.NewRecorder(), r, &p))
		assert.Equal(t, "x", p.Name)
	})

	t.Run("Empty", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var p payload
		assert.ErrorIs(t, DecodeJSON(httptest.NewRecorder(), r, &p), ErrEmptyBody)
	})

	t.Run("Malformed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		var p payload
		err := DecodeJSON(httptest.NewRecorder(), r, &p)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrEmptyBody)
	})
}

func TestClientIP(t *testing.T) {
	t.Run("connection address", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:5555"
		assert.Equal(t, "10.0.0.1", ClientIP(r))
	})

	t.Run("forwarding headers alone are ignored", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:5555"
		r.Header.Set("X-Real-IP", "192.168.1.2")
		r.Header.Set("X-Forwarded-For", "203.0.113.5")
		assert.Equal(t, "10.0.0.1", ClientIP(r))
	})

	t.Run("resolved address wins", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:5555"
		r = r.WithContext(WithClientIP(r.Context(), "203.0.113.5"))
		assert.Equal(t, "203.0.113.5", ClientIP(r))
	})

	t.Run("address without port", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "unix"
		assert.Equal(t, "unix", RemoteHost(r))
	})
}
