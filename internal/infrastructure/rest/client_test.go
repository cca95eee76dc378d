package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/storefront/internal/auth"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Do(t *testing.T) {
	var gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		w.Write([]byte(`{"echo":"` + in["name"] + `"}`))
	}))
	defer srv.Close()

	c := NewClient("test", srv.URL+"/", Options{})
	var out map[string]string
	err := c.Do(context.Background(), auth.Session{Token: "tok"}, http.MethodPost, "/things", map[string]string{"name": "shirt"}, &out)

	require.NoError(t, err)
	assert.Equal(t, "shirt", out["echo"])
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
}

func TestClient_Do_EmptyBodyLeavesOutUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient("test", srv.URL, Options{})
	out := map[string]string{"kept": "yes"}
	require.NoError(t, c.Do(context.Background(), auth.Session{}, http.MethodPut, "/x", nil, &out))
	assert.Equal(t, "yes", out["kept"])
}

func TestClient_Do_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such product", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("test", srv.URL, Options{})
	err := c.Do(context.Background(), auth.Session{}, http.MethodGet, "/Inventory/9", nil, nil)

	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))

	var status interface{ HTTPStatus() int }
	require.True(t, errors.As(err, &status))
	assert.Equal(t, http.StatusNotFound, status.HTTPStatus())
	assert.Contains(t, err.Error(), "no such product")
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient("test", srv.URL, Options{MaxFailures: 2, OpenTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := c.Do(ctx, auth.Session{}, http.MethodGet, "/x", nil, nil)
		assert.True(t, IsStatus(err, http.StatusBadGateway))
	}

	err := c.Do(ctx, auth.Session{}, http.MethodGet, "/x", nil, nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_BreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := NewClient("test", srv.URL, Options{MaxFailures: 1})
	for i := 0; i < 3; i++ {
		err := c.Do(context.Background(), auth.Session{}, http.MethodGet, "/x", nil, nil)
		assert.True(t, IsStatus(err, http.StatusConflict))
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestFlexID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected flexID
		wantErr  bool
	}{
		{"string", `"17"`, "17", false},
		{"number", `17`, "17", false},
		{"uuid", `"1b4e28ba-2fa1-11d2-883f-0016d3cca427"`, "1b4e28ba-2fa1-11d2-883f-0016d3cca427", false},
		{"null", `null`, "", false},
		{"object", `{}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id flexID
			err := json.Unmarshal([]byte(tt.input), &id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, id)
		})
	}

	assert.Equal(t, int64(17), flexID("17").int64())
	assert.Equal(t, int64(0), flexID("abc").int64())
}
