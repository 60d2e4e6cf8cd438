package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"deriveengine/internal/config"
)

func TestFetch_PlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	f := New(config.HTTPConfig{})
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(body))
}

func TestFetch_HTMLIsFlattenedToText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><head><title>Doc</title></head><body><h1>Header</h1><p>Body text</p></body></html>"))
	}))
	defer srv.Close()

	f := New(config.HTTPConfig{})
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Contains(t, string(body), "Header")
	require.Contains(t, string(body), "Body text")
	require.NotContains(t, string(body), "<h1>")
}

func TestFetch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(config.HTTPConfig{})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestFetch_RespectsMaxBodyBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write(make([]byte, 1000))
	}))
	defer srv.Close()

	f := New(config.HTTPConfig{MaxBodyBytes: 10})
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, body, 10)
}
