package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Resolve_FirstServerWins(t *testing.T) {
	a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "tok-a" {
			t.Errorf("X-API-Key = %q, want tok-a", got)
		}
		w.Write([]byte(`{"id":"1","streamUrl":"http://a/stream/1"}`))
	}))
	defer a.Close()
	b := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("second server should not be queried")
	}))
	defer b.Close()

	c := NewClient([]Server{
		{Name: "a", URL: a.URL, Token: "tok-a"},
		{Name: "b", URL: b.URL},
	})

	u, err := c.Resolve(context.Background(), "1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if u != "http://a/stream/1" {
		t.Errorf("url = %q", u)
	}
}

func TestClient_Resolve_SkipsUnknownTracks(t *testing.T) {
	a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer a.Close()
	b := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"id":"1","streamUrl":"http://b/stream/1"}`))
	}))
	defer b.Close()

	c := NewClient([]Server{{URL: a.URL}, {URL: b.URL}})
	u, err := c.Resolve(context.Background(), "1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if u != "http://b/stream/1" {
		t.Errorf("url = %q", u)
	}
}

func TestClient_Resolve_NoServer(t *testing.T) {
	a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer a.Close()

	c := NewClient([]Server{{URL: a.URL}})
	if _, err := c.Resolve(context.Background(), "x"); !errors.Is(err, ErrNoServer) {
		t.Errorf("err = %v, want ErrNoServer", err)
	}

	c = NewClient(nil)
	if _, err := c.Resolve(context.Background(), "x"); !errors.Is(err, ErrNoServer) {
		t.Errorf("err with no servers = %v, want ErrNoServer", err)
	}
	if c.HasServers() {
		t.Error("HasServers with no servers = true")
	}
}
