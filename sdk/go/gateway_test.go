package jvsdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestGateway(url string) *Gateway {
	g := NewGateway(url)
	g.Backoff = time.Millisecond
	return g
}

func TestGatewayRetriesOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"code":"internal_error","message":"internal error"}}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	g := newTestGateway(srv.URL)
	data, err := g.Send(context.Background(), http.MethodGet, "/api/complaints", nil, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Fatalf("body = %s", data)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("calls = %d, want 2", n)
	}
}

func TestGatewayRetriesExactlyOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":"internal_error","message":"still broken"}}`))
	}))
	defer srv.Close()

	g := newTestGateway(srv.URL)
	_, err := g.Send(context.Background(), http.MethodGet, "/api/complaints", nil, nil)
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("error = %T %v, want ServerError", err, err)
	}
	if se.Message != "still broken" {
		t.Fatalf("message = %q", se.Message)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("calls = %d, want exactly 2", n)
	}
}

func TestGatewayNoRetryOnAuthFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"unauthorized","message":"authentication required"}}`))
	}))
	defer srv.Close()

	g := newTestGateway(srv.URL)
	_, err := g.Send(context.Background(), http.MethodGet, "/api/complaints", nil, nil)
	var ae *AuthenticationError
	if !errors.As(err, &ae) {
		t.Fatalf("error = %T %v, want AuthenticationError", err, err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls = %d, want 1 (no retry)", n)
	}
}

func TestGatewayTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	g := newTestGateway(srv.URL)
	g.Budget = 30 * time.Millisecond
	_, err := g.Send(context.Background(), http.MethodGet, "/api/complaints", nil, nil)
	var te *Timeout
	if !errors.As(err, &te) {
		t.Fatalf("error = %T %v, want Timeout", err, err)
	}
}

func TestGatewayNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	g := newTestGateway(srv.URL)
	data, err := g.Send(context.Background(), http.MethodDelete, "/api/complaints/x", nil, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if data != nil {
		t.Fatalf("body = %q, want none", data)
	}
}

func TestGatewayBearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	g := newTestGateway(srv.URL)
	g.TokenFunc = func() string { return "tok-123" }
	if _, err := g.Send(context.Background(), http.MethodGet, "/api/auth/me", nil, nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got != "Bearer tok-123" {
		t.Fatalf("authorization = %q", got)
	}
}

func TestGatewayNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening

	g := newTestGateway(srv.URL)
	_, err := g.Send(context.Background(), http.MethodGet, "/api/complaints", nil, nil)
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("error = %T %v, want NetworkError", err, err)
	}
}

func TestErrorClassification(t *testing.T) {
	if _, ok := classifyStatus(http.StatusNotFound, "complaint not found").(*NotFoundError); !ok {
		t.Fatal("404 should classify as NotFoundError")
	}
	if _, ok := classifyStatus(http.StatusConflict, "already supported").(*ValidationError); !ok {
		t.Fatal("409 should classify as ValidationError")
	}
	if _, ok := classifyStatus(http.StatusForbidden, "admin access required").(*AuthenticationError); !ok {
		t.Fatal("403 should classify as AuthenticationError")
	}
	if err := classifyStatus(http.StatusBadGateway, ""); err.Error() != "HTTP 502" {
		t.Fatalf("empty message = %q", err.Error())
	}
	if !IsAuthError(&ServerError{Message: "jwt expired"}) {
		t.Fatal("jwt vocabulary should read as auth failure")
	}
	if IsAuthError(&NetworkError{Err: errors.New("connection refused")}) {
		t.Fatal("network error is not an auth failure")
	}
}
