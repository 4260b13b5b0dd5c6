package httputil

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// APIClient Tests
// =============================================================================

func TestNewAPIClientDefaults(t *testing.T) {
	client := NewAPIClient(APIClientConfig{BaseURL: "http://localhost:8080/"})

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("baseURL = %s, want trailing slash trimmed", client.baseURL)
	}
	if client.httpClient.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", client.httpClient.Timeout)
	}
	if client.maxRetries != 0 {
		t.Errorf("maxRetries = %d, want 0", client.maxRetries)
	}
}

func TestAPIClient_SendsBearerKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/v1/users" {
			t.Errorf("Path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"user_1"}]`))
	}))
	defer server.Close()

	client := NewAPIClient(APIClientConfig{BaseURL: server.URL, BearerKey: "sk_test"})
	resp, err := client.Get(context.Background(), "/v1/users")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	var users []struct {
		ID string `json:"id"`
	}
	if err := DecodeResponse(resp, &users); err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if len(users) != 1 || users[0].ID != "user_1" {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestAPIClient_RetriesThrottledResponses(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewAPIClient(APIClientConfig{
		BaseURL:    server.URL,
		MaxRetries: 3,
		Backoff:    time.Millisecond,
	})

	resp, err := client.Get(context.Background(), "/test")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
}

func TestAPIClient_DoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad"}]}`))
	}))
	defer server.Close()

	client := NewAPIClient(APIClientConfig{BaseURL: server.URL, MaxRetries: 3, Backoff: time.Millisecond})
	resp, err := client.Get(context.Background(), "/test")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	err = DecodeResponse(resp, nil)
	var statusErr *StatusError
	if !stderrors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d", statusErr.StatusCode)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

// =============================================================================
// Body helper Tests
// =============================================================================

func TestReadAllWithLimit(t *testing.T) {
	data, truncated, err := ReadAllWithLimit(strings.NewReader("abcdef"), 4)
	if err != nil {
		t.Fatalf("ReadAllWithLimit() error = %v", err)
	}
	if !truncated || string(data) != "abcd" {
		t.Fatalf("got %q truncated=%v", data, truncated)
	}

	data, truncated, err = ReadAllWithLimit(strings.NewReader("ab"), 4)
	if err != nil || truncated || string(data) != "ab" {
		t.Fatalf("got %q truncated=%v err=%v", data, truncated, err)
	}
}

func TestReadAllStrict(t *testing.T) {
	if _, err := ReadAllStrict(strings.NewReader("abcdef"), 4); err == nil {
		t.Fatal("expected error for oversized body")
	}
	data, err := ReadAllStrict(strings.NewReader("abcd"), 4)
	if err != nil || string(data) != "abcd" {
		t.Fatalf("got %q err=%v", data, err)
	}
}
