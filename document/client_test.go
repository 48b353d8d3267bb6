package document

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	client := NewClient(Config{
		BaseURL:     "https://stats.example.com/v2",
		AccessToken: "test_token",
	})

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.baseURL != "https://stats.example.com/v2" {
		t.Errorf("Expected baseURL to be 'https://stats.example.com/v2', got '%s'", client.baseURL)
	}

	if client.httpClient.Timeout != DefaultTimeout {
		t.Errorf("Expected timeout to be %v, got %v", DefaultTimeout, client.httpClient.Timeout)
	}

	if client.minInterval != DefaultMinInterval {
		t.Errorf("Expected min interval to be %v, got %v", DefaultMinInterval, client.minInterval)
	}

	if cap(client.slots) != DefaultConcurrency {
		t.Errorf("Expected concurrency to be %d, got %d", DefaultConcurrency, cap(client.slots))
	}
}

func TestNewClientWithConfig(t *testing.T) {
	client := NewClient(Config{
		BaseURL:     "https://custom.api.com",
		AccessToken: "custom_token",
		Timeout:     60 * time.Second,
		MinInterval: 100 * time.Millisecond,
		Concurrency: 8,
	})

	if client.httpClient.Timeout != 60*time.Second {
		t.Errorf("Expected timeout to be 60s, got %v", client.httpClient.Timeout)
	}

	if cap(client.slots) != 8 {
		t.Errorf("Expected concurrency to be 8, got %d", cap(client.slots))
	}
}

func TestBoxscoreURL(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://stats.example.com/v2"})

	expected := "https://stats.example.com/v2/games/abc-123/boxscore.json"
	if got := client.BoxscoreURL("abc-123"); got != expected {
		t.Errorf("Expected URL '%s', got '%s'", expected, got)
	}
}

func TestFetchOutcomeString(t *testing.T) {
	tests := []struct {
		outcome  FetchOutcome
		expected string
	}{
		{OutcomeSuccess, "success"},
		{OutcomeNoData, "no_data"},
		{OutcomeInvalidFormat, "invalid_format"},
		{OutcomeNetworkError, "network_error"},
		{OutcomeTimeout, "timeout"},
		{OutcomeRateLimited, "rate_limited"},
		{OutcomeServerError, "server_error"},
	}

	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.expected {
			t.Errorf("Expected outcome string '%s', got '%s'", tt.expected, got)
		}
	}
}

func TestFetchGameSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-access-token") != "test_token" {
			t.Errorf("Expected access token header, got '%s'", r.Header.Get("x-access-token"))
		}
		w.Write([]byte(`{"game_id": "g1", "season": "2025", "home": {"score": 100}, "away": {"score": 90}}`))
	}))
	defer server.Close()

	client := NewClient(Config{AccessToken: "test_token", MinInterval: time.Millisecond})
	result := client.FetchGame(server.URL)

	if result.Outcome != OutcomeSuccess {
		t.Fatalf("Expected success, got %s (%v)", result.Outcome, result.Err)
	}

	if result.Document.GameID != "g1" {
		t.Errorf("Expected game_id 'g1', got '%s'", result.Document.GameID)
	}

	if result.Bytes == 0 {
		t.Error("Expected non-zero byte count")
	}
}

func TestFetchGameNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(Config{MinInterval: time.Millisecond})
	result := client.FetchGame(server.URL)

	if result.Outcome != OutcomeNoData {
		t.Errorf("Expected no_data, got %s", result.Outcome)
	}
}

func TestFetchGameServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Config{MinInterval: time.Millisecond})
	result := client.FetchGame(server.URL)

	if result.Outcome != OutcomeServerError {
		t.Errorf("Expected server_error, got %s", result.Outcome)
	}
}

func TestFetchGameRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(Config{MinInterval: time.Millisecond})
	result := client.FetchGame(server.URL)

	if result.Outcome != OutcomeRateLimited {
		t.Errorf("Expected rate_limited, got %s", result.Outcome)
	}
}

func TestFetchGameInvalidFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	client := NewClient(Config{MinInterval: time.Millisecond})
	result := client.FetchGame(server.URL)

	if result.Outcome != OutcomeInvalidFormat {
		t.Errorf("Expected invalid_format, got %s", result.Outcome)
	}
}

func TestFetchGameNetworkError(t *testing.T) {
	client := NewClient(Config{MinInterval: time.Millisecond, Timeout: time.Second})
	result := client.FetchGame("http://127.0.0.1:1/boxscore.json")

	if result.Outcome != OutcomeNetworkError && result.Outcome != OutcomeTimeout {
		t.Errorf("Expected network_error or timeout, got %s", result.Outcome)
	}
}
