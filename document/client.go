package document

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second

	// DefaultMinInterval is the default minimum delay between two requests
	DefaultMinInterval = 600 * time.Millisecond

	// DefaultConcurrency is the default number of in-flight requests
	DefaultConcurrency = 3
)

// FetchOutcome is the closed set of results a fetch can produce.
type FetchOutcome int

const (
	OutcomeSuccess FetchOutcome = iota
	OutcomeNoData
	OutcomeInvalidFormat
	OutcomeNetworkError
	OutcomeTimeout
	OutcomeRateLimited
	OutcomeServerError
)

// String returns the outcome name.
func (o FetchOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoData:
		return "no_data"
	case OutcomeInvalidFormat:
		return "invalid_format"
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeServerError:
		return "server_error"
	}
	return "unknown"
}

// FetchResult is the tagged result of one fetch attempt. Retrying is the
// caller's business; the client reports one outcome per call.
type FetchResult struct {
	Outcome  FetchOutcome
	Document *GameDocument
	Raw      []byte
	Bytes    int
	Duration time.Duration
	Err      error
}

// Fetcher fetches one game document from a source URL.
type Fetcher interface {
	FetchGame(sourceURL string) FetchResult
}

// Config holds the configuration for the source client
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	MinInterval time.Duration
	Concurrency int
}

// Client fetches boxscore documents from the upstream stats source.
// All requests share a minimum-interval throttle and a bounded
// concurrency slot pool so batch runs cannot overwhelm the source.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client

	minInterval time.Duration
	lastRequest time.Time
	throttleMu  sync.Mutex
	slots       chan struct{}
}

// NewClient creates a new source client with custom configuration
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MinInterval == 0 {
		config.MinInterval = DefaultMinInterval
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}

	return &Client{
		baseURL:     config.BaseURL,
		accessToken: config.AccessToken,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		minInterval: config.MinInterval,
		slots:       make(chan struct{}, config.Concurrency),
	}
}

// BoxscoreURL builds the source URL for one game's boxscore document.
func (c *Client) BoxscoreURL(gameID string) string {
	return fmt.Sprintf("%s/games/%s/boxscore.json", c.baseURL, gameID)
}

// FetchGame fetches and parses one game document. The outcome is always
// one of the FetchOutcome variants; Err carries detail for the failure
// outcomes.
func (c *Client) FetchGame(sourceURL string) FetchResult {
	c.slots <- struct{}{}
	defer func() { <-c.slots }()

	c.waitTurn()

	start := time.Now()

	req, err := http.NewRequest("GET", sourceURL, nil)
	if err != nil {
		return FetchResult{Outcome: OutcomeNetworkError, Err: err, Duration: time.Since(start)}
	}
	if c.accessToken != "" {
		req.Header.Set("x-access-token", c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome := OutcomeNetworkError
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			outcome = OutcomeTimeout
		}
		return FetchResult{Outcome: outcome, Err: err, Duration: time.Since(start)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return FetchResult{Outcome: OutcomeNoData, Duration: time.Since(start)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return FetchResult{
			Outcome:  OutcomeRateLimited,
			Err:      fmt.Errorf("source returned status %d", resp.StatusCode),
			Duration: time.Since(start),
		}
	case resp.StatusCode >= 500:
		return FetchResult{
			Outcome:  OutcomeServerError,
			Err:      fmt.Errorf("source returned status %d", resp.StatusCode),
			Duration: time.Since(start),
		}
	case resp.StatusCode != http.StatusOK:
		return FetchResult{
			Outcome:  OutcomeNetworkError,
			Err:      fmt.Errorf("source returned status %d", resp.StatusCode),
			Duration: time.Since(start),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{Outcome: OutcomeNetworkError, Err: err, Duration: time.Since(start)}
	}

	doc, err := Parse(body)
	if err != nil {
		return FetchResult{
			Outcome:  OutcomeInvalidFormat,
			Raw:      body,
			Bytes:    len(body),
			Err:      err,
			Duration: time.Since(start),
		}
	}

	return FetchResult{
		Outcome:  OutcomeSuccess,
		Document: doc,
		Raw:      body,
		Bytes:    len(body),
		Duration: time.Since(start),
	}
}

// waitTurn blocks until the minimum interval since the previous request
// has elapsed.
func (c *Client) waitTurn() {
	c.throttleMu.Lock()
	wait := c.minInterval - time.Since(c.lastRequest)
	if wait > 0 {
		c.lastRequest = c.lastRequest.Add(c.minInterval)
	} else {
		c.lastRequest = time.Now()
		wait = 0
	}
	c.throttleMu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
}
