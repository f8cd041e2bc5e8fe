// Package remote talks to the shared book store: one whole-value slot per
// Book ID with overwrite and fetch, and no merge.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/cashbook/backend/internal/models"
)

// ErrNotFoundOnRemote means the book store has no data for the Book ID yet.
// It is an empty result, not a failure.
var ErrNotFoundOnRemote = errors.New("book not found on remote")

// SyncTransportError is a failed fetch or push: network error, timeout,
// non-2xx answer or an open circuit.
type SyncTransportError struct {
	Op         string
	BookID     string
	StatusCode int
	Err        error
}

func (e *SyncTransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: remote answered %d", e.Op, e.BookID, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.BookID, e.Err)
}

func (e *SyncTransportError) Unwrap() error { return e.Err }

// Config for the book store client
type Config struct {
	BaseURL string
	Timeout time.Duration
	// ConsecutiveFailures opens the breaker; zero means 5
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open; zero means 30s
	OpenTimeout time.Duration
}

// Client is an HTTP client for the book store
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	threshold := cfg.ConsecutiveFailures

	st := gobreaker.Settings{
		Name:     "bookstore",
		Interval: 60 * time.Second,
		Timeout:  cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// a missing book is a healthy answer
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFoundOnRemote)
		},
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker(st),
		now:     time.Now,
	}
}

func (c *Client) bookURL(bookID string) string {
	return c.baseURL + "/" + url.PathEscape(bookID)
}

// Fetch returns the stored AppState for bookID, ErrNotFoundOnRemote when
// there is none, or a *SyncTransportError.
func (c *Client) Fetch(ctx context.Context, bookID string) (*models.AppState, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		u := c.bookURL(bookID) + "?nocache=" + strconv.FormatInt(c.now().UnixMilli(), 10)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Cache-Control", "no-cache")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			io.Copy(io.Discard, resp.Body)
			return nil, ErrNotFoundOnRemote
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, resp.Body)
			return nil, &SyncTransportError{Op: "fetch", BookID: bookID, StatusCode: resp.StatusCode}
		}

		var state models.AppState
		if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
			return nil, fmt.Errorf("decode book: %w", err)
		}
		return &state, nil
	})
	if err != nil {
		return nil, c.wrap("fetch", bookID, err)
	}
	return result.(*models.AppState), nil
}

// Push overwrites the stored value for bookID with state
func (c *Client) Push(ctx context.Context, bookID string, state models.AppState) error {
	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode book %s: %w", bookID, err)
	}

	_, err = c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.bookURL(bookID), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &SyncTransportError{Op: "push", BookID: bookID, StatusCode: resp.StatusCode}
		}
		return nil, nil
	})
	if err != nil {
		return c.wrap("push", bookID, err)
	}
	return nil
}

func (c *Client) wrap(op, bookID string, err error) error {
	var terr *SyncTransportError
	if errors.Is(err, ErrNotFoundOnRemote) || errors.As(err, &terr) {
		return err
	}
	return &SyncTransportError{Op: op, BookID: bookID, Err: err}
}
