// Package vjudge posts virtual submissions to vjudge.net.
package vjudge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/rw-r-r-0644/vjudge-sync/ledger"
)

const (
	DefaultBaseURL = "https://vjudge.net"
	submitPath     = "/problem/submit"
)

// Submission is the form vjudge expects for a virtual submission.
type Submission struct {
	OJ       string
	ProbNum  string
	Language string
}

// Form encodes the submission. Method 2 marks a submission that was already
// made on the origin judge; open=1 makes it public.
func (s Submission) Form() url.Values {
	return url.Values{
		"method":   {"2"},
		"language": {s.Language},
		"open":     {"1"},
		"source":   {""},
		"oj":       {s.OJ},
		"probNum":  {s.ProbNum},
	}
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Cookie    string
	UserAgent string
	Proxy     string
	Timeout   time.Duration

	// Rate caps submissions per second. Zero or less disables pacing.
	Rate float64

	// BreakerThreshold is the number of consecutive transport or 5xx
	// failures that opens the circuit of one origin judge; BreakerTimeout is
	// how long it stays open before a trial request is let through.
	BreakerThreshold uint32
	BreakerTimeout   time.Duration

	Logger zerolog.Logger
}

// Client submits problems to vjudge one at a time.
type Client struct {
	baseURL          string
	cookie           string
	userAgent        string
	client           *http.Client
	limiter          *rate.Limiter
	breakerThreshold uint32
	breakerTimeout   time.Duration
	log              zerolog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[ledger.Record]
}

// NewClient builds a Client. The session cookie is required.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Cookie) == "" {
		return nil, fmt.Errorf("vjudge: session cookie is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.BreakerThreshold == 0 {
		opts.BreakerThreshold = 5
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = time.Minute
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("vjudge: invalid proxy %q: %w", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}

	return &Client{
		baseURL:          strings.TrimRight(opts.BaseURL, "/"),
		cookie:           opts.Cookie,
		userAgent:        opts.UserAgent,
		client:           &http.Client{Timeout: opts.Timeout, Transport: transport},
		limiter:          rate.NewLimiter(limit, 1),
		breakerThreshold: opts.BreakerThreshold,
		breakerTimeout:   opts.BreakerTimeout,
		log:              opts.Logger.With().Str("component", "vjudge").Logger(),
		breakers:         make(map[string]*gobreaker.CircuitBreaker[ledger.Record]),
	}, nil
}

// breaker returns the circuit breaker of origin judge oj, creating it on
// first use. Failures against one judge never trip another judge's breaker.
func (c *Client) breaker(oj string) *gobreaker.CircuitBreaker[ledger.Record] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok := c.breakers[oj]; ok {
		return cb
	}

	threshold := c.breakerThreshold
	cb := gobreaker.NewCircuitBreaker[ledger.Record](gobreaker.Settings{
		Name:        "vjudge-submit:" + oj,
		MaxRequests: 1,
		Timeout:     c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	c.breakers[oj] = cb
	return cb
}

// breakerSuccess counts only failures that suggest vjudge is unreachable or
// overloaded; a rejected cookie or odd body says nothing about availability.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code < http.StatusInternalServerError
	}
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

// Submit posts sub and returns the decoded response body. Errors are one of
// *TransportError, *StatusError or *DecodeError. An open breaker fails fast
// without waiting for the rate limiter.
func (c *Client) Submit(ctx context.Context, sub Submission) (ledger.Record, error) {
	cb := c.breaker(sub.OJ)
	if cb.State() == gobreaker.StateOpen {
		return nil, &TransportError{Err: gobreaker.ErrOpenState}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Err: err}
	}

	rec, err := cb.Execute(func() (ledger.Record, error) {
		return c.post(ctx, sub)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &TransportError{Err: err}
	}
	return rec, err
}

func (c *Client) post(ctx context.Context, sub Submission) (ledger.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, strings.NewReader(sub.Form().Encode()))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cookie", c.cookie)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var rec ledger.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, &DecodeError{Body: string(body), Err: err}
	}
	if rec == nil {
		return nil, &DecodeError{Body: string(body), Err: errors.New("empty response object")}
	}
	return rec, nil
}
