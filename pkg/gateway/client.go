package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// package-level logger for pkg/gateway; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/gateway. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Client submits payloads to the remote endpoint and adds timeout, signed
// credentials and a circuit breaker.
type Client struct {
	cfg      Config
	endpoint *url.URL
	client   *http.Client
	now      func() time.Time

	// simple circuit breaker state
	failures  int32
	openUntil int64 // unix nano
	closed    int32
}

// SubmitResult is the acceptance reply of the endpoint.
type SubmitResult struct {
	ID        string `json:"id"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// CaseStatus is the reply to a status lookup.
type CaseStatus struct {
	CaseNumber string `json:"caseNumber"`
	Synced     bool   `json:"synced"`
	LastSync   string `json:"lastSync,omitempty"`
}

type reply struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Error     string `json:"error"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
}

func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	u, err := url.ParseRequestURI(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if cfg.CircuitFailureThreshold <= 0 {
		cfg.CircuitFailureThreshold = DefaultConfig().CircuitFailureThreshold
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultConfig().TokenTTL
	}

	c := &Client{cfg: cfg, endpoint: u, client: httpClient, now: time.Now}
	logger.Info("gateway: client created", slog.String("endpoint", u.Redacted()), slog.Duration("timeout", cfg.Timeout))
	return c, nil
}

func NewDefaultClient(cfg Config) (*Client, error) {
	defaultClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 15 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          20,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	return NewClient(cfg, defaultClient)
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.failures) < int32(c.cfg.CircuitFailureThreshold) {
		return false
	}

	if c.now().UnixNano() < atomic.LoadInt64(&c.openUntil) {
		return true
	}

	// half-open: let the next request through
	atomic.StoreInt32(&c.failures, 0)
	return false
}

func (c *Client) recordFailure() {
	v := atomic.AddInt32(&c.failures, 1)
	if v >= int32(c.cfg.CircuitFailureThreshold) {
		atomic.StoreInt64(&c.openUntil, c.now().Add(c.cfg.CircuitReset).UnixNano())
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt32(&c.failures, 0)
}

// Close releases idle connections of the underlying transport. Close is
// idempotent.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if c.client != nil && c.client.Transport != nil {
		if tr, ok := c.client.Transport.(interface{ CloseIdleConnections() }); ok {
			tr.CloseIdleConnections()
			logger.Info("gateway: client closed")
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method string, u *url.URL, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Secret != "" {
		tok, err := SignToken(c.cfg.Secret, c.cfg.TokenTTL, c.now())
		if err != nil {
			return nil, fmt.Errorf("sign token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

// Submit posts p to the endpoint. A non-2xx status or success=false is
// returned as *RemoteError. While the circuit is open Submit returns
// ErrCircuitOpen without sending anything.
func (c *Client) Submit(ctx context.Context, p Payload) (*SubmitResult, error) {
	if c.isCircuitOpen() {
		return nil, ErrCircuitOpen
	}

	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}

	start := c.now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("submit %s: %w", p.Title, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			c.recordFailure()
		}
		msg := strings.TrimSpace(string(raw))
		var rep reply
		if json.Unmarshal(raw, &rep) == nil && rep.Error != "" {
			msg = rep.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: msg}
	}

	c.recordSuccess()

	var rep reply
	if err := json.Unmarshal(raw, &rep); err != nil {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	if !rep.Success {
		msg := rep.Error
		if msg == "" {
			msg = "submission not accepted"
		}
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: msg}
	}

	logger.Debug("gateway: submission accepted",
		slog.String("case_number", p.Title),
		slog.String("remote_id", rep.ID),
		slog.Int64("latency_ms", c.now().Sub(start).Milliseconds()))
	return &SubmitResult{ID: rep.ID, Message: rep.Message, Timestamp: rep.Timestamp}, nil
}

// Status asks the endpoint whether caseNumber has been received.
func (c *Client) Status(ctx context.Context, caseNumber string) (*CaseStatus, error) {
	if caseNumber == "" {
		return nil, fmt.Errorf("case number is required")
	}
	if c.isCircuitOpen() {
		return nil, ErrCircuitOpen
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	u := *c.endpoint
	q := u.Query()
	q.Set("radicado", caseNumber)
	u.RawQuery = q.Encode()

	req, err := c.newRequest(ctx, http.MethodGet, &u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("status %s: %w", caseNumber, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(b))}
	}
	c.recordSuccess()

	var st CaseStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &st, nil
}

// Ping reports whether the endpoint can be reached. Any HTTP response,
// whatever its status, counts as reachable. Ping ignores the circuit.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.endpoint.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("endpoint unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
