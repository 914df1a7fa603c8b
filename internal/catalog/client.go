// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/metrics"
)

// DefaultBaseURL is the public catalog of pre-trained GeneMark-ES models.
const DefaultBaseURL = "http://paulsaary.de/gmes/"

// DefaultMaxBodySize bounds a single catalog response.
const DefaultMaxBodySize = 64 << 20

// errNotFound marks a 404. It is permanent: neither retried nor counted
// against the breaker.
var errNotFound = errors.New("not found")

// errBodyTooLarge marks a response over MaxBodySize. It is not retried.
var errBodyTooLarge = errors.New("response body too large")

// Source fetches the catalog index and individual models.
type Source interface {
	FetchInfo(ctx context.Context) (Info, error)
	// FetchModel places model id in dir and returns its path.
	FetchModel(ctx context.Context, id, dir string) (string, error)
}

// ClientConfig configures the HTTP catalog client.
type ClientConfig struct {
	BaseURL string

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// RetryAttempts is the total number of attempts per request.
	RetryAttempts int

	// RetryDelay is the first backoff delay; it doubles per attempt.
	RetryDelay time.Duration

	// RequestsPerSecond limits outgoing requests. Zero disables the limit.
	RequestsPerSecond float64
	Burst             int

	Breaker BreakerConfig

	// MaxBodySize rejects responses larger than this many bytes.
	// Zero means DefaultMaxBodySize.
	MaxBodySize int64
}

// DefaultClientConfig returns the production defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:           DefaultBaseURL,
		Timeout:           60 * time.Second,
		RetryAttempts:     3,
		RetryDelay:        time.Second,
		RequestsPerSecond: 2,
		Burst:             4,
		Breaker:           DefaultBreakerConfig(),
		MaxBodySize:       DefaultMaxBodySize,
	}
}

// HTTPClient is a Source backed by the remote catalog.
type HTTPClient struct {
	cfg     ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	breaker *breaker
}

// NewHTTPClient creates a catalog client.
func NewHTTPClient(cfg ClientConfig) *HTTPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.Breaker == (BreakerConfig{}) {
		cfg.Breaker = DefaultBreakerConfig()
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &HTTPClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		breaker: newBreaker("model-catalog", cfg.Breaker),
	}
}

func (c *HTTPClient) url(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + path
}

// FetchInfo downloads and parses info.csv.
func (c *HTTPClient) FetchInfo(ctx context.Context) (Info, error) {
	body, err := c.fetch(ctx, "info", c.url("info.csv"))
	if err != nil {
		return nil, err
	}
	return ParseInfo(bytes.NewReader(body))
}

// FetchModel downloads models/<id>.mod into dir. A file already present in
// dir is reused without a request.
func (c *HTTPClient) FetchModel(ctx context.Context, id, dir string) (string, error) {
	if !validID(id) {
		return "", fmt.Errorf("invalid model id %q", id)
	}
	dst := filepath.Join(dir, id+".mod")
	if st, err := os.Stat(dst); err == nil && st.Size() > 0 {
		logging.Debug().Str("model", id).Msg("Reusing downloaded model")
		return dst, nil
	}

	body, err := c.fetch(ctx, "model", c.url("models/"+id+".mod"))
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", fmt.Errorf("model %s: empty response", id)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := writeAtomic(dst, body); err != nil {
		return "", fmt.Errorf("save model %s: %w", id, err)
	}
	return dst, nil
}

// fetch performs one rate-limited, retried, breaker-protected GET.
func (c *HTTPClient) fetch(ctx context.Context, kind, url string) ([]byte, error) {
	start := time.Now()
	var body []byte
	err := c.retryWithBackoff(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		body, err = c.breaker.execute(func() ([]byte, error) {
			return c.get(ctx, url)
		})
		return err
	})
	metrics.RecordCatalogRequest(kind, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return body, nil
}

func (c *HTTPClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort cleanup

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.cfg.MaxBodySize {
		return nil, fmt.Errorf("%w: over %d bytes", errBodyTooLarge, c.cfg.MaxBodySize)
	}
	return body, nil
}

// retryWithBackoff runs fn up to RetryAttempts times, doubling the delay
// between attempts. Context cancellation and permanent errors stop early.
func (c *HTTPClient) retryWithBackoff(ctx context.Context, fn func() error) error {
	var err error
	delay := c.cfg.RetryDelay

	for attempt := 0; attempt < c.cfg.RetryAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = fn()
		if err == nil || errors.Is(err, errNotFound) || errors.Is(err, errBodyTooLarge) || ctx.Err() != nil {
			return err
		}

		if attempt < c.cfg.RetryAttempts-1 {
			logging.Warn().Err(err).Int("attempt", attempt+1).Int("max_attempts", c.cfg.RetryAttempts).Dur("delay", delay).Msg("Retry attempt")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}

	return fmt.Errorf("max retry attempts reached: %w", err)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

var _ Source = (*HTTPClient)(nil)
