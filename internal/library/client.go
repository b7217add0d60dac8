// Package library: клиент удалённого сервиса терминологии (CDISC Library API).
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.library.cdisc.org/api"

// DefaultDomains: порядок доменов терминологии при поиске codelist'а
var DefaultDomains = []string{"sdtmct", "ddfct", "protocolct", "cdashct"}

// Config настраивает клиент
type Config struct {
	// BaseURL сервиса (default: DefaultBaseURL)
	BaseURL string

	// APIKey уходит в заголовке api-key
	APIKey string

	// Domains: домены в порядке приоритета (default: DefaultDomains)
	Domains []string

	// Timeout на один запрос (default: 30s)
	Timeout time.Duration

	// MaxRetries для 429/5xx и сетевых ошибок (default: 3, <0 без повторов)
	MaxRetries int

	// RateLimit запросов в секунду (default: 5)
	RateLimit float64

	// RateBurst (default: 2)
	RateBurst int

	// Backoff: базовая пауза между попытками (default: 100ms)
	Backoff time.Duration

	UserAgent string

	// Transport для тестов/заглушек
	Transport http.RoundTripper
}

// Client: клиент с ограничением частоты и повторами. Кэш пакетов живёт
// столько же, сколько клиент, и не потокобезопасен.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	log         *slog.Logger

	packages map[string]string // domain -> href последнего пакета
	failed   map[string]error  // domain -> ошибка discovery
	index    *packageIndex     // индекс пакетов, общий для всех доменов
	indexErr error
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if len(cfg.Domains) == 0 {
		cfg.Domains = DefaultDomains
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = 3
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = 2
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = 100 * time.Millisecond
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "eapgraph/1.0"
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		log:         log,
		packages:    map[string]string{},
		failed:      map[string]error{},
	}
}

// HTTPError: ответ с кодом >= 400
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPError) IsRateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }
func (e *HTTPError) IsServerError() bool { return e.StatusCode >= 500 }
func (e *HTTPError) IsNotFound() bool    { return e.StatusCode == http.StatusNotFound }

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsRateLimited() || httpErr.IsServerError()
	}
	// сетевые ошибки
	return true
}

// get выполняет GET с ограничением частоты и экспоненциальными повторами
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		body, err := c.doOnce(ctx, path)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == c.cfg.MaxRetries {
			break
		}

		backoff := time.Duration(1<<uint(attempt)) * c.cfg.Backoff
		c.log.Debug("library request retry", "path", path, "attempt", attempt+1, "backoff", backoff, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, path string) ([]byte, error) {
	fullURL := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("api-key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return body, nil
}
