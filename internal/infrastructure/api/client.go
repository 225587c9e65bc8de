// Package api is the HTTP client for the remote auction service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"auction-bidgate/internal/domain"
	"auction-bidgate/pkg/logger"

	"golang.org/x/time/rate"
)

const defaultServerRetryAfter = 60

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type initDataKey struct{}

// WithInitData attaches the webview's signed init data to outgoing requests.
func WithInitData(ctx context.Context, initData string) context.Context {
	return context.WithValue(ctx, initDataKey{}, initData)
}

func initDataFrom(ctx context.Context) string {
	s, _ := ctx.Value(initDataKey{}).(string)
	return s
}

// RequestObserver receives one call per HTTP exchange, retries included.
type RequestObserver interface {
	ObserveRemoteRequest(endpoint string, statusCode int, elapsed time.Duration)
}

type Options struct {
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerSecond float64
	WPNonce           string
	HTTPClient        *http.Client
	Observer          RequestObserver
}

type Client struct {
	baseURL    string
	http       *http.Client
	maxRetries int
	retryDelay time.Duration
	nonce      string
	pacer      *rate.Limiter
	observer   RequestObserver
	now        func() time.Time
	log        logger.Logger
}

func NewClient(opts Options, log logger.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	pacer := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		pacer = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), int(opts.RequestsPerSecond)+1)
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		http:       httpClient,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		nonce:      opts.WPNonce,
		pacer:      pacer,
		observer:   opts.Observer,
		now:        time.Now,
		log:        log,
	}
}

func (c *Client) GetUserStatus(ctx context.Context, telegramID int64) (*domain.User, error) {
	var user domain.User
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/user/%d", telegramID), "user", nil, nil, &user, domain.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) RegisterUser(ctx context.Context, req *domain.RegisterUserRequest) (*domain.RegisterUserResponse, error) {
	var resp domain.RegisterUserResponse
	if err := c.do(ctx, http.MethodPost, "/register", "register", nil, req, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetActiveLots(ctx context.Context) ([]domain.Lot, error) {
	var lots []domain.Lot
	if err := c.do(ctx, http.MethodGet, "/lots", "lots", nil, nil, &lots, nil); err != nil {
		return nil, err
	}
	return lots, nil
}

func (c *Client) GetLotDetails(ctx context.Context, lotID int, includeBids bool) (*domain.Lot, error) {
	query := url.Values{"include_bids": {strconv.FormatBool(includeBids)}}
	var lot domain.Lot
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/lots/%d", lotID), "lot", query, nil, &lot, domain.ErrLotNotFound)
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (c *Client) GetBrands(ctx context.Context) (*domain.BrandList, error) {
	var brands domain.BrandList
	if err := c.do(ctx, http.MethodGet, "/brands", "brands", nil, nil, &brands, nil); err != nil {
		return nil, err
	}
	return &brands, nil
}

func (c *Client) PlaceBid(ctx context.Context, req *domain.PlaceBidRequest) (*domain.PlaceBidResponse, error) {
	if req.InitData == "" {
		req.InitData = initDataFrom(ctx)
	}
	var resp domain.PlaceBidResponse
	if err := c.do(ctx, http.MethodPost, "/bid", "bid", nil, req, &resp, domain.ErrLotNotFound); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetUserBids(ctx context.Context, telegramID int64) ([]domain.Bid, error) {
	var bids []domain.Bid
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/user/%d/bids", telegramID), "user_bids", nil, nil, &bids, domain.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	return bids, nil
}

// do sends one logical request. 5xx responses are retried up to maxRetries
// times with a linearly growing delay; 429 is returned at once.
func (c *Client) do(ctx context.Context, method, path, endpoint string, query url.Values, body, out interface{}, notFound error) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	for attempt := 0; ; attempt++ {
		if err := c.pacer.Wait(ctx); err != nil {
			return err
		}

		req, err := c.newRequest(ctx, method, path, query, payload)
		if err != nil {
			return err
		}

		c.log.Debug("Remote request", "method", method, "path", path, "attempt", attempt+1)
		start := c.now()
		resp, err := c.http.Do(req)
		if err != nil {
			c.log.Error("Remote request failed", "method", method, "path", path, "error", err)
			return err
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if c.observer != nil {
			c.observer.ObserveRemoteRequest(endpoint, resp.StatusCode, c.now().Sub(start))
		}
		if readErr != nil {
			return readErr
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return &domain.ServerRateLimitError{RetryAfterSeconds: parseRetryAfter(resp.Header.Get("Retry-After"))}

		case resp.StatusCode >= 500 && attempt < c.maxRetries:
			delay := c.retryDelay * time.Duration(attempt+1)
			c.log.Warn("Retrying remote request", "path", path, "status", resp.StatusCode, "delay", delay)
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			continue

		case resp.StatusCode == http.StatusNotFound && notFound != nil:
			return notFound

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return &domain.APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), out); err != nil {
			return fmt.Errorf("decode %s response: %w", endpoint, err)
		}
		return nil
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, payload []byte) (*http.Request, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	// cache buster, the remote sits behind an aggressive page cache
	q.Set("_t", strconv.FormatInt(c.now().UnixMilli(), 10))

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+q.Encode(), body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	req.Header.Set("Pragma", "no-cache")
	if initData := initDataFrom(ctx); initData != "" {
		req.Header.Set("X-Telegram-Init-Data", initData)
	}
	if c.nonce != "" {
		req.Header.Set("X-WP-Nonce", c.nonce)
	}
	return req, nil
}

func parseRetryAfter(header string) int {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs <= 0 {
		return defaultServerRetryAfter
	}
	return secs
}

func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
