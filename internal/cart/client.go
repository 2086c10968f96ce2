// Package cart reads and updates a shopper's storefront cart.
package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smartbundles/bundles-server/internal/domain"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20

	// CookieName carries the storefront cart token.
	CookieName = "cart"
)

// Source reads cart state and applies quantity mutations. The cart token
// identifies the shopper's cart.
type Source interface {
	ReadCart(ctx context.Context, token string) ([]domain.CartLine, error)
	Mutate(ctx context.Context, token string, batch []domain.QuantityMutation) (MutateResult, error)
}

// MutateResult reports which mutations of a batch the cart reflects after
// the update.
type MutateResult struct {
	Applied []string
	Failed  []string
	Lines   []domain.CartLine
}

// Complete reports whether every mutation was applied.
func (r MutateResult) Complete() bool {
	return len(r.Failed) == 0
}

// Config configures the HTTP client.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	BundleKeyProperty string
}

// Client talks to the storefront's cart.js endpoints.
type Client struct {
	http          *http.Client
	baseURL       *url.URL
	bundleKeyProp string
	logger        *slog.Logger
}

var _ Source = (*Client)(nil)

// New creates a cart client.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BundleKeyProperty == "" {
		cfg.BundleKeyProperty = "_bundle_key"
	}

	c := &Client{
		http:          &http.Client{Timeout: cfg.Timeout},
		bundleKeyProp: cfg.BundleKeyProperty,
		logger:        logger,
	}
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
		if err != nil {
			return nil, fmt.Errorf("parse cart base URL: %w", err)
		}
		c.baseURL = u
	}
	return c, nil
}

// ReadCart returns the cart's lines in cart order.
func (c *Client) ReadCart(ctx context.Context, token string) ([]domain.CartLine, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/cart.js", token, nil)
	if err != nil {
		return nil, &Error{Op: "read", Status: status, Err: err}
	}

	var raw rawCart
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &Error{Op: "read", Err: fmt.Errorf("decode: %w", err)}
	}
	return raw.lines(c.bundleKeyProp), nil
}

// Mutate submits the batch as one update and checks the returned cart
// against it. Mutations the cart does not reflect are reported as Failed;
// the caller decides whether to resend the batch.
func (c *Client) Mutate(ctx context.Context, token string, batch []domain.QuantityMutation) (MutateResult, error) {
	if len(batch) == 0 {
		return MutateResult{}, nil
	}

	updates := make(map[string]int, len(batch))
	for _, m := range batch {
		updates[m.Key] = m.Quantity
	}
	payload, err := json.Marshal(map[string]any{"updates": updates})
	if err != nil {
		return MutateResult{}, &Error{Op: "mutate", Err: fmt.Errorf("encode: %w", err)}
	}

	body, status, err := c.do(ctx, http.MethodPost, "/cart/update.js", token, payload)
	if err != nil {
		return MutateResult{}, &Error{Op: "mutate", Status: status, Err: err}
	}

	var raw rawCart
	if err := json.Unmarshal(body, &raw); err != nil {
		return MutateResult{}, &Error{Op: "mutate", Err: fmt.Errorf("decode: %w", err)}
	}

	lines := raw.lines(c.bundleKeyProp)
	return compare(batch, lines), nil
}

// compare checks each mutation against the cart state returned by the update.
// A line absent from the cart counts as quantity zero.
func compare(batch []domain.QuantityMutation, lines []domain.CartLine) MutateResult {
	current := make(map[string]int, len(lines))
	for _, l := range lines {
		current[l.Key] = l.Quantity
	}

	result := MutateResult{Lines: lines}
	for _, m := range batch {
		if current[m.Key] == m.Quantity {
			result.Applied = append(result.Applied, m.Key)
		} else {
			result.Failed = append(result.Failed, m.Key)
		}
	}
	return result
}

func (c *Client) do(ctx context.Context, method, path, token string, payload []byte) ([]byte, int, error) {
	if c.baseURL == nil {
		return nil, 0, ErrNotConfigured
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "SmartBundles/1.0")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}

	c.logger.Debug("cart request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, resp.StatusCode, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, resp.StatusCode, ErrRateLimited
	case resp.StatusCode == http.StatusConflict:
		return nil, resp.StatusCode, ErrConflict
	case resp.StatusCode >= 500:
		return nil, resp.StatusCode, ErrServer
	default:
		return nil, resp.StatusCode, fmt.Errorf("%w: %s", ErrRejected, strings.TrimSpace(string(body)))
	}
}

// Raw API response types.

type rawCart struct {
	Items []rawItem `json:"items"`
}

type rawItem struct {
	Key          string         `json:"key"`
	VariantID    json.Number    `json:"variant_id"`
	ProductID    json.Number    `json:"product_id"`
	Quantity     int            `json:"quantity"`
	Price        int64          `json:"price"`
	ProductTitle string         `json:"product_title"`
	Title        string         `json:"title"`
	Properties   map[string]any `json:"properties"`
}

func (r rawCart) lines(bundleKeyProp string) []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(r.Items))
	for _, item := range r.Items {
		props := make(map[string]string, len(item.Properties))
		for k, v := range item.Properties {
			if s := propertyString(v); s != "" {
				props[k] = s
			}
		}

		title := item.ProductTitle
		if title == "" {
			title = item.Title
		}

		lines = append(lines, domain.CartLine{
			Key:            item.Key,
			BundleKey:      strings.TrimSpace(props[bundleKeyProp]),
			ProductID:      item.ProductID.String(),
			VariantID:      item.VariantID.String(),
			Title:          title,
			Quantity:       item.Quantity,
			UnitPriceMinor: item.Price,
			Properties:     props,
		})
	}
	return lines
}

func propertyString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
