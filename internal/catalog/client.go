// Package catalog fetches product option schemas from the storefront
// product endpoint.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smartbundles/bundles-server/internal/domain"
	"github.com/smartbundles/bundles-server/internal/htmltext"
	"github.com/smartbundles/bundles-server/internal/ratelimit"
)

const (
	defaultTimeout = 10 * time.Second
	defaultRPS     = 2.0
	defaultBurst   = 4

	// Product payloads are small; anything larger is not a product.
	maxBodyBytes = 4 << 20
)

// Source provides product option data keyed by product identifier.
type Source interface {
	FetchProduct(ctx context.Context, productID string) (*Product, error)
}

// Product is the part of a catalog product the bundle engine needs.
type Product struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	// Description is the product body converted to Markdown.
	Description string                 `json:"description,omitempty"`
	Options     []domain.ProductOption `json:"options"`
	Variants    []Variant              `json:"variants"`
	FetchedAt   time.Time              `json:"fetched_at"`
}

// Variant is one purchasable combination of option values.
type Variant struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	PriceMinor int64    `json:"price_minor"`
	Options    []string `json:"options,omitempty"`
}

// DefaultVariantID returns the first variant, used when a bundle item does
// not pin one.
func (p *Product) DefaultVariantID() string {
	if len(p.Variants) == 0 {
		return ""
	}
	return p.Variants[0].ID
}

// Config configures the HTTP client.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client is a rate-limited catalog client.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

var _ Source = (*Client)(nil)

// New creates a catalog client. An empty base URL is allowed; every fetch
// then fails with ErrNotConfigured.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}

	c := &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: ratelimit.New(cfg.RequestsPerSecond, cfg.Burst),
		logger:  logger,
	}
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
		if err != nil {
			c.limiter.Stop()
			return nil, fmt.Errorf("parse catalog base URL: %w", err)
		}
		c.baseURL = u
	}
	return c, nil
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// FetchProduct loads one product with its options and variants.
func (c *Client) FetchProduct(ctx context.Context, productID string) (*Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, &Error{Op: "fetchProduct", Err: ErrNotFound}
	}

	body, err := c.get(ctx, "/products/"+url.PathEscape(productID)+".json")
	if err != nil {
		return nil, &Error{Op: "fetchProduct", ProductID: productID, Err: err}
	}

	var envelope struct {
		Product rawProduct `json:"product"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &Error{Op: "fetchProduct", ProductID: productID, Err: fmt.Errorf("decode: %w", err)}
	}

	p := envelope.Product.toProduct()
	if p.ID == "" {
		p.ID = productID
	}
	p.FetchedAt = time.Now()
	return p, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if c.baseURL == nil {
		return nil, ErrNotConfigured
	}

	if err := c.limiter.Wait(ctx, c.baseURL.Host); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "SmartBundles/1.0")

	c.logger.Debug("catalog request", "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, ErrServer
	default:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Raw API response types.

type rawProduct struct {
	ID       flexID       `json:"id"`
	Title    string       `json:"title"`
	BodyHTML string       `json:"body_html"`
	Options  []rawOption  `json:"options"`
	Variants []rawVariant `json:"variants"`
}

type rawOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type rawVariant struct {
	ID      flexID  `json:"id"`
	Title   string  `json:"title"`
	Price   string  `json:"price"`
	Option1 *string `json:"option1"`
	Option2 *string `json:"option2"`
	Option3 *string `json:"option3"`
}

func (r rawProduct) toProduct() *Product {
	p := &Product{
		ID:          string(r.ID),
		Title:       strings.TrimSpace(r.Title),
		Description: htmltext.ToMarkdown(r.BodyHTML),
		Options:     make([]domain.ProductOption, 0, len(r.Options)),
		Variants:    make([]Variant, 0, len(r.Variants)),
	}
	for _, o := range r.Options {
		p.Options = append(p.Options, domain.ProductOption{Name: o.Name, Values: o.Values})
	}
	for _, v := range r.Variants {
		variant := Variant{ID: string(v.ID), Title: v.Title}
		if price, err := ParsePriceMinor(v.Price); err == nil {
			variant.PriceMinor = price
		}
		for _, opt := range []*string{v.Option1, v.Option2, v.Option3} {
			if opt != nil && *opt != "" {
				variant.Options = append(variant.Options, *opt)
			}
		}
		p.Variants = append(p.Variants, variant)
	}
	return p
}

// flexID accepts identifiers encoded as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}
