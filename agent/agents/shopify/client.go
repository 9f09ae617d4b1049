package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

const (
	defaultAPIVersion    = "2024-01"
	defaultTimeout       = 15 * time.Second
	defaultMaxRetries    = 3
	maxResponseSizeBytes = 4 << 20
)

type ClientConfig struct {
	ShopDomain  string        `envconfig:"SHOP_DOMAIN" split_words:"true"`
	AccessToken string        `envconfig:"ACCESS_TOKEN" split_words:"true"`
	APIVersion  string        `envconfig:"API_VERSION" split_words:"true" default:"2024-01"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"15s"`
	MaxRetries  int           `envconfig:"MAX_RETRIES" split_words:"true" default:"3"`
	// BaseURL replaces https://<ShopDomain> when set.
	BaseURL string `envconfig:"BASE_URL" split_words:"true"`
}

// Client is a small Admin REST client. Transient failures (network, 429,
// 5xx) are retried with exponential backoff.
type Client struct {
	baseURL    string
	token      string
	version    string
	maxRetries int
	httpClient *http.Client
	backoff    backoff.Backoff
}

// NewClient returns nil when the shop is not configured.
func NewClient(cfg ClientConfig) (*Client, error) {
	token := strings.TrimSpace(cfg.AccessToken)
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		domain := strings.TrimSpace(cfg.ShopDomain)
		if domain == "" {
			return nil, nil
		}
		base = "https://" + strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://")
	}
	if token == "" {
		return nil, nil
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("%w: invalid shop url: %v", contractx.ErrValidation, err)
	}

	version := strings.TrimSpace(cfg.APIVersion)
	if version == "" {
		version = defaultAPIVersion
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return &Client{
		baseURL:    base,
		token:      token,
		version:    version,
		maxRetries: retries,
		httpClient: &http.Client{Timeout: timeout},
		backoff: backoff.Backoff{
			Min:    200 * time.Millisecond,
			Max:    5 * time.Second,
			Factor: 2,
			Jitter: true,
		},
	}, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("shopify http status=%d body=%s", e.code, e.body)
}

func (e *statusError) transient() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

// get decodes GET /admin/api/<version>/<resource>.json into out.
func (c *Client) get(ctx context.Context, resource string, query url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/admin/api/%s/%s.json", c.baseURL, c.version, strings.Trim(resource, "/"))
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	b := c.backoff
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.Duration()):
			}
		}

		raw, err := c.do(ctx, endpoint)
		if err == nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("%w: decode shopify %s: %v", contractx.ErrFormat, resource, err)
			}
			return nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && !se.transient() {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("%w: shopify %s: %v", contractx.ErrProvider, resource, lastErr)
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &statusError{code: resp.StatusCode, body: string(raw)}
	}
	return raw, nil
}

type Order struct {
	ID                int64       `json:"id"`
	Name              string      `json:"name"`
	OrderNumber       int64       `json:"order_number"`
	Email             string      `json:"email"`
	FinancialStatus   string      `json:"financial_status"`
	FulfillmentStatus *string     `json:"fulfillment_status"`
	TotalPrice        string      `json:"total_price"`
	Currency          string      `json:"currency"`
	CreatedAt         time.Time   `json:"created_at"`
	Fulfillments      []Fulfilled `json:"fulfillments"`
}

type Fulfilled struct {
	TrackingNumber string `json:"tracking_number"`
	TrackingURL    string `json:"tracking_url"`
}

type Product struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Variants []Variant `json:"variants"`
}

type Variant struct {
	Price             string `json:"price"`
	InventoryQuantity int    `json:"inventory_quantity"`
}

func (c *Client) Orders(ctx context.Context, status string, limit int) ([]Order, error) {
	q := url.Values{}
	if status == "" {
		status = "any"
	}
	q.Set("status", status)
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	var body struct {
		Orders []Order `json:"orders"`
	}
	if err := c.get(ctx, "orders", q, &body); err != nil {
		return nil, err
	}
	return body.Orders, nil
}

// OrderByNumber looks an order up by its customer-facing number (#1001).
func (c *Client) OrderByNumber(ctx context.Context, number string) (*Order, error) {
	q := url.Values{}
	q.Set("status", "any")
	q.Set("name", "#"+strings.TrimPrefix(number, "#"))
	var body struct {
		Orders []Order `json:"orders"`
	}
	if err := c.get(ctx, "orders", q, &body); err != nil {
		return nil, err
	}
	if len(body.Orders) == 0 {
		return nil, nil
	}
	return &body.Orders[0], nil
}

func (c *Client) Products(ctx context.Context, title string, limit int) ([]Product, error) {
	q := url.Values{}
	if title != "" {
		q.Set("title", title)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	var body struct {
		Products []Product `json:"products"`
	}
	if err := c.get(ctx, "products", q, &body); err != nil {
		return nil, err
	}
	return body.Products, nil
}
