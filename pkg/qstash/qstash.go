package qstash

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jpillora/backoff"
)

const (
	SignatureHeader = "Upstash-Signature"

	maxResponseSizeBytes = 1 << 20
)

var (
	ErrPublish   = errors.New("qstash publish failed")
	ErrSignature = errors.New("qstash signature is invalid")
)

type Config struct {
	URL               string        `split_words:"true" default:"https://qstash.upstash.io"`
	Token             string        `split_words:"true"`
	CurrentSigningKey string        `split_words:"true"`
	NextSigningKey    string        `split_words:"true"`
	Timeout           time.Duration `split_words:"true" default:"10s"`
	MaxRetries        int           `split_words:"true" default:"3"`
}

type Client struct {
	baseURL           string
	token             string
	currentSigningKey string
	nextSigningKey    string
	maxRetries        int
	httpClient        *http.Client
	backoff           *backoff.Backoff
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("qstash url is required")
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	client := &Client{
		baseURL:           strings.TrimRight(baseURL, "/"),
		token:             strings.TrimSpace(cfg.Token),
		currentSigningKey: strings.TrimSpace(cfg.CurrentSigningKey),
		nextSigningKey:    strings.TrimSpace(cfg.NextSigningKey),
		maxRetries:        retries,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		backoff: &backoff.Backoff{Min: 200 * time.Millisecond, Max: 2 * time.Second, Factor: 2},
	}

	return client, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// Publish posts payload as JSON to destination (a URL or topic name) and
// returns the message id. Network errors, 429 and 5xx are retried.
func (c *Client) Publish(ctx context.Context, destination string, payload any) (string, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return "", fmt.Errorf("%w: destination is empty", ErrPublish)
	}
	if c.token == "" {
		return "", fmt.Errorf("%w: token is not configured", ErrPublish)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal payload: %v", ErrPublish, err)
	}

	b := *c.backoff
	b.Reset()
	for attempt := 0; ; attempt++ {
		id, retry, err := c.publishOnce(ctx, destination, body)
		if err == nil {
			return id, nil
		}
		if !retry || attempt >= c.maxRetries {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrPublish, ctx.Err())
		case <-time.After(b.Duration()):
		}
	}
}

func (c *Client) publishOnce(ctx context.Context, destination string, body []byte) (string, bool, error) {
	endpoint := c.baseURL + "/v2/publish/" + destination
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("%w: build request: %v", ErrPublish, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", ctx.Err() == nil, fmt.Errorf("%w: %v", ErrPublish, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return "", true, fmt.Errorf("%w: read response: %v", ErrPublish, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
		return "", retry, fmt.Errorf("%w: status=%d body=%s", ErrPublish, resp.StatusCode, string(raw))
	}

	var parsed struct {
		MessageID string `json:"messageId"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false, fmt.Errorf("%w: decode response: %v", ErrPublish, err)
	}
	return parsed.MessageID, false, nil
}

// Verify checks a delivery signature against the current signing key, then
// the next one during key rotation. requestURL is the URL QStash called.
func (c *Client) Verify(signature string, body []byte, requestURL string) error {
	keys := make([]string, 0, 2)
	for _, k := range []string{c.currentSigningKey, c.nextSigningKey} {
		if k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: no signing key configured", ErrSignature)
	}
	if strings.TrimSpace(signature) == "" {
		return fmt.Errorf("%w: missing %s header", ErrSignature, SignatureHeader)
	}

	var last error
	for _, key := range keys {
		if last = verifyWithKey(signature, body, requestURL, key); last == nil {
			return nil
		}
	}
	return last
}

func verifyWithKey(signature string, body []byte, requestURL, key string) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer("Upstash"),
		jwt.WithLeeway(time.Second),
	}
	if requestURL != "" {
		opts = append(opts, jwt.WithSubject(requestURL))
	}

	token, err := jwt.Parse(signature, func(t *jwt.Token) (interface{}, error) {
		return []byte(key), nil
	}, opts...)
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: %v", ErrSignature, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("%w: unexpected claims", ErrSignature)
	}
	want, _ := claims["body"].(string)
	if strings.TrimRight(want, "=") != BodyHash(body) {
		return fmt.Errorf("%w: body hash mismatch", ErrSignature)
	}
	return nil
}

// BodyHash is the unpadded base64url SHA-256 digest QStash signs.
func BodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
