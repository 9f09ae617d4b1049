package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

func newShopAgent(t *testing.T, handler http.HandlerFunc) *Agent {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	a := New(Config{
		Client:   ClientConfig{BaseURL: server.URL, AccessToken: "shpat_test", MaxRetries: 2},
		Policies: map[string]string{"returns": "30 days, unopened items only."},
	})
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	a.client.backoff.Min = time.Millisecond
	a.client.backoff.Max = 2 * time.Millisecond
	return a
}

func TestProcessOrdersFromInput(t *testing.T) {
	t.Parallel()

	a := New(Config{})
	out, err := a.Execute(context.Background(), contractx.Input{
		"action": ActionOrders,
		"orders": []any{
			map[string]any{"order_number": "1001", "total": 42.5, "fulfillment_status": "fulfilled", "date": "2025-06-01"},
			map[string]any{"order_number": "1002", "total_price": "17.50", "date": "2025-06-01"},
		},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out["orders_processed"] != 2 || out["total_revenue"] != 60.0 {
		t.Fatalf("unexpected totals: %#v", out)
	}
	unfulfilled := out["unfulfilled"].([]string)
	if len(unfulfilled) != 1 || unfulfilled[0] != "1002" {
		t.Fatalf("unexpected unfulfilled: %v", unfulfilled)
	}
	if daily := out["daily_revenue"].(map[string]float64); daily["2025-06-01"] != 60 {
		t.Fatalf("unexpected daily revenue: %v", daily)
	}
}

func TestProcessOrdersFromShop(t *testing.T) {
	t.Parallel()

	var gotToken, gotPath string
	a := newShopAgent(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Shopify-Access-Token")
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"orders":[{"name":"#1001","total_price":"25.00","financial_status":"paid","fulfillment_status":"fulfilled","created_at":"2025-06-01T09:30:00-04:00"},{"name":"#1002","total_price":"10.00","financial_status":"pending","fulfillment_status":null,"created_at":"2025-06-02T18:00:00-04:00"}]}`)
	})

	out, err := a.Execute(context.Background(), contractx.Input{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if gotToken != "shpat_test" || gotPath != "/admin/api/2024-01/orders.json" {
		t.Fatalf("unexpected request token=%s path=%s", gotToken, gotPath)
	}
	if out["source"] != "shopify" || out["total_revenue"] != 35.0 {
		t.Fatalf("unexpected output: %#v", out)
	}
	daily, _ := out["daily_revenue"].(map[string]float64)
	if len(daily) != 2 || daily["2025-06-01"] != 25 || daily["2025-06-02"] != 10 {
		t.Fatalf("unexpected daily revenue: %v", daily)
	}
}

func TestProcessOrdersDailyRevenueFromCreatedAt(t *testing.T) {
	t.Parallel()

	out, err := New(Config{}).Execute(context.Background(), contractx.Input{
		"action": ActionOrders,
		"orders": []any{
			map[string]any{"order_number": "1001", "total_price": "12.00", "created_at": "2025-06-03T08:00:00Z"},
			map[string]any{"order_number": "1002", "total_price": "8.00", "created_at": "2025-06-03 17:45"},
			map[string]any{"order_number": "1003", "total": 5.0},
		},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out["total_revenue"] != 25.0 {
		t.Fatalf("unexpected total revenue: %v", out["total_revenue"])
	}
	daily, _ := out["daily_revenue"].(map[string]float64)
	if len(daily) != 1 || daily["2025-06-03"] != 20 {
		t.Fatalf("unexpected daily revenue: %v", daily)
	}
}

func TestClientRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	a := newShopAgent(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"orders":[]}`)
	})

	if _, err := a.Execute(context.Background(), contractx.Input{"action": ActionOrders}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	a := newShopAgent(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid token", http.StatusUnauthorized)
	})

	_, err := a.Execute(context.Background(), contractx.Input{"action": ActionOrders})
	if !errors.Is(err, contractx.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestClientGivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	a := newShopAgent(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	})

	if _, err := a.Execute(context.Background(), contractx.Input{"action": ActionOrders}); !errors.Is(err, contractx.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestSupportOrderTracking(t *testing.T) {
	t.Parallel()

	var gotName string
	a := newShopAgent(t, func(w http.ResponseWriter, r *http.Request) {
		gotName = r.URL.Query().Get("name")
		fmt.Fprint(w, `{"orders":[{"name":"#1001","total_price":"25.00","currency":"USD","financial_status":"paid","fulfillment_status":"fulfilled","fulfillments":[{"tracking_number":"1Z999"}]}]}`)
	})

	out, err := a.Execute(context.Background(), contractx.Input{"message": "Where is my order #1001?"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if gotName != "#1001" {
		t.Fatalf("order lookup name = %q", gotName)
	}
	if out["intent"] != IntentOrderTracking {
		t.Fatalf("intent = %v", out["intent"])
	}
	if !strings.Contains(out["response"].(string), "Tracking: 1Z999") {
		t.Fatalf("response missing tracking: %v", out["response"])
	}
}

func TestSupportEscalatesAndUsesPolicies(t *testing.T) {
	t.Parallel()

	a := New(Config{Policies: map[string]string{
		"returns":       "30 days, unopened items only.",
		"support_email": "help@bakery.test",
	}})

	out, err := a.Execute(context.Background(), contractx.Input{"message": "I want to speak to a human now"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out["escalated"] != true || !strings.Contains(out["response"].(string), "help@bakery.test") {
		t.Fatalf("unexpected escalation: %#v", out)
	}

	out, err = a.Execute(context.Background(), contractx.Input{"message": "Can I return a cake?"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out["intent"] != IntentReturns || !strings.Contains(out["response"].(string), "30 days") {
		t.Fatalf("unexpected returns reply: %#v", out)
	}
}

func TestDetectIntentAndOrderNumber(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Has my package shipped?":      IntentOrderTracking,
		"Is the rye loaf in stock?":    IntentProduct,
		"I need a refund":              IntentReturns,
		"Do you offer shipping to NZ?": IntentShipping,
		"Hello there":                  IntentGeneral,
	}
	for msg, want := range cases {
		if got := DetectIntent(msg); got != want {
			t.Fatalf("DetectIntent(%q) = %s, want %s", msg, got, want)
		}
	}

	if got := ExtractOrderNumber("status of order 2044 please"); got != "2044" {
		t.Fatalf("ExtractOrderNumber() = %q", got)
	}
	if got := ExtractOrderNumber("no number here"); got != "" {
		t.Fatalf("ExtractOrderNumber() = %q, want empty", got)
	}
}

func TestNewClientWithoutCredentials(t *testing.T) {
	t.Parallel()

	c, err := NewClient(ClientConfig{ShopDomain: "bakery.myshopify.com"})
	if err != nil || c != nil {
		t.Fatalf("NewClient() = %v, %v; want nil, nil", c, err)
	}
}
