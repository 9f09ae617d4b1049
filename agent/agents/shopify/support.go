package shopify

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

const (
	IntentOrderTracking = "order_tracking"
	IntentProduct       = "product_inquiry"
	IntentReturns       = "returns_refunds"
	IntentShipping      = "shipping_inquiry"
	IntentGeneral       = "general_inquiry"
)

var (
	orderNumberRe = regexp.MustCompile(`(?i)(?:#|order\s+#?|number\s+)(\d+)`)

	intentWords = []struct {
		intent string
		words  []string
	}{
		{IntentOrderTracking, []string{"order", "tracking", "where is", "shipped", "delivery"}},
		{IntentProduct, []string{"product", "item", "available", "stock", "price", "cost"}},
		{IntentReturns, []string{"return", "refund", "exchange", "cancel"}},
		{IntentShipping, []string{"shipping", "ship to"}},
	}

	stopWords = map[string]bool{
		"the": true, "a": true, "an": true, "is": true, "are": true, "do": true,
		"you": true, "have": true, "what": true, "about": true, "your": true,
		"does": true, "much": true, "price": true, "stock": true,
	}
)

// support answers "message" (or "customer_message"). Escalation keywords
// short-circuit to a hand-off reply.
func (a *Agent) support(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	message := strings.TrimSpace(in.String("message"))
	if message == "" {
		message = strings.TrimSpace(in.String("customer_message"))
	}
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", contractx.ErrValidation)
	}

	if a.shouldEscalate(message) {
		return contractx.Output{
			"response":  a.escalationReply(),
			"intent":    "escalation",
			"escalated": true,
		}, nil
	}

	intent := DetectIntent(message)
	a.Event(logx.LevelDebug).Str("intent", intent).Msg("support intent detected")

	facts, err := a.gatherContext(ctx, message, intent)
	if err != nil {
		return nil, err
	}

	reply, err := a.reply(ctx, message, facts, in.String("customer_name"))
	if err != nil {
		return nil, err
	}
	return contractx.Output{
		"response":  reply,
		"intent":    intent,
		"escalated": false,
		"context":   facts,
	}, nil
}

func (a *Agent) shouldEscalate(message string) bool {
	m := strings.ToLower(message)
	for _, k := range a.escalation {
		if strings.Contains(m, k) {
			return true
		}
	}
	return false
}

func (a *Agent) escalationReply() string {
	email := a.cfg.Policies["support_email"]
	if email == "" {
		email = "support@store.com"
	}
	var b strings.Builder
	b.WriteString("I understand this requires personal attention. Let me connect you with our support team.\n\n")
	b.WriteString("You can reach our team at:\n")
	fmt.Fprintf(&b, "- Email: %s\n", email)
	if phone := a.cfg.Policies["support_phone"]; phone != "" {
		fmt.Fprintf(&b, "- Phone: %s\n", phone)
	}
	b.WriteString("\nThey'll be happy to help you with your request!")
	return b.String()
}

func DetectIntent(message string) string {
	m := strings.ToLower(message)
	for _, iw := range intentWords {
		for _, w := range iw.words {
			if strings.Contains(m, w) {
				return iw.intent
			}
		}
	}
	return IntentGeneral
}

func ExtractOrderNumber(message string) string {
	match := orderNumberRe.FindStringSubmatch(message)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

func productKeywords(message string) string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(message)) {
		w = strings.Trim(w, "?!.,;:")
		if len(w) <= 3 || stopWords[w] {
			continue
		}
		out = append(out, w)
		if len(out) == 5 {
			break
		}
	}
	return strings.Join(out, " ")
}

func (a *Agent) gatherContext(ctx context.Context, message, intent string) (string, error) {
	var b strings.Builder
	switch intent {
	case IntentOrderTracking:
		if number := ExtractOrderNumber(message); number != "" {
			info, err := a.orderInfo(ctx, number)
			if err != nil {
				return "", err
			}
			if info != "" {
				b.WriteString("ORDER INFORMATION:\n" + info)
			}
		}
	case IntentProduct:
		if kw := productKeywords(message); kw != "" {
			info, err := a.productInfo(ctx, kw)
			if err != nil {
				return "", err
			}
			if info != "" {
				b.WriteString("PRODUCT INFORMATION:\n" + info)
			}
		}
	case IntentReturns:
		if p := a.cfg.Policies["returns"]; p != "" {
			b.WriteString("RETURN POLICY:\n" + p)
		}
	case IntentShipping:
		if p := a.cfg.Policies["shipping"]; p != "" {
			b.WriteString("SHIPPING POLICY:\n" + p)
		}
	}
	return b.String(), nil
}

func (a *Agent) orderInfo(ctx context.Context, number string) (string, error) {
	if a.client == nil {
		return fmt.Sprintf("Order #%s (placeholder: your order is being processed)", number), nil
	}
	o, err := a.client.OrderByNumber(ctx, number)
	if err != nil || o == nil {
		return "", err
	}

	fulfillment := "Unfulfilled"
	if o.FulfillmentStatus != nil && *o.FulfillmentStatus != "" {
		fulfillment = *o.FulfillmentStatus
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s\nStatus: %s / %s\n", o.Name, o.FinancialStatus, fulfillment)
	if len(o.Fulfillments) > 0 {
		f := o.Fulfillments[0]
		tracking := f.TrackingNumber
		if tracking == "" {
			tracking = "Not available yet"
		}
		fmt.Fprintf(&b, "Tracking: %s\n", tracking)
		if f.TrackingURL != "" {
			fmt.Fprintf(&b, "Track at: %s\n", f.TrackingURL)
		}
	}
	fmt.Fprintf(&b, "Total: %s %s\n", o.TotalPrice, o.Currency)
	return b.String(), nil
}

func (a *Agent) productInfo(ctx context.Context, keywords string) (string, error) {
	if a.client == nil {
		return fmt.Sprintf("Product search results for '%s' (placeholder data)", keywords), nil
	}
	products, err := a.client.Products(ctx, "", 3)
	if err != nil {
		return "", err
	}
	return describeProducts(products), nil
}

func describeProducts(products []Product) string {
	var b strings.Builder
	for _, p := range products {
		fmt.Fprintf(&b, "- %s\n", p.Title)
		if len(p.Variants) > 0 {
			v := p.Variants[0]
			avail := "No"
			if v.InventoryQuantity > 0 {
				avail = "Yes"
			}
			fmt.Fprintf(&b, "  Price: %s\n  Available: %s\n", v.Price, avail)
		}
	}
	return b.String()
}

func (a *Agent) reply(ctx context.Context, message, facts, name string) (string, error) {
	if a.writer == nil {
		reply := "I'd be happy to help you with: " + message
		if facts != "" {
			reply += "\n\n" + facts
		}
		return reply, nil
	}

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "Customer name: %s\n", name)
	}
	b.WriteString("Customer message: " + message)
	if facts != "" {
		b.WriteString("\n\n[Context]\n" + facts)
	}
	return a.writer.Complete(ctx, b.String())
}

// products lists catalogue entries, optionally filtered by "title".
func (a *Agent) products(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	if a.client == nil {
		return contractx.Output{"products": []map[string]any{}, "source": "mock"}, nil
	}
	products, err := a.client.Products(ctx, in.String("title"), in.IntOr("limit", 10))
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(products))
	for _, p := range products {
		item := map[string]any{"id": p.ID, "title": p.Title}
		if len(p.Variants) > 0 {
			item["price"] = p.Variants[0].Price
			item["inventory"] = p.Variants[0].InventoryQuantity
		}
		out = append(out, item)
	}
	return contractx.Output{"products": out, "source": "shopify"}, nil
}
