// Package report builds production reports from cake orders or a demand
// forecast. Everything is computed locally.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tanpawarit/agent-teams/agent/base"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatHTML = "html"

	defaultBuffer  = 10
	defaultPeriod  = 7 * 24 * time.Hour
	historyLimit   = 100
	detailLimit    = 20
	dateLayout     = "2006-01-02"
	forecastedItem = "Daily production"
)

type Config struct {
	Name string
	// BufferPercent is added on top of ordered quantities. Nil means 10;
	// zero or negative disables it.
	BufferPercent *int
	// UnitCosts and UnitPrices are keyed by product, case-insensitively.
	UnitCosts      map[string]float64
	UnitPrices     map[string]float64
	Format         string
	IncludeDetails bool
	// OutputDir, when set, receives one report file per run.
	OutputDir string
	LogLevel  string
}

type Agent struct {
	*base.Agent

	cfg    Config
	buffer int
	costs  map[string]float64
	prices map[string]float64
	now    func() time.Time
}

var _ contractx.Agent = (*Agent)(nil)

type Order struct {
	CakeType  string
	Quantity  int
	OrderDate string
}

// Line is one product row of a report.
type Line struct {
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	Cost     float64 `json:"cost"`
	Revenue  float64 `json:"revenue"`
	Margin   float64 `json:"margin"`
}

func New(cfg Config) *Agent {
	if cfg.Name == "" {
		cfg.Name = "production_report"
	}
	buffer := defaultBuffer
	if cfg.BufferPercent != nil {
		buffer = max(*cfg.BufferPercent, 0)
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if cfg.Format == "" {
		cfg.Format = FormatText
	}

	a := &Agent{
		cfg:    cfg,
		buffer: buffer,
		costs:  foldKeys(cfg.UnitCosts),
		prices: foldKeys(cfg.UnitPrices),
		now:    time.Now,
	}
	a.Agent = base.New(cfg.Name, base.WithLogLevel(logx.ParseLevel(cfg.LogLevel)))
	return a
}

// Execute reports on "orders" ([{cake_type, quantity, order_date}]). With no
// orders it plans from an exported "forecast" (average_daily).
func (a *Agent) Execute(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}

	end := a.now().UTC()
	if d, ok := parseDate(in.String("end_date")); ok {
		end = d
	}
	start := end.Add(-defaultPeriod)
	if last, ok := a.Get("last_report_date"); ok {
		if d, ok := parseDate(fmt.Sprint(last)); ok {
			start = d
		}
	}
	if d, ok := parseDate(in.String("start_date")); ok {
		start = d
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: start_date %s is after end_date %s", contractx.ErrValidation, start.Format(dateLayout), end.Format(dateLayout))
	}

	orders, source, err := collect(in)
	if err != nil {
		return nil, err
	}

	production := a.applyBuffer(Aggregate(orders))
	lines := a.price(production)
	total, cost, revenue := totals(lines)

	text, err := a.render(lines, orders, start, end, total)
	if err != nil {
		return nil, err
	}

	out := contractx.Output{
		"date":         a.now().UTC().Format(time.RFC3339),
		"period_start": start.Format(dateLayout),
		"period_end":   end.Format(dateLayout),
		"total_orders": len(orders),
		"total_cakes":  total,
		"production":   production,
		"lines":        lines,
		"cost":         round2(cost),
		"revenue":      round2(revenue),
		"margin":       round2(revenue - cost),
		"source":       source,
		"report_text":  text,
	}

	if a.cfg.OutputDir != "" {
		path, err := a.save(text, end)
		if err != nil {
			return nil, err
		}
		out["report_file"] = path
	}

	a.remember(end, len(orders), total)
	a.Event(logx.LevelInfo).Int("cakes", total).Int("orders", len(orders)).Msg("production report generated")
	return out, nil
}

func collect(in contractx.Input) ([]Order, string, error) {
	if raw := in.Slice("orders"); len(raw) > 0 {
		orders := make([]Order, 0, len(raw))
		for i, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, "", fmt.Errorf("%w: orders[%d] is not an object", contractx.ErrValidation, i)
			}
			o := contractx.Input(m)
			qty := o.IntOr("quantity", 1)
			if qty < 0 {
				return nil, "", fmt.Errorf("%w: orders[%d] has negative quantity", contractx.ErrValidation, i)
			}
			orders = append(orders, Order{
				CakeType:  o.StringOr("cake_type", o.StringOr("product", "Unknown")),
				Quantity:  qty,
				OrderDate: o.String("order_date"),
			})
		}
		return orders, "orders", nil
	}

	if fc := in.Map("forecast"); fc != nil {
		avg, ok := contractx.Number(fc["average_daily"])
		if !ok {
			return nil, "", fmt.Errorf("%w: forecast has no average_daily", contractx.ErrValidation)
		}
		product := in.StringOr("product", forecastedItem)
		return []Order{{CakeType: product, Quantity: int(math.Ceil(avg))}}, "forecast", nil
	}

	return nil, "empty", nil
}

// Aggregate sums quantities per cake type.
func Aggregate(orders []Order) map[string]int {
	out := make(map[string]int, len(orders))
	for _, o := range orders {
		out[o.CakeType] += o.Quantity
	}
	return out
}

func (a *Agent) applyBuffer(production map[string]int) map[string]int {
	if a.buffer <= 0 {
		return production
	}
	out := make(map[string]int, len(production))
	for k, q := range production {
		out[k] = q + q*a.buffer/100
	}
	return out
}

// foldKeys lower-cases product keys; team files reach us with keys already
// folded, order input keeps its original casing.
func foldKeys(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

// price orders lines by quantity, largest first, then by name.
func (a *Agent) price(production map[string]int) []Line {
	lines := make([]Line, 0, len(production))
	for product, qty := range production {
		key := strings.ToLower(strings.TrimSpace(product))
		cost := a.costs[key] * float64(qty)
		revenue := a.prices[key] * float64(qty)
		lines = append(lines, Line{
			Product:  product,
			Quantity: qty,
			Cost:     round2(cost),
			Revenue:  round2(revenue),
			Margin:   round2(revenue - cost),
		})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Quantity != lines[j].Quantity {
			return lines[i].Quantity > lines[j].Quantity
		}
		return lines[i].Product < lines[j].Product
	})
	return lines
}

func totals(lines []Line) (qty int, cost, revenue float64) {
	for _, l := range lines {
		qty += l.Quantity
		cost += l.Cost
		revenue += l.Revenue
	}
	return qty, cost, revenue
}

func (a *Agent) render(lines []Line, orders []Order, start, end time.Time, total int) (string, error) {
	switch a.cfg.Format {
	case FormatHTML:
		return a.renderHTML(lines, orders, start, end, total)
	case FormatJSON:
		raw, err := json.MarshalIndent(map[string]any{
			"production":   lines,
			"period":       map[string]string{"start": start.Format(dateLayout), "end": end.Format(dateLayout)},
			"total_orders": len(orders),
			"total_cakes":  total,
		}, "", "  ")
		if err != nil {
			return "", fmt.Errorf("%w: render report: %v", contractx.ErrFormat, err)
		}
		return string(raw), nil
	}

	rule := strings.Repeat("=", 70)
	thin := strings.Repeat("-", 70)

	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "CAKE PRODUCTION REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Report Generated: %s\n", a.now().UTC().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Period: %s to %s\n", start.Format(dateLayout), end.Format(dateLayout))
	fmt.Fprintf(&b, "Total Orders: %d\n\n", len(orders))
	fmt.Fprintln(&b, "PRODUCTION REQUIREMENTS:")
	fmt.Fprintln(&b, thin)
	if len(lines) == 0 {
		fmt.Fprintln(&b, "No cakes to produce this period.")
	}
	for _, l := range lines {
		fmt.Fprintf(&b, "  %-40s %5d cakes\n", l.Product, l.Quantity)
	}
	fmt.Fprintln(&b, thin)
	fmt.Fprintf(&b, "TOTAL CAKES TO PRODUCE: %d cakes\n", total)
	if a.buffer > 0 {
		fmt.Fprintf(&b, "(Includes %d%% safety buffer)\n", a.buffer)
	}

	if a.cfg.IncludeDetails && len(orders) > 0 {
		fmt.Fprintln(&b, rule)
		fmt.Fprintln(&b, "ORDER DETAILS:")
		fmt.Fprintln(&b, thin)
		for i, o := range orders {
			if i == detailLimit {
				fmt.Fprintf(&b, "  ... and %d more orders\n", len(orders)-detailLimit)
				break
			}
			date := o.OrderDate
			if date == "" {
				date = "N/A"
			}
			fmt.Fprintf(&b, "  %d. %-30s x%-3d - %s\n", i+1, o.CakeType, o.Quantity, date)
		}
	}
	b.WriteString(rule)
	return b.String(), nil
}

func (a *Agent) save(text string, end time.Time) (string, error) {
	if err := os.MkdirAll(a.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create report dir: %v", contractx.ErrIO, err)
	}
	ext := ".txt"
	switch a.cfg.Format {
	case FormatJSON:
		ext = ".json"
	case FormatHTML:
		ext = ".html"
	}
	path := filepath.Join(a.cfg.OutputDir, "production_report_"+end.Format("20060102")+ext)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("%w: write report: %v", contractx.ErrIO, err)
	}
	return path, nil
}

func (a *Agent) remember(end time.Time, orders, cakes int) {
	a.Set("last_report_date", end.Format(dateLayout))

	var history []any
	if h, ok := a.Get("report_history"); ok {
		history, _ = h.([]any)
	}
	history = append(history, map[string]any{
		"date":         a.now().UTC().Format(time.RFC3339),
		"total_orders": orders,
		"total_cakes":  cakes,
	})
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	a.Set("report_history", history)
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
