package forecast

import (
	"math"
	"strings"
)

type Forecast struct {
	Days         int
	Daily        []float64
	Total        float64
	AverageDaily float64
	Method       string
	Trend        string
	Confidence   string
	Notes        string
}

func (f Forecast) toMap() map[string]any {
	out := map[string]any{
		"days":          f.Days,
		"daily":         f.Daily,
		"total":         f.Total,
		"average_daily": f.AverageDaily,
		"method":        f.Method,
		"trend":         f.Trend,
		"confidence":    f.Confidence,
	}
	if f.Notes != "" {
		out["notes"] = f.Notes
	}
	return out
}

// SimpleAverage projects the mean of the last seven points (or all points
// when fewer) flat across days.
func SimpleAverage(history []float64, days int) Forecast {
	recent := history
	if len(recent) > window {
		recent = recent[len(recent)-window:]
	}

	var sum float64
	for _, v := range recent {
		sum += v
	}
	avg := round2(sum / float64(len(recent)))

	daily := make([]float64, days)
	for i := range daily {
		daily[i] = avg
	}
	return newForecast(daily, MethodSimpleAverage, trendOf(history), "low", "")
}

func newForecast(daily []float64, method, trend, confidence, notes string) Forecast {
	var total float64
	for _, v := range daily {
		total += v
	}
	avg := 0.0
	if len(daily) > 0 {
		avg = total / float64(len(daily))
	}
	if confidence == "" {
		confidence = "medium"
	}
	return Forecast{
		Days:         len(daily),
		Daily:        daily,
		Total:        round2(total),
		AverageDaily: round2(avg),
		Method:       method,
		Trend:        trend,
		Confidence:   confidence,
		Notes:        notes,
	}
}

// trendOf compares the mean of the older half with the newer half; a change
// under five percent counts as stable.
func trendOf(history []float64) string {
	if len(history) < 4 {
		return "stable"
	}
	mid := len(history) / 2
	older, newer := mean(history[:mid]), mean(history[mid:])
	if older == 0 {
		if newer > 0 {
			return "increasing"
		}
		return "stable"
	}
	change := (newer - older) / older
	switch {
	case change > 0.05:
		return "increasing"
	case change < -0.05:
		return "decreasing"
	default:
		return "stable"
	}
}

func normalizeTrend(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "increasing", "up":
		return "increasing"
	case "decreasing", "down":
		return "decreasing"
	default:
		return "stable"
	}
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var s float64
	for _, v := range vs {
		s += v
	}
	return s / float64(len(vs))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
