package tool

import (
	"fmt"
	"math"
	"strings"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

type unitKind int

const (
	mass unitKind = iota
	volume
)

type unit struct {
	kind unitKind
	// base is grams for mass and millilitres for volume.
	base float64
}

var units = map[string]unit{
	"g":    {mass, 1},
	"kg":   {mass, 1000},
	"oz":   {mass, 28.3495},
	"lb":   {mass, 453.592},
	"ml":   {volume, 1},
	"l":    {volume, 1000},
	"tsp":  {volume, 4.92892},
	"tbsp": {volume, 14.7868},
	"cup":  {volume, 236.588},
}

var unitAliases = map[string]string{
	"gram": "g", "grams": "g",
	"kilogram": "kg", "kilograms": "kg",
	"ounce": "oz", "ounces": "oz",
	"pound": "lb", "pounds": "lb", "lbs": "lb",
	"milliliter": "ml", "milliliters": "ml", "millilitre": "ml",
	"liter": "l", "liters": "l", "litre": "l",
	"teaspoon": "tsp", "teaspoons": "tsp",
	"tablespoon": "tbsp", "tablespoons": "tbsp",
	"cups": "cup",
}

type Conversion struct {
	Value float64 `json:"value"`
	From  string  `json:"from"`
	To    string  `json:"to"`
	// Result is rounded to two decimals.
	Result float64 `json:"result"`
}

func executeUnitTool(tool string, args map[string]any) (contractx.ToolResult, error) {
	value, err := numberArg(args, "value")
	if err != nil {
		return failed(tool, err), nil
	}
	from, err := stringArg(args, "from")
	if err != nil {
		return failed(tool, err), nil
	}
	to, err := stringArg(args, "to")
	if err != nil {
		return failed(tool, err), nil
	}

	result, err := Convert(value, from, to)
	if err != nil {
		return failed(tool, err), nil
	}
	return contractx.ToolResult{
		Tool:   tool,
		Result: Conversion{Value: value, From: from, To: to, Result: result},
	}, nil
}

func Convert(value float64, from, to string) (float64, error) {
	src, ok := lookupUnit(from)
	if !ok {
		return 0, fmt.Errorf("unknown unit %q", from)
	}
	dst, ok := lookupUnit(to)
	if !ok {
		return 0, fmt.Errorf("unknown unit %q", to)
	}
	if src.kind != dst.kind {
		return 0, fmt.Errorf("cannot convert %s to %s", from, to)
	}
	return math.Round(value*src.base/dst.base*100) / 100, nil
}

func lookupUnit(name string) (unit, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := unitAliases[key]; ok {
		key = alias
	}
	u, ok := units[key]
	return u, ok
}
