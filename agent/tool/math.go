package tool

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

// Accepts digits, whitespace, decimal points, operators, and parentheses.
var mathExpressionPattern = regexp.MustCompile(`^[\d\s\+\-\*/%\^\(\)\.]+$`)

type Evaluation struct {
	Expression string  `json:"expression"`
	Result     float64 `json:"result"`
}

func executeMathTool(tool string, args map[string]any) (contractx.ToolResult, error) {
	expression, err := stringArg(args, "expression")
	if err != nil {
		return failed(tool, err), nil
	}

	expression = strings.TrimSpace(expression)
	if err := validateMathExpression(expression); err != nil {
		return failed(tool, err), nil
	}

	result, err := Evaluate(expression)
	if err != nil {
		return failed(tool, err), nil
	}

	return contractx.ToolResult{
		Tool:   tool,
		Result: Evaluation{Expression: expression, Result: result},
	}, nil
}

func validateMathExpression(expression string) error {
	if expression == "" {
		return fmt.Errorf("expression is empty")
	}
	if !mathExpressionPattern.MatchString(expression) {
		return fmt.Errorf("expression contains invalid characters")
	}

	balance := 0
	for _, ch := range expression {
		switch ch {
		case '(':
			balance++
		case ')':
			balance--
			if balance < 0 {
				return fmt.Errorf("expression has unbalanced parentheses")
			}
		}
	}
	if balance != 0 {
		return fmt.Errorf("expression has unbalanced parentheses")
	}
	return nil
}

// Evaluate parses and computes an arithmetic expression. The recipe agent
// also uses it for scaling formulas such as "250 * 12 / 8".
func Evaluate(expression string) (float64, error) {
	tokens, err := tokenize(expression)
	if err != nil {
		return 0, err
	}
	rpn, err := toPostfix(tokens)
	if err != nil {
		return 0, err
	}
	return evalPostfix(rpn)
}

type token struct {
	op    byte // 0 for numbers
	num   float64
	unary bool
}

func tokenize(expr string) ([]token, error) {
	var out []token
	for i := 0; i < len(expr); {
		ch := expr[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n':
			i++
		case (ch >= '0' && ch <= '9') || ch == '.':
			start := i
			for i < len(expr) && ((expr[i] >= '0' && expr[i] <= '9') || expr[i] == '.') {
				i++
			}
			v, err := strconv.ParseFloat(expr[start:i], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q at position %d", expr[start:i], start)
			}
			out = append(out, token{num: v})
		default:
			t := token{op: ch}
			if ch == '+' || ch == '-' {
				// unary when nothing precedes it but an operator or "("
				t.unary = len(out) == 0 || (out[len(out)-1].op != 0 && out[len(out)-1].op != ')')
			}
			out = append(out, t)
			i++
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("expression is empty")
	}
	return out, nil
}

func precedence(t token) (prec int, rightAssoc bool) {
	if t.unary {
		return 4, true
	}
	switch t.op {
	case '^':
		return 3, true
	case '*', '/', '%':
		return 2, false
	default:
		return 1, false
	}
}

// toPostfix is a shunting-yard pass. Unary signs bind tighter than "^", so
// -2^2 is (-2)^2.
func toPostfix(tokens []token) ([]token, error) {
	out := make([]token, 0, len(tokens))
	var stack []token

	for _, t := range tokens {
		switch {
		case t.op == 0:
			out = append(out, t)
		case t.op == '(':
			stack = append(stack, t)
		case t.op == ')':
			for len(stack) > 0 && stack[len(stack)-1].op != '(' {
				out = append(out, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				return nil, fmt.Errorf("expression has unbalanced parentheses")
			}
			stack = stack[:len(stack)-1]
		default:
			p, right := precedence(t)
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				if top.op == '(' {
					break
				}
				tp, _ := precedence(top)
				if tp > p || (tp == p && !right) {
					out = append(out, top)
					stack = stack[:len(stack)-1]
					continue
				}
				break
			}
			stack = append(stack, t)
		}
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.op == '(' {
			return nil, fmt.Errorf("expression has unbalanced parentheses")
		}
		out = append(out, top)
		stack = stack[:len(stack)-1]
	}
	return out, nil
}

func evalPostfix(rpn []token) (float64, error) {
	var stack []float64
	pop := func() (float64, error) {
		if len(stack) == 0 {
			return 0, fmt.Errorf("malformed expression")
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}

	for _, t := range rpn {
		if t.op == 0 {
			stack = append(stack, t.num)
			continue
		}
		if t.unary {
			v, err := pop()
			if err != nil {
				return 0, err
			}
			if t.op == '-' {
				v = -v
			}
			stack = append(stack, v)
			continue
		}

		b, err := pop()
		if err != nil {
			return 0, err
		}
		a, err := pop()
		if err != nil {
			return 0, err
		}
		switch t.op {
		case '+':
			stack = append(stack, a+b)
		case '-':
			stack = append(stack, a-b)
		case '*':
			stack = append(stack, a*b)
		case '/':
			if b == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			stack = append(stack, a/b)
		case '%':
			if b == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			stack = append(stack, math.Mod(a, b))
		case '^':
			stack = append(stack, math.Pow(a, b))
		default:
			return 0, fmt.Errorf("unsupported operator %q", t.op)
		}
	}

	if len(stack) != 1 {
		return 0, fmt.Errorf("malformed expression")
	}
	return stack[0], nil
}
