package trigger

import (
	"github.com/Maldris/mathparse"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/solcron/solcron-go/pkg/types"
)

// Feed supplies the live variable values a predicate expression references,
// e.g. an oracle price feed keyed by symbol.
type Feed map[string]decimal.Decimal

// EvaluatePredicate computes the condition's expression over the feed and
// compares the result against the threshold. This is the off-chain half of
// conditional triggers: keepers run it to decide whether to assert
// PredicateHolds on an execution attempt.
func EvaluatePredicate(c types.PredicateCondition, feed Feed) (bool, error) {
	value, err := EvaluateExpression(c.Expression, feed)
	if err != nil {
		return false, err
	}

	threshold, err := decimal.NewFromString(c.Threshold)
	if err != nil {
		return false, errors.Wrapf(err, "invalid threshold %q", c.Threshold)
	}

	switch c.Operator {
	case ">":
		return value.GreaterThan(threshold), nil
	case ">=":
		return value.GreaterThanOrEqual(threshold), nil
	case "<":
		return value.LessThan(threshold), nil
	case "<=":
		return value.LessThanOrEqual(threshold), nil
	case "==":
		return value.Equal(threshold), nil
	default:
		return false, errors.Errorf("unknown predicate operator %q", c.Operator)
	}
}

// EvaluateExpression resolves a flat arithmetic expression over feed
// variables. Operations apply left to right.
func EvaluateExpression(expression string, feed Feed) (decimal.Decimal, error) {
	p := mathparse.NewParser(expression)
	p.Resolve()

	if p.FoundResult() {
		return decimal.NewFromFloat(p.GetValueResult()), nil
	}

	value := decimal.Zero
	action := "+"

	for _, token := range p.GetTokens() {
		switch token.Type {
		case 2, 3:
			var tVal decimal.Decimal

			if v, ok := feed[token.Value]; ok {
				tVal = v
			} else if token.Value != "" && !isNumericToken(token) {
				return decimal.Zero, errors.Errorf("unknown variable %q in expression %q", token.Value, expression)
			} else {
				tVal = decimal.NewFromFloat(token.ParseValue)
			}

			value = operate(value, tVal, action)
		case 4:
			action = token.Value
		default:
		}
	}

	return value, nil
}

func isNumericToken(token mathparse.Token) bool {
	return token.Type == 2
}

func operate(a, b decimal.Decimal, op string) decimal.Decimal {
	switch op {
	case "+":
		return a.Add(b)
	case "-":
		return a.Sub(b)
	case "*":
		return a.Mul(b)
	case "/":
		if b.IsZero() {
			return decimal.Zero
		}
		return a.Div(b)
	default:
	}

	return decimal.Zero
}
