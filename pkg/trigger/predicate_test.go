package trigger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solcron/solcron-go/pkg/types"
)

func feedFrom(values map[string]float64) Feed {
	feed := Feed{}
	for k, v := range values {
		feed[k] = decimal.NewFromFloat(v)
	}
	return feed
}

func TestEvaluateExpression(t *testing.T) {
	feed := feedFrom(map[string]float64{
		"price":  92.5,
		"volume": 4,
	})

	tests := []struct {
		name       string
		expression string
		expected   string
	}{
		{"single variable", "price", "92.5"},
		{"constant expression", "2 + 3 * 4", "14"},
		{"variable plus constant", "price + 10", "102.5"},
		{"two variables", "price * volume", "370"},
		{"left to right", "price - 2.5 / 2", "45"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			value, err := EvaluateExpression(tc.expression, feed)
			require.NoError(t, err)

			expected, err := decimal.NewFromString(tc.expected)
			require.NoError(t, err)
			assert.True(t, expected.Equal(value), "expected %s, got %s", expected, value)
		})
	}

	t.Run("unknown variable", func(t *testing.T) {
		_, err := EvaluateExpression("price + missing", feed)
		assert.Error(t, err)
	})
}

func TestEvaluatePredicate(t *testing.T) {
	feed := feedFrom(map[string]float64{"price": 92.25})

	tests := []struct {
		name      string
		operator  string
		threshold string
		holds     bool
	}{
		{"less than, holds", "<", "95.5", true},
		{"less than, fails", "<", "90", false},
		{"greater than, fails", ">", "95.5", false},
		{"greater or equal at boundary", ">=", "92.25", true},
		{"less or equal at boundary", "<=", "92.25", true},
		{"equal", "==", "92.25", true},
		{"equal, fails", "==", "92.26", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			holds, err := EvaluatePredicate(types.PredicateCondition{
				Expression: "price",
				Operator:   tc.operator,
				Threshold:  tc.threshold,
			}, feed)
			require.NoError(t, err)
			assert.Equal(t, tc.holds, holds)
		})
	}

	t.Run("bad threshold", func(t *testing.T) {
		_, err := EvaluatePredicate(types.PredicateCondition{
			Expression: "price", Operator: "<", Threshold: "not a number",
		}, feed)
		assert.Error(t, err)
	})

	t.Run("unknown operator", func(t *testing.T) {
		_, err := EvaluatePredicate(types.PredicateCondition{
			Expression: "price", Operator: "!=", Threshold: "1",
		}, feed)
		assert.Error(t, err)
	})
}
