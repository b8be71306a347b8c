package aiusage

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceTable maps model identifiers to their price per 1,000 tokens (USD).
// Prices are read at event-write time only; changing a price never rewrites
// recorded costs.
type PriceTable struct {
	prices   map[string]decimal.Decimal
	fallback decimal.Decimal
}

// NewPriceTable creates a price table from a model -> price-per-1K map.
// The fallback price is used for models not present in the table.
func NewPriceTable(prices map[string]decimal.Decimal, fallback decimal.Decimal) *PriceTable {
	copied := make(map[string]decimal.Decimal, len(prices))
	for model, price := range prices {
		copied[model] = price
	}
	return &PriceTable{prices: copied, fallback: fallback}
}

// DefaultPriceTable returns the built-in pricing for the models the product ships with
func DefaultPriceTable() *PriceTable {
	return NewPriceTable(map[string]decimal.Decimal{
		"gpt-4o":            decimal.RequireFromString("0.0075"),
		"gpt-4o-mini":       decimal.RequireFromString("0.000375"),
		"gpt-4-turbo":       decimal.RequireFromString("0.02"),
		"gpt-3.5-turbo":     decimal.RequireFromString("0.001"),
		"claude-3-opus":     decimal.RequireFromString("0.045"),
		"claude-3-5-sonnet": decimal.RequireFromString("0.009"),
		"claude-3-haiku":    decimal.RequireFromString("0.00075"),
	}, decimal.RequireFromString("0.01"))
}

// PricePer1K returns the price per 1,000 tokens for the given model,
// falling back to the conservative default price for unknown models
func (t *PriceTable) PricePer1K(model string) decimal.Decimal {
	if price, ok := t.prices[model]; ok {
		return price
	}
	return t.fallback
}

// Known returns true if the model has an explicit price entry
func (t *PriceTable) Known(model string) bool {
	_, ok := t.prices[model]
	return ok
}

// Cost computes the cost of a single invocation:
// (inputTokens + outputTokens) x price_per_1k / 1000
func (t *PriceTable) Cost(model string, inputTokens, outputTokens int64) decimal.Decimal {
	totalTokens := decimal.NewFromInt(inputTokens + outputTokens)
	return totalTokens.Mul(t.PricePer1K(model)).Div(decimal.NewFromInt(1000))
}

// Models returns all explicitly priced models, sorted by name
func (t *PriceTable) Models() []string {
	models := make([]string, 0, len(t.prices))
	for model := range t.prices {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// CheaperAlternatives returns all priced models strictly cheaper than the
// given model, sorted from cheapest to most expensive
func (t *PriceTable) CheaperAlternatives(model string) []string {
	price := t.PricePer1K(model)
	alternatives := make([]string, 0)
	for candidate, candidatePrice := range t.prices {
		if candidate != model && candidatePrice.LessThan(price) {
			alternatives = append(alternatives, candidate)
		}
	}
	sort.Slice(alternatives, func(i, j int) bool {
		return t.prices[alternatives[i]].LessThan(t.prices[alternatives[j]])
	})
	return alternatives
}

// ModelFamily returns the vendor family a model belongs to, e.g. "gpt" or
// "claude". Substitutions within a family are considered lower risk than
// cross-family ones.
func ModelFamily(model string) string {
	if idx := strings.IndexByte(model, '-'); idx > 0 {
		return model[:idx]
	}
	return model
}
