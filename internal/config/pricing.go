package config

import (
	"strings"
)

// ModelPricing holds per-1K-token prices for a model.
type ModelPricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// DefaultPricing maps model base names to their pricing.
var DefaultPricing = map[string]ModelPricing{
	"gpt-4-turbo-preview": {InputPer1K: 0.01, OutputPer1K: 0.03},
	"gpt-4-turbo":         {InputPer1K: 0.01, OutputPer1K: 0.03},
	"gpt-4":               {InputPer1K: 0.03, OutputPer1K: 0.06},
	"gpt-4-32k":           {InputPer1K: 0.06, OutputPer1K: 0.12},
	"gpt-4o":              {InputPer1K: 0.0025, OutputPer1K: 0.01},
	"gpt-4o-mini":         {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	"gpt-3.5-turbo":       {InputPer1K: 0.0005, OutputPer1K: 0.0015},
	"gpt-3.5-turbo-16k":   {InputPer1K: 0.001, OutputPer1K: 0.002},
}

// PriceTable resolves model ids to pricing. Unknown models are priced as
// DefaultModel. The zero value uses DefaultPricing.
type PriceTable struct {
	prices map[string]ModelPricing
}

// NewPriceTable builds a table from DefaultPricing with the config's
// overrides applied. An override for an unlisted model starts from the
// default model's prices.
func NewPriceTable(overrides PricingOverrides) PriceTable {
	prices := make(map[string]ModelPricing, len(DefaultPricing)+len(overrides.Overrides))
	for name, p := range DefaultPricing {
		prices[name] = p
	}
	for name, o := range overrides.Overrides {
		p, ok := prices[name]
		if !ok {
			p = DefaultPricing[DefaultModel]
		}
		if o.InputPer1K != nil {
			p.InputPer1K = *o.InputPer1K
		}
		if o.OutputPer1K != nil {
			p.OutputPer1K = *o.OutputPer1K
		}
		prices[name] = p
	}
	return PriceTable{prices: prices}
}

// table returns the prices, or DefaultPricing for a zero PriceTable.
func (t PriceTable) table() map[string]ModelPricing {
	if t.prices == nil {
		return DefaultPricing
	}
	return t.prices
}

// Models returns the known model names in no particular order.
func (t PriceTable) Models() []string {
	prices := t.table()
	out := make([]string, 0, len(prices))
	for name := range prices {
		out = append(out, name)
	}
	return out
}

// NormalizeModelName strips date and snapshot suffixes from model identifiers.
// e.g., "gpt-4-turbo-2024-04-09" -> "gpt-4-turbo", "gpt-4-0613" -> "gpt-4"
func (t PriceTable) NormalizeModelName(raw string) string {
	prices := t.table()
	candidate := raw
	// Dated snapshots carry up to three numeric segments.
	for i := 0; i < 3; i++ {
		if _, ok := prices[candidate]; ok {
			return candidate
		}
		idx := strings.LastIndex(candidate, "-")
		if idx < 0 {
			break
		}
		last := candidate[idx+1:]
		if len(last) < 2 || !isAllDigits(last) {
			break
		}
		candidate = candidate[:idx]
	}
	if _, ok := prices[candidate]; ok {
		return candidate
	}
	return raw
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Lookup returns the pricing for a model, normalizing the name first.
// The bool is false when the default model's pricing was substituted.
func (t PriceTable) Lookup(model string) (ModelPricing, bool) {
	prices := t.table()
	if p, ok := prices[t.NormalizeModelName(model)]; ok {
		return p, true
	}
	return prices[DefaultModel], false
}

// CalculateCost computes the input and output cost in USD for one call.
func (t PriceTable) CalculateCost(model string, inputTokens, outputTokens int64) (inputCost, outputCost float64) {
	pricing, _ := t.Lookup(model)
	inputCost = float64(inputTokens) / 1000 * pricing.InputPer1K
	outputCost = float64(outputTokens) / 1000 * pricing.OutputPer1K
	return inputCost, outputCost
}
