package provider

import (
	"github.com/theirongolddev/bmadchat/internal/config"
	"github.com/theirongolddev/bmadchat/internal/model"
)

// Cost prices raw usage with the table. Unknown model ids are priced as
// config.DefaultModel. Negative counts pass through so the ledger can
// reject them.
func Cost(prices config.PriceTable, raw RawUsage, modelID string) model.UsageRecord {
	in, out := prices.CalculateCost(modelID, raw.PromptTokens, raw.CompletionTokens)
	return model.UsageRecord{
		PromptTokens:     raw.PromptTokens,
		CompletionTokens: raw.CompletionTokens,
		TotalTokens:      raw.PromptTokens + raw.CompletionTokens,
		InputCost:        in,
		OutputCost:       out,
		TotalCost:        in + out,
		Model:            modelID,
		Estimated:        raw.Estimated,
	}
}
