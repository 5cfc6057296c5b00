package f5ai

import (
	"slices"
	"strings"
)

// Family is the closed set of model families the normalizer distinguishes.
type Family int

const (
	FamilyOther Family = iota
	FamilyOSeries
	FamilyGPT
	FamilyLegacyCompletion
	FamilyEmbedding
)

func (f Family) String() string {
	switch f {
	case FamilyOSeries:
		return "o-series"
	case FamilyGPT:
		return "gpt"
	case FamilyLegacyCompletion:
		return "legacy-completion"
	case FamilyEmbedding:
		return "embedding"
	default:
		return "other"
	}
}

// nonChatModels only speak the prompt-in/text-out completions endpoint.
var nonChatModels = []string{
	"text-davinci-002",
	"text-davinci-003",
	"code-davinci-002",
	"text-ada-001",
	"text-babbage-001",
	"text-curie-001",
	"davinci",
	"curie",
	"babbage",
	"ada",
}

// chatOnlyModels never take the legacy completions route.
var chatOnlyModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"o1",
	"o1-mini",
	"o3-mini",
}

// predictionModels accept the prediction hint. Matching is by substring so
// dated snapshots like gpt-4o-2024-08-06 qualify.
var predictionModels = []string{"gpt-4o-mini", "gpt-4o"}

// Classify returns the family of model.
func Classify(model string) Family {
	switch {
	case slices.Contains(nonChatModels, model):
		return FamilyLegacyCompletion
	case strings.HasPrefix(model, "text-embedding"):
		return FamilyEmbedding
	case strings.HasPrefix(model, "gpt"):
		return FamilyGPT
	case isOSeries(model):
		return FamilyOSeries
	default:
		return FamilyOther
	}
}

// isOSeries matches "o" and "o<digit>..." (o1, o3-mini, o4-mini).
// Names like "openchat" are not o-series.
func isOSeries(model string) bool {
	if model == "o" {
		return true
	}
	return len(model) >= 2 && model[0] == 'o' && model[1] >= '0' && model[1] <= '9'
}

// isReasoningModel matches the o1, o3 and o4 lines.
func isReasoningModel(model string) bool {
	return strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4")
}

func isChatOnly(model string) bool {
	return slices.Contains(chatOnlyModels, model)
}

func supportsPrediction(model string) bool {
	for _, m := range predictionModels {
		if strings.Contains(model, m) {
			return true
		}
	}
	return false
}
