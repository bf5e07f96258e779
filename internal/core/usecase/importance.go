package usecase

import (
	"strings"

	"github.com/docvault/docvault/internal/core/domain"
)

// RankingPolicy drives importance tagging at index time and score
// re-weighting at query time. DefaultRankingPolicy matches the shipped
// configuration defaults.
type RankingPolicy struct {
	HighWeight   float64
	MediumWeight float64
	LowWeight    float64
	Keywords     []string
	LeadingHigh  int
	TrailingLow  int
}

func DefaultRankingPolicy() RankingPolicy {
	return RankingPolicy{
		HighWeight:   1.5,
		MediumWeight: 1.0,
		LowWeight:    0.7,
		Keywords:     []string{"totals", "summary", "conclusion", "agreement", "important"},
		LeadingHigh:  2,
		TrailingLow:  2,
	}
}

func (p RankingPolicy) WeightFor(importance domain.ChunkImportance) float64 {
	switch importance {
	case domain.ImportanceHigh:
		return p.HighWeight
	case domain.ImportanceLow:
		return p.LowWeight
	default:
		return p.MediumWeight
	}
}

// TagImportance assigns a retrieval weight class to every chunk. Leading
// chunks and keyword-bearing chunks rank high, trailing chunks low, the rest
// medium. High takes precedence when rules overlap.
func TagImportance(chunks []string, policy RankingPolicy) []domain.Chunk {
	tagged := make([]domain.Chunk, len(chunks))
	for i, text := range chunks {
		importance := domain.ImportanceMedium
		switch {
		case i < policy.LeadingHigh:
			importance = domain.ImportanceHigh
		case containsKeyword(text, policy.Keywords):
			importance = domain.ImportanceHigh
		case i >= len(chunks)-policy.TrailingLow:
			importance = domain.ImportanceLow
		}
		tagged[i] = domain.Chunk{
			Index:      i,
			Text:       text,
			TokenCount: domain.ApproxTokens(text),
			Importance: importance,
		}
	}
	return tagged
}

func containsKeyword(text string, keywords []string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
