package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RankingConfig controls importance tagging and query-time re-weighting.
// The zero value is unusable; start from DefaultRanking.
type RankingConfig struct {
	Weights struct {
		High   float64 `yaml:"high"`
		Medium float64 `yaml:"medium"`
		Low    float64 `yaml:"low"`
	} `yaml:"weights"`
	HighImportanceKeywords []string `yaml:"high_importance_keywords"`
	LeadingHighChunks      int      `yaml:"leading_high_chunks"`
	TrailingLowChunks      int      `yaml:"trailing_low_chunks"`
}

func DefaultRanking() RankingConfig {
	var r RankingConfig
	r.Weights.High = 1.5
	r.Weights.Medium = 1.0
	r.Weights.Low = 0.7
	r.HighImportanceKeywords = []string{"totals", "summary", "conclusion", "agreement", "important"}
	r.LeadingHighChunks = 2
	r.TrailingLowChunks = 2
	return r
}

// LoadRanking overlays a YAML file on top of the defaults. An empty path
// returns the defaults unchanged.
func LoadRanking(path string) (RankingConfig, error) {
	r := DefaultRanking()
	if path == "" {
		return r, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("read ranking config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("parse ranking config: %w", err)
	}
	if r.Weights.High <= 0 || r.Weights.Medium <= 0 || r.Weights.Low <= 0 {
		return r, fmt.Errorf("ranking config: weights must be positive")
	}
	return r, nil
}

func (r RankingConfig) WeightFor(importance string) float64 {
	switch importance {
	case "high":
		return r.Weights.High
	case "low":
		return r.Weights.Low
	default:
		return r.Weights.Medium
	}
}
