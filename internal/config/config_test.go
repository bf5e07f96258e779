package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("S3_BUCKET", "docs-test")
	os.Unsetenv("CHUNK_TARGET_TOKENS")
	os.Unsetenv("SEARCH_MIN_SCORE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChunkTargetTokens != 500 {
		t.Fatalf("expected default chunk target 500, got %d", cfg.ChunkTargetTokens)
	}
	if cfg.ChunkOverlapTokens != 200 {
		t.Fatalf("expected default chunk overlap 200, got %d", cfg.ChunkOverlapTokens)
	}
	if cfg.SearchMinScore != 0.65 {
		t.Fatalf("expected default min score 0.65, got %v", cfg.SearchMinScore)
	}
	if cfg.EmbedBatchSize != 5 {
		t.Fatalf("expected default batch size 5, got %d", cfg.EmbedBatchSize)
	}
	if cfg.NATSSubject != "documents.extract" {
		t.Fatalf("expected default subject documents.extract, got %q", cfg.NATSSubject)
	}
}

func TestLoadRejectsMissingBucket(t *testing.T) {
	t.Setenv("S3_BUCKET", "")

	_, err := Load()
	if !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("expected missing required error, got %v", err)
	}
}

func TestLoadRejectsOverlapNotBelowTarget(t *testing.T) {
	t.Setenv("S3_BUCKET", "docs-test")
	t.Setenv("CHUNK_TARGET_TOKENS", "100")
	t.Setenv("CHUNK_OVERLAP_TOKENS", "100")

	_, err := Load()
	if !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("expected overlap validation error, got %v", err)
	}
}

func TestLoadRankingDefaultsWithoutFile(t *testing.T) {
	r, err := LoadRanking("")
	if err != nil {
		t.Fatalf("load ranking: %v", err)
	}
	if r.Weights.High != 1.5 || r.Weights.Medium != 1.0 || r.Weights.Low != 0.7 {
		t.Fatalf("unexpected default weights: %+v", r.Weights)
	}
	if len(r.HighImportanceKeywords) == 0 {
		t.Fatalf("expected default keywords")
	}
}

func TestLoadRankingOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranking.yaml")
	body := "weights:\n  high: 2.0\n  medium: 1.0\n  low: 0.5\nhigh_importance_keywords:\n  - invoice\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	r, err := LoadRanking(path)
	if err != nil {
		t.Fatalf("load ranking: %v", err)
	}
	if r.Weights.High != 2.0 || r.Weights.Low != 0.5 {
		t.Fatalf("expected overlaid weights, got %+v", r.Weights)
	}
	if len(r.HighImportanceKeywords) != 1 || r.HighImportanceKeywords[0] != "invoice" {
		t.Fatalf("expected overlaid keywords, got %v", r.HighImportanceKeywords)
	}
	if r.LeadingHighChunks != 2 {
		t.Fatalf("expected default leading chunks preserved, got %d", r.LeadingHighChunks)
	}
}
