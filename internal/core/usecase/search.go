package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/docvault/docvault/internal/core/domain"
	"github.com/docvault/docvault/internal/core/ports"
)

// SearchUseCase embeds the query, fetches an over-provisioned candidate set
// and re-ranks it by importance-weighted similarity.
type SearchUseCase struct {
	embedder        ports.Embedder
	embeddings      ports.EmbeddingRepository
	docs            ports.DocumentRepository
	policy          RankingPolicy
	defaultLimit    int
	defaultMinScore float64
}

func NewSearchUseCase(
	embedder ports.Embedder,
	embeddings ports.EmbeddingRepository,
	docs ports.DocumentRepository,
	policy RankingPolicy,
	defaultLimit int,
	defaultMinScore float64,
) *SearchUseCase {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if defaultMinScore <= 0 {
		defaultMinScore = 0.65
	}
	return &SearchUseCase{
		embedder:        embedder,
		embeddings:      embeddings,
		docs:            docs,
		policy:          policy,
		defaultLimit:    defaultLimit,
		defaultMinScore: defaultMinScore,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query is empty"))
	}
	if req.OwnerID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("owner id is required"))
	}
	limit := req.Limit
	if limit <= 0 {
		limit = uc.defaultLimit
	}
	minScore := req.MinScore
	if minScore <= 0 {
		minScore = uc.defaultMinScore
	}

	vector, err := uc.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	// Fetch twice the limit so type filtering and re-ranking have slack.
	matches, err := uc.embeddings.Match(ctx, vector, minScore, 2*limit, req.OwnerID)
	if err != nil {
		return nil, err
	}
	matches = filterByType(matches, req.DocumentType)

	results := make([]domain.SearchResult, 0, len(matches))
	for _, m := range matches {
		importance := domain.ChunkImportance(m.Metadata.Importance)
		if importance != domain.ImportanceHigh && importance != domain.ImportanceLow {
			importance = domain.ImportanceMedium
		}
		results = append(results, domain.SearchResult{
			DocumentID: m.DocumentID,
			ChunkText:  m.ChunkText,
			ChunkIndex: m.ChunkIndex,
			Importance: importance,
			Similarity: m.Similarity,
			Score:      m.Similarity * uc.policy.WeightFor(importance),
		})
	}

	// Stable: candidates arrive ordered by similarity, so equal weighted
	// scores keep that order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	if err := uc.attachDocuments(ctx, results); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "search_completed",
		"owner_id", req.OwnerID,
		"candidates", len(matches),
		"results", len(results),
	)
	return results, nil
}

// filterByType drops candidates from other document types, unless that would
// empty the set entirely; a wrong-type answer beats no answer.
func filterByType(matches []domain.SearchMatch, documentType string) []domain.SearchMatch {
	if documentType == "" {
		return matches
	}
	filtered := make([]domain.SearchMatch, 0, len(matches))
	for _, m := range matches {
		if m.Metadata.DocumentType == documentType {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) == 0 {
		return matches
	}
	return filtered
}

func (uc *SearchUseCase) attachDocuments(ctx context.Context, results []domain.SearchResult) error {
	if len(results) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(results))
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.DocumentID]; ok {
			continue
		}
		seen[r.DocumentID] = struct{}{}
		ids = append(ids, r.DocumentID)
	}

	docs, err := uc.docs.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range results {
		results[i].Document = docs[results[i].DocumentID]
	}
	return nil
}
