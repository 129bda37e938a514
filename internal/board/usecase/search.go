package usecase

import (
	"context"
	"log"
	"sort"

	boarddomain "mailboard-backend/internal/board/domain"
	"mailboard-backend/pkg/fuzzy"

	pkgerrors "github.com/pkg/errors"
)

// Semantic similarity thresholds. The retry threshold keeps a weak
// match from being silently dropped when nothing clears the primary.
const (
	semanticPrimaryThreshold = 0.5
	semanticRetryThreshold   = 0.3
)

// Fuzzy-only hits are remapped into this band of the combined 0..1
// ranking, below high-confidence semantic hits but above weak ones.
const (
	fuzzyBandFloor = 0.35
	fuzzyBandWidth = 0.4
)

// SearchFuzzy scores a bounded recent window of cached items. The
// returned score is already on the combined higher-is-better scale.
func (u *boardUsecase) SearchFuzzy(userID, query string, limit int) ([]*ScoredEmail, error) {
	if query == "" {
		return nil, pkgerrors.Wrap(boarddomain.ErrInvalidInput, "search query must not be empty")
	}
	if limit <= 0 {
		limit = 20
	}

	window, err := u.cachedRepo.ListRecent(userID, u.config.FuzzySearchWindow)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load search window")
	}

	type rawHit struct {
		email *boarddomain.CachedEmail
		score float64
	}

	hits := make([]rawHit, 0, limit)
	for _, item := range window {
		score, matched := fuzzy.ScoreFields(query, []fuzzy.Field{
			{Text: item.Subject, Weight: 0.4},
			{Text: item.FromName, Weight: 0.25},
			{Text: item.FromEmail, Weight: 0.2},
			{Text: item.Snippet, Weight: 0.1},
			{Text: item.Summary, Weight: 0.05},
		})
		if !matched {
			continue
		}
		hits = append(hits, rawHit{email: item, score: score})
	}

	// Internal fuzzy score is lower-is-better.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score < hits[j].score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]*ScoredEmail, 0, len(hits))
	for _, hit := range hits {
		results = append(results, &ScoredEmail{
			Email:  hit.email,
			Score:  remapFuzzyScore(hit.score),
			Source: "fuzzy",
		})
	}
	return results, nil
}

// remapFuzzyScore converts the internal lower-is-better fuzzy score
// onto the combined scale, clamped into the middle band.
func remapFuzzyScore(score float64) float64 {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return fuzzyBandFloor + fuzzyBandWidth*(1-score)
}

// SearchSemantic queries the vector index, retrying once at a lower
// threshold before giving up. Hits are re-fetched from the cache so
// mutable fields are current.
func (u *boardUsecase) SearchSemantic(ctx context.Context, userID, query string, limit int) ([]*ScoredEmail, error) {
	if query == "" {
		return nil, pkgerrors.Wrap(boarddomain.ErrInvalidInput, "search query must not be empty")
	}
	if u.vectorIndex == nil {
		return nil, pkgerrors.Wrap(boarddomain.ErrUpstream, "vector index not configured")
	}
	if limit <= 0 {
		limit = 20
	}

	hits, err := u.vectorIndex.SearchSimilar(ctx, userID, query, limit, semanticPrimaryThreshold)
	if err != nil {
		return nil, pkgerrors.Wrap(boarddomain.ErrUpstream, err.Error())
	}
	if len(hits) == 0 {
		hits, err = u.vectorIndex.SearchSimilar(ctx, userID, query, limit, semanticRetryThreshold)
		if err != nil {
			return nil, pkgerrors.Wrap(boarddomain.ErrUpstream, err.Error())
		}
	}

	results := make([]*ScoredEmail, 0, len(hits))
	for _, hit := range hits {
		item, err := u.cachedRepo.GetByMessageID(userID, hit.MessageID)
		if err != nil {
			log.Printf("[Search] Failed to enrich hit %s: %v", hit.MessageID, err)
			continue
		}
		if item == nil {
			// Indexed but no longer cached, stale vector entry.
			continue
		}
		results = append(results, &ScoredEmail{
			Email:  item,
			Score:  hit.Score,
			Source: "semantic",
		})
	}
	return results, nil
}

// SearchEmails merges semantic and fuzzy hits into one descending
// ranking. Semantic hits win on duplicates; a semantic failure falls
// back to fuzzy results alone.
func (u *boardUsecase) SearchEmails(ctx context.Context, userID, query string, limit int) ([]*ScoredEmail, error) {
	if limit <= 0 {
		limit = 20
	}

	fuzzyHits, err := u.SearchFuzzy(userID, query, limit)
	if err != nil {
		return nil, err
	}

	semanticHits, err := u.SearchSemantic(ctx, userID, query, limit)
	if err != nil {
		log.Printf("[Search] Semantic search failed, falling back to fuzzy: %v", err)
		return fuzzyHits, nil
	}

	seen := make(map[string]struct{}, len(semanticHits))
	merged := make([]*ScoredEmail, 0, len(semanticHits)+len(fuzzyHits))
	for _, hit := range semanticHits {
		seen[hit.Email.MessageID] = struct{}{}
		merged = append(merged, hit)
	}
	for _, hit := range fuzzyHits {
		if _, dup := seen[hit.Email.MessageID]; dup {
			continue
		}
		merged = append(merged, hit)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}
