package usecase

import (
	"context"
	"testing"
	"time"

	boarddomain "mailboard-backend/internal/board/domain"
	"mailboard-backend/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) addSearchable(messageID, subject, fromName, fromEmail, snippet string, receivedAt time.Time) {
	_, _ = e.cached.Insert(&boarddomain.CachedEmail{
		UserID:     "u1",
		MessageID:  messageID,
		Subject:    subject,
		FromName:   fromName,
		FromEmail:  fromEmail,
		Snippet:    snippet,
		Status:     "inbox",
		ReceivedAt: receivedAt,
	})
}

func TestSearchFuzzyEmptyQuery(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")

	_, err := env.uc.SearchFuzzy("u1", "", 10)
	assert.ErrorIs(t, err, boarddomain.ErrInvalidInput)
}

func TestSearchFuzzyFieldWeighting(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addSearchable("subj-hit", "alpha news", "Bob", "bob@x.com", "nothing here", baseTime)
	env.addSearchable("snip-hit", "weekly digest", "Carol", "carol@x.com", "alpha news", baseTime.Add(-time.Hour))
	env.addSearchable("miss", "unrelated", "Dave", "dave@x.com", "other text", baseTime.Add(-2*time.Hour))

	results, err := env.uc.SearchFuzzy("u1", "alpha", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// A subject hit outranks the same hit on the lighter snippet field.
	assert.Equal(t, "subj-hit", results[0].Email.MessageID)
	assert.Equal(t, "snip-hit", results[1].Email.MessageID)
	assert.Equal(t, "fuzzy", results[0].Source)

	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.35)
		assert.LessOrEqual(t, r.Score, 0.75)
	}
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchFuzzyTypoTolerance(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addSearchable("m1", "quarterly report attached", "Eve", "eve@x.com", "", baseTime)

	results, err := env.uc.SearchFuzzy("u1", "reprot", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "m1", results[0].Email.MessageID)
}

func TestRemapFuzzyScoreBand(t *testing.T) {
	assert.InDelta(t, 0.75, remapFuzzyScore(0), 1e-9)
	assert.InDelta(t, 0.35, remapFuzzyScore(1), 1e-9)
	assert.InDelta(t, 0.55, remapFuzzyScore(0.5), 1e-9)
	// Out-of-range input clamps instead of escaping the band.
	assert.InDelta(t, 0.75, remapFuzzyScore(-3), 1e-9)
	assert.InDelta(t, 0.35, remapFuzzyScore(42), 1e-9)
}

func TestSearchSemanticThresholdRetry(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addCached("u1", "m1", "inbox", baseTime)

	env.vector.hitsByThreshold[semanticRetryThreshold] = []*boarddomain.VectorHit{
		{MessageID: "m1", Score: 0.42},
	}

	results, err := env.uc.SearchSemantic(context.Background(), "u1", "quarterly report", 10)
	require.NoError(t, err)

	// Nothing cleared the primary threshold so a single retry ran lower.
	assert.Equal(t, []float64{semanticPrimaryThreshold, semanticRetryThreshold}, env.vector.searchCalls)

	require.Len(t, results, 1)
	assert.Equal(t, "m1", results[0].Email.MessageID)
	assert.InDelta(t, 0.42, results[0].Score, 1e-9)
	assert.Equal(t, "semantic", results[0].Source)
	assert.Equal(t, "Subject m1", results[0].Email.Subject)
}

func TestSearchSemanticSkipsStaleHits(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addCached("u1", "cached", "inbox", baseTime)

	env.vector.hitsByThreshold[semanticPrimaryThreshold] = []*boarddomain.VectorHit{
		{MessageID: "evicted", Score: 0.9},
		{MessageID: "cached", Score: 0.7},
	}

	results, err := env.uc.SearchSemantic(context.Background(), "u1", "anything", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "cached", results[0].Email.MessageID)
}

func TestSearchSemanticWithoutIndex(t *testing.T) {
	cfg := &config.Config{BoardPageSize: 10, FuzzySearchWindow: 500, SummaryTTL: 24 * time.Hour}
	uc := NewBoardUsecase(newFakeCachedRepo(), newFakeColumnRepo(), newFakeUserRepo(), newFakeMailProvider(), cfg, "topic")

	_, err := uc.SearchSemantic(context.Background(), "u1", "query", 10)
	assert.ErrorIs(t, err, boarddomain.ErrUpstream)
}

func TestSearchEmailsMergesSemanticFirst(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addSearchable("sem", "weekly digest", "Ann", "ann@x.com", "", baseTime)
	env.addSearchable("both", "Invoice overdue", "Ben", "ben@x.com", "", baseTime.Add(-time.Hour))
	env.addSearchable("fz", "Invoice overdue again", "Cal", "cal@x.com", "", baseTime.Add(-2*time.Hour))

	env.vector.hitsByThreshold[semanticPrimaryThreshold] = []*boarddomain.VectorHit{
		{MessageID: "sem", Score: 0.9},
		{MessageID: "both", Score: 0.6},
	}

	results, err := env.uc.SearchEmails(context.Background(), "u1", "invoice", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "sem", results[0].Email.MessageID)
	assert.Equal(t, "both", results[1].Email.MessageID)
	assert.Equal(t, "fz", results[2].Email.MessageID)

	// A duplicate keeps the semantic score, not the fuzzy remap.
	assert.Equal(t, "semantic", results[1].Source)
	assert.InDelta(t, 0.6, results[1].Score, 1e-9)

	assert.Equal(t, "fuzzy", results[2].Source)
	assert.InDelta(t, 0.51, results[2].Score, 1e-9)
}

func TestSearchEmailsFallsBackOnSemanticFailure(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addSearchable("m1", "invoice overdue", "Ben", "ben@x.com", "", baseTime)

	env.vector.searchErr = assert.AnError

	results, err := env.uc.SearchEmails(context.Background(), "u1", "invoice", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "m1", results[0].Email.MessageID)
	assert.Equal(t, "fuzzy", results[0].Source)
}

func TestGetSearchSuggestions(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addSearchable("m1", "Project kickoff notes", "Alice Smith", "alice@corp.com", "project timeline attached", baseTime)
	env.addSearchable("m2", "Re: project budget", "Bob Jones", "bob@corp.com", "see projected numbers", baseTime.Add(-time.Hour))
	env.addSearchable("m3", "Lunch?", "Alice Smith", "alice@corp.com", "tomorrow at noon", baseTime.Add(-2*time.Hour))

	suggestions, err := env.uc.GetSearchSuggestions("u1", "proj", 10)
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)

	byType := make(map[string][]*Suggestion)
	for _, s := range suggestions {
		byType[s.Type] = append(byType[s.Type], s)
	}

	// No sender matches "proj"; subjects and keywords do.
	assert.Empty(t, byType["contact"])
	require.Len(t, byType["subject"], 2)
	assert.Equal(t, "Project kickoff notes", byType["subject"][0].Value)

	require.NotEmpty(t, byType["keyword"])
	// "project" appears three times across subjects and snippets,
	// beating "projected".
	assert.Equal(t, "project", byType["keyword"][0].Value)
}

func TestGetSearchSuggestionsContacts(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addSearchable("m1", "Hello", "Alice Smith", "alice@corp.com", "", baseTime)
	env.addSearchable("m2", "Hi again", "Alice Smith", "alice@corp.com", "", baseTime.Add(-time.Hour))
	env.addSearchable("m3", "Intro", "Malice Corp", "contact@malice.io", "", baseTime.Add(-2*time.Hour))

	suggestions, err := env.uc.GetSearchSuggestions("u1", "ali", 10)
	require.NoError(t, err)

	var contacts []*Suggestion
	for _, s := range suggestions {
		if s.Type == "contact" {
			contacts = append(contacts, s)
		}
	}

	// Deduped by address, prefix match ranked first.
	require.Len(t, contacts, 2)
	assert.Equal(t, "alice@corp.com", contacts[0].Value)
	assert.Equal(t, "contact@malice.io", contacts[1].Value)
}

func TestGetSearchSuggestionsEmptyInput(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")

	_, err := env.uc.GetSearchSuggestions("u1", "   ", 10)
	assert.ErrorIs(t, err, boarddomain.ErrInvalidInput)
}
