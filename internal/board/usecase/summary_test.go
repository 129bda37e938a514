package usecase

import (
	"context"
	"testing"
	"time"

	boarddomain "mailboard-backend/internal/board/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSummarizer struct {
	summary string
	err     error
	calls   int
}

func (s *fakeSummarizer) SummarizeEmail(ctx context.Context, emailText string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.summary, nil
}

func TestSummarizeEmailServesFreshCache(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")

	item := env.addCached("u1", "m1", "inbox", baseTime)
	item.Summary = "cached summary"
	generated := time.Now().Add(-time.Hour)
	item.LastSummarizedAt = &generated
	require.NoError(t, env.cached.Update(item))

	ai := &fakeSummarizer{summary: "fresh summary"}
	env.uc.SetAIService(ai)

	summary, err := env.uc.SummarizeEmail(context.Background(), "u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, "cached summary", summary)
	assert.Zero(t, ai.calls)
}

func TestSummarizeEmailRegeneratesStale(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")

	item := env.addCached("u1", "m1", "inbox", baseTime)
	item.Summary = "old summary"
	generated := time.Now().Add(-48 * time.Hour)
	item.LastSummarizedAt = &generated
	require.NoError(t, env.cached.Update(item))
	env.provider.messages["m1"] = &boarddomain.RemoteMessage{ID: "m1", Body: "full body text"}

	ai := &fakeSummarizer{summary: "new summary"}
	env.uc.SetAIService(ai)

	summary, err := env.uc.SummarizeEmail(context.Background(), "u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, "new summary", summary)
	assert.Equal(t, 1, ai.calls)

	stored, _ := env.cached.GetByMessageID("u1", "m1")
	assert.Equal(t, "new summary", stored.Summary)
	require.NotNil(t, stored.LastSummarizedAt)
}

func TestSummarizeEmailFallsBackToSnippet(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addCached("u1", "m1", "inbox", baseTime)

	// Body fetch fails; the cached snippet still gets summarized.
	env.provider.getErr = assert.AnError

	ai := &fakeSummarizer{summary: "snippet summary"}
	env.uc.SetAIService(ai)

	summary, err := env.uc.SummarizeEmail(context.Background(), "u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, "snippet summary", summary)
}

func TestSummarizeEmailWithoutAIService(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addCached("u1", "m1", "inbox", baseTime)

	_, err := env.uc.SummarizeEmail(context.Background(), "u1", "m1")
	assert.ErrorIs(t, err, boarddomain.ErrUpstream)
}

func TestSummarizeEmailUnknownMessage(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")

	_, err := env.uc.SummarizeEmail(context.Background(), "u1", "ghost")
	assert.ErrorIs(t, err, boarddomain.ErrNotFound)
}
