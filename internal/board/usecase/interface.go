package usecase

import (
	"context"
	"time"

	boarddomain "mailboard-backend/internal/board/domain"
	"mailboard-backend/pkg/ai"
)

// EventService defines interface for sending notifications
type EventService interface {
	SendToUser(userID string, eventType string, payload interface{})
}

// ScoredEmail is one search hit with its merged ranking score, 0..1,
// higher is better.
type ScoredEmail struct {
	Email  *boarddomain.CachedEmail `json:"email"`
	Score  float64                  `json:"score"`
	Source string                   `json:"source"` // "semantic" or "fuzzy"
}

// Suggestion is one auto-complete candidate.
type Suggestion struct {
	Type  string `json:"type"` // "contact", "subject" or "keyword"
	Text  string `json:"text"`
	Value string `json:"value"`
}

// BoardUsecase is the board sync, search and mutation surface.
type BoardUsecase interface {
	// GetBoardPage assembles one cursor-based page of the whole board,
	// pulling remote pages for columns short on cached items.
	GetBoardPage(ctx context.Context, userID, pageToken string, pageSize int) (*boarddomain.BoardPage, error)

	// GetColumns returns the user's columns, seeding the starter set on
	// first access.
	GetColumns(userID string) ([]*boarddomain.KanbanColumn, error)
	// ReplaceColumns swaps the user's column set wholesale, migrating
	// items out of deleted columns.
	ReplaceColumns(userID string, columns []*boarddomain.KanbanColumn) ([]*boarddomain.KanbanColumn, error)

	// MoveToColumn commits a local status move and, when remoteLabel is
	// supplied, mirrors it to the remote mailbox. A nil remoteLabel
	// skips remote sync; the empty string means archive.
	MoveToColumn(ctx context.Context, userID, messageID, columnID string, remoteLabel *string) (*boarddomain.CachedEmail, error)
	SnoozeEmail(userID, messageID string, until time.Time) (*boarddomain.CachedEmail, error)
	UnsnoozeEmail(userID, messageID string) (*boarddomain.CachedEmail, error)
	MarkRead(ctx context.Context, userID, messageID string) (*boarddomain.CachedEmail, error)
	MarkUnread(ctx context.Context, userID, messageID string) (*boarddomain.CachedEmail, error)

	SearchFuzzy(userID, query string, limit int) ([]*ScoredEmail, error)
	SearchSemantic(ctx context.Context, userID, query string, limit int) ([]*ScoredEmail, error)
	// SearchEmails merges semantic and fuzzy hits into one ranking.
	SearchEmails(ctx context.Context, userID, query string, limit int) ([]*ScoredEmail, error)
	GetSearchSuggestions(userID, partialText string, limit int) ([]*Suggestion, error)

	// SummarizeEmail returns a summary, served from cache while fresh.
	SummarizeEmail(ctx context.Context, userID, messageID string) (string, error)
	// QueueSummaries schedules background summarization for messages.
	QueueSummaries(userID string, messageIDs []string)

	// DiffRemoteHistory lists the remote history since a known mark and
	// returns the normalized changes plus the new mark.
	DiffRemoteHistory(ctx context.Context, userID string, sinceHistoryID uint64) ([]*boarddomain.RemoteChange, uint64, error)
	// ApplyRemoteChanges folds a push-notification history diff into the
	// cache and vector index.
	ApplyRemoteChanges(userID string, changes []*boarddomain.RemoteChange) error
	// WatchMailbox (re)registers the push-notification watch.
	WatchMailbox(ctx context.Context, userID string) error

	// WakeDueSnoozes restores every snoozed item across users whose wake
	// time has passed. Returns the number of items restored.
	WakeDueSnoozes() (int, error)

	SetEventService(svc EventService)
	SetAIService(svc ai.SummarizerService)
	SetVectorIndex(idx boarddomain.VectorIndex)
}
