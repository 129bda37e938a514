package dto

import (
	"time"

	boarddomain "mailboard-backend/internal/board/domain"
	"mailboard-backend/internal/board/usecase"
)

type BoardMeta struct {
	PageSize      int              `json:"page_size"`
	NextPageToken string           `json:"next_page_token,omitempty"`
	HasMore       bool             `json:"has_more"`
	Total         map[string]int64 `json:"total"`
}

type BoardResponse struct {
	Data    map[string][]*boarddomain.CachedEmail `json:"data"`
	Meta    BoardMeta                             `json:"meta"`
	Columns []*boarddomain.KanbanColumn           `json:"columns"`
}

type MoveRequest struct {
	ColumnID string `json:"column_id" binding:"required"`
	// GmailLabel distinguishes "skip remote sync" (absent) from the
	// archive value (present, empty).
	GmailLabel *string `json:"gmail_label"`
}

type SnoozeRequest struct {
	Until time.Time `json:"until" binding:"required"`
}

type ColumnRequest struct {
	ID         string  `json:"id" binding:"required"`
	Name       string  `json:"name" binding:"required"`
	GmailLabel *string `json:"gmail_label"`
}

type ReplaceColumnsRequest struct {
	Columns []ColumnRequest `json:"columns" binding:"required"`
}

type ColumnsResponse struct {
	Columns []*boarddomain.KanbanColumn `json:"columns"`
}

type SearchResponse struct {
	Query   string                 `json:"query"`
	Results []*usecase.ScoredEmail `json:"results"`
}

type SuggestionsResponse struct {
	Suggestions []*usecase.Suggestion `json:"suggestions"`
}

type SummaryResponse struct {
	MessageID string `json:"message_id"`
	Summary   string `json:"summary"`
}

type QueueSummariesRequest struct {
	MessageIDs []string `json:"message_ids" binding:"required"`
}
