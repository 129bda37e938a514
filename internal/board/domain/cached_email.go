package domain

import "time"

// StatusSnoozed is a reserved status value. It is never a user-configured
// column id; an item carrying it must also carry OriginalStatus so it can
// be restored when the snooze expires.
const StatusSnoozed = "snoozed"

// DefaultColumnID is the starter inbox column every user begins with.
const DefaultColumnID = "inbox"

// CachedEmail is the local cache row for one remote message. There is
// exactly one row per (user, remote message) no matter how many labels
// the message carries remotely.
type CachedEmail struct {
	ID        string `json:"id" gorm:"primaryKey"`
	UserID    string `json:"user_id" gorm:"uniqueIndex:idx_user_message;not null"`
	MessageID string `json:"message_id" gorm:"uniqueIndex:idx_user_message;not null"`
	ThreadID  string `json:"thread_id"`
	MailboxID string `json:"mailbox_id"`

	FromName       string    `json:"from_name"`
	FromEmail      string    `json:"from_email"`
	Subject        string    `json:"subject"`
	Snippet        string    `json:"snippet" gorm:"type:text"`
	ReceivedAt     time.Time `json:"received_at" gorm:"index"`
	HasAttachments bool      `json:"has_attachments"`
	IsRead         bool      `json:"is_read"`

	// Board fields. Status is an open string validated against the
	// user's current column set at read time, never an enum.
	Status         string     `json:"status" gorm:"index"`
	OriginalStatus string     `json:"original_status,omitempty"`
	SnoozeUntil    *time.Time `json:"snooze_until,omitempty"`

	// AI fields. LastSummarizedAt backs a 24-hour freshness cache.
	Summary              string     `json:"summary,omitempty" gorm:"type:text"`
	LastSummarizedAt     *time.Time `json:"last_summarized_at,omitempty"`
	HasEmbedding         bool       `json:"has_embedding"`
	EmbeddingGeneratedAt *time.Time `json:"embedding_generated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SnoozeDue reports whether a snoozed item should be woken. A snoozed
// item without a wake time is treated as not due (it stays hidden).
func (e *CachedEmail) SnoozeDue(now time.Time) bool {
	if e.Status != StatusSnoozed || e.SnoozeUntil == nil {
		return false
	}
	return !e.SnoozeUntil.After(now)
}

// SummaryFresh reports whether the cached summary is younger than ttl.
func (e *CachedEmail) SummaryFresh(now time.Time, ttl time.Duration) bool {
	if e.Summary == "" || e.LastSummarizedAt == nil {
		return false
	}
	return now.Sub(*e.LastSummarizedAt) < ttl
}

// BoardPage is the assembled result of one board pagination step.
type BoardPage struct {
	Columns       map[string][]*CachedEmail
	Totals        map[string]int64
	NextPageToken string
	HasMore       bool
}
