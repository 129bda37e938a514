package repository

import (
	"time"

	boarddomain "mailboard-backend/internal/board/domain"
)

// CachedEmailRepository persists the per-user message cache backing the
// board. Reads are cursor-bounded on ReceivedAt, never offset-based.
type CachedEmailRepository interface {
	// Insert stores a new row. It is idempotent on (user_id, message_id):
	// a duplicate-key attempt is a benign no-op and returns false.
	Insert(item *boarddomain.CachedEmail) (bool, error)
	GetByMessageID(userID, messageID string) (*boarddomain.CachedEmail, error)
	Update(item *boarddomain.CachedEmail) error
	Delete(userID, messageID string) error

	// ListByStatus returns items in a column ordered by ReceivedAt
	// descending (ties broken by cache-insertion order), restricted to
	// rows strictly older than olderThan when it is non-nil.
	ListByStatus(userID, status string, olderThan *time.Time, limit int) ([]*boarddomain.CachedEmail, error)
	// CountByStatus counts the same cursor-bounded population. With a
	// nil cursor it is the full column population; that unbounded count
	// is a display-only approximation for board totals.
	CountByStatus(userID, status string, olderThan *time.Time) (int64, error)
	// OldestReceivedAt returns the oldest cached timestamp in a column,
	// or nil when the column has no cached items.
	OldestReceivedAt(userID, status string) (*time.Time, error)

	// MigrateStatus rewrites every row in fromStatus to toStatus, used
	// when a column is deleted and its items move to a fallback column.
	MigrateStatus(userID, fromStatus, toStatus string) error

	// ListRecent returns the newest cached items for a user regardless
	// of column, the bounded window fuzzy search and suggestions run on.
	ListRecent(userID string, limit int) ([]*boarddomain.CachedEmail, error)

	// ListSnoozedDue returns a user's snoozed items whose wake time has
	// passed. Items without a wake time are excluded (they stay hidden).
	ListSnoozedDue(userID string, now time.Time) ([]*boarddomain.CachedEmail, error)
	// ListAllSnoozedDue is the cross-user variant driven by the cron
	// waker.
	ListAllSnoozedDue(now time.Time) ([]*boarddomain.CachedEmail, error)
}
