package usecase

import (
	"context"
	"log"
	"sync"
	"time"

	authdomain "mailboard-backend/internal/auth/domain"
	boarddomain "mailboard-backend/internal/board/domain"

	pkgerrors "github.com/pkg/errors"
)

// starterColumns is the 3-column set seeded on a user's first access.
var starterColumns = []struct {
	id    string
	name  string
	label string
}{
	{boarddomain.DefaultColumnID, "Inbox", "INBOX"},
	{"todo", "To Do", "IMPORTANT"},
	{"done", "Done", "STARRED"},
}

func (u *boardUsecase) GetColumns(userID string) ([]*boarddomain.KanbanColumn, error) {
	columns, err := u.columnRepo.GetColumnsByUserID(userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load columns")
	}
	if len(columns) > 0 {
		return columns, nil
	}

	for i, d := range starterColumns {
		column := &boarddomain.KanbanColumn{
			UserID:     userID,
			ColumnID:   d.id,
			Name:       d.name,
			Order:      i,
			GmailLabel: boarddomain.StringPtr(d.label),
		}
		if err := u.columnRepo.CreateColumn(column); err != nil {
			return nil, pkgerrors.Wrap(err, "seed starter columns")
		}
	}

	return u.columnRepo.GetColumnsByUserID(userID)
}

// GetBoardPage assembles one page of the board. Each column advances an
// independent cursor carried in the opaque token; columns short on
// cached items pull one remote page before the local read.
func (u *boardUsecase) GetBoardPage(ctx context.Context, userID, pageToken string, pageSize int) (*boarddomain.BoardPage, error) {
	user, err := u.getUser(userID)
	if err != nil {
		return nil, err
	}

	if pageSize <= 0 {
		pageSize = u.config.BoardPageSize
	}

	columns, err := u.GetColumns(userID)
	if err != nil {
		return nil, err
	}

	// Restore due snoozes first so they surface under their original
	// column on this very page.
	if _, err := u.wakeDueSnoozesForUser(userID); err != nil {
		log.Printf("[Board] Failed to wake due snoozes for user %s: %v", userID, err)
	}

	token := boarddomain.DecodePageToken(pageToken)
	next := boarddomain.NewPageToken()

	results := make([]columnPage, len(columns))
	var wg sync.WaitGroup
	for i, column := range columns {
		wg.Add(1)
		go func(i int, column *boarddomain.KanbanColumn) {
			defer wg.Done()
			results[i] = u.loadColumnPage(ctx, user, column, token, pageSize)
		}(i, column)
	}
	wg.Wait()

	page := &boarddomain.BoardPage{
		Columns: make(map[string][]*boarddomain.CachedEmail, len(columns)),
		Totals:  make(map[string]int64, len(columns)),
	}

	for _, res := range results {
		page.Columns[res.columnID] = res.items
		next.Cursor[res.columnID] = res.cursor
		next.RemotePageToken[res.columnID] = res.remoteToken
		next.RemoteExhausted[res.columnID] = res.exhausted
		if res.hasMore {
			page.HasMore = true
		}

		// Full-population count, a display-only approximation.
		total, err := u.cachedRepo.CountByStatus(userID, res.columnID, nil)
		if err != nil {
			log.Printf("[Board] Failed to count column %s: %v", res.columnID, err)
			continue
		}
		page.Totals[res.columnID] = total
	}

	if page.HasMore {
		encoded, err := next.Encode()
		if err != nil {
			log.Printf("[Board] Failed to encode page token: %v", err)
		} else {
			page.NextPageToken = encoded
		}
	}

	return page, nil
}

// columnPage is the per-column outcome of one pagination step.
type columnPage struct {
	columnID    string
	items       []*boarddomain.CachedEmail
	cursor      *time.Time
	remoteToken *string
	exhausted   bool
	hasMore     bool
}

func (u *boardUsecase) loadColumnPage(ctx context.Context, user *authdomain.User, column *boarddomain.KanbanColumn, token *boarddomain.PageToken, pageSize int) columnPage {
	colID := column.ColumnID
	cursor := token.Cursor[colID]
	remoteToken := token.RemotePageToken[colID]
	exhausted := token.RemoteExhausted[colID]

	count, err := u.cachedRepo.CountByStatus(user.ID, colID, cursor)
	if err != nil {
		log.Printf("[Board] Failed to count column %s: %v", colID, err)
	}

	if count < int64(pageSize) && column.Pullable() && !exhausted {
		newToken, newExhausted, pullErr := u.pullRemotePage(ctx, user, column, remoteToken, pageSize)
		if pullErr != nil {
			// Degrade to local-only for this page. The flags stay
			// untouched so the next page retries the pull.
			log.Printf("[Board] Remote pull failed for column %s: %v", colID, pullErr)
		} else {
			remoteToken = newToken
			exhausted = newExhausted
		}
	}

	items, err := u.cachedRepo.ListByStatus(user.ID, colID, cursor, pageSize)
	if err != nil {
		log.Printf("[Board] Failed to list column %s: %v", colID, err)
		items = []*boarddomain.CachedEmail{}
	}
	if items == nil {
		items = []*boarddomain.CachedEmail{}
	}

	// Cursor advances to the oldest item returned; an empty batch
	// leaves it unchanged.
	nextCursor := cursor
	if len(items) > 0 {
		oldest := items[len(items)-1].ReceivedAt
		nextCursor = &oldest
	}

	return columnPage{
		columnID:    colID,
		items:       items,
		cursor:      nextCursor,
		remoteToken: remoteToken,
		exhausted:   exhausted,
		hasMore:     len(items) == pageSize || (column.Pullable() && !exhausted),
	}
}

// pullRemotePage fetches one remote page for a column's bound label and
// caches every newly seen message.
func (u *boardUsecase) pullRemotePage(ctx context.Context, user *authdomain.User, column *boarddomain.KanbanColumn, remoteToken *string, pageSize int) (*string, bool, error) {
	q := boarddomain.ListQuery{
		LabelID:    *column.GmailLabel,
		MaxResults: int64(pageSize),
	}
	if remoteToken != nil {
		q.PageToken = *remoteToken
	} else {
		// First-ever pull for this column: hint the remote query with
		// the oldest cached timestamp so already-imported messages are
		// not re-listed. Idempotent insert absorbs same-day overlap.
		oldest, err := u.cachedRepo.OldestReceivedAt(user.ID, column.ColumnID)
		if err == nil && oldest != nil {
			q.Query = "before:" + oldest.AddDate(0, 0, 1).Format("2006/01/02")
		}
	}

	page, err := u.mailProvider.ListMessages(ctx, user.AccessToken, user.RefreshToken, q, u.makeTokenUpdateCallback(user.ID))
	if err != nil {
		return nil, false, pkgerrors.Wrap(boarddomain.ErrUpstream, err.Error())
	}

	for _, msg := range page.Messages {
		u.cacheRemoteMessage(user.ID, column.ColumnID, *column.GmailLabel, msg)
	}

	if page.NextPageToken == "" {
		return nil, true, nil
	}
	tok := page.NextPageToken
	return &tok, false, nil
}

// cacheRemoteMessage inserts one remote message under a column and
// schedules its embedding. Returns false when the message was already
// cached.
func (u *boardUsecase) cacheRemoteMessage(userID, status, mailboxID string, msg *boarddomain.RemoteMessage) bool {
	item := &boarddomain.CachedEmail{
		UserID:         userID,
		MessageID:      msg.ID,
		ThreadID:       msg.ThreadID,
		MailboxID:      mailboxID,
		FromName:       msg.FromName,
		FromEmail:      msg.FromEmail,
		Subject:        msg.Subject,
		Snippet:        msg.Snippet,
		ReceivedAt:     msg.ReceivedAt,
		HasAttachments: msg.HasAttachments,
		IsRead:         msg.IsRead,
		Status:         status,
	}

	inserted, err := u.cachedRepo.Insert(item)
	if err != nil {
		log.Printf("[Board] Failed to cache message %s: %v", msg.ID, err)
		return false
	}
	if inserted {
		u.scheduleEmbedding(userID, item, msg.Body)
	}
	return inserted
}
