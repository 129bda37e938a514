package usecase

import (
	"context"
	"log"
	"strings"

	authdomain "mailboard-backend/internal/auth/domain"
	boarddomain "mailboard-backend/internal/board/domain"

	pkgerrors "github.com/pkg/errors"
)

// ApplyRemoteChanges folds a push-notification history diff into the
// cache and vector index. Each change carries its own error boundary;
// one bad change never aborts the batch.
func (u *boardUsecase) ApplyRemoteChanges(userID string, changes []*boarddomain.RemoteChange) error {
	user, err := u.getUser(userID)
	if err != nil {
		return err
	}

	columns, err := u.GetColumns(userID)
	if err != nil {
		return err
	}

	// Workflow label map: upper-cased bound label -> column id.
	workflow := make(map[string]string, len(columns))
	archiveColumn := ""
	for _, column := range columns {
		if column.Pullable() {
			workflow[strings.ToUpper(*column.GmailLabel)] = column.ColumnID
		}
		if archiveColumn == "" && column.IsArchive() {
			archiveColumn = column.ColumnID
		}
	}

	ctx := context.Background()
	failed := 0
	for _, change := range changes {
		if err := u.applyChange(ctx, user, change, workflow, archiveColumn); err != nil {
			failed++
			log.Printf("[Push] Failed to apply %s for message %s: %v", change.Type, change.MessageID, err)
		}
	}
	if failed > 0 {
		log.Printf("[Push] Applied %d/%d changes for user %s", len(changes)-failed, len(changes), userID)
	}

	return nil
}

func (u *boardUsecase) applyChange(ctx context.Context, user *authdomain.User, change *boarddomain.RemoteChange, workflow map[string]string, archiveColumn string) error {
	switch change.Type {
	case boarddomain.ChangeMessageAdded:
		return u.handleMessageAdded(ctx, user, change.MessageID, workflow)

	case boarddomain.ChangeMessageDeleted:
		return u.evictMessage(ctx, user.ID, change.MessageID)

	case boarddomain.ChangeLabelAdded:
		return u.handleLabelAdded(ctx, user, change, workflow)

	case boarddomain.ChangeLabelRemoved:
		return u.handleLabelRemoved(ctx, user, change, workflow, archiveColumn)

	default:
		log.Printf("[Push] Ignoring unknown change type %s", change.Type)
		return nil
	}
}

// handleMessageAdded caches a newly seen message under the column whose
// workflow label it carries, defaulting to the inbox-bound column.
func (u *boardUsecase) handleMessageAdded(ctx context.Context, user *authdomain.User, messageID string, workflow map[string]string) error {
	existing, err := u.cachedRepo.GetByMessageID(user.ID, messageID)
	if err != nil {
		return pkgerrors.Wrap(err, "check cache")
	}
	if existing != nil {
		return nil
	}

	msg, err := u.mailProvider.GetMessage(ctx, user.AccessToken, user.RefreshToken, messageID, u.makeTokenUpdateCallback(user.ID))
	if err != nil {
		return pkgerrors.Wrap(boarddomain.ErrUpstream, err.Error())
	}

	target := ""
	mailboxID := ""
	for _, labelID := range msg.LabelIDs {
		if columnID, bound := workflow[strings.ToUpper(labelID)]; bound {
			target = columnID
			mailboxID = labelID
			break
		}
	}
	if target == "" {
		if columnID, bound := workflow["INBOX"]; bound && containsLabel(msg.LabelIDs, "INBOX") {
			target = columnID
			mailboxID = "INBOX"
		}
	}
	if target == "" {
		// No column wants this message; it stays remote-only.
		return nil
	}

	u.cacheRemoteMessage(user.ID, target, mailboxID, msg)
	return nil
}

// evictMessage removes a message from cache and vector index.
func (u *boardUsecase) evictMessage(ctx context.Context, userID, messageID string) error {
	if err := u.cachedRepo.Delete(userID, messageID); err != nil {
		return pkgerrors.Wrap(err, "delete cached message")
	}
	if u.vectorIndex != nil {
		if err := u.vectorIndex.Delete(ctx, messageID); err != nil {
			log.Printf("[Push] Failed to delete vector entry for %s: %v", messageID, err)
		}
	}
	return nil
}

func (u *boardUsecase) handleLabelAdded(ctx context.Context, user *authdomain.User, change *boarddomain.RemoteChange, workflow map[string]string) error {
	// Trash/spam labeling is cache eviction, not a board move.
	if containsLabel(change.LabelIDs, "TRASH") || containsLabel(change.LabelIDs, "SPAM") {
		return u.evictMessage(ctx, user.ID, change.MessageID)
	}

	if containsLabel(change.LabelIDs, "UNREAD") {
		return u.patchReadFlag(user.ID, change.MessageID, false)
	}

	for _, labelID := range change.LabelIDs {
		columnID, bound := workflow[strings.ToUpper(labelID)]
		if !bound {
			continue
		}

		item, err := u.cachedRepo.GetByMessageID(user.ID, change.MessageID)
		if err != nil {
			return pkgerrors.Wrap(err, "load cached message")
		}
		if item == nil {
			// Not cached yet: the messageAdded path lands it directly
			// under the matched workflow column.
			return u.handleMessageAdded(ctx, user, change.MessageID, workflow)
		}
		if item.Status == columnID {
			return nil
		}
		item.Status = columnID
		item.OriginalStatus = ""
		item.SnoozeUntil = nil
		return pkgerrors.Wrap(u.cachedRepo.Update(item), "move to workflow column")
	}

	return u.reconcileFromRemote(ctx, user, change.MessageID, workflow)
}

func (u *boardUsecase) handleLabelRemoved(ctx context.Context, user *authdomain.User, change *boarddomain.RemoteChange, workflow map[string]string, archiveColumn string) error {
	if containsLabel(change.LabelIDs, "UNREAD") {
		return u.patchReadFlag(user.ID, change.MessageID, true)
	}

	if containsLabel(change.LabelIDs, "INBOX") {
		if archiveColumn == "" {
			// No archive column configured; the item keeps its status.
			return nil
		}
		item, err := u.cachedRepo.GetByMessageID(user.ID, change.MessageID)
		if err != nil {
			return pkgerrors.Wrap(err, "load cached message")
		}
		if item == nil || item.Status == archiveColumn {
			return nil
		}
		item.Status = archiveColumn
		item.OriginalStatus = ""
		item.SnoozeUntil = nil
		return pkgerrors.Wrap(u.cachedRepo.Update(item), "move to archive column")
	}

	return u.reconcileFromRemote(ctx, user, change.MessageID, workflow)
}

func (u *boardUsecase) patchReadFlag(userID, messageID string, read bool) error {
	item, err := u.cachedRepo.GetByMessageID(userID, messageID)
	if err != nil {
		return pkgerrors.Wrap(err, "load cached message")
	}
	if item == nil || item.IsRead == read {
		return nil
	}
	item.IsRead = read
	return pkgerrors.Wrap(u.cachedRepo.Update(item), "patch read flag")
}

// reconcileFromRemote re-reads the message's current remote labels and
// updates the cached unread flag and status, only writing on change.
func (u *boardUsecase) reconcileFromRemote(ctx context.Context, user *authdomain.User, messageID string, workflow map[string]string) error {
	item, err := u.cachedRepo.GetByMessageID(user.ID, messageID)
	if err != nil {
		return pkgerrors.Wrap(err, "load cached message")
	}
	if item == nil {
		return nil
	}

	msg, err := u.mailProvider.GetMessage(ctx, user.AccessToken, user.RefreshToken, messageID, u.makeTokenUpdateCallback(user.ID))
	if err != nil {
		return pkgerrors.Wrap(boarddomain.ErrUpstream, err.Error())
	}

	changed := false
	if item.IsRead != msg.IsRead {
		item.IsRead = msg.IsRead
		changed = true
	}
	for _, labelID := range msg.LabelIDs {
		if columnID, bound := workflow[strings.ToUpper(labelID)]; bound {
			if item.Status != columnID && item.Status != boarddomain.StatusSnoozed {
				item.Status = columnID
				changed = true
			}
			break
		}
	}

	if !changed {
		return nil
	}
	return pkgerrors.Wrap(u.cachedRepo.Update(item), "reconcile cached message")
}

// DiffRemoteHistory lists the remote history since a known mark.
func (u *boardUsecase) DiffRemoteHistory(ctx context.Context, userID string, sinceHistoryID uint64) ([]*boarddomain.RemoteChange, uint64, error) {
	user, err := u.getUser(userID)
	if err != nil {
		return nil, 0, err
	}

	changes, newHistoryID, err := u.mailProvider.HistoryChanges(ctx, user.AccessToken, user.RefreshToken, sinceHistoryID, u.makeTokenUpdateCallback(userID))
	if err != nil {
		return nil, 0, pkgerrors.Wrap(boarddomain.ErrUpstream, err.Error())
	}
	return changes, newHistoryID, nil
}

// WatchMailbox (re)registers the remote push-notification watch for a
// user's mailbox.
func (u *boardUsecase) WatchMailbox(ctx context.Context, userID string) error {
	user, err := u.getUser(userID)
	if err != nil {
		return err
	}
	if user.AccessToken == "" {
		return pkgerrors.Wrap(boarddomain.ErrInvalidInput, "user has no mail credentials")
	}

	err = u.mailProvider.Watch(ctx, user.AccessToken, user.RefreshToken, u.topicName, u.makeTokenUpdateCallback(userID))
	if err != nil {
		return pkgerrors.Wrap(boarddomain.ErrUpstream, err.Error())
	}
	return nil
}

func containsLabel(labels []string, labelID string) bool {
	for _, label := range labels {
		if strings.EqualFold(label, labelID) {
			return true
		}
	}
	return false
}
