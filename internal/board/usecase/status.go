package usecase

import (
	"context"
	"log"
	"strings"
	"time"

	authdomain "mailboard-backend/internal/auth/domain"
	boarddomain "mailboard-backend/internal/board/domain"

	pkgerrors "github.com/pkg/errors"
)

// MoveToColumn commits the local status move first; the remote label
// sync that follows is best-effort and never rolls the move back.
func (u *boardUsecase) MoveToColumn(ctx context.Context, userID, messageID, columnID string, remoteLabel *string) (*boarddomain.CachedEmail, error) {
	user, err := u.getUser(userID)
	if err != nil {
		return nil, err
	}

	column, err := u.columnRepo.GetColumnByID(userID, columnID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load column")
	}
	if column == nil {
		return nil, pkgerrors.Wrapf(boarddomain.ErrInvalidInput, "unknown column %s", columnID)
	}

	item, err := u.cachedRepo.GetByMessageID(userID, messageID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load cached message")
	}
	if item == nil {
		return nil, pkgerrors.Wrap(boarddomain.ErrNotFound, "message")
	}

	item.Status = columnID
	item.OriginalStatus = ""
	item.SnoozeUntil = nil
	if err := u.cachedRepo.Update(item); err != nil {
		return nil, pkgerrors.Wrap(err, "update status")
	}

	// A nil remoteLabel means "skip remote sync"; the empty string is
	// the archive value and does reach remote.
	if remoteLabel != nil {
		if err := u.syncRemoteLabels(ctx, user, messageID, *remoteLabel); err != nil {
			log.Printf("[Board] Remote label sync failed for message %s: %v", messageID, err)
		}
	}

	return item, nil
}

// syncRemoteLabels mirrors a column move onto the remote mailbox: add
// the target label, strip every other workflow label, and for the
// archive value additionally strip INBOX.
func (u *boardUsecase) syncRemoteLabels(ctx context.Context, user *authdomain.User, messageID, targetLabel string) error {
	columns, err := u.columnRepo.GetColumnsByUserID(user.ID)
	if err != nil {
		return pkgerrors.Wrap(err, "load columns")
	}

	catalog := u.labelCatalog(ctx, user, columns, targetLabel)

	var addIDs []string
	targetID := ""
	if targetLabel != "" {
		targetID = resolveLabelID(targetLabel, catalog)
		if targetID == "" {
			log.Printf("[Board] Could not resolve label %q for user %s, skipping add", targetLabel, user.ID)
		} else {
			addIDs = append(addIDs, targetID)
		}
	}

	// Workflow labels are every label bound to any column. A message
	// never carries two of them at once.
	removeSet := make(map[string]struct{})
	for _, column := range columns {
		if !column.Pullable() {
			continue
		}
		id := resolveLabelID(*column.GmailLabel, catalog)
		if id == "" || id == targetID {
			continue
		}
		removeSet[id] = struct{}{}
	}
	if targetLabel == "" {
		// Archive: the message leaves the inbox with no replacement.
		removeSet["INBOX"] = struct{}{}
	}

	removeIDs := make([]string, 0, len(removeSet))
	for id := range removeSet {
		removeIDs = append(removeIDs, id)
	}

	if len(addIDs) == 0 && len(removeIDs) == 0 {
		return nil
	}

	err = u.mailProvider.ModifyLabels(ctx, user.AccessToken, user.RefreshToken, messageID, addIDs, removeIDs, u.makeTokenUpdateCallback(user.ID))
	if err != nil {
		return pkgerrors.Wrap(boarddomain.ErrUpstream, err.Error())
	}
	return nil
}

// labelCatalog fetches the remote label catalog only when some bound
// label actually needs a name lookup.
func (u *boardUsecase) labelCatalog(ctx context.Context, user *authdomain.User, columns []*boarddomain.KanbanColumn, targetLabel string) []*boarddomain.RemoteLabel {
	needsLookup := targetLabel != "" && !isLabelID(targetLabel)
	for _, column := range columns {
		if column.Pullable() && !isLabelID(*column.GmailLabel) {
			needsLookup = true
		}
	}
	if !needsLookup {
		return nil
	}

	catalog, err := u.mailProvider.ListLabels(ctx, user.AccessToken, user.RefreshToken, u.makeTokenUpdateCallback(user.ID))
	if err != nil {
		log.Printf("[Board] Failed to list remote labels for user %s: %v", user.ID, err)
		return nil
	}
	return catalog
}

// isLabelID reports whether the value is already a remote label id:
// system labels are all-caps, user labels start with "Label_".
func isLabelID(label string) bool {
	if strings.HasPrefix(label, "Label_") {
		return true
	}
	return label != "" && label == strings.ToUpper(label)
}

// resolveLabelID maps a label name to its remote id, passing through
// values that already are ids. Returns "" when unresolved.
func resolveLabelID(label string, catalog []*boarddomain.RemoteLabel) string {
	if isLabelID(label) {
		return label
	}
	for _, remote := range catalog {
		if strings.EqualFold(remote.Name, label) {
			return remote.ID
		}
	}
	return ""
}

func (u *boardUsecase) SnoozeEmail(userID, messageID string, until time.Time) (*boarddomain.CachedEmail, error) {
	if !until.After(time.Now()) {
		return nil, pkgerrors.Wrap(boarddomain.ErrInvalidInput, "snooze time must be in the future")
	}

	item, err := u.cachedRepo.GetByMessageID(userID, messageID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load cached message")
	}
	if item == nil {
		return nil, pkgerrors.Wrap(boarddomain.ErrNotFound, "message")
	}

	if item.Status != boarddomain.StatusSnoozed {
		item.OriginalStatus = item.Status
	}
	item.Status = boarddomain.StatusSnoozed
	item.SnoozeUntil = &until

	if err := u.cachedRepo.Update(item); err != nil {
		return nil, pkgerrors.Wrap(err, "update snooze")
	}
	return item, nil
}

func (u *boardUsecase) UnsnoozeEmail(userID, messageID string) (*boarddomain.CachedEmail, error) {
	item, err := u.cachedRepo.GetByMessageID(userID, messageID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load cached message")
	}
	if item == nil {
		return nil, pkgerrors.Wrap(boarddomain.ErrNotFound, "message")
	}

	if item.Status != boarddomain.StatusSnoozed {
		return item, nil
	}

	if err := u.restoreSnoozed(item); err != nil {
		return nil, err
	}
	return item, nil
}

// restoreSnoozed flips a snoozed item back to its preserved column and
// clears the snooze fields.
func (u *boardUsecase) restoreSnoozed(item *boarddomain.CachedEmail) error {
	restored := item.OriginalStatus
	if restored == "" {
		restored = boarddomain.DefaultColumnID
	}
	item.Status = restored
	item.OriginalStatus = ""
	item.SnoozeUntil = nil

	if err := u.cachedRepo.Update(item); err != nil {
		return pkgerrors.Wrap(err, "restore snoozed item")
	}
	return nil
}

// wakeDueSnoozesForUser restores one user's due snoozes. Runs at the
// start of every board-page request.
func (u *boardUsecase) wakeDueSnoozesForUser(userID string) (int, error) {
	due, err := u.cachedRepo.ListSnoozedDue(userID, time.Now())
	if err != nil {
		return 0, err
	}

	woken := 0
	for _, item := range due {
		if err := u.restoreSnoozed(item); err != nil {
			log.Printf("[Snooze] Failed to restore message %s: %v", item.MessageID, err)
			continue
		}
		woken++
	}
	return woken, nil
}

// WakeDueSnoozes is the cross-user variant driven by the maintenance
// scheduler.
func (u *boardUsecase) WakeDueSnoozes() (int, error) {
	due, err := u.cachedRepo.ListAllSnoozedDue(time.Now())
	if err != nil {
		return 0, pkgerrors.Wrap(err, "list due snoozes")
	}

	woken := 0
	notified := make(map[string]struct{})
	for _, item := range due {
		if err := u.restoreSnoozed(item); err != nil {
			log.Printf("[Snooze] Failed to restore message %s: %v", item.MessageID, err)
			continue
		}
		woken++
		notified[item.UserID] = struct{}{}
	}

	if u.eventService != nil {
		for userID := range notified {
			u.eventService.SendToUser(userID, "email_update", map[string]string{
				"reason": "snooze_expired",
			})
		}
	}

	return woken, nil
}

func (u *boardUsecase) MarkRead(ctx context.Context, userID, messageID string) (*boarddomain.CachedEmail, error) {
	return u.setReadState(ctx, userID, messageID, true)
}

func (u *boardUsecase) MarkUnread(ctx context.Context, userID, messageID string) (*boarddomain.CachedEmail, error) {
	return u.setReadState(ctx, userID, messageID, false)
}

func (u *boardUsecase) setReadState(ctx context.Context, userID, messageID string, read bool) (*boarddomain.CachedEmail, error) {
	user, err := u.getUser(userID)
	if err != nil {
		return nil, err
	}

	item, err := u.cachedRepo.GetByMessageID(userID, messageID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load cached message")
	}
	if item == nil {
		return nil, pkgerrors.Wrap(boarddomain.ErrNotFound, "message")
	}

	item.IsRead = read
	if err := u.cachedRepo.Update(item); err != nil {
		return nil, pkgerrors.Wrap(err, "update read state")
	}

	var add, remove []string
	if read {
		remove = []string{"UNREAD"}
	} else {
		add = []string{"UNREAD"}
	}
	err = u.mailProvider.ModifyLabels(ctx, user.AccessToken, user.RefreshToken, messageID, add, remove, u.makeTokenUpdateCallback(userID))
	if err != nil {
		log.Printf("[Board] Remote read-state sync failed for message %s: %v", messageID, err)
	}

	return item, nil
}
