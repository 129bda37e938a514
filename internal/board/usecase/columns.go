package usecase

import (
	"context"
	"log"
	"strings"

	boarddomain "mailboard-backend/internal/board/domain"

	pkgerrors "github.com/pkg/errors"
)

// labelSyncBatchSize bounds the background pull that seeds a column
// after its bound label changed.
const labelSyncBatchSize = 25

// ReplaceColumns swaps the user's column set wholesale. Validation is
// all-or-nothing; a rejected set leaves the old columns untouched.
func (u *boardUsecase) ReplaceColumns(userID string, columns []*boarddomain.KanbanColumn) ([]*boarddomain.KanbanColumn, error) {
	if len(columns) == 0 {
		return nil, pkgerrors.Wrap(boarddomain.ErrInvalidInput, "column list must not be empty")
	}

	seenIDs := make(map[string]struct{}, len(columns))
	seenNames := make(map[string]struct{}, len(columns))
	seenLabels := make(map[string]struct{}, len(columns))
	for _, column := range columns {
		if column.ColumnID == "" {
			return nil, pkgerrors.Wrap(boarddomain.ErrInvalidInput, "column id must not be empty")
		}
		if strings.TrimSpace(column.Name) == "" {
			return nil, pkgerrors.Wrap(boarddomain.ErrInvalidInput, "column name must not be empty")
		}
		if _, dup := seenIDs[column.ColumnID]; dup {
			return nil, pkgerrors.Wrapf(boarddomain.ErrInvalidInput, "duplicate column id %s", column.ColumnID)
		}
		seenIDs[column.ColumnID] = struct{}{}

		nameKey := strings.ToLower(strings.TrimSpace(column.Name))
		if _, dup := seenNames[nameKey]; dup {
			return nil, pkgerrors.Wrapf(boarddomain.ErrConflict, "duplicate column name %s", column.Name)
		}
		seenNames[nameKey] = struct{}{}

		if column.Pullable() {
			labelKey := strings.ToLower(*column.GmailLabel)
			if _, dup := seenLabels[labelKey]; dup {
				return nil, pkgerrors.Wrapf(boarddomain.ErrConflict, "duplicate column label %s", *column.GmailLabel)
			}
			seenLabels[labelKey] = struct{}{}
		}
	}

	oldColumns, err := u.columnRepo.GetColumnsByUserID(userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load columns")
	}

	// Dense renumbering in caller-supplied order.
	for i, column := range columns {
		column.UserID = userID
		column.Order = i
	}

	if err := u.columnRepo.ReplaceColumns(userID, columns); err != nil {
		return nil, pkgerrors.Wrap(err, "replace columns")
	}

	u.migrateDeletedColumns(userID, oldColumns, columns)
	u.syncChangedLabels(userID, oldColumns, columns)

	return u.columnRepo.GetColumnsByUserID(userID)
}

// migrateDeletedColumns moves items out of columns whose id disappeared
// in the new set. The fallback is the surviving inbox-bound column,
// then the first surviving column with any bound label. Without a
// fallback the items keep their orphaned status string.
func (u *boardUsecase) migrateDeletedColumns(userID string, oldColumns, newColumns []*boarddomain.KanbanColumn) {
	survivors := make(map[string]struct{}, len(newColumns))
	for _, column := range newColumns {
		survivors[column.ColumnID] = struct{}{}
	}

	fallback := ""
	for _, column := range newColumns {
		if column.Pullable() && strings.EqualFold(*column.GmailLabel, "INBOX") {
			fallback = column.ColumnID
			break
		}
	}
	if fallback == "" {
		for _, column := range newColumns {
			if column.Pullable() {
				fallback = column.ColumnID
				break
			}
		}
	}

	for _, old := range oldColumns {
		if _, kept := survivors[old.ColumnID]; kept {
			continue
		}
		if fallback == "" {
			log.Printf("[Columns] No fallback column for deleted column %s, items stay orphaned", old.ColumnID)
			continue
		}
		if err := u.cachedRepo.MigrateStatus(userID, old.ColumnID, fallback); err != nil {
			log.Printf("[Columns] Failed to migrate items from %s to %s: %v", old.ColumnID, fallback, err)
		}
	}
}

// syncChangedLabels seeds columns whose bound label is new or changed
// with a bounded remote batch, fire-and-forget.
func (u *boardUsecase) syncChangedLabels(userID string, oldColumns, newColumns []*boarddomain.KanbanColumn) {
	oldLabels := make(map[string]string, len(oldColumns))
	for _, column := range oldColumns {
		if column.GmailLabel != nil {
			oldLabels[column.ColumnID] = *column.GmailLabel
		}
	}

	for _, column := range newColumns {
		if !column.Pullable() || column.ColumnID == boarddomain.DefaultColumnID {
			continue
		}
		if prev, had := oldLabels[column.ColumnID]; had && strings.EqualFold(prev, *column.GmailLabel) {
			continue
		}

		go func(column boarddomain.KanbanColumn) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[Columns] Label sync panic for column %s: %v", column.ColumnID, r)
				}
			}()

			user, err := u.getUser(userID)
			if err != nil {
				log.Printf("[Columns] Label sync skipped for column %s: %v", column.ColumnID, err)
				return
			}

			q := boarddomain.ListQuery{
				LabelID:    *column.GmailLabel,
				MaxResults: labelSyncBatchSize,
			}
			page, err := u.mailProvider.ListMessages(context.Background(), user.AccessToken, user.RefreshToken, q, u.makeTokenUpdateCallback(userID))
			if err != nil {
				log.Printf("[Columns] Label sync pull failed for column %s: %v", column.ColumnID, err)
				return
			}

			imported := 0
			for _, msg := range page.Messages {
				if u.cacheRemoteMessage(userID, column.ColumnID, *column.GmailLabel, msg) {
					imported++
				}
			}
			log.Printf("[Columns] Label sync imported %d messages into column %s", imported, column.ColumnID)
		}(*column)
	}
}
