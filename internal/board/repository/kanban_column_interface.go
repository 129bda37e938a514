package repository

import (
	boarddomain "mailboard-backend/internal/board/domain"
)

// KanbanColumnRepository persists per-user board column configuration.
type KanbanColumnRepository interface {
	GetColumnsByUserID(userID string) ([]*boarddomain.KanbanColumn, error)
	GetColumnByID(userID, columnID string) (*boarddomain.KanbanColumn, error)
	CreateColumn(column *boarddomain.KanbanColumn) error
	// ReplaceColumns swaps a user's column set wholesale in one
	// transaction; partial writes are never visible.
	ReplaceColumns(userID string, columns []*boarddomain.KanbanColumn) error
}
