package repository

import (
	"errors"
	"time"

	boarddomain "mailboard-backend/internal/board/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// kanbanColumnRepository implements KanbanColumnRepository on gorm.
type kanbanColumnRepository struct {
	db *gorm.DB
}

// NewKanbanColumnRepository creates a new instance of kanbanColumnRepository
func NewKanbanColumnRepository(db *gorm.DB) KanbanColumnRepository {
	return &kanbanColumnRepository{db: db}
}

// GetColumnsByUserID gets all columns for a user, ordered by order field
func (r *kanbanColumnRepository) GetColumnsByUserID(userID string) ([]*boarddomain.KanbanColumn, error) {
	var columns []*boarddomain.KanbanColumn
	err := r.db.Where("user_id = ?", userID).Order("display_order ASC").Find(&columns).Error
	if err != nil {
		return nil, err
	}
	return columns, nil
}

// GetColumnByID gets a column by its stable column id
func (r *kanbanColumnRepository) GetColumnByID(userID, columnID string) (*boarddomain.KanbanColumn, error) {
	var column boarddomain.KanbanColumn
	err := r.db.Where("user_id = ? AND column_id = ?", userID, columnID).First(&column).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &column, nil
}

// CreateColumn creates a new column
func (r *kanbanColumnRepository) CreateColumn(column *boarddomain.KanbanColumn) error {
	if column.ID == "" {
		column.ID = uuid.New().String()
	}
	now := time.Now()
	column.CreatedAt = now
	column.UpdatedAt = now
	return r.db.Create(column).Error
}

// ReplaceColumns swaps the user's column set in one transaction.
func (r *kanbanColumnRepository) ReplaceColumns(userID string, columns []*boarddomain.KanbanColumn) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&boarddomain.KanbanColumn{}).Error; err != nil {
			return err
		}
		now := time.Now()
		for _, col := range columns {
			if col.ID == "" {
				col.ID = uuid.New().String()
			}
			col.UserID = userID
			col.CreatedAt = now
			col.UpdatedAt = now
			if err := tx.Create(col).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
