package repository

import (
	"errors"
	"strings"
	"time"

	boarddomain "mailboard-backend/internal/board/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// cachedEmailRepository implements CachedEmailRepository on gorm.
type cachedEmailRepository struct {
	db *gorm.DB
}

// NewCachedEmailRepository creates a new instance of cachedEmailRepository
func NewCachedEmailRepository(db *gorm.DB) CachedEmailRepository {
	return &cachedEmailRepository{db: db}
}

func (r *cachedEmailRepository) Insert(item *boarddomain.CachedEmail) (bool, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	err := r.db.Create(item).Error
	if err != nil {
		// Racing inserts from different columns' background syncs land
		// here; the unique index on (user_id, message_id) is the
		// concurrency-safety mechanism and a duplicate is a no-op.
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

func (r *cachedEmailRepository) GetByMessageID(userID, messageID string) (*boarddomain.CachedEmail, error) {
	var item boarddomain.CachedEmail
	err := r.db.Where("user_id = ? AND message_id = ?", userID, messageID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *cachedEmailRepository) Update(item *boarddomain.CachedEmail) error {
	item.UpdatedAt = time.Now()
	return r.db.Save(item).Error
}

func (r *cachedEmailRepository) Delete(userID, messageID string) error {
	return r.db.Where("user_id = ? AND message_id = ?", userID, messageID).
		Delete(&boarddomain.CachedEmail{}).Error
}

func (r *cachedEmailRepository) ListByStatus(userID, status string, olderThan *time.Time, limit int) ([]*boarddomain.CachedEmail, error) {
	var items []*boarddomain.CachedEmail
	q := r.db.Where("user_id = ? AND status = ?", userID, status)
	if olderThan != nil {
		q = q.Where("received_at < ?", *olderThan)
	}
	err := q.Order("received_at DESC").Order("created_at DESC").Order("id DESC").
		Limit(limit).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cachedEmailRepository) CountByStatus(userID, status string, olderThan *time.Time) (int64, error) {
	var count int64
	q := r.db.Model(&boarddomain.CachedEmail{}).Where("user_id = ? AND status = ?", userID, status)
	if olderThan != nil {
		q = q.Where("received_at < ?", *olderThan)
	}
	err := q.Count(&count).Error
	return count, err
}

func (r *cachedEmailRepository) OldestReceivedAt(userID, status string) (*time.Time, error) {
	var item boarddomain.CachedEmail
	err := r.db.Where("user_id = ? AND status = ?", userID, status).
		Order("received_at ASC").First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	t := item.ReceivedAt
	return &t, nil
}

func (r *cachedEmailRepository) MigrateStatus(userID, fromStatus, toStatus string) error {
	return r.db.Model(&boarddomain.CachedEmail{}).
		Where("user_id = ? AND status = ?", userID, fromStatus).
		Updates(map[string]interface{}{
			"status":     toStatus,
			"updated_at": time.Now(),
		}).Error
}

func (r *cachedEmailRepository) ListRecent(userID string, limit int) ([]*boarddomain.CachedEmail, error) {
	var items []*boarddomain.CachedEmail
	err := r.db.Where("user_id = ?", userID).
		Order("received_at DESC").Limit(limit).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cachedEmailRepository) ListSnoozedDue(userID string, now time.Time) ([]*boarddomain.CachedEmail, error) {
	var items []*boarddomain.CachedEmail
	err := r.db.Where("user_id = ? AND status = ? AND snooze_until IS NOT NULL AND snooze_until <= ?",
		userID, boarddomain.StatusSnoozed, now).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cachedEmailRepository) ListAllSnoozedDue(now time.Time) ([]*boarddomain.CachedEmail, error) {
	var items []*boarddomain.CachedEmail
	err := r.db.Where("status = ? AND snooze_until IS NOT NULL AND snooze_until <= ?",
		boarddomain.StatusSnoozed, now).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
