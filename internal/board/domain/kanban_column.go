package domain

import "time"

// KanbanColumn is one user-defined board column. GmailLabel is
// tri-state: nil means the column has no remote binding, the empty
// string means "archive" (remove INBOX, add nothing), anything else is
// the remote label the column mirrors.
type KanbanColumn struct {
	ID         string    `json:"-" gorm:"primaryKey"`
	UserID     string    `json:"user_id" gorm:"index:idx_user_column;not null"`
	ColumnID   string    `json:"id" gorm:"column:column_id;index:idx_user_column;not null"`
	Name       string    `json:"name" gorm:"not null"`
	Order      int       `json:"order" gorm:"column:display_order;not null;default:0"`
	GmailLabel *string   `json:"gmail_label,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasBoundLabel reports whether the column carries any remote binding,
// including the archive binding.
func (c *KanbanColumn) HasBoundLabel() bool {
	return c.GmailLabel != nil
}

// IsArchive reports whether the column uses archive semantics.
func (c *KanbanColumn) IsArchive() bool {
	return c.GmailLabel != nil && *c.GmailLabel == ""
}

// Pullable reports whether board pagination may fetch remote pages for
// this column. Archive columns have no label to list by.
func (c *KanbanColumn) Pullable() bool {
	return c.GmailLabel != nil && *c.GmailLabel != ""
}

// StringPtr is a small helper for building tri-state label values.
func StringPtr(s string) *string {
	return &s
}
