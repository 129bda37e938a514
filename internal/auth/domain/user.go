package domain

import "time"

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	Provider      string    `json:"provider"` // "google"
	AccessToken   string    `json:"-"`
	RefreshToken  string    `json:"-"`
	TokenExpiry   time.Time `json:"-"`
	LastHistoryID uint64    `json:"-"` // high-water mark for push diffs
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
