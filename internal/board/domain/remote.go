package domain

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// TokenUpdateFunc is invoked when the upstream token source refreshed
// the access token, so the new credentials can be persisted.
type TokenUpdateFunc func(token *oauth2.Token) error

// RemoteMessage is the gateway's view of one remote mail message. Body
// is only populated by GetMessage; list calls carry the snippet.
type RemoteMessage struct {
	ID             string
	ThreadID       string
	FromName       string
	FromEmail      string
	Subject        string
	Snippet        string
	Body           string
	ReceivedAt     time.Time
	IsRead         bool
	HasAttachments bool
	LabelIDs       []string
}

// RemoteLabel is one entry from the remote label catalog.
type RemoteLabel struct {
	ID   string
	Name string
	Type string
}

// MessagePage is one forward-only page of a remote message listing. An
// empty NextPageToken means the listing is exhausted.
type MessagePage struct {
	Messages      []*RemoteMessage
	NextPageToken string
}

// ListQuery bounds one remote message listing.
type ListQuery struct {
	LabelID    string
	Query      string
	PageToken  string
	MaxResults int64
}

// ChangeType classifies one push-notification history entry.
type ChangeType string

const (
	ChangeMessageAdded   ChangeType = "messageAdded"
	ChangeMessageDeleted ChangeType = "messageDeleted"
	ChangeLabelAdded     ChangeType = "labelAdded"
	ChangeLabelRemoved   ChangeType = "labelRemoved"
)

// RemoteChange is one normalized history diff entry.
type RemoteChange struct {
	Type      ChangeType
	MessageID string
	LabelIDs  []string
}

// MailProvider is the remote mail gateway capability consumed by the
// sync engine. Credentials are passed per call; implementations refresh
// them transparently and report refreshes through TokenUpdateFunc.
type MailProvider interface {
	ListMessages(ctx context.Context, accessToken, refreshToken string, q ListQuery, onTokenRefresh TokenUpdateFunc) (*MessagePage, error)
	GetMessage(ctx context.Context, accessToken, refreshToken, messageID string, onTokenRefresh TokenUpdateFunc) (*RemoteMessage, error)
	ModifyLabels(ctx context.Context, accessToken, refreshToken, messageID string, addLabelIDs, removeLabelIDs []string, onTokenRefresh TokenUpdateFunc) error
	ListLabels(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) ([]*RemoteLabel, error)
	HistoryChanges(ctx context.Context, accessToken, refreshToken string, sinceHistoryID uint64, onTokenRefresh TokenUpdateFunc) ([]*RemoteChange, uint64, error)
	Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh TokenUpdateFunc) error
}

// EmbeddingMetadata is the denormalized snapshot stored next to each
// vector so search hits can render without a cache round-trip.
type EmbeddingMetadata struct {
	Subject   string
	FromName  string
	FromEmail string
	Snippet   string
	Summary   string
}

// VectorHit is one similarity match, score in 0..1, higher is better.
type VectorHit struct {
	MessageID string
	Score     float64
	Metadata  EmbeddingMetadata
}

// VectorIndex is the vector similarity store capability. Embedding
// generation happens inside the implementation from the supplied text.
type VectorIndex interface {
	Upsert(ctx context.Context, userID, messageID string, meta EmbeddingMetadata, text string) error
	SearchSimilar(ctx context.Context, userID, query string, k int, minScore float64) ([]*VectorHit, error)
	Delete(ctx context.Context, messageID string) error
}
