package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	authrepo "mailboard-backend/internal/auth/repository"
	"mailboard-backend/internal/board/usecase"
	"mailboard-backend/pkg/sse"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// GmailNotification is the payload Gmail publishes on the watch topic.
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Service consumes mailbox push notifications, diffs the remote
// history and folds the changes into the board cache.
type Service struct {
	pubsubClient *pubsub.Client
	sseManager   *sse.Manager
	userRepo     authrepo.UserRepository
	boardUsecase usecase.BoardUsecase
	projectID    string
	topicName    string
	subName      string

	// Deduplication: last historyId seen per user, so replayed
	// notifications are dropped before the history call.
	mu            sync.Mutex
	lastHistoryID map[string]uint64
}

func NewService(projectID, topicName string, sseManager *sse.Manager, userRepo authrepo.UserRepository, boardUsecase usecase.BoardUsecase, credentialsFile string) (*Service, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &Service{
		pubsubClient:  client,
		sseManager:    sseManager,
		userRepo:      userRepo,
		boardUsecase:  boardUsecase,
		projectID:     projectID,
		topicName:     topicName,
		subName:       topicName + "-sub", // Convention: topic-sub
		lastHistoryID: make(map[string]uint64),
	}, nil
}

func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting notification service with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic does not exist, cannot create subscription")
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notification GmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}

	log.Printf("[PubSub] Notification for %s (historyId: %d)", notification.EmailAddress, notification.HistoryID)

	user, err := s.userRepo.FindByEmail(notification.EmailAddress)
	if err != nil {
		log.Printf("[PubSub] Error finding user by email %s: %v", notification.EmailAddress, err)
		return
	}
	if user == nil {
		log.Printf("[PubSub] User not found for email: %s", notification.EmailAddress)
		return
	}

	s.mu.Lock()
	lastHID, seen := s.lastHistoryID[user.ID]
	if seen && notification.HistoryID <= lastHID {
		s.mu.Unlock()
		log.Printf("[PubSub] Skipping duplicate notification for user %s (historyId %d <= last %d)", user.ID, notification.HistoryID, lastHID)
		return
	}
	s.lastHistoryID[user.ID] = notification.HistoryID
	s.mu.Unlock()

	s.applyHistoryDiff(ctx, user.ID, notification.HistoryID)

	s.sseManager.SendToUser(user.ID, "email_update", map[string]interface{}{
		"email":     notification.EmailAddress,
		"historyId": notification.HistoryID,
		"timestamp": time.Now(),
	})
}

// applyHistoryDiff lists the remote history since the user's stored
// high-water mark and applies the normalized changes.
func (s *Service) applyHistoryDiff(ctx context.Context, userID string, notifiedHistoryID uint64) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil || user == nil {
		log.Printf("[PubSub] Failed to reload user %s: %v", userID, err)
		return
	}

	since := user.LastHistoryID
	if since == 0 {
		// First notification ever: nothing to diff against, just record
		// the mark so the next one has a starting point.
		user.LastHistoryID = notifiedHistoryID
		if err := s.userRepo.Update(user); err != nil {
			log.Printf("[PubSub] Failed to store history mark for user %s: %v", userID, err)
		}
		return
	}

	changes, newHistoryID, err := s.boardUsecase.DiffRemoteHistory(ctx, userID, since)
	if err != nil {
		log.Printf("[PubSub] History diff failed for user %s: %v", userID, err)
		return
	}

	if len(changes) > 0 {
		if err := s.boardUsecase.ApplyRemoteChanges(userID, changes); err != nil {
			log.Printf("[PubSub] Failed to apply %d changes for user %s: %v", len(changes), userID, err)
			return
		}
		log.Printf("[PubSub] Applied %d changes for user %s", len(changes), userID)
	}

	if newHistoryID > since {
		user.LastHistoryID = newHistoryID
		if err := s.userRepo.Update(user); err != nil {
			log.Printf("[PubSub] Failed to advance history mark for user %s: %v", userID, err)
		}
	}
}
