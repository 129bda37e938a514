package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	boarddomain "mailboard-backend/internal/board/domain"
)

// EmbedJob represents a job to index an email in the vector store
type EmbedJob struct {
	UserID    string
	MessageID string
	Text      string
	Meta      boarddomain.EmbeddingMetadata
}

// scheduleEmbedding enqueues out-of-band embedding generation for a
// freshly cached message. Never blocks: a full queue drops the job and
// the message is retried next time it is pulled.
func (u *boardUsecase) scheduleEmbedding(userID string, item *boarddomain.CachedEmail, body string) {
	text := body
	if text == "" {
		text = item.Snippet
	}

	job := EmbedJob{
		UserID:    userID,
		MessageID: item.MessageID,
		Text:      fmt.Sprintf("Subject: %s\n\n%s", item.Subject, text),
		Meta: boarddomain.EmbeddingMetadata{
			Subject:   item.Subject,
			FromName:  item.FromName,
			FromEmail: item.FromEmail,
			Snippet:   item.Snippet,
			Summary:   item.Summary,
		},
	}

	select {
	case u.embedQueue <- job:
	default:
		log.Printf("[Embed] Queue full, dropping job for message %s", item.MessageID)
	}
}

// startEmbedWorkers starts worker goroutines to process embedding jobs
func (u *boardUsecase) startEmbedWorkers(workerCount int) {
	for i := 0; i < workerCount; i++ {
		u.workerWg.Add(1)
		go u.embedWorker(i)
	}
}

// embedWorker processes embedding jobs from the queue
func (u *boardUsecase) embedWorker(workerID int) {
	defer u.workerWg.Done()

	for job := range u.embedQueue {
		if u.vectorIndex == nil {
			continue
		}

		item, err := u.cachedRepo.GetByMessageID(job.UserID, job.MessageID)
		if err != nil {
			log.Printf("[Embed] Worker %d: Failed to load message %s: %v", workerID, job.MessageID, err)
			continue
		}
		if item == nil || item.HasEmbedding {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = u.vectorIndex.Upsert(ctx, job.UserID, job.MessageID, job.Meta, job.Text)
		cancel()
		if err != nil {
			// Not marked as embedded so the next pull retries it.
			log.Printf("[Embed] Worker %d: Failed to index message %s: %v", workerID, job.MessageID, err)
			continue
		}

		now := time.Now()
		item.HasEmbedding = true
		item.EmbeddingGeneratedAt = &now
		if err := u.cachedRepo.Update(item); err != nil {
			log.Printf("[Embed] Worker %d: Failed to mark message %s embedded: %v", workerID, job.MessageID, err)
		}
	}
}
