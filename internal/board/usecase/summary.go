package usecase

import (
	"context"
	"log"
	"time"

	boarddomain "mailboard-backend/internal/board/domain"

	pkgerrors "github.com/pkg/errors"
)

// SummaryJob represents a background summarization request
type SummaryJob struct {
	UserID    string
	MessageID string
}

// SummarizeEmail returns a summary for a cached message, serving the
// stored one while it is fresh and regenerating otherwise.
func (u *boardUsecase) SummarizeEmail(ctx context.Context, userID, messageID string) (string, error) {
	user, err := u.getUser(userID)
	if err != nil {
		return "", err
	}

	item, err := u.cachedRepo.GetByMessageID(userID, messageID)
	if err != nil {
		return "", pkgerrors.Wrap(err, "load cached message")
	}
	if item == nil {
		return "", pkgerrors.Wrap(boarddomain.ErrNotFound, "message")
	}

	if item.SummaryFresh(time.Now(), u.config.SummaryTTL) {
		return item.Summary, nil
	}

	if u.aiService == nil {
		return "", pkgerrors.Wrap(boarddomain.ErrUpstream, "AI service not configured")
	}

	text := item.Snippet
	msg, err := u.mailProvider.GetMessage(ctx, user.AccessToken, user.RefreshToken, messageID, u.makeTokenUpdateCallback(userID))
	if err != nil {
		// Summarize from the cached snippet rather than failing.
		log.Printf("[Summary] Failed to fetch body for %s, using snippet: %v", messageID, err)
	} else if msg.Body != "" {
		text = msg.Body
	}

	summary, err := u.aiService.SummarizeEmail(ctx, "Subject: "+item.Subject+"\n\n"+text)
	if err != nil {
		return "", pkgerrors.Wrap(boarddomain.ErrUpstream, err.Error())
	}

	now := time.Now()
	item.Summary = summary
	item.LastSummarizedAt = &now
	if err := u.cachedRepo.Update(item); err != nil {
		log.Printf("[Summary] Failed to store summary for %s: %v", messageID, err)
	}

	return summary, nil
}

// QueueSummaries schedules background summarization. Never blocks; a
// full queue drops the remainder.
func (u *boardUsecase) QueueSummaries(userID string, messageIDs []string) {
	for _, messageID := range messageIDs {
		select {
		case u.summaryQueue <- SummaryJob{UserID: userID, MessageID: messageID}:
		default:
			log.Printf("[Summary] Queue full, dropping job for message %s", messageID)
			return
		}
	}
}

func (u *boardUsecase) startSummaryWorkers(workerCount int) {
	for i := 0; i < workerCount; i++ {
		u.workerWg.Add(1)
		go u.summaryWorker(i)
	}
}

// summaryWorker processes summarization jobs and pushes each finished
// summary to the user's live connections.
func (u *boardUsecase) summaryWorker(workerID int) {
	defer u.workerWg.Done()

	for job := range u.summaryQueue {
		item, err := u.cachedRepo.GetByMessageID(job.UserID, job.MessageID)
		if err != nil || item == nil {
			continue
		}
		if item.SummaryFresh(time.Now(), u.config.SummaryTTL) {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		summary, err := u.SummarizeEmail(ctx, job.UserID, job.MessageID)
		cancel()
		if err != nil {
			log.Printf("[Summary] Worker %d: Failed to summarize message %s: %v", workerID, job.MessageID, err)
			continue
		}

		if u.eventService != nil {
			u.eventService.SendToUser(job.UserID, "summary_update", map[string]string{
				"message_id": job.MessageID,
				"summary":    summary,
			})
		}
	}
}
