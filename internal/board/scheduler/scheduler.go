package scheduler

import (
	"context"
	"log"
	"time"

	authrepo "mailboard-backend/internal/auth/repository"
	"mailboard-backend/internal/board/usecase"
	"mailboard-backend/pkg/config"

	"github.com/robfig/cron/v3"
)

// MaintenanceScheduler runs the fixed-interval jobs: waking due
// snoozes and renewing mailbox watch registrations. Each job can be
// disabled individually without touching request-path sync.
type MaintenanceScheduler struct {
	cron         *cron.Cron
	boardUsecase usecase.BoardUsecase
	userRepo     authrepo.UserRepository
	config       *config.Config
}

func NewMaintenanceScheduler(boardUsecase usecase.BoardUsecase, userRepo authrepo.UserRepository, cfg *config.Config) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		cron:         cron.New(),
		boardUsecase: boardUsecase,
		userRepo:     userRepo,
		config:       cfg,
	}
}

func (s *MaintenanceScheduler) Start() error {
	if !s.config.DisableSnoozeWaker {
		if _, err := s.cron.AddFunc(s.config.SnoozeWakerSchedule, s.wakeSnoozes); err != nil {
			return err
		}
		log.Printf("[Scheduler] Snooze waker registered (%s)", s.config.SnoozeWakerSchedule)
	}

	if !s.config.DisableWatchRenewal {
		if _, err := s.cron.AddFunc(s.config.WatchRenewalSchedule, s.renewWatches); err != nil {
			return err
		}
		log.Printf("[Scheduler] Watch renewal registered (%s)", s.config.WatchRenewalSchedule)
	}

	s.cron.Start()
	return nil
}

func (s *MaintenanceScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *MaintenanceScheduler) wakeSnoozes() {
	woken, err := s.boardUsecase.WakeDueSnoozes()
	if err != nil {
		log.Printf("[Scheduler] Snooze waker failed: %v", err)
		return
	}
	if woken > 0 {
		log.Printf("[Scheduler] Woke %d snoozed emails", woken)
	}
}

// renewWatches re-registers the push watch for every connected user.
// Gmail watches expire after 7 days; a daily renewal keeps them alive.
func (s *MaintenanceScheduler) renewWatches() {
	users, err := s.userRepo.FindAll()
	if err != nil {
		log.Printf("[Scheduler] Watch renewal failed to list users: %v", err)
		return
	}

	renewed := 0
	for _, user := range users {
		if user.AccessToken == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := s.boardUsecase.WatchMailbox(ctx, user.ID)
		cancel()
		if err != nil {
			log.Printf("[Scheduler] Watch renewal failed for user %s: %v", user.ID, err)
			continue
		}
		renewed++
	}
	log.Printf("[Scheduler] Renewed watch for %d users", renewed)
}
