package main

import (
	"context"
	"log"
	"strings"

	api "mailboard-backend/cmd/api"
	authdomain "mailboard-backend/internal/auth/domain"
	authRepo "mailboard-backend/internal/auth/repository"
	boarddomain "mailboard-backend/internal/board/domain"
	boardRepo "mailboard-backend/internal/board/repository"
	"mailboard-backend/internal/board/scheduler"
	boardUsecasePkg "mailboard-backend/internal/board/usecase"
	"mailboard-backend/internal/notification"
	"mailboard-backend/pkg/config"
	"mailboard-backend/pkg/database"
	"mailboard-backend/pkg/gmail"
	"mailboard-backend/pkg/sse"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&authdomain.User{}, &boarddomain.CachedEmail{}, &boarddomain.KanbanColumn{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	cachedEmailRepo := boardRepo.NewCachedEmailRepository(db)
	kanbanColumnRepo := boardRepo.NewKanbanColumnRepository(db)

	// Initialize SSE Manager
	sseManager := sse.NewManager()

	// Initialize Gmail service
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)

	// Initialize board usecase
	boardUsecase := boardUsecasePkg.NewBoardUsecase(cachedEmailRepo, kanbanColumnRepo, userRepo, gmailService, cfg, cfg.PubSubTopic)

	// Initialize Notification Service (Pub/Sub), only when configured
	if cfg.PubSubProjectID != "" {
		// Extract short topic name from a full resource name if necessary
		topicName := cfg.PubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}

		notifService, err := notification.NewService(cfg.PubSubProjectID, topicName, sseManager, userRepo, boardUsecase, cfg.PubSubCredentials)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize notification service: %v", err)
		} else {
			go notifService.Start(context.Background())
		}
	} else {
		log.Printf("[WARN] PUBSUB_PROJECT_ID not configured, notification service disabled")
	}

	// Start maintenance scheduler (snooze waker, watch renewal)
	maintenance := scheduler.NewMaintenanceScheduler(boardUsecase, userRepo, cfg)
	if err := maintenance.Start(); err != nil {
		log.Fatal("Failed to start maintenance scheduler:", err)
	}

	// Initialize HTTP handler
	handler := api.NewHandler(boardUsecase, sseManager, cfg)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
