package api

import (
	"net/http"

	authDelivery "mailboard-backend/internal/auth/delivery"
	boardDelivery "mailboard-backend/internal/board/delivery"
	boardUsecasePkg "mailboard-backend/internal/board/usecase"
	"mailboard-backend/pkg/config"
	"mailboard-backend/pkg/sse"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, boardUsecase boardUsecasePkg.BoardUsecase, sseManager *sse.Manager, cfg *config.Config) {
	boardHandler := boardDelivery.NewBoardHandler(boardUsecase, cfg.BoardPageSize)
	authMiddleware := authDelivery.AuthMiddleware(cfg.JWTSecret)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// SSE endpoint
		api.GET("/events", authMiddleware, sseManager.HandleSSE)

		// Board routes (protected)
		board := api.Group("/board")
		board.Use(authMiddleware)
		{
			board.GET("", boardHandler.GetBoard)
			board.GET("/columns", boardHandler.GetColumns)
			board.PUT("/columns", boardHandler.ReplaceColumns)
			board.POST("/summarize", boardHandler.QueueSummaries)
		}

		// Email routes (protected)
		emails := api.Group("/emails")
		emails.Use(authMiddleware)
		{
			emails.PATCH("/:id/move", boardHandler.MoveEmail)
			emails.POST("/:id/snooze", boardHandler.SnoozeEmail)
			emails.POST("/:id/unsnooze", boardHandler.UnsnoozeEmail)
			emails.PATCH("/:id/read", boardHandler.MarkAsRead)
			emails.PATCH("/:id/unread", boardHandler.MarkAsUnread)
			emails.GET("/:id/summary", boardHandler.SummarizeEmail)
			emails.POST("/watch", boardHandler.WatchMailbox)
		}

		// Search routes (protected)
		search := api.Group("/search")
		search.Use(authMiddleware)
		{
			search.GET("", boardHandler.Search)
			search.GET("/fuzzy", boardHandler.FuzzySearch)
			search.GET("/semantic", boardHandler.SemanticSearch)
			search.GET("/suggestions", boardHandler.GetSearchSuggestions)
		}
	}
}
