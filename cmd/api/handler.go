package api

import (
	"log"

	boardUsecasePkg "mailboard-backend/internal/board/usecase"
	"mailboard-backend/pkg/ai"
	"mailboard-backend/pkg/chroma"
	"mailboard-backend/pkg/config"
	"mailboard-backend/pkg/sse"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	boardUsecase boardUsecasePkg.BoardUsecase
	sseManager   *sse.Manager
	config       *config.Config
}

// NewHandler finishes the late wiring: AI summarizer, vector index and
// event fan-out are attached here so a missing credential degrades the
// feature instead of failing startup.
func NewHandler(boardUc boardUsecasePkg.BoardUsecase, sseManager *sse.Manager, cfg *config.Config) *Handler {
	aiService, err := ai.NewSummarizerService(ai.Config{
		Provider:     ai.ProviderGemini,
		GeminiAPIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		log.Printf("Warning: Failed to initialize AI service: %v. Summaries will not be available.", err)
	} else {
		boardUc.SetAIService(aiService)
		log.Println("AI service initialized")
	}

	if cfg.ChromaAPIKey != "" {
		chromaClient, err := chroma.NewChromaClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Chroma client: %v. Semantic search will not be available.", err)
		} else {
			boardUc.SetVectorIndex(chromaClient)
			log.Println("Chroma client initialized successfully")
		}
	} else {
		log.Println("Warning: CHROMA_API_KEY not set. Semantic search will not be available.")
	}

	boardUc.SetEventService(sseManager)

	return &Handler{
		boardUsecase: boardUc,
		sseManager:   sseManager,
		config:       cfg,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	SetupRoutes(r, h.boardUsecase, h.sseManager, h.config)

	return r.Run(addr)
}
