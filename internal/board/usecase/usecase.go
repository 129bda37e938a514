package usecase

import (
	"sync"

	"golang.org/x/oauth2"

	authdomain "mailboard-backend/internal/auth/domain"
	authrepo "mailboard-backend/internal/auth/repository"
	boarddomain "mailboard-backend/internal/board/domain"
	"mailboard-backend/internal/board/repository"
	"mailboard-backend/pkg/ai"
	"mailboard-backend/pkg/config"

	pkgerrors "github.com/pkg/errors"
)

type boardUsecase struct {
	cachedRepo   repository.CachedEmailRepository
	columnRepo   repository.KanbanColumnRepository
	userRepo     authrepo.UserRepository
	mailProvider boarddomain.MailProvider
	vectorIndex  boarddomain.VectorIndex
	aiService    ai.SummarizerService
	eventService EventService
	config       *config.Config
	topicName    string

	embedQueue   chan EmbedJob
	summaryQueue chan SummaryJob
	workerWg     sync.WaitGroup
}

// NewBoardUsecase wires the sync engine and starts its background
// worker pools. Vector index, AI service and event service are wired
// late through the Set methods.
func NewBoardUsecase(
	cachedRepo repository.CachedEmailRepository,
	columnRepo repository.KanbanColumnRepository,
	userRepo authrepo.UserRepository,
	mailProvider boarddomain.MailProvider,
	cfg *config.Config,
	topicName string,
) BoardUsecase {
	uc := &boardUsecase{
		cachedRepo:   cachedRepo,
		columnRepo:   columnRepo,
		userRepo:     userRepo,
		mailProvider: mailProvider,
		config:       cfg,
		topicName:    topicName,
		embedQueue:   make(chan EmbedJob, 1000),
		summaryQueue: make(chan SummaryJob, 500),
	}
	uc.startEmbedWorkers(cfg.EmbedWorkerCount)
	uc.startSummaryWorkers(cfg.SummaryWorkers)
	return uc
}

// SetEventService allows wiring EventService after creation
func (u *boardUsecase) SetEventService(svc EventService) {
	u.eventService = svc
}

// SetAIService allows wiring the AI service after creation
func (u *boardUsecase) SetAIService(svc ai.SummarizerService) {
	u.aiService = svc
}

// SetVectorIndex allows wiring the vector index after creation
func (u *boardUsecase) SetVectorIndex(idx boarddomain.VectorIndex) {
	u.vectorIndex = idx
}

func (u *boardUsecase) getUser(userID string) (*authdomain.User, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find user")
	}
	if user == nil {
		return nil, pkgerrors.Wrap(boarddomain.ErrNotFound, "user")
	}
	return user, nil
}

func (u *boardUsecase) getUserTokens(userID string) (string, string, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return "", "", err
	}
	if user == nil {
		return "", "", nil
	}
	return user.AccessToken, user.RefreshToken, nil
}

func (u *boardUsecase) makeTokenUpdateCallback(userID string) boarddomain.TokenUpdateFunc {
	return func(token *oauth2.Token) error {
		user, err := u.userRepo.FindByID(userID)
		if err != nil {
			return err
		}
		if user == nil {
			return nil
		}

		user.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			user.RefreshToken = token.RefreshToken
		}
		user.TokenExpiry = token.Expiry

		return u.userRepo.Update(user)
	}
}
