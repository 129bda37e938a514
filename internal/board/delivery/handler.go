package delivery

import (
	"errors"
	"net/http"
	"strconv"

	boarddomain "mailboard-backend/internal/board/domain"
	boarddto "mailboard-backend/internal/board/dto"
	"mailboard-backend/internal/board/usecase"

	"github.com/gin-gonic/gin"
)

type BoardHandler struct {
	boardUsecase    usecase.BoardUsecase
	defaultPageSize int
}

func NewBoardHandler(boardUsecase usecase.BoardUsecase, defaultPageSize int) *BoardHandler {
	return &BoardHandler{
		boardUsecase:    boardUsecase,
		defaultPageSize: defaultPageSize,
	}
}

// respondError maps domain sentinels onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, boarddomain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, boarddomain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, boarddomain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, boarddomain.ErrUpstream):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *BoardHandler) GetBoard(c *gin.Context) {
	userID := c.GetString("userID")

	pageSize := h.defaultPageSize
	if raw := c.Query("page_size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			pageSize = parsed
		}
	}

	page, err := h.boardUsecase.GetBoardPage(c.Request.Context(), userID, c.Query("page_token"), pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	columns, err := h.boardUsecase.GetColumns(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, boarddto.BoardResponse{
		Data: page.Columns,
		Meta: boarddto.BoardMeta{
			PageSize:      pageSize,
			NextPageToken: page.NextPageToken,
			HasMore:       page.HasMore,
			Total:         page.Totals,
		},
		Columns: columns,
	})
}

func (h *BoardHandler) GetColumns(c *gin.Context) {
	userID := c.GetString("userID")

	columns, err := h.boardUsecase.GetColumns(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, boarddto.ColumnsResponse{Columns: columns})
}

func (h *BoardHandler) ReplaceColumns(c *gin.Context) {
	userID := c.GetString("userID")

	var req boarddto.ReplaceColumnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	columns := make([]*boarddomain.KanbanColumn, 0, len(req.Columns))
	for _, column := range req.Columns {
		columns = append(columns, &boarddomain.KanbanColumn{
			ColumnID:   column.ID,
			Name:       column.Name,
			GmailLabel: column.GmailLabel,
		})
	}

	saved, err := h.boardUsecase.ReplaceColumns(userID, columns)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, boarddto.ColumnsResponse{Columns: saved})
}

func (h *BoardHandler) MoveEmail(c *gin.Context) {
	userID := c.GetString("userID")
	messageID := c.Param("id")

	var req boarddto.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.boardUsecase.MoveToColumn(c.Request.Context(), userID, messageID, req.ColumnID, req.GmailLabel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *BoardHandler) SnoozeEmail(c *gin.Context) {
	userID := c.GetString("userID")
	messageID := c.Param("id")

	var req boarddto.SnoozeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.boardUsecase.SnoozeEmail(userID, messageID, req.Until)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *BoardHandler) UnsnoozeEmail(c *gin.Context) {
	userID := c.GetString("userID")
	messageID := c.Param("id")

	item, err := h.boardUsecase.UnsnoozeEmail(userID, messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *BoardHandler) MarkAsRead(c *gin.Context) {
	userID := c.GetString("userID")

	item, err := h.boardUsecase.MarkRead(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *BoardHandler) MarkAsUnread(c *gin.Context) {
	userID := c.GetString("userID")

	item, err := h.boardUsecase.MarkUnread(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *BoardHandler) SummarizeEmail(c *gin.Context) {
	userID := c.GetString("userID")
	messageID := c.Param("id")

	summary, err := h.boardUsecase.SummarizeEmail(c.Request.Context(), userID, messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, boarddto.SummaryResponse{
		MessageID: messageID,
		Summary:   summary,
	})
}

func (h *BoardHandler) QueueSummaries(c *gin.Context) {
	userID := c.GetString("userID")

	var req boarddto.QueueSummariesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.boardUsecase.QueueSummaries(userID, req.MessageIDs)
	c.JSON(http.StatusAccepted, gin.H{"queued": len(req.MessageIDs)})
}

func (h *BoardHandler) searchLimit(c *gin.Context) int {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return limit
}

func (h *BoardHandler) FuzzySearch(c *gin.Context) {
	userID := c.GetString("userID")
	query := c.Query("q")

	results, err := h.boardUsecase.SearchFuzzy(userID, query, h.searchLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, boarddto.SearchResponse{Query: query, Results: results})
}

func (h *BoardHandler) SemanticSearch(c *gin.Context) {
	userID := c.GetString("userID")
	query := c.Query("q")

	results, err := h.boardUsecase.SearchSemantic(c.Request.Context(), userID, query, h.searchLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, boarddto.SearchResponse{Query: query, Results: results})
}

func (h *BoardHandler) Search(c *gin.Context) {
	userID := c.GetString("userID")
	query := c.Query("q")

	results, err := h.boardUsecase.SearchEmails(c.Request.Context(), userID, query, h.searchLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, boarddto.SearchResponse{Query: query, Results: results})
}

func (h *BoardHandler) GetSearchSuggestions(c *gin.Context) {
	userID := c.GetString("userID")

	suggestions, err := h.boardUsecase.GetSearchSuggestions(userID, c.Query("q"), h.searchLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, boarddto.SuggestionsResponse{Suggestions: suggestions})
}

func (h *BoardHandler) WatchMailbox(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.boardUsecase.WatchMailbox(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "watching"})
}
