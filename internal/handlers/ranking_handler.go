package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// rankingsBody flattens the rankings view next to the success flag.
type rankingsBody struct {
	Success bool `json:"success"`
	*services.RankingResponse
}

type RankingHandler struct {
	BaseHandler
	rankingService services.RankingService
	exportService  services.ExportService
}

func NewRankingHandler(
	rankingService services.RankingService,
	exportService services.ExportService,
	logger utils.Logger,
	production bool,
) *RankingHandler {
	return &RankingHandler{
		BaseHandler:    NewBaseHandler(logger, production),
		rankingService: rankingService,
		exportService:  exportService,
	}
}

// GetRankings returns the leaderboard of completed attempts.
// @Router /quizzes/{id}/rankings [get]
func (h *RankingHandler) GetRankings(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	limit, ok := h.intQuery(c, "limit", 0)
	if !ok {
		return
	}

	rankings, err := h.rankingService.GetRankings(c.Request.Context(), actor, id, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rankingsBody{Success: true, RankingResponse: rankings})
}

// ExportRankings downloads the leaderboard as an xlsx workbook.
// @Router /quizzes/{id}/rankings/export [get]
func (h *RankingHandler) ExportRankings(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	data, err := h.exportService.ExportRankings(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="quiz-%s-rankings.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// GetAttempts returns every ledger entry for the quiz.
// @Router /admin/quizzes/{id}/attempts [get]
func (h *RankingHandler) GetAttempts(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	view, err := h.rankingService.GetAttempts(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, "", view)
}

// PreviewPrizes returns the payout per rank for the current pool.
// @Router /quizzes/{id}/prizes [get]
func (h *RankingHandler) PreviewPrizes(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	breakdown, err := h.rankingService.PreviewPrizes(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, "", breakdown)
}

// DeclareWinners settles the prizes of an ended quiz.
// @Router /quizzes/{id}/winners [post]
func (h *RankingHandler) DeclareWinners(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Declaring winners", "quiz_id", id)

	winners, err := h.rankingService.DeclareWinners(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, "Winners declared", winners)
}
