package handlers

import (
	"net/http"

	"trivia-live-backend/internal/catalog"
	"trivia-live-backend/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type QuestionHandler struct {
	catalog    *catalog.Service
	controller *game.Controller
}

func NewQuestionHandler(catalogService *catalog.Service, controller *game.Controller) *QuestionHandler {
	return &QuestionHandler{catalog: catalogService, controller: controller}
}

// List godoc
// @Summary      List the question catalog
// @Produce      json
// @Success      200 {array} models.Question
// @Router       /api/v1/questions [get]
func (h *QuestionHandler) List(c *gin.Context) {
	questions, err := h.catalog.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load questions"})
		return
	}
	c.JSON(http.StatusOK, questions)
}

// Replace godoc
// @Summary      Replace the whole question catalog
// @Description  Full-replace save. Forces the live session back to waiting.
// @Accept       json
// @Produce      json
// @Param        request body []catalog.QuestionInput true "New catalog"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /api/v1/questions [post]
func (h *QuestionHandler) Replace(c *gin.Context) {
	var inputs []catalog.QuestionInput
	if err := c.ShouldBindJSON(&inputs); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.catalog.ReplaceAll(inputs); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	// A catalog change mid-session is undefined for the game, so the session
	// is forced back to waiting.
	h.controller.CatalogChanged()

	log.Info().Int("questions", len(inputs)).Msg("question catalog replaced")
	c.JSON(http.StatusOK, MessageResponse{Message: "catalog saved"})
}
