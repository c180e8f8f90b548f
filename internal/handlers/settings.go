package handlers

import (
	"encoding/json"
	"net/http"

	"trivia-live-backend/internal/game"
	"trivia-live-backend/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const settingsKey = "global"

type SettingsHandler struct {
	db         *gorm.DB
	controller *game.Controller
}

func NewSettingsHandler(db *gorm.DB, controller *game.Controller) *SettingsHandler {
	return &SettingsHandler{db: db, controller: controller}
}

// LoadSettings reads the stored settings blob, or nil when none was saved.
func LoadSettings(db *gorm.DB) json.RawMessage {
	var setting models.Setting
	if err := db.First(&setting, "key = ?", settingsKey).Error; err != nil {
		return nil
	}
	return json.RawMessage(setting.Value)
}

// GetSettings godoc
// @Summary      Get client settings
// @Produce      json
// @Success      200 {object} object
// @Router       /api/v1/settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	raw := LoadSettings(h.db)
	if raw == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

// UpdateSettings godoc
// @Summary      Update client settings
// @Description  Stores the settings blob and broadcasts it to all connections.
// @Accept       json
// @Produce      json
// @Success      200 {object} MessageResponse
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /api/v1/settings [put]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil || !json.Valid(raw) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON"})
		return
	}

	setting := models.Setting{Key: settingsKey, Value: string(raw)}
	if err := h.db.Save(&setting).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to save settings"})
		return
	}

	h.controller.UpdateSettings(json.RawMessage(raw))
	c.JSON(http.StatusOK, MessageResponse{Message: "settings saved"})
}
