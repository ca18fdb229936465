package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoohealth/internal/models"
	"github.com/yoockh/yoohealth/internal/services"
	"github.com/yoockh/yoohealth/internal/utils"
)

type TopicHandler struct {
	svc services.TopicService
}

func NewTopicHandler(svc services.TopicService) *TopicHandler {
	return &TopicHandler{svc: svc}
}

// List serves GET /topics?category=a,b.
func (h *TopicHandler) List(c *gin.Context) {
	var cats []string
	for _, v := range c.QueryArray("category") {
		cats = append(cats, strings.Split(v, ",")...)
	}

	topics, err := h.svc.ListByCategories(c.Request.Context(), cats)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

func (h *TopicHandler) Upsert(c *gin.Context) {
	var req models.HealthTopic
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TopicHandler.Upsert", "invalid request body", err))
		return
	}

	t, err := h.svc.Upsert(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
