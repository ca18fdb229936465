package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoohealth/internal/services"
	"github.com/yoockh/yoohealth/internal/utils"
)

type VoiceHandler struct {
	svc services.VoiceService
}

func NewVoiceHandler(svc services.VoiceService) *VoiceHandler {
	return &VoiceHandler{svc: svc}
}

type TranscribeRequest struct {
	Audio    string `json:"audio"`
	MimeType string `json:"mime_type,omitempty"`
}

func (h *VoiceHandler) Transcribe(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req TranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "VoiceHandler.Transcribe", "invalid request body", err))
		return
	}

	res, err := h.svc.Transcribe(c.Request.Context(), services.TranscribeRequest{
		RequestID:   c.GetString("request_id"),
		UserID:      userID,
		AudioBase64: req.Audio,
		MimeType:    req.MimeType,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *VoiceHandler) ListTranscripts(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	rows, err := h.svc.ListTranscripts(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcripts": rows})
}
