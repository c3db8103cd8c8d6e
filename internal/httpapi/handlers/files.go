package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redflaghq/redflag-platform/internal/common"
	"github.com/redflaghq/redflag-platform/internal/retention"
	"gorm.io/gorm"
)

type createFileReq struct {
	URL       string `json:"url" binding:"required"`
	StorageID string `json:"storage_id" binding:"required"`
	FileType  string `json:"file_type" binding:"required"`
	FileSize  *int64 `json:"file_size"`
}

// CreateFileRecord registers an already-uploaded blob against a
// conversation. The expiry stamp is computed here, once, from the retention
// window in force right now.
func (h *Handler) CreateFileRecord(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	conversationID := c.Param("id")

	var req createFileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if _, err := h.ConvSvc.GetConversation(c.Request.Context(), uid, conversationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "conversation not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	now := time.Now()
	f := &retention.UploadedFile{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		URL:            req.URL,
		StorageID:      req.StorageID,
		FileType:       req.FileType,
		FileSize:       req.FileSize,
		CreatedAt:      now,
		AutoDeleteAt:   retention.ComputeExpiry(now, h.Cfg.FileRetentionDays),
	}
	if err := h.Files.CreateFile(c.Request.Context(), f); err != nil {
		log.Printf("[CreateFileRecord] insert failed uid=%d conversation_id=%s err=%v", uid, conversationID, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, f)
}

func (h *Handler) ListFiles(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	conversationID := c.Param("id")

	if _, err := h.ConvSvc.GetConversation(c.Request.Context(), uid, conversationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "conversation not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	files, err := h.Files.ListByConversation(c.Request.Context(), conversationID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list files")
		return
	}

	common.OK(c, gin.H{"files": files})
}

// SweepNow triggers an on-demand retention sweep (the worker also runs one
// periodically).
func (h *Handler) SweepNow(c *gin.Context) {
	res, err := h.Sweeper.Sweep(c.Request.Context(), time.Now())
	if err != nil {
		log.Printf("[SweepNow] sweep failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50003, "sweep failed")
		return
	}
	common.OK(c, gin.H{"swept": res.Swept, "failed": res.Failed})
}
