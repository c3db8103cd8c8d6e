package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redflaghq/redflag-platform/internal/common"
	"github.com/redflaghq/redflag-platform/internal/conversation"
	"github.com/redflaghq/redflag-platform/internal/httpapi/middleware"
	"github.com/redflaghq/redflag-platform/internal/usage"
	"gorm.io/gorm"
)

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

type createConversationReq struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

func (h *Handler) CreateConversation(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createConversationReq
	_ = c.ShouldBindJSON(&req) // allow empty {}

	conv, err := h.ConvSvc.CreateConversation(c.Request.Context(), uid, req.Title, req.Category)
	if err != nil {
		if errors.Is(err, conversation.ErrInvalidCategory) {
			common.Fail(c, http.StatusBadRequest, 10006, "invalid category")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create conversation")
		return
	}

	common.OK(c, conv)
}

func (h *Handler) ListConversations(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	convs, err := h.ConvSvc.ListConversations(c.Request.Context(), uid, limit)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list conversations")
		return
	}

	common.OK(c, gin.H{"conversations": convs})
}

func (h *Handler) GetConversation(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	conv, err := h.ConvSvc.GetConversation(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "conversation not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, conv)
}

func (h *Handler) DeleteConversation(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	if err := h.ConvSvc.DeleteConversation(c.Request.Context(), uid, c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "conversation not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"deleted": true})
}

type addMessageReq struct {
	Message string `json:"message" binding:"required"`
}

// AddMessage appends a user message and queues an analysis run. The usage
// ceiling is consulted first: a request over the daily limit mutates
// nothing.
func (h *Handler) AddMessage(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	conversationID := c.Param("id")

	var req addMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	idempoKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(idempoKey) > 128 {
		common.Fail(c, http.StatusBadRequest, 10003, "idempotency key too long")
		return
	}
	var idempoKeyPtr *string
	if idempoKey != "" {
		idempoKeyPtr = &idempoKey
	}

	// ownership first: a bad conversation id must not consume quota
	if _, err := h.ConvSvc.GetConversation(c.Request.Context(), uid, conversationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "conversation not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	day := h.Limiter.DayKey(time.Now())
	count, err := h.Limiter.CheckAndIncrement(c.Request.Context(), uid, day, h.Cfg.DailyAnalysisLimit)
	if err != nil {
		if errors.Is(err, usage.ErrRateLimitExceeded) {
			common.Fail(c, http.StatusTooManyRequests, 42901, "daily analysis limit reached")
			return
		}
		log.Printf("[AddMessage] usage check failed uid=%d err=%v", uid, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	msg, err := h.ConvSvc.AddUserMessage(c.Request.Context(), uid, conversationID, req.Message)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "conversation not found")
			return
		}
		log.Printf("[AddMessage] insert failed uid=%d conversation_id=%s err=%v", uid, conversationID, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	jobID, err := common.NewULID()
	if err != nil {
		log.Printf("[AddMessage] NewULID failed uid=%d err=%v", uid, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	j := &conversation.AnalysisJob{
		ID:             jobID,
		UserID:         uid,
		ConversationID: conversationID,
		IdempotencyKey: idempoKeyPtr,
		Status:         conversation.JobQueued,
	}

	job, created, err := h.ConvSvc.CreateJobOrGetExisting(c.Request.Context(), j)
	if err != nil {
		log.Printf("[AddMessage] CreateJobOrGetExisting failed uid=%d job_id=%s err=%v", uid, jobID, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	// enqueue only when a new job was created
	if created {
		if err := h.Rabbit.PublishJob(c.Request.Context(), job.ID); err != nil {
			log.Printf("[AddMessage] PublishJob failed uid=%d job_id=%s err=%v", uid, job.ID, err)
			common.Fail(c, http.StatusInternalServerError, 50002, "enqueue failed")
			return
		}
	}

	common.OK(c, gin.H{
		"message_id": msg.ID,
		"job_id":     job.ID,
		"usage": gin.H{
			"count": count,
			"limit": h.Cfg.DailyAnalysisLimit,
		},
	})
}

func (h *Handler) ListMessages(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	msgs, err := h.ConvSvc.ListMessages(c.Request.Context(), uid, c.Param("id"), limit)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "conversation not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		return
	}

	common.OK(c, gin.H{"messages": msgs})
}

func (h *Handler) GetJob(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	jobID := c.Param("job_id")
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "job_id required")
		return
	}

	j, err := h.ConvSvc.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	if j.UserID != uid {
		// hide existence
		common.Fail(c, http.StatusNotFound, 40402, "job not found")
		return
	}

	common.OK(c, gin.H{
		"job": gin.H{
			"id":                j.ID,
			"conversation_id":   j.ConversationID,
			"status":            j.Status,
			"result_message_id": j.ResultMessageID,
			"error":             j.Error,
			"created_at":        j.CreatedAt,
			"updated_at":        j.UpdatedAt,
		},
	})
}

func (h *Handler) GetUsage(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	day := h.Limiter.DayKey(time.Now())
	count, err := h.Limiter.Count(c.Request.Context(), uid, day)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	common.OK(c, gin.H{
		"day":   day,
		"count": count,
		"limit": h.Cfg.DailyAnalysisLimit,
	})
}
