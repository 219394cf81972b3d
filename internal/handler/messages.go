package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"groupchat/internal/metrics"
	"groupchat/internal/middleware"
	"groupchat/internal/store"
)

type MessagesHandler struct {
	Store  *store.Store
	Logger *zap.Logger
	Now    func() time.Time
}

type createMessageBody struct {
	Content string `json:"content" validate:"notblank"`
}

func messageJSON(m store.MessageView) gin.H {
	return gin.H{
		"id":              m.ID,
		"member":          m.MemberID,
		"member_username": m.AuthorUsername,
		"content":         m.Content,
		"created_at":      m.CreatedAt,
	}
}

func (h *MessagesHandler) List(c *gin.Context) {
	msgs, err := h.Store.ListMessages()
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("list messages", zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Could not load messages."})
		return
	}
	c.JSON(http.StatusOK, lo.Map(msgs, func(m store.MessageView, _ int) gin.H {
		return messageJSON(m)
	}))
}

func (h *MessagesHandler) Create(c *gin.Context) {
	member, ok := middleware.MemberFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
		return
	}

	var body createMessageBody
	if !bindAndValidate(c, &body) {
		return
	}

	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	msg, err := h.Store.AppendMessage(member.ID, body.Content, now)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token."})
		return
	}
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("append message", zap.Int64("member_id", member.ID), zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Could not send the message."})
		return
	}
	metrics.MessagesPosted.Inc()
	c.JSON(http.StatusCreated, messageJSON(msg))
}
