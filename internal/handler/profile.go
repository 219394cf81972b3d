package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"groupchat/internal/middleware"
	"groupchat/internal/store"
)

type ProfileHandler struct {
	Store  *store.Store
	Logger *zap.Logger
}

type profileBody struct {
	Username string `json:"username"`
}

func (h *ProfileHandler) Get(c *gin.Context) {
	member, ok := middleware.MemberFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
		return
	}
	c.JSON(http.StatusOK, member)
}

// Update serves both PUT and PATCH; only the username can change.
func (h *ProfileHandler) Update(c *gin.Context) {
	member, ok := middleware.MemberFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
		return
	}

	var body profileBody
	// A missing or malformed body is reported the same as a missing field.
	_ = c.ShouldBindJSON(&body)
	if body.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"username": []string{"This field is required."}})
		return
	}
	if len(body.Username) > 150 {
		c.JSON(http.StatusBadRequest, gin.H{"username": []string{"Ensure this field has no more than 150 characters."}})
		return
	}

	updated, err := h.Store.RenameMember(member.ID, body.Username)
	switch {
	case errors.Is(err, store.ErrUsernameTaken):
		c.JSON(http.StatusBadRequest, gin.H{"username": []string{msgUsernameTaken}})
		return
	case err != nil:
		if h.Logger != nil {
			h.Logger.Error("rename member", zap.Int64("member_id", member.ID), zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Profile update failed."})
		return
	}
	c.JSON(http.StatusOK, updated)
}
