package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"groupchat/internal/auth"
	"groupchat/internal/metrics"
	"groupchat/internal/middleware"
	"groupchat/internal/model"
	"groupchat/internal/store"
)

const (
	msgUsernameTaken     = "A member with this username already exists."
	msgCredentialsNeeded = "Both username and password are required."
	msgBadCredentials    = "Invalid username or password."
)

type AuthHandler struct {
	Store       *store.Store
	TokenConfig auth.TokenConfig
	Logger      *zap.Logger
	Now         func() time.Time
}

type registerBody struct {
	Username string `json:"username" validate:"required,notblank,max=150"`
	Password string `json:"password" validate:"required,min=4"`
}

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) log() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func (h *AuthHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *AuthHandler) Register(c *gin.Context) {
	var body registerBody
	if !bindAndValidate(c, &body) {
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		h.log().Error("hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Registration failed."})
		return
	}

	member, err := h.Store.CreateMember(body.Username, hash, h.now())
	if errors.Is(err, store.ErrUsernameTaken) {
		c.JSON(http.StatusBadRequest, gin.H{"username": []string{msgUsernameTaken}})
		return
	}
	if err != nil {
		h.log().Error("create member", zap.String("username", body.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Registration failed."})
		return
	}
	metrics.MembersRegistered.Inc()
	h.log().Info("member registered", zap.Int64("member_id", member.ID))

	h.respondWithToken(c, http.StatusCreated, member)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "JSON parse error."})
		return
	}
	if body.Username == "" || body.Password == "" {
		metrics.Logins.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{msgCredentialsNeeded}})
		return
	}

	stored, err := h.Store.MemberByUsername(body.Username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.log().Error("lookup member", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Login failed."})
		return
	}
	ok := false
	if err == nil {
		ok, err = auth.ComparePassword(body.Password, stored.PasswordHash)
		if err != nil {
			h.log().Warn("compare password", zap.Int64("member_id", stored.ID), zap.Error(err))
		}
	}
	if !ok {
		metrics.Logins.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{msgBadCredentials}})
		return
	}
	metrics.Logins.WithLabelValues("ok").Inc()

	h.respondWithToken(c, http.StatusOK, stored.Public())
}

func (h *AuthHandler) Me(c *gin.Context) {
	member, ok := middleware.MemberFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, member model.Member) {
	token, err := auth.CreateToken(member.ID, h.TokenConfig)
	if err != nil {
		h.log().Error("create token", zap.Int64("member_id", member.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Token creation failed."})
		return
	}
	c.JSON(status, gin.H{"token": token, "member": member})
}
