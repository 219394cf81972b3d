package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HelloHandler struct {
	Now func() time.Time
}

func (h *HelloHandler) Get(c *gin.Context) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	c.JSON(http.StatusOK, gin.H{"message": "Hello!", "timestamp": now().UTC()})
}
