package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyjia/expense-approval/internal/application/workflow"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

const (
	// HeaderUserID carries the id of the caller, set by the upstream authentication layer
	HeaderUserID = "X-User-ID"
	// HeaderRequestID is echoed back and used as the correlation id of emitted events
	HeaderRequestID = "X-Request-ID"

	requestIDKey = "request_id"
	userKey      = "user"
)

// requestIDMiddleware accepts a caller-supplied request id or generates one
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(workflow.WithCorrelationID(c.Request.Context(), id))
		c.Next()
	}
}

// authenticate resolves the X-User-ID header to a directory user
func (h *Handlers) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing or invalid " + HeaderUserID + " header",
			})
			return
		}

		user, err := h.expenses.Whoami(c.Request.Context(), id)
		if err != nil {
			h.writeError(c, err)
			c.Abort()
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *entity.User {
	user, _ := c.MustGet(userKey).(*entity.User)
	return user
}
