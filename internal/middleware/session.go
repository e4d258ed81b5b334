package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-activity-portal/internal/models"
	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
	"github.com/noah-isme/sma-activity-portal/pkg/response"
)

// ContextUserKey is the gin context key storing the signed-in user.
const ContextUserKey = "currentUser"

type userSource interface {
	CurrentUser() *models.User
}

// RequireUser blocks anonymous requests to privileged routes.
func RequireUser(session userSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := session.CurrentUser()
		if user == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "sign in required"))
			c.Abort()
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// AttachUser stores the signed-in user, if any, without blocking.
func AttachUser(session userSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := session.CurrentUser(); user != nil {
			c.Set(ContextUserKey, user)
		}
		c.Next()
	}
}

// UserFromContext returns the user stored by RequireUser or AttachUser.
func UserFromContext(c *gin.Context) *models.User {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
