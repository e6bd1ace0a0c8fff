package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/authkit/backend/internal/db"
	"github.com/authkit/backend/internal/model"
	"github.com/authkit/backend/internal/token"
)

const authUserKey = "auth_user"

// userLoader is the store slice the guard needs. *db.Postgres satisfies it.
type userLoader interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

// AuthMiddleware verifies the bearer access token and attaches the
// loaded user record to the request context. Each request stands alone;
// nothing is cached between calls.
func AuthMiddleware(store userLoader, accessSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeMessage(c, http.StatusUnauthorized, "No token!", "error")
			c.Abort()
			return
		}

		bearer := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if bearer == "" {
			writeMessage(c, http.StatusUnauthorized, "No token!", "error")
			c.Abort()
			return
		}

		subject, err := token.Verify(bearer, accessSecret)
		if err != nil {
			writeMessage(c, http.StatusUnauthorized, "Invalid token!", "error")
			c.Abort()
			return
		}

		userID, err := uuid.Parse(subject)
		if err != nil {
			writeMessage(c, http.StatusUnauthorized, "Invalid token!", "error")
			c.Abort()
			return
		}

		user, err := store.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			if db.IsNoRows(err) {
				writeMessage(c, http.StatusNotFound, "User doesn't exist!", "error")
			} else {
				writeMessage(c, http.StatusInternalServerError, "Something went wrong!", "error")
			}
			c.Abort()
			return
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

func GetAuthUser(c *gin.Context) *model.User {
	if value, ok := c.Get(authUserKey); ok {
		if user, ok := value.(*model.User); ok {
			return user
		}
	}
	return nil
}

func CORSMiddleware(allowedOrigins []string, allowCredentials bool) gin.HandlerFunc {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := originMap[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				if allowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
