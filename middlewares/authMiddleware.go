package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"spotfix/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	UserIDKey = "user_id"
	EmailKey  = "email"
)

var errNoUser = errors.New("user not authenticated")

// AuthMiddleware verifies the bearer token and stores the caller's id and email in the context.
func AuthMiddleware(tokens *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No authorization token provided"})
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		claims, err := tokens.ParseToken(tokenString)
		if err != nil {
			slog.DebugContext(c.Request.Context(), "token validation failed", slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization token"})
			return
		}
		if _, err := primitive.ObjectIDFromHex(claims.UserID); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token claims"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(EmailKey, claims.Email)
		c.Next()
	}
}

// CurrentUserID returns the authenticated caller set by AuthMiddleware.
func CurrentUserID(c *gin.Context) (primitive.ObjectID, error) {
	id := c.GetString(UserIDKey)
	if id == "" {
		return primitive.NilObjectID, errNoUser
	}
	return primitive.ObjectIDFromHex(id)
}
