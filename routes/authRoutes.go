package routes

import (
	"spotfix/middlewares"

	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, h Handlers) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", h.Auth.RegisterUser)
		auth.POST("/login", h.Auth.LoginUser)
		auth.POST("/logout", h.Auth.LogoutUser)
		auth.GET("/profile", middlewares.AuthMiddleware(h.Tokens), h.Auth.GetProfile)
	}
}
