package routes

import (
	"github.com/gin-gonic/gin"
)

func UserRoutes(r *gin.Engine, h Handlers) {
	users := r.Group("/api/users")
	{
		users.GET("/leaderboard", h.Users.GetLeaderboard)
	}
}
