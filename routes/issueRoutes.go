package routes

import (
	"spotfix/middlewares"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue routes
func IssueRoutes(r *gin.Engine, h Handlers) {
	auth := middlewares.AuthMiddleware(h.Tokens)

	issue := r.Group("/api/issues")
	{
		issue.GET("", h.Issues.ListIssues)
		issue.GET("/stats", h.Issues.GetIssueStats)
		issue.GET("/search", h.Issues.SearchIssues)
		issue.GET("/nearby", h.Issues.NearbyIssues)
		issue.GET("/user/:userId", h.Issues.GetIssuesByUser)
		issue.GET("/:id", h.Issues.GetIssue)
		issue.GET("/:id/comments", h.Issues.GetComments)

		issue.POST("", auth, h.CreateLimit, h.Issues.CreateIssue)
		issue.PUT("/:id", auth, h.Issues.UpdateIssue)
		issue.PATCH("/:id/status", auth, h.Issues.UpdateIssueStatus)
		issue.POST("/:id/comments", auth, h.Issues.AddComment)
		issue.POST("/:id/vote", auth, h.Issues.VoteOnIssue)
		issue.DELETE("/:id", auth, h.Issues.DeleteIssue)
	}
}
