package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"spotfix/repository"

	"github.com/gin-gonic/gin"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 50
)

type UserController struct {
	responder
	users repository.UserStore
}

func NewUserController(users repository.UserStore, log *slog.Logger, production bool) *UserController {
	return &UserController{
		responder: responder{log: log, production: production},
		users:     users,
	}
}

// GetLeaderboard ranks users by Fix Points.
func (uc *UserController) GetLeaderboard(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLeaderboardSize)))
	if err != nil || limit < 1 || limit > maxLeaderboardSize {
		limit = defaultLeaderboardSize
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	entries, err := uc.users.Leaderboard(ctx, limit)
	if err != nil {
		uc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
