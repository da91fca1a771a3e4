package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"spotfix/middlewares"
	"spotfix/models"
	"spotfix/repository"
	"spotfix/utils"

	"github.com/gin-gonic/gin"
)

// AuthController serves registration, login and the caller's profile.
type AuthController struct {
	responder
	users  repository.UserStore
	tokens *utils.TokenManager
	now    func() time.Time
}

func NewAuthController(users repository.UserStore, tokens *utils.TokenManager, log *slog.Logger, production bool) *AuthController {
	return &AuthController{
		responder: responder{log: log, production: production},
		users:     users,
		tokens:    tokens,
		now:       time.Now,
	}
}

type authResponse struct {
	Token string         `json:"token"`
	User  models.UserRef `json:"user"`
}

// RegisterUser handles user registration
func (ac *AuthController) RegisterUser(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required,max=50"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		ac.fail(c, bindError(err))
		return
	}

	now := ac.now()
	user := models.User{
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Password:  input.Password,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if user.Name == "" {
		ac.fail(c, models.NewValidationError("name", "is required"))
		return
	}
	if err := user.HashPassword(); err != nil {
		ac.fail(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := ac.users.Create(ctx, &user); err != nil {
		ac.fail(c, err)
		return
	}
	ac.log.InfoContext(ctx, "user registered", slog.String("user_id", user.ID.Hex()))

	ac.respondWithToken(c, http.StatusCreated, &user)
}

// LoginUser handles user login
func (ac *AuthController) LoginUser(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		ac.fail(c, bindError(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, err := ac.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if errors.Is(err, models.ErrNotFound) {
		ac.fail(c, models.ErrInvalidCredentials)
		return
	}
	if err != nil {
		ac.fail(c, err)
		return
	}
	if !user.ComparePassword(input.Password) {
		ac.fail(c, models.ErrInvalidCredentials)
		return
	}

	ac.respondWithToken(c, http.StatusOK, user)
}

func (ac *AuthController) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := ac.tokens.GenerateToken(user.ID.Hex(), user.Email)
	if err != nil {
		ac.fail(c, err)
		return
	}
	c.JSON(status, authResponse{Token: token, User: user.Ref()})
}

// GetProfile returns the authenticated user with their points and issue history.
func (ac *AuthController) GetProfile(c *gin.Context) {
	userID, err := middlewares.CurrentUserID(c)
	if err != nil {
		ac.fail(c, models.NewError(models.ErrUnauthenticated, "User not authenticated"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, err := ac.users.FindByID(ctx, userID)
	if err != nil {
		ac.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// LogoutUser is a no-op for bearer tokens; clients drop the token.
func (ac *AuthController) LogoutUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
