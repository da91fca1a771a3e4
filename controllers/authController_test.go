package controllers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"spotfix/middlewares"
	"spotfix/mocks"
	"spotfix/models"
	"spotfix/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

func authRouter(t *testing.T, production bool) (*gin.Engine, *mocks.MockUserStore, *utils.TokenManager) {
	t.Helper()
	users := mocks.NewMockUserStore(gomock.NewController(t))
	tokens := utils.NewTokenManager("auth-controller-secret", time.Hour)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	ac := NewAuthController(users, tokens, log, production)
	ac.now = func() time.Time { return fixedNow }
	uc := NewUserController(users, log, production)

	r := gin.New()
	r.POST("/register", ac.RegisterUser)
	r.POST("/login", ac.LoginUser)
	r.POST("/logout", ac.LogoutUser)
	r.GET("/profile", middlewares.AuthMiddleware(tokens), ac.GetProfile)
	r.GET("/leaderboard", uc.GetLeaderboard)
	return r, users, tokens
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterUser(t *testing.T) {
	r, users, tokens := authRouter(t, false)

	var created *models.User
	users.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
		u.ID = primitive.NewObjectID()
		created = u
		return nil
	})

	w := serve(r, jsonRequest(t, http.MethodPost, "/register", map[string]string{
		"name":     "Asha",
		"email":    "Asha@Example.com",
		"password": "secret1",
	}))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(t, created)
	assert.Equal(t, "asha@example.com", created.Email)
	assert.NotEqual(t, "secret1", created.Password)
	assert.True(t, created.ComparePassword("secret1"))

	body := decode[authResponse](t, w)
	assert.Equal(t, created.ID, body.User.ID)
	claims, err := tokens.ParseToken(body.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID.Hex(), claims.UserID)
	assert.Equal(t, "asha@example.com", claims.Email)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRegisterUser_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{name: "short password", body: map[string]string{"name": "A", "email": "a@example.com", "password": "12345"}, field: "password"},
		{name: "bad email", body: map[string]string{"name": "A", "email": "nope", "password": "123456"}, field: "email"},
		{name: "missing name", body: map[string]string{"email": "a@example.com", "password": "123456"}, field: "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := authRouter(t, false)
			w := serve(r, jsonRequest(t, http.MethodPost, "/register", tt.body))

			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decode[errorBody](t, w)
			require.Len(t, body.Fields, 1)
			assert.Equal(t, tt.field, body.Fields[0].Field)
		})
	}
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	r, users, _ := authRouter(t, false)
	users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(models.ErrEmailTaken)

	w := serve(r, jsonRequest(t, http.MethodPost, "/register", map[string]string{
		"name": "Asha", "email": "asha@example.com", "password": "secret1",
	}))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", decode[errorBody](t, w).Message)
}

func TestLoginUser(t *testing.T) {
	r, users, tokens := authRouter(t, false)
	user := &models.User{ID: primitive.NewObjectID(), Name: "Asha", Email: "asha@example.com", Password: "secret1"}
	require.NoError(t, user.HashPassword())

	users.EXPECT().FindByEmail(gomock.Any(), "asha@example.com").Return(user, nil).Times(2)

	w := serve(r, jsonRequest(t, http.MethodPost, "/login", map[string]string{
		"email": "ASHA@example.com", "password": "secret1",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[authResponse](t, w)
	_, err := tokens.ParseToken(body.Token)
	require.NoError(t, err)

	w = serve(r, jsonRequest(t, http.MethodPost, "/login", map[string]string{
		"email": "asha@example.com", "password": "wrong-one",
	}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decode[errorBody](t, w).Message)
}

func TestLoginUser_UnknownEmail(t *testing.T) {
	r, users, _ := authRouter(t, false)
	users.EXPECT().FindByEmail(gomock.Any(), "ghost@example.com").Return(nil, models.ErrUserNotFound)

	w := serve(r, jsonRequest(t, http.MethodPost, "/login", map[string]string{
		"email": "ghost@example.com", "password": "whatever",
	}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decode[errorBody](t, w).Message)
}

func TestGetProfile(t *testing.T) {
	r, users, tokens := authRouter(t, false)
	user := &models.User{
		ID:             primitive.NewObjectID(),
		Name:           "Asha",
		Email:          "asha@example.com",
		Password:       "hash",
		Points:         20,
		IssuesReported: []primitive.ObjectID{},
		IssuesResolved: []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()},
	}
	users.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)

	token, err := tokens.GenerateToken(user.ID.Hex(), user.Email)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := serve(r, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.EqualValues(t, 20, body["points"])
	assert.Len(t, body["issuesResolved"], 2)
	assert.NotContains(t, body, "password")
}

func TestGetProfile_NoToken(t *testing.T) {
	r, _, _ := authRouter(t, false)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutUser(t *testing.T) {
	r, _, _ := authRouter(t, false)
	w := serve(r, httptest.NewRequest(http.MethodPost, "/logout", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Logged out successfully"}`, w.Body.String())
}

func TestGetLeaderboard(t *testing.T) {
	r, users, _ := authRouter(t, false)
	entries := []models.LeaderboardEntry{{ID: primitive.NewObjectID(), Name: "Asha", Points: 30, IssuesResolved: 3}}

	users.EXPECT().Leaderboard(gomock.Any(), 10).Return(entries, nil)
	users.EXPECT().Leaderboard(gomock.Any(), 3).Return(entries, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/leaderboard?limit=500", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/leaderboard?limit=3", nil))
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[[]models.LeaderboardEntry](t, w)
	assert.Equal(t, entries, got)
}

func TestFail_HidesDetailInProduction(t *testing.T) {
	r, users, _ := authRouter(t, true)
	users.EXPECT().Leaderboard(gomock.Any(), gomock.Any()).Return(nil, errors.New("pool exhausted"))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Something went wrong"}`, w.Body.String())
}
