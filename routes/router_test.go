package routes

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"spotfix/controllers"
	"spotfix/mocks"
	"spotfix/models"
	"spotfix/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testRouter struct {
	engine *gin.Engine
	issues *mocks.MockIssueStore
	users  *mocks.MockUserStore
	tokens *utils.TokenManager
}

func newTestRouter(t *testing.T, uploadDir string, limit gin.HandlerFunc) *testRouter {
	t.Helper()
	ctrl := gomock.NewController(t)
	issues := mocks.NewMockIssueStore(ctrl)
	users := mocks.NewMockUserStore(ctrl)
	images := mocks.NewMockImageStore(ctrl)
	tokens := utils.NewTokenManager("router-secret", time.Hour)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine := NewRouter(Handlers{
		Issues:      controllers.NewIssueController(issues, users, images, log, false),
		Auth:        controllers.NewAuthController(users, tokens, log, false),
		Users:       controllers.NewUserController(users, log, false),
		Tokens:      tokens,
		CreateLimit: limit,
	}, Options{
		Logger:         log,
		AllowedOrigins: []string{"http://localhost:5173"},
		UploadDir:      uploadDir,
	})
	return &testRouter{engine: engine, issues: issues, users: users, tokens: tokens}
}

func (tr *testRouter) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	tr.engine.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	tr := newTestRouter(t, "", nil)
	w := tr.serve(httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	tr := newTestRouter(t, "", nil)
	id := primitive.NewObjectID().Hex()

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/issues"},
		{http.MethodPut, "/api/issues/" + id},
		{http.MethodPatch, "/api/issues/" + id + "/status"},
		{http.MethodPost, "/api/issues/" + id + "/comments"},
		{http.MethodPost, "/api/issues/" + id + "/vote"},
		{http.MethodDelete, "/api/issues/" + id},
		{http.MethodGet, "/api/auth/profile"},
	} {
		w := tr.serve(httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
	}
}

func TestStaticRoutesWinOverIssueID(t *testing.T) {
	tr := newTestRouter(t, "", nil)
	reporter := primitive.NewObjectID()

	tr.issues.EXPECT().Stats(gomock.Any()).Return(&models.IssueStats{}, nil)
	tr.issues.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, int64(0), nil).Times(3)
	tr.users.EXPECT().FindRefs(gomock.Any(), gomock.Any()).Return(nil, nil).Times(3)
	tr.users.EXPECT().Leaderboard(gomock.Any(), 10).Return([]models.LeaderboardEntry{}, nil)

	assert.Equal(t, http.StatusOK, tr.serve(httptest.NewRequest(http.MethodGet, "/api/issues/stats", nil)).Code)
	assert.Equal(t, http.StatusOK, tr.serve(httptest.NewRequest(http.MethodGet, "/api/issues/user/"+reporter.Hex(), nil)).Code)
	assert.Equal(t, http.StatusOK, tr.serve(httptest.NewRequest(http.MethodGet, "/api/users/leaderboard", nil)).Code)
	assert.Equal(t, http.StatusOK, tr.serve(httptest.NewRequest(http.MethodGet, "/api/issues/search?query=lamp", nil)).Code)
	assert.Equal(t, http.StatusOK, tr.serve(httptest.NewRequest(http.MethodGet, "/api/issues/nearby?lat=1&lng=2&radius=3", nil)).Code)
	assert.Equal(t, http.StatusBadRequest, tr.serve(httptest.NewRequest(http.MethodGet, "/api/issues/nearby?lat=1", nil)).Code)
}

func TestCreateLimitRunsAfterAuth(t *testing.T) {
	limited := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "limit"})
	}
	tr := newTestRouter(t, "", limited)

	token, err := tr.tokens.GenerateToken(primitive.NewObjectID().Hex(), "a@example.com")
	require.NoError(t, err)

	w := tr.serve(httptest.NewRequest(http.MethodPost, "/api/issues", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/issues", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = tr.serve(req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestUploadsServedFromDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("png"), 0o644))
	tr := newTestRouter(t, dir, nil)

	w := tr.serve(httptest.NewRequest(http.MethodGet, "/uploads/a.png", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png", w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	tr := newTestRouter(t, "", nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/issues", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := tr.serve(req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
