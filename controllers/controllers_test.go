package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"spotfix/middlewares"
	"spotfix/mocks"
	"spotfix/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
)

type fixture struct {
	issues *mocks.MockIssueStore
	users  *mocks.MockUserStore
	images *mocks.MockImageStore
	router *gin.Engine
}

// newFixture wires the issue controller behind a fake auth step that trusts
// the X-Test-User header.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		issues: mocks.NewMockIssueStore(ctrl),
		users:  mocks.NewMockUserStore(ctrl),
		images: mocks.NewMockImageStore(ctrl),
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ic := NewIssueController(f.issues, f.users, f.images, log, false)
	ic.now = func() time.Time { return fixedNow }

	auth := func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set(middlewares.UserIDKey, id)
		}
		c.Next()
	}

	r := gin.New()
	api := r.Group("/api/issues")
	api.GET("", ic.ListIssues)
	api.GET("/stats", ic.GetIssueStats)
	api.GET("/search", ic.SearchIssues)
	api.GET("/nearby", ic.NearbyIssues)
	api.GET("/user/:userId", ic.GetIssuesByUser)
	api.GET("/:id", ic.GetIssue)
	api.GET("/:id/comments", ic.GetComments)
	api.POST("", auth, ic.CreateIssue)
	api.PUT("/:id", auth, ic.UpdateIssue)
	api.PATCH("/:id/status", auth, ic.UpdateIssueStatus)
	api.POST("/:id/comments", auth, ic.AddComment)
	api.POST("/:id/vote", auth, ic.VoteOnIssue)
	api.DELETE("/:id", auth, ic.DeleteIssue)
	f.router = r
	return f
}

func (f *fixture) do(req *http.Request, user primitive.ObjectID) *httptest.ResponseRecorder {
	if !user.IsZero() {
		req.Header.Set("X-Test-User", user.Hex())
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func sampleIssue(reporter primitive.ObjectID) *models.Issue {
	issue := models.NewIssue(models.NewIssueInput{
		Title:       "Broken streetlight",
		Description: "Dark corner near the park",
		Category:    models.Infrastructure,
		Severity:    models.High,
		Latitude:    12.9716,
		Longitude:   77.5946,
	}, reporter, fixedNow.Add(-time.Hour))
	return &issue
}

func multipartIssue(t *testing.T, fields map[string]string, images int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for i := 0; i < images; i++ {
		part, err := w.CreateFormFile("images", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(pngBytes)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/issues", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
