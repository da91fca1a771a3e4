package controllers

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spotfix/middlewares"
	"spotfix/models"
	"spotfix/repository"
	"spotfix/storage"
	"spotfix/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxPageNumber   = 1_000_000
)

// IssueController serves the /api/issues routes.
type IssueController struct {
	responder
	issues repository.IssueStore
	users  repository.UserStore
	images storage.ImageStore
	now    func() time.Time
}

func NewIssueController(issues repository.IssueStore, users repository.UserStore, images storage.ImageStore, log *slog.Logger, production bool) *IssueController {
	return &IssueController{
		responder: responder{log: log, production: production},
		issues:    issues,
		users:     users,
		images:    images,
		now:       time.Now,
	}
}

// ListIssues handles GET /api/issues with filtering and optional pagination.
func (ic *IssueController) ListIssues(c *gin.Context) {
	filter, page, err := parseIssueFilter(c)
	if err != nil {
		ic.fail(c, err)
		return
	}
	ic.list(c, filter, page)
}

// SearchIssues handles GET /api/issues/search?query=. It accepts every
// ListIssues option and requires a search term.
func (ic *IssueController) SearchIssues(c *gin.Context) {
	if searchTerm(c) == "" {
		ic.fail(c, models.NewValidationError("query", "is required"))
		return
	}
	ic.ListIssues(c)
}

// NearbyIssues handles GET /api/issues/nearby, where lat, lng and radius are all required.
func (ic *IssueController) NearbyIssues(c *gin.Context) {
	var errs []models.FieldError
	for _, key := range []string{"lat", "lng", "radius"} {
		if strings.TrimSpace(c.Query(key)) == "" {
			errs = append(errs, models.FieldError{Field: key, Message: "is required"})
		}
	}
	if len(errs) > 0 {
		ic.fail(c, &models.ValidationError{Errors: errs})
		return
	}
	ic.ListIssues(c)
}

// GetIssuesByUser handles GET /api/issues/user/:userId.
func (ic *IssueController) GetIssuesByUser(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		ic.fail(c, models.ErrUserNotFound)
		return
	}

	filter, page, err := parseIssueFilter(c)
	if err != nil {
		ic.fail(c, err)
		return
	}
	filter.ReportedBy = &userID
	ic.list(c, filter, page)
}

func (ic *IssueController) list(c *gin.Context, filter repository.IssueFilter, page *repository.Page) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	issues, total, err := ic.issues.List(ctx, filter, page)
	if err != nil {
		ic.fail(c, err)
		return
	}

	views, err := ic.expand(ctx, issues)
	if err != nil {
		ic.fail(c, err)
		return
	}

	if filter.Near != nil {
		for i := range views {
			d := models.DistanceKm(filter.Near.Lat, filter.Near.Lng, views[i].Location.Lat(), views[i].Location.Lng())
			views[i].DistanceKm = &d
		}
	}

	if page == nil {
		c.JSON(http.StatusOK, views)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"issues":     views,
		"total":      total,
		"page":       page.Number,
		"limit":      page.Size,
		"totalPages": int(math.Ceil(float64(total) / float64(page.Size))),
	})
}

// GetIssue handles GET /api/issues/:id.
func (ic *IssueController) GetIssue(c *gin.Context) {
	issueID, err := issueIDParam(c)
	if err != nil {
		ic.fail(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	issue, err := ic.issues.Get(ctx, issueID)
	if err != nil {
		ic.fail(c, err)
		return
	}

	votes, err := ic.issues.CountVotes(ctx, issueID)
	if err != nil {
		ic.fail(c, err)
		return
	}

	view, err := ic.expandOne(ctx, issue)
	if err != nil {
		ic.fail(c, err)
		return
	}
	view.Votes = &votes

	c.JSON(http.StatusOK, view)
}

type createIssueInput struct {
	Title       string   `form:"title" json:"title" binding:"required,max=200"`
	Description string   `form:"description" json:"description" binding:"required,max=2000"`
	Category    string   `form:"category" json:"category" binding:"required"`
	Severity    string   `form:"severity" json:"severity" binding:"required"`
	Lat         *float64 `form:"lat" json:"lat" binding:"required"`
	Lng         *float64 `form:"lng" json:"lng" binding:"required"`
}

// CreateIssue handles POST /api/issues. The body is JSON or a multipart form
// that may carry up to five "images" files.
func (ic *IssueController) CreateIssue(c *gin.Context) {
	reporter, err := middlewares.CurrentUserID(c)
	if err != nil {
		ic.fail(c, models.NewError(models.ErrUnauthenticated, "User not authenticated"))
		return
	}

	var input createIssueInput
	if err := c.ShouldBind(&input); err != nil {
		ic.fail(c, bindError(err))
		return
	}

	newIssue := models.NewIssueInput{
		Title:       input.Title,
		Description: input.Description,
		Category:    models.IssueCategory(input.Category),
		Severity:    models.IssueSeverity(input.Severity),
		Latitude:    *input.Lat,
		Longitude:   *input.Lng,
	}
	if err := newIssue.Validate(); err != nil {
		ic.fail(c, err)
		return
	}

	var uploads []utils.Image
	if form, err := c.MultipartForm(); err == nil {
		if uploads, err = utils.ReadImages(form.File["images"]); err != nil {
			ic.fail(c, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	refs, err := ic.storeImages(ctx, uploads)
	if err != nil {
		ic.fail(c, err)
		return
	}
	newIssue.Images = refs

	issue := models.NewIssue(newIssue, reporter, ic.now())
	if err := ic.issues.Create(ctx, &issue); err != nil {
		ic.removeImages(ctx, refs)
		ic.fail(c, err)
		return
	}

	view, err := ic.expandOne(ctx, &issue)
	if err != nil {
		ic.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

type updateIssueInput struct {
	Title       *string  `json:"title" binding:"omitempty,max=200"`
	Description *string  `json:"description" binding:"omitempty,max=2000"`
	Category    *string  `json:"category"`
	Severity    *string  `json:"severity"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

func (in updateIssueInput) patch() models.IssuePatch {
	p := models.IssuePatch{
		Title:       in.Title,
		Description: in.Description,
		Latitude:    in.Lat,
		Longitude:   in.Lng,
	}
	if in.Category != nil {
		category := models.IssueCategory(*in.Category)
		p.Category = &category
	}
	if in.Severity != nil {
		severity := models.IssueSeverity(*in.Severity)
		p.Severity = &severity
	}
	return p
}

// UpdateIssue allows the reporter of an issue to edit its details. Status is
// changed through UpdateIssueStatus only.
func (ic *IssueController) UpdateIssue(c *gin.Context) {
	issueID, err := issueIDParam(c)
	if err != nil {
		ic.fail(c, err)
		return
	}
	requester, err := middlewares.CurrentUserID(c)
	if err != nil {
		ic.fail(c, models.NewError(models.ErrUnauthenticated, "User not authenticated"))
		return
	}

	var input updateIssueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ic.fail(c, bindError(err))
		return
	}
	patch := input.patch()
	if err := patch.Validate(); err != nil {
		ic.fail(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	issue, err := ic.issues.Get(ctx, issueID)
	if err != nil {
		ic.fail(c, err)
		return
	}
	if issue.ReportedBy != requester {
		ic.fail(c, models.ErrNotReporter)
		return
	}

	updated, err := ic.issues.Update(ctx, issueID, patch, ic.now())
	if err != nil {
		ic.fail(c, err)
		return
	}

	view, err := ic.expandOne(ctx, updated)
	if err != nil {
		ic.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// storeImages saves every upload or none of them.
func (ic *IssueController) storeImages(ctx context.Context, uploads []utils.Image) ([]string, error) {
	refs := make([]string, 0, len(uploads))
	for _, img := range uploads {
		ref, err := ic.images.Save(ctx, img.Filename, img.ContentType, bytes.NewReader(img.Data))
		if err != nil {
			ic.removeImages(ctx, refs)
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (ic *IssueController) removeImages(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := ic.images.Delete(ctx, ref); err != nil {
			ic.log.WarnContext(ctx, "remove image", slog.String("ref", ref), slog.Any("error", err))
		}
	}
}

// UpdateIssueStatus handles PATCH /api/issues/:id/status. Resolving credits
// the caller with Fix Points.
func (ic *IssueController) UpdateIssueStatus(c *gin.Context) {
	issueID, err := issueIDParam(c)
	if err != nil {
		ic.fail(c, err)
		return
	}
	actor, err := middlewares.CurrentUserID(c)
	if err != nil {
		ic.fail(c, models.NewError(models.ErrUnauthenticated, "User not authenticated"))
		return
	}

	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		ic.fail(c, bindError(err))
		return
	}
	status := models.IssueStatus(input.Status)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	issue, err := ic.issues.Get(ctx, issueID)
	if err != nil {
		ic.fail(c, err)
		return
	}
	if err := models.ValidateTransition(issue.Status, status); err != nil {
		ic.fail(c, err)
		return
	}

	updated := issue
	switch {
	case status == models.Resolved:
		updated, err = ic.issues.Resolve(ctx, issueID, actor, ic.now(), models.ResolutionReward)
		if err == nil {
			ic.log.InfoContext(ctx, "issue resolved",
				slog.String("issue_id", issueID.Hex()),
				slog.String("resolver", actor.Hex()),
				slog.Int("points", models.ResolutionReward),
			)
		}
	case status != issue.Status:
		updated, err = ic.issues.SetStatus(ctx, issueID, status, ic.now())
	}
	if err != nil {
		ic.fail(c, err)
		return
	}

	view, err := ic.expandOne(ctx, updated)
	if err != nil {
		ic.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddComment handles POST /api/issues/:id/comments.
func (ic *IssueController) AddComment(c *gin.Context) {
	issueID, err := issueIDParam(c)
	if err != nil {
		ic.fail(c, err)
		return
	}
	author, err := middlewares.CurrentUserID(c)
	if err != nil {
		ic.fail(c, models.NewError(models.ErrUnauthenticated, "User not authenticated"))
		return
	}

	var input struct {
		Text    string `json:"text"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		ic.fail(c, bindError(err))
		return
	}
	// The web client posts {comment}; {text} is the canonical field.
	text := input.Text
	if strings.TrimSpace(text) == "" {
		text = input.Comment
	}

	comment, err := models.NewComment(text, author, ic.now())
	if err != nil {
		ic.fail(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	issue, err := ic.issues.AddComment(ctx, issueID, comment)
	if err != nil {
		ic.fail(c, err)
		return
	}

	view, err := ic.expandOne(ctx, issue)
	if err != nil {
		ic.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetComments handles GET /api/issues/:id/comments.
func (ic *IssueController) GetComments(c *gin.Context) {
	issueID, err := issueIDParam(c)
	if err != nil {
		ic.fail(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	issue, err := ic.issues.Get(ctx, issueID)
	if err != nil {
		ic.fail(c, err)
		return
	}
	view, err := ic.expandOne(ctx, issue)
	if err != nil {
		ic.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view.Comments)
}

// VoteOnIssue toggles the caller's vote on an issue.
func (ic *IssueController) VoteOnIssue(c *gin.Context) {
	issueID, err := issueIDParam(c)
	if err != nil {
		ic.fail(c, err)
		return
	}
	userID, err := middlewares.CurrentUserID(c)
	if err != nil {
		ic.fail(c, models.NewError(models.ErrUnauthenticated, "User not authenticated"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := ic.issues.ToggleVote(ctx, issueID, userID)
	if err != nil {
		ic.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteIssue allows the reporter of an issue to delete it. Stored images go with it.
func (ic *IssueController) DeleteIssue(c *gin.Context) {
	issueID, err := issueIDParam(c)
	if err != nil {
		ic.fail(c, err)
		return
	}
	requester, err := middlewares.CurrentUserID(c)
	if err != nil {
		ic.fail(c, models.NewError(models.ErrUnauthenticated, "User not authenticated"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	issue, err := ic.issues.Get(ctx, issueID)
	if err != nil {
		ic.fail(c, err)
		return
	}
	if issue.ReportedBy != requester {
		ic.fail(c, models.ErrNotReporter)
		return
	}

	if err := ic.issues.Delete(ctx, issue); err != nil {
		ic.fail(c, err)
		return
	}
	ic.removeImages(ctx, issue.Images)

	c.JSON(http.StatusOK, gin.H{"message": "Issue deleted successfully"})
}

// GetIssueStats returns aggregate counts over all issues.
func (ic *IssueController) GetIssueStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	stats, err := ic.issues.Stats(ctx)
	if err != nil {
		ic.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (ic *IssueController) expand(ctx context.Context, issues []models.Issue) ([]models.IssueView, error) {
	var ids []primitive.ObjectID
	for i := range issues {
		ids = append(ids, issues[i].ReferencedUsers()...)
	}

	refs, err := ic.users.FindRefs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.IssueView, 0, len(issues))
	for i := range issues {
		views = append(views, issues[i].View(refs))
	}
	return views, nil
}

func (ic *IssueController) expandOne(ctx context.Context, issue *models.Issue) (models.IssueView, error) {
	views, err := ic.expand(ctx, []models.Issue{*issue})
	if err != nil {
		return models.IssueView{}, err
	}
	return views[0], nil
}

// issueIDParam treats a malformed id like an unknown one.
func issueIDParam(c *gin.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return primitive.NilObjectID, models.ErrIssueNotFound
	}
	return id, nil
}

// searchTerm reads "search", falling back to the web client's "query".
func searchTerm(c *gin.Context) string {
	if v := strings.TrimSpace(c.Query("search")); v != "" {
		return v
	}
	return strings.TrimSpace(c.Query("query"))
}

// queryValue returns the trimmed query parameter, treating "all" as unset.
func queryValue(c *gin.Context, key string) string {
	v := strings.TrimSpace(c.Query(key))
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}

func parseIssueFilter(c *gin.Context) (repository.IssueFilter, *repository.Page, error) {
	var filter repository.IssueFilter
	var errs []models.FieldError

	if v := queryValue(c, "category"); v != "" {
		filter.Category = models.IssueCategory(v)
		if !filter.Category.Valid() {
			errs = append(errs, models.FieldError{Field: "category", Message: "must be one of Infrastructure, Environment, Safety, Other"})
		}
	}
	if v := queryValue(c, "severity"); v != "" {
		filter.Severity = models.IssueSeverity(v)
		if !filter.Severity.Valid() {
			errs = append(errs, models.FieldError{Field: "severity", Message: "must be one of Low, Medium, High"})
		}
	}
	if v := queryValue(c, "status"); v != "" {
		filter.Status = models.IssueStatus(v)
		if !filter.Status.Valid() {
			errs = append(errs, models.FieldError{Field: "status", Message: "must be one of Open, In Progress, Resolved"})
		}
	}
	if v := queryValue(c, "reportedBy"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			errs = append(errs, models.FieldError{Field: "reportedBy", Message: "is not a valid id"})
		}
		filter.ReportedBy = &id
	}
	filter.Search = searchTerm(c)

	// The location filter applies only when all three values are present.
	lat, lng, radius := c.Query("lat"), c.Query("lng"), c.Query("radius")
	if lat != "" && lng != "" && radius != "" {
		near, fieldErrs := parseNear(lat, lng, radius)
		errs = append(errs, fieldErrs...)
		filter.Near = near
	}

	if len(errs) > 0 {
		return filter, nil, &models.ValidationError{Errors: errs}
	}

	var page *repository.Page
	if c.Query("page") != "" || c.Query("limit") != "" {
		number, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		size, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
		if number < 1 {
			number = 1
		}
		if size < 1 || size > maxPageSize {
			size = defaultPageSize
		}
		if number > maxPageNumber {
			return filter, nil, models.NewValidationError("page", "must be at most 1000000")
		}
		page = &repository.Page{Number: number, Size: size}
	}

	return filter, page, nil
}

func parseNear(latStr, lngStr, radiusStr string) (*repository.GeoRadius, []models.FieldError) {
	var errs []models.FieldError

	lat, latErr := strconv.ParseFloat(latStr, 64)
	lng, lngErr := strconv.ParseFloat(lngStr, 64)
	radius, radiusErr := strconv.ParseFloat(radiusStr, 64)

	if latErr != nil || lngErr != nil {
		errs = append(errs, models.FieldError{Field: "lat/lng", Message: "must be numbers"})
	} else if verr := models.ValidateCoordinates(lat, lng); verr != nil {
		errs = append(errs, verr.Errors...)
	}
	if radiusErr != nil || radius < 0 || math.IsInf(radius, 0) || math.IsNaN(radius) {
		errs = append(errs, models.FieldError{Field: "radius", Message: "must be a non-negative number of kilometres"})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return &repository.GeoRadius{Lat: lat, Lng: lng, RadiusKm: radius}, nil
}
