package repository

//go:generate mockgen -destination=../mocks/repository.go -package=mocks spotfix/repository IssueStore,UserStore

import (
	"context"
	"math"
	"time"

	"spotfix/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeoRadius restricts results to issues within RadiusKm of a point.
type GeoRadius struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
}

// IssueFilter lists the recognized List options. Zero values are ignored and
// set options are combined with logical AND.
type IssueFilter struct {
	Category   models.IssueCategory
	Severity   models.IssueSeverity
	Status     models.IssueStatus
	Near       *GeoRadius
	Search     string
	ReportedBy *primitive.ObjectID
}

// Page selects a 1-indexed slice of a listing.
type Page struct {
	Number int
	Size   int
}

// Skip is the number of documents before the page. It saturates at
// math.MaxInt64 instead of overflowing.
func (p Page) Skip() int64 {
	if p.Number < 1 || p.Size < 1 {
		return 0
	}
	before, size := int64(p.Number-1), int64(p.Size)
	if before > math.MaxInt64/size {
		return math.MaxInt64
	}
	return before * size
}

// IssueStore persists issues together with the user-side bookkeeping that
// accompanies them (reported/resolved lists, reward points, votes).
type IssueStore interface {
	// List returns matching issues newest first. When page is nil all matches
	// are returned and total equals their count.
	List(ctx context.Context, filter IssueFilter, page *Page) (issues []models.Issue, total int64, err error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	// Create inserts the issue and records it in the reporter's issuesReported.
	Create(ctx context.Context, issue *models.Issue) error
	// Update applies a reporter's edit and touches updatedAt.
	Update(ctx context.Context, id primitive.ObjectID, patch models.IssuePatch, at time.Time) (*models.Issue, error)
	// Delete removes the issue, its votes and the reporter's back-reference.
	Delete(ctx context.Context, issue *models.Issue) error
	AddComment(ctx context.Context, id primitive.ObjectID, comment models.Comment) (*models.Issue, error)
	// SetStatus writes a non-terminal status. It fails with ErrInvalidTransition
	// when the stored issue is already Resolved.
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.IssueStatus, at time.Time) (*models.Issue, error)
	// Resolve marks the issue Resolved by resolver and credits reward points.
	Resolve(ctx context.Context, id, resolver primitive.ObjectID, at time.Time, reward int) (*models.Issue, error)
	ToggleVote(ctx context.Context, issueID, userID primitive.ObjectID) (models.VoteResult, error)
	CountVotes(ctx context.Context, issueID primitive.ObjectID) (int64, error)
	Stats(ctx context.Context) (*models.IssueStats, error)
}

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	// FindRefs returns the display-safe projection of each existing user in ids.
	FindRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserRef, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}
