package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueCategory enum
type IssueCategory string

const (
	Infrastructure IssueCategory = "Infrastructure"
	Environment    IssueCategory = "Environment"
	Safety         IssueCategory = "Safety"
	Other          IssueCategory = "Other"
)

func (c IssueCategory) Valid() bool {
	switch c {
	case Infrastructure, Environment, Safety, Other:
		return true
	}
	return false
}

// IssueSeverity enum
type IssueSeverity string

const (
	Low    IssueSeverity = "Low"
	Medium IssueSeverity = "Medium"
	High   IssueSeverity = "High"
)

func (s IssueSeverity) Valid() bool {
	switch s {
	case Low, Medium, High:
		return true
	}
	return false
}

// Comment is an append-only note attached to an issue.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Text      string             `bson:"text" json:"text"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Issue represents a problem pinned on the map by a reporter
type Issue struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title       string              `bson:"title" json:"title"`
	Description string              `bson:"description" json:"description"`
	Category    IssueCategory       `bson:"category" json:"category"`
	Severity    IssueSeverity       `bson:"severity" json:"severity"`
	Location    GeoPoint            `bson:"location" json:"location"`
	Images      []string            `bson:"images" json:"images"`
	Status      IssueStatus         `bson:"status" json:"status"`
	ReportedBy  primitive.ObjectID  `bson:"reportedBy" json:"reportedBy"`
	ResolvedBy  *primitive.ObjectID `bson:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
	Comments    []Comment           `bson:"comments" json:"comments"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
	ResolvedAt  *time.Time          `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
}

// NewIssueInput carries the reporter-supplied fields of a new issue.
type NewIssueInput struct {
	Title       string
	Description string
	Category    IssueCategory
	Severity    IssueSeverity
	Latitude    float64
	Longitude   float64
	Images      []string
}

// Validate checks mandatory fields, enum membership and coordinate ranges.
func (in NewIssueInput) Validate() error {
	var errs []FieldError
	if strings.TrimSpace(in.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "is required"})
	}
	if strings.TrimSpace(in.Description) == "" {
		errs = append(errs, FieldError{Field: "description", Message: "is required"})
	}
	if !in.Category.Valid() {
		errs = append(errs, FieldError{Field: "category", Message: "must be one of Infrastructure, Environment, Safety, Other"})
	}
	if !in.Severity.Valid() {
		errs = append(errs, FieldError{Field: "severity", Message: "must be one of Low, Medium, High"})
	}
	if err := ValidateCoordinates(in.Latitude, in.Longitude); err != nil {
		errs = append(errs, err.Errors...)
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// NewIssue builds an Open issue reported by reporter at now.
func NewIssue(in NewIssueInput, reporter primitive.ObjectID, now time.Time) Issue {
	images := in.Images
	if images == nil {
		images = []string{}
	}
	return Issue{
		ID:          primitive.NewObjectID(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    in.Category,
		Severity:    in.Severity,
		Location:    NewGeoPoint(in.Latitude, in.Longitude),
		Images:      images,
		Status:      Open,
		ReportedBy:  reporter,
		Comments:    []Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MaxCommentLength is counted in characters, not bytes.
const MaxCommentLength = 1000

// IssuePatch carries a reporter's edits. Nil fields are left unchanged. Status
// is not part of it; it only changes through the status transition.
type IssuePatch struct {
	Title       *string
	Description *string
	Category    *IssueCategory
	Severity    *IssueSeverity
	Latitude    *float64
	Longitude   *float64
}

// Empty reports whether the patch changes nothing.
func (p IssuePatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Severity == nil && p.Latitude == nil && p.Longitude == nil
}

// Validate applies the NewIssueInput rules to the fields that are present.
// Coordinates must be given as a pair.
func (p IssuePatch) Validate() error {
	if p.Empty() {
		return NewValidationError("body", "no updatable fields")
	}

	var errs []FieldError
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "must not be empty"})
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		errs = append(errs, FieldError{Field: "description", Message: "must not be empty"})
	}
	if p.Category != nil && !p.Category.Valid() {
		errs = append(errs, FieldError{Field: "category", Message: "must be one of Infrastructure, Environment, Safety, Other"})
	}
	if p.Severity != nil && !p.Severity.Valid() {
		errs = append(errs, FieldError{Field: "severity", Message: "must be one of Low, Medium, High"})
	}
	switch {
	case (p.Latitude == nil) != (p.Longitude == nil):
		errs = append(errs, FieldError{Field: "lat/lng", Message: "must be given together"})
	case p.Latitude != nil:
		if err := ValidateCoordinates(*p.Latitude, *p.Longitude); err != nil {
			errs = append(errs, err.Errors...)
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// NewComment builds a comment by author at now.
func NewComment(text string, author primitive.ObjectID, now time.Time) (Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, NewValidationError("text", "is required")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return Comment{}, NewValidationError("text", "must be at most 1000 characters")
	}
	return Comment{ID: primitive.NewObjectID(), Text: text, User: author, CreatedAt: now}, nil
}

// IssueStats summarises the issue collection.
type IssueStats struct {
	Total      int64            `json:"totalIssues"`
	Open       int64            `json:"openIssues"`
	TotalVotes int64            `json:"totalVotes"`
	ByCategory map[string]int64 `json:"issuesByCategory"`
	BySeverity map[string]int64 `json:"issuesBySeverity"`
	ByStatus   map[string]int64 `json:"issuesByStatus"`
}
