package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommentView is a comment with its author expanded.
type CommentView struct {
	ID        primitive.ObjectID `json:"id"`
	Text      string             `json:"text"`
	User      UserRef            `json:"user"`
	CreatedAt time.Time          `json:"createdAt"`
}

// IssueView is the response shape of an issue, with user references expanded.
type IssueView struct {
	ID          primitive.ObjectID `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Category    IssueCategory      `json:"category"`
	Severity    IssueSeverity      `json:"severity"`
	Location    GeoPoint           `json:"location"`
	Images      []string           `json:"images"`
	Status      IssueStatus        `json:"status"`
	ReportedBy  UserRef            `json:"reportedBy"`
	ResolvedBy  *UserRef           `json:"resolvedBy,omitempty"`
	Comments    []CommentView      `json:"comments"`
	Votes       *int64             `json:"votes,omitempty"`
	DistanceKm  *float64           `json:"distanceKm,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	ResolvedAt  *time.Time         `json:"resolvedAt,omitempty"`
}

// ReferencedUsers lists every user id the issue points at, without duplicates.
func (i *Issue) ReferencedUsers() []primitive.ObjectID {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if id.IsZero() || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	add(i.ReportedBy)
	if i.ResolvedBy != nil {
		add(*i.ResolvedBy)
	}
	for _, c := range i.Comments {
		add(c.User)
	}
	return ids
}

// View expands the issue using refs. Unknown users keep their id only.
func (i *Issue) View(refs map[primitive.ObjectID]UserRef) IssueView {
	lookup := func(id primitive.ObjectID) UserRef {
		if ref, ok := refs[id]; ok {
			return ref
		}
		return UserRef{ID: id}
	}

	v := IssueView{
		ID:          i.ID,
		Title:       i.Title,
		Description: i.Description,
		Category:    i.Category,
		Severity:    i.Severity,
		Location:    i.Location,
		Images:      i.Images,
		Status:      i.Status,
		ReportedBy:  lookup(i.ReportedBy),
		Comments:    make([]CommentView, 0, len(i.Comments)),
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
		ResolvedAt:  i.ResolvedAt,
	}
	if v.Images == nil {
		v.Images = []string{}
	}
	if i.ResolvedBy != nil {
		ref := lookup(*i.ResolvedBy)
		v.ResolvedBy = &ref
	}
	for _, c := range i.Comments {
		v.Comments = append(v.Comments, CommentView{
			ID:        c.ID,
			Text:      c.Text,
			User:      lookup(c.User),
			CreatedAt: c.CreatedAt,
		})
	}
	return v
}
