package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vote represents a user's upvote on an issue. (issue, user) is unique.
type Vote struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Issue     primitive.ObjectID `bson:"issue" json:"issue"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// VoteResult is returned after toggling a vote.
type VoteResult struct {
	Voted bool  `json:"voted"`
	Votes int64 `json:"votes"`
}
