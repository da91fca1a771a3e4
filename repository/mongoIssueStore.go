package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"spotfix/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoIssueStore implements IssueStore on the issues, votes and users collections.
type MongoIssueStore struct {
	client       *mongo.Client
	issues       *mongo.Collection
	votes        *mongo.Collection
	users        *mongo.Collection
	transactions bool
	log          *slog.Logger
}

// NewMongoIssueStore creates the store. When transactions is true the resolve
// write and the reward credit share one transaction (requires a replica set).
func NewMongoIssueStore(db *mongo.Database, transactions bool, log *slog.Logger) *MongoIssueStore {
	return &MongoIssueStore{
		client:       db.Client(),
		issues:       db.Collection(IssuesCollection),
		votes:        db.Collection(VotesCollection),
		users:        db.Collection(UsersCollection),
		transactions: transactions,
		log:          log,
	}
}

func (s *MongoIssueStore) List(ctx context.Context, f IssueFilter, page *Page) ([]models.Issue, int64, error) {
	filter := BuildIssueFilter(f)

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if page != nil {
		findOptions.SetSkip(page.Skip()).SetLimit(int64(page.Size))
	}

	cursor, err := s.issues.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("find issues: %w", err)
	}
	defer cursor.Close(ctx)

	issues := []models.Issue{}
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, 0, fmt.Errorf("decode issues: %w", err)
	}

	if page == nil {
		return issues, int64(len(issues)), nil
	}

	total, err := s.issues.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count issues: %w", err)
	}
	return issues, total, nil
}

func (s *MongoIssueStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	err := s.issues.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrIssueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find issue %s: %w", id.Hex(), err)
	}
	return &issue, nil
}

func (s *MongoIssueStore) Create(ctx context.Context, issue *models.Issue) error {
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	if _, err := s.issues.InsertOne(ctx, issue); err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}

	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": issue.ReportedBy},
		bson.M{"$push": bson.M{"issuesReported": issue.ID}},
	)
	if err != nil {
		return fmt.Errorf("record reported issue: %w", err)
	}
	return nil
}

func (s *MongoIssueStore) Update(ctx context.Context, id primitive.ObjectID, patch models.IssuePatch, at time.Time) (*models.Issue, error) {
	set := bson.M{"updatedAt": at}
	if patch.Title != nil {
		set["title"] = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Severity != nil {
		set["severity"] = *patch.Severity
	}
	if patch.Latitude != nil && patch.Longitude != nil {
		set["location"] = models.NewGeoPoint(*patch.Latitude, *patch.Longitude)
	}
	return s.findAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (s *MongoIssueStore) Delete(ctx context.Context, issue *models.Issue) error {
	res, err := s.issues.DeleteOne(ctx, bson.M{"_id": issue.ID})
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrIssueNotFound
	}

	if _, err := s.votes.DeleteMany(ctx, bson.M{"issue": issue.ID}); err != nil {
		s.log.Warn("delete issue votes", slog.String("issue_id", issue.ID.Hex()), slog.Any("error", err))
	}
	_, err = s.users.UpdateOne(ctx,
		bson.M{"_id": issue.ReportedBy},
		bson.M{"$pull": bson.M{"issuesReported": issue.ID}},
	)
	if err != nil {
		s.log.Warn("pull reported issue", slog.String("issue_id", issue.ID.Hex()), slog.Any("error", err))
	}
	return nil
}

func (s *MongoIssueStore) AddComment(ctx context.Context, id primitive.ObjectID, comment models.Comment) (*models.Issue, error) {
	update := bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updatedAt": comment.CreatedAt},
	}
	return s.findAndUpdate(ctx, bson.M{"_id": id}, update)
}

func (s *MongoIssueStore) SetStatus(ctx context.Context, id primitive.ObjectID, status models.IssueStatus, at time.Time) (*models.Issue, error) {
	if status == models.Resolved {
		return nil, fmt.Errorf("%w: use Resolve to resolve an issue", models.ErrInvalidTransition)
	}
	filter := bson.M{"_id": id, "status": bson.M{"$ne": models.Resolved}}
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": at}}

	issue, err := s.findAndUpdate(ctx, filter, update)
	if errors.Is(err, models.ErrIssueNotFound) {
		return nil, s.explainMiss(ctx, id)
	}
	return issue, err
}

func (s *MongoIssueStore) Resolve(ctx context.Context, id, resolver primitive.ObjectID, at time.Time, reward int) (*models.Issue, error) {
	if !s.transactions {
		return s.resolve(ctx, id, resolver, at, reward)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return s.resolve(sc, id, resolver, at, reward)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Issue), nil
}

// resolve performs the conditional status write and then credits the resolver.
// Outside a transaction a failed credit leaves the issue resolved without
// the reward being applied; the error is returned to the caller.
func (s *MongoIssueStore) resolve(ctx context.Context, id, resolver primitive.ObjectID, at time.Time, reward int) (*models.Issue, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$ne": models.Resolved}}
	update := bson.M{"$set": bson.M{
		"status":     models.Resolved,
		"resolvedBy": resolver,
		"resolvedAt": at,
		"updatedAt":  at,
	}}

	issue, err := s.findAndUpdate(ctx, filter, update)
	if errors.Is(err, models.ErrIssueNotFound) {
		return nil, s.explainMiss(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": resolver},
		bson.M{
			"$inc":  bson.M{"points": reward},
			"$push": bson.M{"issuesResolved": id},
			"$set":  bson.M{"updatedAt": at},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("credit resolver %s: %w", resolver.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("credit resolver %s: %w", resolver.Hex(), models.ErrUserNotFound)
	}
	return issue, nil
}

// explainMiss tells apart a missing issue from one whose status guard failed.
func (s *MongoIssueStore) explainMiss(ctx context.Context, id primitive.ObjectID) error {
	issue, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: issue is already %s", models.ErrInvalidTransition, issue.Status)
}

func (s *MongoIssueStore) findAndUpdate(ctx context.Context, filter, update bson.M) (*models.Issue, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var issue models.Issue
	err := s.issues.FindOneAndUpdate(ctx, filter, update, opts).Decode(&issue)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrIssueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update issue: %w", err)
	}
	return &issue, nil
}

// ToggleVote votes if the user has not voted yet and removes the vote otherwise.
func (s *MongoIssueStore) ToggleVote(ctx context.Context, issueID, userID primitive.ObjectID) (models.VoteResult, error) {
	if _, err := s.Get(ctx, issueID); err != nil {
		return models.VoteResult{}, err
	}

	key := bson.M{"issue": issueID, "user": userID}
	res, err := s.votes.DeleteOne(ctx, key)
	if err != nil {
		return models.VoteResult{}, fmt.Errorf("remove vote: %w", err)
	}

	voted := false
	if res.DeletedCount == 0 {
		vote := models.Vote{
			ID:        primitive.NewObjectID(),
			Issue:     issueID,
			User:      userID,
			CreatedAt: time.Now(),
		}
		_, err := s.votes.InsertOne(ctx, vote)
		if err != nil && !mongo.IsDuplicateKeyError(err) {
			return models.VoteResult{}, fmt.Errorf("cast vote: %w", err)
		}
		voted = true
	}

	votes, err := s.CountVotes(ctx, issueID)
	if err != nil {
		return models.VoteResult{}, err
	}
	return models.VoteResult{Voted: voted, Votes: votes}, nil
}

func (s *MongoIssueStore) CountVotes(ctx context.Context, issueID primitive.ObjectID) (int64, error) {
	n, err := s.votes.CountDocuments(ctx, bson.M{"issue": issueID})
	if err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return n, nil
}

func (s *MongoIssueStore) Stats(ctx context.Context) (*models.IssueStats, error) {
	stats := &models.IssueStats{}
	var err error

	if stats.ByCategory, err = s.countBy(ctx, "category"); err != nil {
		return nil, err
	}
	if stats.BySeverity, err = s.countBy(ctx, "severity"); err != nil {
		return nil, err
	}
	if stats.ByStatus, err = s.countBy(ctx, "status"); err != nil {
		return nil, err
	}

	for _, n := range stats.ByStatus {
		stats.Total += n
	}
	stats.Open = stats.ByStatus[string(models.Open)] + stats.ByStatus[string(models.InProgress)]

	if stats.TotalVotes, err = s.votes.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}
	return stats, nil
}

func (s *MongoIssueStore) countBy(ctx context.Context, field string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$" + field,
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := s.issues.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate by %s: %w", field, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Key   string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode %s counts: %w", field, err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Key] = r.Count
	}
	return counts, nil
}
