package repository

import (
	"regexp"

	"spotfix/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BuildIssueFilter translates an IssueFilter into a MongoDB query document.
// The location filter uses $geoWithin/$centerSphere rather than $near so the
// result can be sorted by createdAt and counted.
func BuildIssueFilter(f IssueFilter) bson.M {
	filter := bson.M{}

	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Severity != "" {
		filter["severity"] = f.Severity
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.ReportedBy != nil {
		filter["reportedBy"] = *f.ReportedBy
	}
	if f.Near != nil {
		filter["location"] = bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{
					bson.A{f.Near.Lng, f.Near.Lat},
					f.Near.RadiusKm / models.EarthRadiusKm,
				},
			},
		}
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
			bson.M{"category": pattern},
		}
	}

	return filter
}
