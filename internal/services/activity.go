package services

import (
	"context"
	"time"

	"github.com/AnshRaj112/reflect-backend/internal/logger"
	"github.com/AnshRaj112/reflect-backend/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const activityCollection = "entry_activity"

// ActivityLog appends entry lifecycle events to MongoDB.
type ActivityLog struct {
	col *mongo.Collection
}

func NewActivityLog(db *mongo.Database) *ActivityLog {
	return &ActivityLog{col: db.Collection(activityCollection)}
}

// EnsureIndexes configures the (user_id, timestamp) index used for paging.
// Called on startup from main after Mongo has connected.
func (l *ActivityLog) EnsureIndexes(ctx context.Context) error {
	_, err := l.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "timestamp", Value: -1},
		},
		Options: options.Index().SetName("idx_user_timestamp"),
	})
	return err
}

// Record persists an event asynchronously. The caller does not block on it.
func (l *ActivityLog) Record(a models.Activity) {
	go func(a models.Activity) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := l.insert(ctx, a); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"user_id":  a.UserID,
				"entry_id": a.EntryID,
				"error":    err,
			}).Warn("failed to record activity")
		}
	}(a)
}

func (l *ActivityLog) insert(ctx context.Context, a models.Activity) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	_, err := l.col.InsertOne(ctx, a)
	return err
}

// Recent returns userID's events newest first, older than before when set.
// hasMore reports whether another page exists.
func (l *ActivityLog) Recent(ctx context.Context, userID string, before *time.Time, limit int64) ([]models.Activity, bool, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	filter := bson.M{
		"user_id": userID,
	}
	if before != nil {
		filter["timestamp"] = bson.M{"$lt": before.UTC()}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit + 1)

	cur, err := l.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	events := []models.Activity{}
	for cur.Next(ctx) {
		var a models.Activity
		if err := cur.Decode(&a); err != nil {
			continue
		}
		events = append(events, a)
	}
	if err := cur.Err(); err != nil {
		return nil, false, err
	}

	hasMore := int64(len(events)) > limit
	if hasMore {
		events = events[:len(events)-1]
	}
	return events, hasMore, nil
}
