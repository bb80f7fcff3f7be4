package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityType names an entry lifecycle transition.
type ActivityType string

const (
	ActivityPublished ActivityType = "published"
	ActivityUpdated   ActivityType = "updated"
	ActivityDeleted   ActivityType = "deleted"
)

// Activity is stored in MongoDB, one document per lifecycle transition.
type Activity struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	EntryID   string             `bson:"entry_id" json:"entry_id"`
	Type      ActivityType       `bson:"type" json:"type"`
	Title     string             `bson:"title,omitempty" json:"title,omitempty"`
	Mood      string             `bson:"mood,omitempty" json:"mood,omitempty"`
	MoodScore int                `bson:"mood_score,omitempty" json:"mood_score,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}
