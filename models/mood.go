package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type MoodEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Score     int                `bson:"score" json:"score"` // 1 (lowest) to 5 (highest)
	Label     string             `bson:"label" json:"label"` // e.g. "anxious", "calm"
	Note      string             `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt int64              `bson:"createdAt" json:"createdAt"`
}
