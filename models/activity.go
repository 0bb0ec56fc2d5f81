package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Activity struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID  `bson:"userId" json:"userId"`
	Action    string              `bson:"action" json:"action"` // journal_created, mood_logged, post_created, comment_created
	TargetID  *primitive.ObjectID `bson:"targetId,omitempty" json:"targetId,omitempty"`
	CreatedAt int64               `bson:"createdAt" json:"createdAt"`
}
