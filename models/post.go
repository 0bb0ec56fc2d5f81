package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Post struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID       *primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"` // nil when anonymous
	Anonymous    bool                `bson:"anonymous" json:"anonymous"`
	Title        string              `bson:"title" json:"title"`
	Content      string              `bson:"content" json:"content"`
	LikeCount    int64               `bson:"likeCount" json:"likeCount"`
	CommentCount int64               `bson:"commentCount" json:"commentCount"`
	ViewCount    int64               `bson:"viewCount" json:"viewCount"`
	Pinned       bool                `bson:"pinned" json:"pinned"`
	ReportCount  int64               `bson:"reportCount" json:"reportCount"`
	CreatedAt    int64               `bson:"createdAt" json:"createdAt"`
	Author       *User               `bson:"-" json:"author,omitempty"` // Populated in response only
}

type Comment struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PostID    primitive.ObjectID  `bson:"postId" json:"postId"`
	UserID    *primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	Anonymous bool                `bson:"anonymous" json:"anonymous"`
	Content   string              `bson:"content" json:"content"`
	CreatedAt int64               `bson:"createdAt" json:"createdAt"`
	Author    *User               `bson:"-" json:"author,omitempty"`
}
