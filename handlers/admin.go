package handlers

import (
	"context"
	"net/http"
	"time"

	"zenly/database"
	"zenly/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func AdminStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userCount, err := database.Users.CountDocuments(ctx, bson.M{})
	if err != nil {
		respondError(c, err)
		return
	}

	postCount, err := database.Posts.CountDocuments(ctx, bson.M{})
	if err != nil {
		respondError(c, err)
		return
	}

	resourceCount, err := database.Resources.CountDocuments(ctx, bson.M{})
	if err != nil {
		respondError(c, err)
		return
	}

	reportedCount, err := database.Posts.CountDocuments(ctx, bson.M{"reportCount": bson.M{"$gt": 0}})
	if err != nil {
		respondError(c, err)
		return
	}

	wsClients := 0
	if wsManager != nil {
		wsClients = wsManager.ClientCount()
	}

	c.JSON(http.StatusOK, gin.H{
		"users":         userCount,
		"posts":         postCount,
		"resources":     resourceCount,
		"reportedPosts": reportedCount,
		"wsClients":     wsClients,
	})
}

func AdminListUsers(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(100)

	cursor, err := database.Users.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		respondError(c, err)
		return
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func AdminDeletePost(c *gin.Context) {
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := database.Posts.DeleteOne(ctx, bson.M{"_id": postID})
	if err != nil {
		respondError(c, err)
		return
	}
	if result.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	database.Comments.DeleteMany(ctx, bson.M{"postId": postID})

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

type PinRequest struct {
	Pinned *bool `json:"pinned" binding:"required"`
}

func AdminPinPost(c *gin.Context) {
	var req PinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := database.Posts.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$set": bson.M{"pinned": *req.Pinned}},
	)
	if err != nil {
		respondError(c, err)
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post updated"})
}

func AdminReportedPosts(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	findOptions := options.Find().SetSort(bson.D{{Key: "reportCount", Value: -1}})
	cursor, err := database.Posts.Find(ctx, bson.M{"reportCount": bson.M{"$gt": 0}}, findOptions)
	if err != nil {
		respondError(c, err)
		return
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		respondError(c, err)
		return
	}

	populatePostAuthors(ctx, posts)

	c.JSON(http.StatusOK, posts)
}

// AdminClearReports resets the report counter after review.
func AdminClearReports(c *gin.Context) {
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := database.Posts.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$set": bson.M{"reportCount": 0}},
	)
	if err != nil {
		respondError(c, err)
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Reports cleared"})
}
