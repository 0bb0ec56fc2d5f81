package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"zenly/database"
	"zenly/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MoodRequest struct {
	Score int    `json:"score" binding:"required,min=1,max=5"`
	Label string `json:"label" binding:"required"`
	Note  string `json:"note"`
}

func CreateMood(c *gin.Context) {
	var req MoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entry := models.MoodEntry{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Score:     req.Score,
		Label:     req.Label,
		Note:      req.Note,
		CreatedAt: time.Now().Unix(),
	}

	if _, err := database.Moods.InsertOne(ctx, entry); err != nil {
		log.Printf("CreateMood error: %v", err)
		respondError(c, err)
		return
	}

	recordActivity(ctx, userID, "mood_logged", &entry.ID)

	c.JSON(http.StatusCreated, entry)
}

// GetMoods returns the caller's mood entries for the last N days
// (default 30), newest first.
func GetMoods(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > 365 {
		days = 30
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	since := time.Now().AddDate(0, 0, -days).Unix()
	filter := bson.M{
		"userId":    userID,
		"createdAt": bson.M{"$gte": since},
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := database.Moods.Find(ctx, filter, findOptions)
	if err != nil {
		respondError(c, err)
		return
	}
	defer cursor.Close(ctx)

	entries := []models.MoodEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
