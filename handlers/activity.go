package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"zenly/database"
	"zenly/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// recordActivity appends to the user's activity feed. Failures are logged
// and swallowed; the primary action already succeeded.
func recordActivity(ctx context.Context, userID primitive.ObjectID, action string, targetID *primitive.ObjectID) {
	activity := models.Activity{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Action:    action,
		TargetID:  targetID,
		CreatedAt: time.Now().Unix(),
	}

	if _, err := database.Activities.InsertOne(ctx, activity); err != nil {
		log.Printf("recordActivity error: %v", err)
	}
}

// GetActivity returns the caller's recent activity plus a 30-day summary.
func GetActivity(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(50)

	cursor, err := database.Activities.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		respondError(c, err)
		return
	}
	defer cursor.Close(ctx)

	activities := []models.Activity{}
	if err := cursor.All(ctx, &activities); err != nil {
		respondError(c, err)
		return
	}

	since := time.Now().AddDate(0, 0, -30).Unix()

	journalCount, err := database.Journals.CountDocuments(ctx, bson.M{
		"userId":    userID,
		"createdAt": bson.M{"$gte": since},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	moodCount, err := database.Moods.CountDocuments(ctx, bson.M{
		"userId":    userID,
		"createdAt": bson.M{"$gte": since},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activities": activities,
		"summary": gin.H{
			"journalCount": journalCount,
			"moodCount":    moodCount,
			"streak":       activityStreak(activities),
		},
	})
}

// activityStreak counts consecutive calendar days, ending today or
// yesterday, with at least one activity. Input must be newest first.
func activityStreak(activities []models.Activity) int {
	if len(activities) == 0 {
		return 0
	}

	days := make(map[string]bool)
	for _, a := range activities {
		days[time.Unix(a.CreatedAt, 0).Format("2006-01-02")] = true
	}

	day := time.Now()
	if !days[day.Format("2006-01-02")] {
		// A streak survives until a full day is missed
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for days[day.Format("2006-01-02")] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
