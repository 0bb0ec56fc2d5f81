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

type JournalRequest struct {
	Title   string `json:"title" binding:"required,max=200"`
	Content string `json:"content" binding:"required"`
	Mood    string `json:"mood"`
}

func CreateJournal(c *gin.Context) {
	var req JournalRequest
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

	journal := models.Journal{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Title:     req.Title,
		Content:   req.Content,
		Mood:      req.Mood,
		CreatedAt: time.Now().Unix(),
		UpdatedAt: time.Now().Unix(),
	}

	if _, err := database.Journals.InsertOne(ctx, journal); err != nil {
		log.Printf("CreateJournal error: %v", err)
		respondError(c, err)
		return
	}

	recordActivity(ctx, userID, "journal_created", &journal.ID)

	c.JSON(http.StatusCreated, journal)
}

func GetJournals(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := database.Journals.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		respondError(c, err)
		return
	}
	defer cursor.Close(ctx)

	journals := []models.Journal{}
	if err := cursor.All(ctx, &journals); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, journals)
}

func GetJournal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	journalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var journal models.Journal
	err := database.Journals.FindOne(ctx, bson.M{"_id": journalID, "userId": userID}).Decode(&journal)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, journal)
}

func UpdateJournal(c *gin.Context) {
	var req JournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	journalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"title":     req.Title,
		"content":   req.Content,
		"mood":      req.Mood,
		"updatedAt": time.Now().Unix(),
	}}

	result, err := database.Journals.UpdateOne(ctx, bson.M{"_id": journalID, "userId": userID}, update)
	if err != nil {
		respondError(c, err)
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Journal not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Journal updated"})
}

func DeleteJournal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	journalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := database.Journals.DeleteOne(ctx, bson.M{"_id": journalID, "userId": userID})
	if err != nil {
		respondError(c, err)
		return
	}
	if result.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Journal not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Journal deleted"})
}
