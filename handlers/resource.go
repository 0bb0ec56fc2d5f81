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

type ResourceRequest struct {
	Title       string              `json:"title" binding:"required,max=200"`
	Description string              `json:"description"`
	URL         string              `json:"url" binding:"required,url"`
	Type        models.ResourceType `json:"type" binding:"required"`
}

type HelpfulRequest struct {
	Helpful *bool `json:"helpful" binding:"required"`
}

// ListResources is public so the resource library renders before login.
func ListResources(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if t := c.Query("type"); t != "" {
		filter["type"] = t
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := database.Resources.Find(ctx, filter, findOptions)
	if err != nil {
		respondError(c, err)
		return
	}
	defer cursor.Close(ctx)

	resources := []models.Resource{}
	if err := cursor.All(ctx, &resources); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resources)
}

func GetResource(c *gin.Context) {
	resourceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var resource models.Resource
	if err := database.Resources.FindOne(ctx, bson.M{"_id": resourceID}).Decode(&resource); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resource)
}

func CreateResource(c *gin.Context) {
	var req ResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if !models.ValidResourceType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid resource type"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resource := models.Resource{
		ID:          primitive.NewObjectID(),
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		Type:        req.Type,
		Embed:       models.DeriveEmbed(req.URL),
		CreatedAt:   time.Now().Unix(),
		UpdatedAt:   time.Now().Unix(),
	}

	if _, err := database.Resources.InsertOne(ctx, resource); err != nil {
		log.Printf("CreateResource error: %v", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resource)
}

func UpdateResource(c *gin.Context) {
	var req ResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if !models.ValidResourceType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid resource type"})
		return
	}

	resourceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var existing models.Resource
	if err := database.Resources.FindOne(ctx, bson.M{"_id": resourceID}).Decode(&existing); err != nil {
		respondError(c, err)
		return
	}

	set := bson.M{
		"title":       req.Title,
		"description": req.Description,
		"url":         req.URL,
		"type":        req.Type,
		"updatedAt":   time.Now().Unix(),
	}

	// Embed metadata is derived from the URL, so only recompute it when
	// the URL actually changed
	if req.URL != existing.URL {
		set["embed"] = models.DeriveEmbed(req.URL)
	}

	if _, err := database.Resources.UpdateOne(ctx, bson.M{"_id": resourceID}, bson.M{"$set": set}); err != nil {
		respondError(c, err)
		return
	}

	var updated models.Resource
	if err := database.Resources.FindOne(ctx, bson.M{"_id": resourceID}).Decode(&updated); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func DeleteResource(c *gin.Context) {
	resourceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := database.Resources.DeleteOne(ctx, bson.M{"_id": resourceID})
	if err != nil {
		respondError(c, err)
		return
	}
	if result.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Resource deleted"})
}

// ViewResource counts one view and pushes the new total to every client
// watching the resource list.
func ViewResource(c *gin.Context) {
	resourceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var resource models.Resource
	err := database.Resources.FindOneAndUpdate(ctx,
		bson.M{"_id": resourceID},
		bson.M{"$inc": bson.M{"viewCount": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&resource)
	if err != nil {
		respondError(c, err)
		return
	}

	if wsManager != nil {
		wsManager.BroadcastViewUpdate(resource.ID.Hex(), resource.ViewCount)
	}

	c.JSON(http.StatusOK, gin.H{"viewCount": resource.ViewCount})
}

// MarkHelpful adjusts the helpful counter by the direction in the body and
// pushes the new total. The server only keeps the count; which resources a
// given browser marked lives client-side.
func MarkHelpful(c *gin.Context) {
	var req HelpfulRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resourceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	delta := int64(1)
	if !*req.Helpful {
		delta = -1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{"_id": resourceID}
	if delta < 0 {
		filter["helpfulCount"] = bson.M{"$gt": 0}
	}

	var resource models.Resource
	err := database.Resources.FindOneAndUpdate(ctx,
		filter,
		bson.M{"$inc": bson.M{"helpfulCount": delta}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&resource)
	if err != nil {
		if delta < 0 {
			// Unmark on a zero counter matches nothing; report current state
			if err2 := database.Resources.FindOne(ctx, bson.M{"_id": resourceID}).Decode(&resource); err2 == nil {
				c.JSON(http.StatusOK, gin.H{"helpfulCount": resource.HelpfulCount})
				return
			}
		}
		respondError(c, err)
		return
	}

	if wsManager != nil {
		wsManager.BroadcastLikeUpdate(resource.ID.Hex(), resource.HelpfulCount)
	}

	c.JSON(http.StatusOK, gin.H{"helpfulCount": resource.HelpfulCount})
}
