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

type CreatePostRequest struct {
	Title     string `json:"title" binding:"required,max=200"`
	Content   string `json:"content" binding:"required"`
	Anonymous bool   `json:"anonymous"`
}

type CommentRequest struct {
	Content   string `json:"content" binding:"required"`
	Anonymous bool   `json:"anonymous"`
}

type LikeRequest struct {
	Like *bool `json:"like" binding:"required"`
}

func CreateForumPost(c *gin.Context) {
	var req CreatePostRequest
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

	post := models.Post{
		ID:        primitive.NewObjectID(),
		Anonymous: req.Anonymous,
		Title:     req.Title,
		Content:   req.Content,
		CreatedAt: time.Now().Unix(),
	}
	if !req.Anonymous {
		post.UserID = &userID
	}

	if _, err := database.Posts.InsertOne(ctx, post); err != nil {
		log.Printf("CreateForumPost error: %v", err)
		respondError(c, err)
		return
	}

	recordActivity(ctx, userID, "post_created", &post.ID)

	c.JSON(http.StatusCreated, post)
}

func ListForumPosts(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil || page < 1 {
		page = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	findOptions := options.Find().
		SetSort(bson.D{{Key: "pinned", Value: -1}, {Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := database.Posts.Find(ctx, bson.M{}, findOptions)
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

// populatePostAuthors attaches author profiles to non-anonymous posts.
func populatePostAuthors(ctx context.Context, posts []models.Post) {
	var authorIDs []primitive.ObjectID
	for _, p := range posts {
		if !p.Anonymous && p.UserID != nil {
			authorIDs = append(authorIDs, *p.UserID)
		}
	}
	if len(authorIDs) == 0 {
		return
	}

	cursor, err := database.Users.Find(ctx, bson.M{"_id": bson.M{"$in": authorIDs}})
	if err != nil {
		log.Printf("populatePostAuthors error: %v", err)
		return
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		log.Printf("populatePostAuthors decode error: %v", err)
		return
	}

	userMap := make(map[primitive.ObjectID]*models.User, len(users))
	for i := range users {
		userMap[users[i].ID] = &users[i]
	}

	for i := range posts {
		if !posts[i].Anonymous && posts[i].UserID != nil {
			posts[i].Author = userMap[*posts[i].UserID]
		}
	}
}

// GetForumPost returns one post and counts the view.
func GetForumPost(c *gin.Context) {
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var post models.Post
	err := database.Posts.FindOneAndUpdate(ctx,
		bson.M{"_id": postID},
		bson.M{"$inc": bson.M{"viewCount": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if err != nil {
		respondError(c, err)
		return
	}

	posts := []models.Post{post}
	populatePostAuthors(ctx, posts)

	c.JSON(http.StatusOK, posts[0])
}

// LikeForumPost adjusts the like counter by the direction in the body.
// The counter never drops below zero.
func LikeForumPost(c *gin.Context) {
	var req LikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	delta := int64(1)
	if !*req.Like {
		delta = -1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{"_id": postID}
	if delta < 0 {
		filter["likeCount"] = bson.M{"$gt": 0}
	}

	var post models.Post
	err := database.Posts.FindOneAndUpdate(ctx,
		filter,
		bson.M{"$inc": bson.M{"likeCount": delta}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if err != nil {
		// An unlike on a zero counter matches nothing; report current state
		if delta < 0 {
			if err2 := database.Posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&post); err2 == nil {
				c.JSON(http.StatusOK, gin.H{"likeCount": post.LikeCount})
				return
			}
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"likeCount": post.LikeCount})
}

func CreateComment(c *gin.Context) {
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var post models.Post
	if err := database.Posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&post); err != nil {
		respondError(c, err)
		return
	}

	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		PostID:    postID,
		Anonymous: req.Anonymous,
		Content:   req.Content,
		CreatedAt: time.Now().Unix(),
	}
	if !req.Anonymous {
		comment.UserID = &userID
	}

	if _, err := database.Comments.InsertOne(ctx, comment); err != nil {
		respondError(c, err)
		return
	}

	database.Posts.UpdateOne(ctx, bson.M{"_id": postID}, bson.M{"$inc": bson.M{"commentCount": 1}})

	recordActivity(ctx, userID, "comment_created", &comment.ID)

	// Let the post author know someone replied, unless they replied to
	// themselves or posted anonymously
	if post.UserID != nil && *post.UserID != userID {
		go notifyUser(*post.UserID, "New reply", "Someone replied to your post \""+post.Title+"\"")
	}

	c.JSON(http.StatusCreated, comment)
}

func GetComments(c *gin.Context) {
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := database.Comments.Find(ctx, bson.M{"postId": postID}, findOptions)
	if err != nil {
		respondError(c, err)
		return
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, comments)
}

// ReportPost flags a post for moderation review.
func ReportPost(c *gin.Context) {
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := database.Posts.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$inc": bson.M{"reportCount": 1}},
	)
	if err != nil {
		respondError(c, err)
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post reported"})
}
