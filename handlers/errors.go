package handlers

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// respondError is the single boundary translating data-layer failures into
// the API error taxonomy. Anything unrecognized falls through to a 500,
// with a stack trace attached outside release mode.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case mongo.IsDuplicateKeyError(err):
		c.JSON(http.StatusConflict, gin.H{"error": "Already exists"})
	case errors.Is(err, primitive.ErrInvalidHex):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
	default:
		body := gin.H{"error": "Internal server error"}
		if gin.Mode() != gin.ReleaseMode {
			body["stack"] = string(debug.Stack())
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}

// respondBindError reports request validation failures, listing each failed
// field when the error came from the validator.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fe.Field()+" failed on "+fe.Tag())
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "errors": msgs})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// parseIDParam parses an ObjectID path parameter, writing a 400 on failure.
func parseIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return primitive.NilObjectID, false
	}
	return id, true
}
