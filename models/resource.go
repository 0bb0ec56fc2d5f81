package models

import (
	"net/url"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ResourceType string

const (
	ResourceVideo   ResourceType = "video"
	ResourceAudio   ResourceType = "audio"
	ResourceArticle ResourceType = "article"
)

type Resource struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description" json:"description"`
	URL          string             `bson:"url" json:"url"`
	Type         ResourceType       `bson:"type" json:"type"`
	ViewCount    int64              `bson:"viewCount" json:"viewCount"`
	HelpfulCount int64              `bson:"helpfulCount" json:"helpfulCount"`
	Embed        *Embed             `bson:"embed,omitempty" json:"embed,omitempty"`
	CreatedAt    int64              `bson:"createdAt" json:"createdAt"`
	UpdatedAt    int64              `bson:"updatedAt" json:"updatedAt"`
}

// Embed is derived from the resource URL once at save time and only
// recomputed when the URL changes.
type Embed struct {
	Platform string `bson:"platform" json:"platform"` // YouTube, Vimeo
	EmbedID  string `bson:"embedId" json:"embedId"`
}

var (
	youtubeIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	vimeoIDRe   = regexp.MustCompile(`^[0-9]+$`)
)

// DeriveEmbed extracts embeddable-player metadata from a resource URL.
// Returns nil when the URL does not point at a known platform.
func DeriveEmbed(raw string) *Embed {
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	switch host {
	case "youtube.com", "m.youtube.com":
		// https://www.youtube.com/watch?v=XXXXXXXXXXX
		if u.Path == "/watch" {
			if id := u.Query().Get("v"); youtubeIDRe.MatchString(id) {
				return &Embed{Platform: "YouTube", EmbedID: id}
			}
			return nil
		}
		// https://www.youtube.com/embed/XXXXXXXXXXX
		if id, ok := strings.CutPrefix(u.Path, "/embed/"); ok && youtubeIDRe.MatchString(id) {
			return &Embed{Platform: "YouTube", EmbedID: id}
		}
	case "youtu.be":
		// https://youtu.be/XXXXXXXXXXX
		if id := strings.TrimPrefix(u.Path, "/"); youtubeIDRe.MatchString(id) {
			return &Embed{Platform: "YouTube", EmbedID: id}
		}
	case "vimeo.com":
		// https://vimeo.com/123456789
		if id := strings.TrimPrefix(u.Path, "/"); vimeoIDRe.MatchString(id) {
			return &Embed{Platform: "Vimeo", EmbedID: id}
		}
	}

	return nil
}

func ValidResourceType(t ResourceType) bool {
	switch t {
	case ResourceVideo, ResourceAudio, ResourceArticle:
		return true
	}
	return false
}
