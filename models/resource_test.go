package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveEmbedYouTubeWatchLink(t *testing.T) {
	embed := DeriveEmbed("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NotNil(t, embed)
	assert.Equal(t, "YouTube", embed.Platform)
	assert.Equal(t, "dQw4w9WgXcQ", embed.EmbedID)
	assert.Len(t, embed.EmbedID, 11)
}

func TestDeriveEmbedVariants(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		platform string
		embedID  string
	}{
		{"youtube no www", "https://youtube.com/watch?v=abcdefghijk", "YouTube", "abcdefghijk"},
		{"youtube extra params", "https://www.youtube.com/watch?v=abcdefghijk&t=30s", "YouTube", "abcdefghijk"},
		{"youtu.be short link", "https://youtu.be/abcdefghijk", "YouTube", "abcdefghijk"},
		{"youtube embed path", "https://www.youtube.com/embed/abcdefghijk", "YouTube", "abcdefghijk"},
		{"vimeo", "https://vimeo.com/123456789", "Vimeo", "123456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embed := DeriveEmbed(tt.url)
			require.NotNil(t, embed, "url %q", tt.url)
			assert.Equal(t, tt.platform, embed.Platform)
			assert.Equal(t, tt.embedID, embed.EmbedID)
		})
	}
}

func TestDeriveEmbedRejectsNonEmbeddable(t *testing.T) {
	for _, url := range []string{
		"https://example.com/article",
		"https://www.youtube.com/watch",
		"https://www.youtube.com/watch?v=tooshort",
		"https://www.youtube.com/watch?v=waytoolongidentifier",
		"https://vimeo.com/about",
		"not a url at all ://",
	} {
		assert.Nil(t, DeriveEmbed(url), "url %q should not produce an embed", url)
	}
}

func TestValidResourceType(t *testing.T) {
	assert.True(t, ValidResourceType(ResourceVideo))
	assert.True(t, ValidResourceType(ResourceAudio))
	assert.True(t, ValidResourceType(ResourceArticle))
	assert.False(t, ValidResourceType("podcast"))
}
