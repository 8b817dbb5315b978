package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name        string
		destination string
		videoID     string
		want        string
	}{
		{"domain only", "https://example.com", "abc123", "example-abc123"},
		{"strips www and keeps path", "https://www.skool.com/my-group/About", "dQw4w9WgXcQ", "skool-my-group-about-dqw4w9"},
		{"cleans symbols", "https://shop.example.com/p/50+off_now?x=1", "v_1", "shop-p-50-off-now-v-1"},
		{"unparseable falls back", "::", "abc", "link-abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateSlug(tt.destination, tt.videoID))
		})
	}

	t.Run("length capped", func(t *testing.T) {
		slug := GenerateSlug("https://example.com/"+strings.Repeat("segment/", 20), "abcdefgh")
		assert.LessOrEqual(t, len(slug), maxSlugLength)
		assert.Regexp(t, slugPattern, slug)
	})
}
