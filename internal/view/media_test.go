package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMedia(t *testing.T) {
	t.Parallel()
	tests := []struct {
		url  string
		want MediaKind
	}{
		{"https://x/a.mp4", MediaVideo},
		{"https://x/a.MP4", MediaVideo},
		{"https://x/a.webm", MediaVideo},
		{"https://x/a.Ogg", MediaVideo},
		{"https://x/a.jpg", MediaImage},
		{"https://x/a.mp4?autoplay=1", MediaImage},
		{"https://x/mp4", MediaImage},
		{"", MediaNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyMedia(tt.url), tt.url)
	}
}

func TestVideoType(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "video/mp4", VideoType("https://x/a.MP4"))
	assert.Equal(t, "video/webm", VideoType("https://x/clip.webm"))
	assert.Equal(t, "video", MediaVideo.String())
}
