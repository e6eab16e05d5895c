package view

import "strings"

// MediaKind says how a post's image_url is rendered.
type MediaKind int

const (
	MediaNone MediaKind = iota
	MediaImage
	MediaVideo
)

func (k MediaKind) String() string {
	switch k {
	case MediaImage:
		return "image"
	case MediaVideo:
		return "video"
	default:
		return "none"
	}
}

var videoExtensions = map[string]bool{
	"mp4":  true,
	"webm": true,
	"ogg":  true,
}

// extension returns the text after the last dot of url, or "" when there is none.
func extension(url string) string {
	i := strings.LastIndexByte(url, '.')
	if i < 0 {
		return ""
	}
	return url[i+1:]
}

// ClassifyMedia classifies url by its last dot-delimited suffix. The match is
// case-insensitive and applies to the raw string, so a query after the
// extension makes the URL an image.
func ClassifyMedia(url string) MediaKind {
	if url == "" {
		return MediaNone
	}
	if videoExtensions[strings.ToLower(extension(url))] {
		return MediaVideo
	}
	return MediaImage
}

// VideoType is the source type attribute for a video URL.
func VideoType(url string) string {
	return "video/" + strings.ToLower(extension(url))
}
