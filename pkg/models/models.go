package models

import (
	"errors"
	"time"
)

// ErrEndOfPosts is returned by a post iterator once the profile's timeline
// has been fully walked.
var ErrEndOfPosts = errors.New("end of posts")

// Profile is the remote account being archived. Read-only, resolved once
// per run.
type Profile struct {
	Username   string
	ID         string
	MediaCount int
	IsPrivate  bool
}

// Post is one unit of published content from a profile's timeline.
type Post struct {
	ID         string
	Shortcode  string
	DisplayURL string
	// ImageURLs lists every image of the post. Carousel posts carry one
	// URL per non-video child; single-image posts carry the display URL.
	ImageURLs []string
	IsVideo   bool
	IsPinned  bool
	TakenAt   time.Time
	Caption   string
	Likes     int
	Comments  int
}
