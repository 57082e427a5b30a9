package scraper

import (
	"context"

	"igarchive/pkg/models"
)

// PostIterator yields posts in timeline order. Next returns
// models.ErrEndOfPosts once the sequence is exhausted; any other error
// interrupts the traversal and is classified by the controller.
type PostIterator interface {
	Next(ctx context.Context) (*models.Post, error)
}

// MediaSource is the external collaborator the controller drives. It owns
// all authentication state; the controller only sees resolved profiles and
// posts. A source is singly used: one traversal at a time.
type MediaSource interface {
	// ResolveProfile fetches profile information for a username.
	ResolveProfile(ctx context.Context, username string) (*models.Profile, error)

	// Posts returns a fresh iterator starting at the newest post. Each call
	// restarts from the beginning; the sequence is not cursor-resumable.
	Posts(profile *models.Profile) PostIterator

	// DownloadPost saves the post's media. It reports whether a new file
	// was written; re-downloading an already-saved post is a no-op
	// returning false. Must never be called for video posts.
	DownloadPost(ctx context.Context, post *models.Post) (bool, error)
}
