package instagram

import (
	"context"
	"fmt"

	igerrors "igarchive/pkg/errors"
	"igarchive/pkg/logger"
	"igarchive/pkg/metadata"
	"igarchive/pkg/models"
	"igarchive/pkg/scraper"
	"igarchive/pkg/storage"
)

// Source adapts the Instagram client, storage, and metadata layers into the
// media source consumed by the retry controller.
type Source struct {
	client   *Client
	store    *storage.Manager
	meta     *metadata.Collector
	pageSize int
	logger   logger.Logger
}

// SourceOptions configures a Source.
type SourceOptions struct {
	// PageSize is the number of posts fetched per timeline page.
	PageSize int
	// Metadata, when set, records per-post metadata on download.
	Metadata *metadata.Collector
	// Logger defaults to the global logger.
	Logger logger.Logger
}

// NewSource creates a media source writing into store.
func NewSource(client *Client, store *storage.Manager, opts SourceOptions) *Source {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Source{
		client:   client,
		store:    store,
		meta:     opts.Metadata,
		pageSize: pageSize,
		logger:   log,
	}
}

// ResolveProfile fetches profile information for a username.
func (s *Source) ResolveProfile(ctx context.Context, username string) (*models.Profile, error) {
	username = SanitizeUsername(username)
	if !IsValidUsername(username) {
		return nil, igerrors.New(igerrors.ErrorTypeBadRequest, 0, fmt.Sprintf("invalid username: %q", username))
	}

	resp, err := s.client.FetchProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	profile := resp.Data.User.ToProfile()
	if profile.Username == "" {
		profile.Username = username
	}

	s.logger.InfoWithFields("profile resolved", map[string]interface{}{
		"username":    profile.Username,
		"user_id":     profile.ID,
		"media_count": profile.MediaCount,
		"is_private":  profile.IsPrivate,
	})

	return profile, nil
}

// Posts returns a fresh timeline iterator starting at the newest post.
func (s *Source) Posts(profile *models.Profile) scraper.PostIterator {
	return newPostIterator(s.client, profile.ID, s.pageSize)
}

// DownloadPost saves the post's images to disk. Carousel posts are saved one
// file per image child. It reports whether new files were written; an
// already-saved shortcode is a no-op returning false.
func (s *Source) DownloadPost(ctx context.Context, post *models.Post) (bool, error) {
	if post.IsVideo {
		return false, nil
	}

	if s.store.IsSaved(post.Shortcode) {
		s.logger.DebugWithFields("post already on disk", map[string]interface{}{
			"shortcode": post.Shortcode,
		})
		return false, nil
	}

	urls := post.ImageURLs
	if len(urls) == 0 && post.DisplayURL != "" {
		urls = []string{post.DisplayURL}
	}

	for i, photoURL := range urls {
		body, err := s.client.DownloadPhoto(ctx, photoURL)
		if err != nil {
			return false, err
		}

		if len(urls) == 1 {
			err = s.store.SavePhoto(body, post.Shortcode)
		} else {
			err = s.store.SaveCarouselPhoto(body, post.Shortcode, i+1)
		}
		body.Close()
		if err != nil {
			return false, err
		}
	}

	if s.meta != nil {
		s.meta.Record(post)
	}

	return true, nil
}
