package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"igarchive/pkg/models"
)

// PostMetadata is what gets persisted for a downloaded post.
type PostMetadata struct {
	ID        string `json:"id"`
	Shortcode string `json:"shortcode"`
	URL       string `json:"url"`
	// ImageCount is greater than one for carousel posts.
	ImageCount int  `json:"image_count,omitempty"`
	IsVideo    bool `json:"is_video"`
	IsPinned   bool `json:"is_pinned,omitempty"`

	TakenAt      time.Time `json:"taken_at"`
	DownloadedAt time.Time `json:"downloaded_at"`

	Caption       string `json:"caption,omitempty"`
	LikesCount    int    `json:"likes_count"`
	CommentsCount int    `json:"comments_count"`
}

// FromPost converts a timeline post to its persisted form.
func FromPost(post *models.Post) *PostMetadata {
	return &PostMetadata{
		ID:            post.ID,
		Shortcode:     post.Shortcode,
		URL:           post.DisplayURL,
		ImageCount:    len(post.ImageURLs),
		IsVideo:       post.IsVideo,
		IsPinned:      post.IsPinned,
		TakenAt:       post.TakenAt,
		DownloadedAt:  time.Now(),
		Caption:       post.Caption,
		LikesCount:    post.Likes,
		CommentsCount: post.Comments,
	}
}

// Collector accumulates metadata for every post downloaded during a run and
// merges it with what previous runs wrote, so metadata.json always reflects
// the whole archive.
type Collector struct {
	dir     string
	entries map[string]*PostMetadata
	mu      sync.Mutex
}

// NewCollector loads any existing metadata file from dir.
func NewCollector(dir string) (*Collector, error) {
	c := &Collector{
		dir:     dir,
		entries: make(map[string]*PostMetadata),
	}

	data, err := os.ReadFile(c.path())
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var existing []*PostMetadata
	if err := json.Unmarshal(data, &existing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata file: %w", err)
	}
	for _, meta := range existing {
		c.entries[meta.Shortcode] = meta
	}
	return c, nil
}

// Record stores metadata for a post, replacing any earlier entry with the
// same shortcode.
func (c *Collector) Record(post *models.Post) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[post.Shortcode] = FromPost(post)
}

// Count returns the number of recorded entries.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Save writes all entries to metadata.json, newest post first. The write is
// atomic so an interrupted run never corrupts the file.
func (c *Collector) Save() error {
	c.mu.Lock()
	all := make([]*PostMetadata, 0, len(c.entries))
	for _, meta := range c.entries {
		all = append(all, meta)
	}
	c.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].TakenAt.After(all[j].TakenAt)
	})

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tmp := c.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	if err := os.Rename(tmp, c.path()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize metadata file: %w", err)
	}
	return nil
}

func (c *Collector) path() string {
	return filepath.Join(c.dir, "metadata.json")
}
