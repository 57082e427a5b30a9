package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igarchive/pkg/models"
)

func TestCollectorRecordAndSave(t *testing.T) {
	dir := t.TempDir()

	c, err := NewCollector(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Count())

	c.Record(&models.Post{
		ID:         "1",
		Shortcode:  "AAA",
		DisplayURL: "https://cdn.example.com/a.jpg",
		TakenAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Caption:    "first",
		Likes:      10,
	})
	c.Record(&models.Post{
		ID:         "2",
		Shortcode:  "BBB",
		DisplayURL: "https://cdn.example.com/b.jpg",
		TakenAt:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Comments:   3,
	})
	require.NoError(t, c.Save())

	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	require.NoError(t, err)

	var entries []*PostMetadata
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "BBB", entries[0].Shortcode)
	assert.Equal(t, "AAA", entries[1].Shortcode)
	assert.Equal(t, "first", entries[1].Caption)
	assert.Equal(t, 10, entries[1].LikesCount)
	assert.Equal(t, 3, entries[0].CommentsCount)
}

func TestCollectorMergesExistingFile(t *testing.T) {
	dir := t.TempDir()

	c, err := NewCollector(dir)
	require.NoError(t, err)
	c.Record(&models.Post{ID: "1", Shortcode: "OLD", TakenAt: time.Now().Add(-time.Hour)})
	require.NoError(t, c.Save())

	// A later run picks up where the first left off.
	c2, err := NewCollector(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, c2.Count())

	c2.Record(&models.Post{ID: "2", Shortcode: "NEW", TakenAt: time.Now()})
	require.NoError(t, c2.Save())

	c3, err := NewCollector(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, c3.Count())
}

func TestCollectorRecordOverwritesSameShortcode(t *testing.T) {
	c, err := NewCollector(t.TempDir())
	require.NoError(t, err)

	c.Record(&models.Post{Shortcode: "DUP", Likes: 1})
	c.Record(&models.Post{Shortcode: "DUP", Likes: 2})
	assert.Equal(t, 1, c.Count())
}

func TestNewCollectorRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), []byte("{not json"), 0644))

	_, err := NewCollector(dir)
	assert.Error(t, err)
}

func TestFromPost(t *testing.T) {
	taken := time.Date(2023, 3, 14, 15, 9, 26, 0, time.UTC)
	meta := FromPost(&models.Post{
		ID:         "42",
		Shortcode:  "PI",
		DisplayURL: "https://cdn.example.com/pi.jpg",
		IsVideo:    false,
		IsPinned:   true,
		TakenAt:    taken,
		Caption:    "pie day",
		Likes:      314,
		Comments:   15,
	})

	assert.Equal(t, "42", meta.ID)
	assert.Equal(t, "PI", meta.Shortcode)
	assert.True(t, meta.IsPinned)
	assert.Equal(t, taken, meta.TakenAt)
	assert.Equal(t, 314, meta.LikesCount)
	assert.WithinDuration(t, time.Now(), meta.DownloadedAt, 5*time.Second)
}
