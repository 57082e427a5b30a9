package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Manager owns the output directory for one profile and tracks which posts
// are already on disk, keyed by shortcode.
type Manager struct {
	outputDir string
	saved     map[string]bool
	mu        sync.RWMutex
}

// NewManager creates the output directory if needed and indexes any files a
// previous run left behind.
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	m := &Manager{
		outputDir: outputDir,
		saved:     make(map[string]bool),
	}
	if err := m.scanExisting(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) scanExisting() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".jpg" {
			continue
		}
		base := strings.TrimSuffix(name, ".jpg")
		m.saved[base] = true
		// Carousel images are stored as <shortcode>_<n>.jpg; index them
		// under the shortcode as well.
		if i := strings.LastIndex(base, "_"); i > 0 {
			if _, err := strconv.Atoi(base[i+1:]); err == nil {
				m.saved[base[:i]] = true
			}
		}
	}
	return nil
}

// IsSaved reports whether a post with the given shortcode is already on
// disk.
func (m *Manager) IsSaved(shortcode string) bool {
	m.mu.RLock()
	if m.saved[shortcode] {
		m.mu.RUnlock()
		return true
	}
	m.mu.RUnlock()

	if _, err := os.Stat(m.photoPath(shortcode)); err == nil {
		m.mu.Lock()
		m.saved[shortcode] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// SavePhoto writes the image of a single-photo post.
func (m *Manager) SavePhoto(r io.Reader, shortcode string) error {
	return m.save(r, shortcode, m.photoPath(shortcode))
}

// SaveCarouselPhoto writes one image of a multi-image post. Index is
// one-based; the file is named <shortcode>_<index>.jpg.
func (m *Manager) SaveCarouselPhoto(r io.Reader, shortcode string, index int) error {
	final := filepath.Join(m.outputDir, fmt.Sprintf("%s_%d.jpg", shortcode, index))
	return m.save(r, shortcode, final)
}

// save writes photo data through a temporary file and an atomic rename so an
// interrupted run never leaves a truncated image behind.
func (m *Manager) save(r io.Reader, shortcode, final string) error {
	tmp := final + ".tmp"

	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, copyErr := io.Copy(out, r)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write photo data: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close photo file: %w", closeErr)
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize photo file: %w", err)
	}

	m.mu.Lock()
	m.saved[shortcode] = true
	m.mu.Unlock()
	return nil
}

// OutputDir returns the directory this manager writes into.
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// SavedCount returns how many posts are known to be on disk.
func (m *Manager) SavedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.saved)
}

func (m *Manager) photoPath(shortcode string) string {
	return filepath.Join(m.outputDir, shortcode+".jpg")
}
