package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"igarchive/pkg/logger"
)

// Session holds the cookies and identifiers of a logged-in Instagram
// browser session.
type Session struct {
	Username  string            `json:"username"`
	SessionID string            `json:"session_id"`
	CSRFToken string            `json:"csrf_token,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Cookies   map[string]string `json:"cookies,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Manager persists sessions to disk so logins survive restarts.
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager creates a manager storing the session for username under the
// per-OS data directory.
func NewManager(username string) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	sessionsDir := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &Manager{
		path:   filepath.Join(sessionsDir, fmt.Sprintf("%s.session.json", username)),
		logger: logger.GetLogger(),
	}, nil
}

// NewManagerAtPath creates a manager bound to an explicit session file,
// for the --session-file flag.
func NewManagerAtPath(path string) *Manager {
	return &Manager{
		path:   path,
		logger: logger.GetLogger(),
	}
}

// Load reads the stored session. A missing file is not an error; it returns
// (nil, nil).
func (m *Manager) Load() (*Session, error) {
	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open session file: %w", err)
	}
	defer file.Close()

	var sess Session
	if err := json.NewDecoder(file).Decode(&sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	m.logger.DebugWithFields("Session loaded", map[string]interface{}{
		"username":   sess.Username,
		"created_at": sess.CreatedAt,
	})

	return &sess, nil
}

// Save writes the session to disk atomically with owner-only permissions.
func (m *Manager) Save(sess *Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}

	tempPath := m.path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temporary session file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(sess); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync session file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close session file: %w", err)
	}

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	m.logger.InfoWithFields("Session saved", map[string]interface{}{
		"username": sess.Username,
		"path":     m.path,
	})

	return nil
}

// Delete removes the session file.
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Exists reports whether a session file is present.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Path returns the file this manager reads and writes.
func (m *Manager) Path() string {
	return m.path
}

// getDataDirectory returns the appropriate data directory for the current OS.
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "igarchive")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "igarchive")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "igarchive")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "igarchive")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
