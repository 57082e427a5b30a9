package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize         = 32
	derivedKeySize   = 32
	pbkdf2Iterations = 100000
)

// EncryptedFileStore keeps all accounts in a single AES-GCM encrypted JSON
// file. The key is derived with PBKDF2 from a passphrase taken from
// IGARCHIVE_PASSPHRASE or, failing that, a generated file in the config
// directory. It is the fallback when no system keychain is available.
type EncryptedFileStore struct {
	path       string
	passphrase []byte
	mu         sync.RWMutex
}

// credentialFile is the on-disk envelope. Payload is the base64 of the
// GCM-sealed accounts map with the nonce prepended.
type credentialFile struct {
	Version  int       `json:"version"`
	Salt     string    `json:"salt"`
	Payload  string    `json:"payload"`
	Modified time.Time `json:"modified"`
}

// NewEncryptedFileStore creates an encrypted file-based credential store.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create credential directory: %w", err)
		}
	}

	passphrase, err := loadPassphrase()
	if err != nil {
		return nil, err
	}

	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

// Store saves an account, replacing any earlier entry for the username.
func (e *EncryptedFileStore) Store(account *Account) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if account == nil || account.Username == "" {
		return ErrInvalidCredentials
	}

	accounts, salt, err := e.read()
	if err != nil {
		return err
	}
	accounts[account.Username] = *account
	return e.write(accounts, salt)
}

// Retrieve returns the stored account for a username.
func (e *EncryptedFileStore) Retrieve(username string) (*Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if username == "" {
		return nil, ErrInvalidCredentials
	}

	accounts, _, err := e.read()
	if err != nil {
		return nil, err
	}
	account, ok := accounts[username]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

// List returns all stored accounts.
func (e *EncryptedFileStore) List() ([]*Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	accounts, _, err := e.read()
	if err != nil {
		return nil, err
	}

	all := make([]*Account, 0, len(accounts))
	for _, account := range accounts {
		acc := account
		all = append(all, &acc)
	}
	return all, nil
}

// Delete removes an account. The file itself is removed once empty.
func (e *EncryptedFileStore) Delete(username string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if username == "" {
		return ErrInvalidCredentials
	}

	accounts, salt, err := e.read()
	if err != nil {
		return err
	}
	if _, ok := accounts[username]; !ok {
		return ErrCredentialsNotFound
	}
	delete(accounts, username)

	if len(accounts) == 0 {
		return os.Remove(e.path)
	}
	return e.write(accounts, salt)
}

// Exists reports whether an account is stored for the username.
func (e *EncryptedFileStore) Exists(username string) bool {
	account, err := e.Retrieve(username)
	return err == nil && account != nil
}

// read loads and decrypts the accounts map. A missing file yields an empty
// map and no salt.
func (e *EncryptedFileStore) read() (map[string]Account, []byte, error) {
	raw, err := os.ReadFile(e.path)
	if os.IsNotExist(err) {
		return map[string]Account{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var envelope credentialFile
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, nil, fmt.Errorf("failed to parse credential file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(envelope.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(envelope.Payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	plaintext, err := gcmOpen(e.deriveKey(salt), sealed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	var accounts map[string]Account
	if err := json.Unmarshal(plaintext, &accounts); err != nil {
		return nil, nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return accounts, salt, nil
}

// write encrypts the accounts map and replaces the file atomically. A nil
// salt generates a fresh one.
func (e *EncryptedFileStore) write(accounts map[string]Account, salt []byte) error {
	if len(salt) == 0 {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	plaintext, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	sealed, err := gcmSeal(e.deriveKey(salt), plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	envelope := credentialFile{
		Version:  1,
		Salt:     base64.StdEncoding.EncodeToString(salt),
		Payload:  base64.StdEncoding.EncodeToString(sealed),
		Modified: time.Now(),
	}
	content, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential file: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return os.Rename(tmp, e.path)
}

func (e *EncryptedFileStore) deriveKey(salt []byte) []byte {
	return pbkdf2.Key(e.passphrase, salt, pbkdf2Iterations, derivedKeySize, sha256.New)
}

// loadPassphrase resolves the encryption passphrase: the environment wins,
// otherwise a persisted random passphrase is used, generated on first run.
func loadPassphrase() ([]byte, error) {
	if pass := os.Getenv("IGARCHIVE_PASSPHRASE"); pass != "" {
		return []byte(pass), nil
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(configDir, ".passphrase")

	if content, err := os.ReadFile(path); err == nil && len(content) > 0 {
		return content, nil
	}

	generated := make([]byte, 32)
	if _, err := rand.Read(generated); err != nil {
		return nil, fmt.Errorf("failed to generate passphrase: %w", err)
	}
	encoded := []byte(base64.URLEncoding.EncodeToString(generated))

	if err := os.WriteFile(path, encoded, 0600); err != nil {
		return nil, fmt.Errorf("failed to save passphrase: %w", err)
	}
	return encoded, nil
}

func gcmSeal(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func gcmOpen(key, sealed []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("sealed payload too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
