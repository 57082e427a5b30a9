package auth

import (
	"errors"
	"testing"
	"time"
)

func TestCredentialManager(t *testing.T) {
	mockStore := NewMockStore()
	manager := NewManagerWithStores(mockStore)

	account := &Account{
		Username:  "testuser",
		Password:  "hunter2hunter2",
		SessionID: "test_session_id_12345",
		UserAgent: "TestAgent/1.0",
	}

	if err := manager.Store(account); err != nil {
		t.Errorf("Failed to store account: %v", err)
	}
	if account.LastModified.IsZero() {
		t.Error("Expected LastModified to be set on store")
	}

	retrieved, err := manager.Retrieve("testuser")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}
	if retrieved.Username != account.Username {
		t.Errorf("Username mismatch: got %s, want %s", retrieved.Username, account.Username)
	}
	if retrieved.SessionID != account.SessionID {
		t.Errorf("SessionID mismatch: got %s, want %s", retrieved.SessionID, account.SessionID)
	}

	accounts, err := manager.List()
	if err != nil {
		t.Errorf("Failed to list accounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("Expected one account in list, got %d", len(accounts))
	}

	if err := manager.Delete("testuser"); err != nil {
		t.Errorf("Failed to delete account: %v", err)
	}
	if _, err := manager.Retrieve("testuser"); err == nil {
		t.Error("Expected error retrieving deleted account")
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 accounts after deletion, got %d", mockStore.Count())
	}
}

func TestManagerStoreValidation(t *testing.T) {
	manager := NewManagerWithStores(NewMockStore())

	if err := manager.Store(&Account{Password: "pw"}); err == nil {
		t.Error("Expected error for missing username")
	}
	if err := manager.Store(&Account{Username: "nobody"}); err == nil {
		t.Error("Expected error when both password and session ID are empty")
	}
	if err := manager.Store(&Account{Username: "sid-only", SessionID: "s"}); err != nil {
		t.Errorf("Session-only account should be valid, got %v", err)
	}
}

func TestManagerFallbackStores(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("backend down")
	broken.RetrieveError = errors.New("backend down")
	working := NewMockStore()

	manager := NewManagerWithStores(broken, working)

	account := &Account{Username: "fallback", SessionID: "sid"}
	if err := manager.Store(account); err != nil {
		t.Fatalf("Expected fallback store to accept account: %v", err)
	}
	if working.Count() != 1 {
		t.Errorf("Expected account in fallback store, got %d", working.Count())
	}

	retrieved, err := manager.Retrieve("fallback")
	if err != nil {
		t.Fatalf("Expected retrieve via fallback store: %v", err)
	}
	if retrieved.SessionID != "sid" {
		t.Errorf("SessionID mismatch: got %s", retrieved.SessionID)
	}
}

func TestManagerListPrefersNewest(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()

	older.Store(&Account{Username: "dup", SessionID: "old", LastModified: time.Now().Add(-time.Hour)})
	newer.Store(&Account{Username: "dup", SessionID: "new", LastModified: time.Now()})

	manager := NewManagerWithStores(older, newer)
	accounts, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("Expected deduplicated list, got %d entries", len(accounts))
	}
	if accounts[0].SessionID != "new" {
		t.Errorf("Expected most recent account to win, got session %s", accounts[0].SessionID)
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("IGARCHIVE_USERNAME", "envuser")
	t.Setenv("IGARCHIVE_PASSWORD", "envpass")
	t.Setenv("IGARCHIVE_SESSION_ID", "")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if account.Username != "envuser" {
		t.Errorf("Expected username envuser, got %s", account.Username)
	}
	if account.Password != "envpass" {
		t.Errorf("Expected password from environment, got %s", account.Password)
	}

	if _, err := store.Retrieve("someoneelse"); err == nil {
		t.Error("Expected mismatch error for different username")
	}

	if err := store.Store(account); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable on store, got %v", err)
	}
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IGARCHIVE_PASSPHRASE", "test-passphrase")

	store, err := NewEncryptedFileStore(dir + "/credentials.enc")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	account := &Account{Username: "enc", Password: "secret", LastModified: time.Now()}
	if err := store.Store(account); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}

	retrieved, err := store.Retrieve("enc")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if retrieved.Password != "secret" {
		t.Errorf("Password mismatch: got %s", retrieved.Password)
	}

	if err := store.Delete("enc"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if store.Exists("enc") {
		t.Error("Expected account to be gone after delete")
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret("short"); got != "********" {
		t.Errorf("Expected full mask for short secret, got %s", got)
	}
	if got := MaskSecret("abcdefghijklmnop"); got != "abcd...mnop" {
		t.Errorf("Unexpected mask: %s", got)
	}
}

func TestEncryptedFileStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IGARCHIVE_PASSPHRASE", "test-passphrase")
	path := dir + "/credentials.enc"

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Store(&Account{Username: "a", SessionID: "sid-a"}); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}
	if err := store.Store(&Account{Username: "b", SessionID: "sid-b"}); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}

	reopened, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	accounts, err := reopened.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(accounts))
	}
	got, err := reopened.Retrieve("b")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if got.SessionID != "sid-b" {
		t.Errorf("SessionID mismatch: got %s", got.SessionID)
	}
}

func TestEncryptedFileStoreRetrieveMissingFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IGARCHIVE_PASSPHRASE", "test-passphrase")

	store, err := NewEncryptedFileStore(dir + "/credentials.enc")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if _, err := store.Retrieve("nobody"); err != ErrCredentialsNotFound {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}
