package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	credserrors "github.com/credsync/credsync/internal/errors"
)

// FileStore implements Store using JSON documents on the filesystem: one
// document per user under users/, one per audit entry under audit/<user>/.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a new file-based directory store.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

// DefaultDataDir returns the default directory data location.
func DefaultDataDir() string {
	if testDir := os.Getenv("CREDSYNC_DATA_DIR"); testDir != "" {
		return testDir
	}

	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "credsync", "directory")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "credsync", "directory")
	}

	return filepath.Join(os.TempDir(), "credsync", "directory")
}

// GetUser retrieves the entry for userID, or nil if the user is unknown.
func (fs *FileStore) GetUser(userID string) (*Entry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.readUser(userID)
}

func (fs *FileStore) readUser(userID string) (*Entry, error) {
	data, err := os.ReadFile(fs.userFile(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, credserrors.PersistenceError{Op: "read user", Err: err}
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, credserrors.PersistenceError{Op: "decode user", Err: err}
	}
	return &entry, nil
}

func (fs *FileStore) writeUser(entry *Entry) error {
	usersDir := filepath.Join(fs.baseDir, "users")
	if err := os.MkdirAll(usersDir, 0700); err != nil {
		return credserrors.PersistenceError{Op: "create users directory", Err: err}
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return credserrors.PersistenceError{Op: "encode user", Err: err}
	}

	if err := os.WriteFile(fs.userFile(entry.UserID), data, 0600); err != nil {
		return credserrors.PersistenceError{Op: "write user", Err: err}
	}
	return nil
}

// UpsertUser merges partial into the stored entry, creating it if absent.
func (fs *FileStore) UpsertUser(userID string, partial Entry) (*Entry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	now := time.Now()
	entry, err := fs.readUser(userID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		entry = &Entry{UserID: userID, CreatedAt: now}
	}
	if partial.BackingStores != nil {
		entry.BackingStores = dedupeStores(partial.BackingStores)
	}
	entry.UpdatedAt = now

	if err := fs.writeUser(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// AddBackingStore enrolls the user in a store, replacing a same-name entry.
func (fs *FileStore) AddBackingStore(userID string, store BackingStore) (*Entry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entry, err := fs.readUser(userID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, credserrors.UserNotFoundError{UserID: userID}
	}

	if store.EnrolledAt.IsZero() {
		store.EnrolledAt = time.Now()
	}
	if store.Status == "" {
		store.Status = StoreStatusPending
	}

	replaced := false
	for i := range entry.BackingStores {
		if entry.BackingStores[i].StoreName == store.StoreName {
			entry.BackingStores[i] = store
			replaced = true
			break
		}
	}
	if !replaced {
		entry.BackingStores = append(entry.BackingStores, store)
	}
	entry.UpdatedAt = time.Now()

	if err := fs.writeUser(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RemoveBackingStore drops the named enrollment if present.
func (fs *FileStore) RemoveBackingStore(userID, storeName string) (*Entry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entry, err := fs.readUser(userID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, credserrors.UserNotFoundError{UserID: userID}
	}

	kept := entry.BackingStores[:0]
	for _, s := range entry.BackingStores {
		if s.StoreName != storeName {
			kept = append(kept, s)
		}
	}
	entry.BackingStores = kept
	entry.UpdatedAt = time.Now()

	if err := fs.writeUser(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// SetStoreStatus updates the sync status of one enrollment.
func (fs *FileStore) SetStoreStatus(userID, storeName string, status StoreStatus) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entry, err := fs.readUser(userID)
	if err != nil {
		return err
	}
	if entry == nil {
		return credserrors.UserNotFoundError{UserID: userID}
	}

	store := entry.FindStore(storeName)
	if store == nil {
		return fmt.Errorf("user %s is not enrolled in store %s", userID, storeName)
	}
	store.Status = status
	entry.UpdatedAt = time.Now()

	return fs.writeUser(entry)
}

// DeleteUser removes the user document. Idempotent.
func (fs *FileStore) DeleteUser(userID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	err := os.Remove(fs.userFile(userID))
	if err != nil && !os.IsNotExist(err) {
		return credserrors.PersistenceError{Op: "delete user", Err: err}
	}
	return nil
}

// AppendAudit persists an audit entry, assigning LogID and Timestamp if unset.
func (fs *FileStore) AppendAudit(entry AuditEntry) (*AuditEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if entry.LogID == "" {
		entry.LogID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	auditDir := filepath.Join(fs.baseDir, "audit", sanitizeFilename(entry.UserID))
	if err := os.MkdirAll(auditDir, 0700); err != nil {
		return nil, credserrors.PersistenceError{Op: "create audit directory", Err: err}
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return nil, credserrors.PersistenceError{Op: "encode audit entry", Err: err}
	}

	// Filename starts with the timestamp so lexical order is time order and
	// PruneAudit can judge age without opening the file.
	filename := filepath.Join(auditDir, fmt.Sprintf("%s-%s.json",
		entry.Timestamp.Format("20060102-150405.000000000"), entry.LogID[:8]))
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return nil, credserrors.PersistenceError{Op: "write audit entry", Err: err}
	}

	return &entry, nil
}

// GetAudit returns newest-first audit entries for a user.
func (fs *FileStore) GetAudit(userID string, limit int) ([]AuditEntry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.readAuditDir(filepath.Join(fs.baseDir, "audit", sanitizeFilename(userID)), limit)
}

func (fs *FileStore) readAuditDir(dir string, limit int) ([]AuditEntry, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []AuditEntry{}, nil
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, credserrors.PersistenceError{Op: "read audit directory", Err: err}
	}

	// Newest first.
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name() > files[j].Name()
	})

	var entries []AuditEntry
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			continue // Skip files that can't be read
		}
		var entry AuditEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue // Skip invalid JSON files
		}
		entries = append(entries, entry)
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries, nil
}

// GetAllAudit returns newest-first audit entries across all users.
func (fs *FileStore) GetAllAudit(limit int) ([]AuditEntry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	auditDir := filepath.Join(fs.baseDir, "audit")
	if _, err := os.Stat(auditDir); os.IsNotExist(err) {
		return []AuditEntry{}, nil
	}

	userDirs, err := os.ReadDir(auditDir)
	if err != nil {
		return nil, credserrors.PersistenceError{Op: "read audit directory", Err: err}
	}

	var all []AuditEntry
	for _, userDir := range userDirs {
		if !userDir.IsDir() {
			continue
		}
		entries, err := fs.readAuditDir(filepath.Join(auditDir, userDir.Name()), -1)
		if err != nil {
			continue // Skip users with unreadable logs
		}
		all = append(all, entries...)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// PruneAudit removes audit entries older than the given age, judged by the
// timestamp prefix of the filename.
func (fs *FileStore) PruneAudit(olderThan time.Duration) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	auditDir := filepath.Join(fs.baseDir, "audit")
	cutoff := time.Now().Add(-olderThan)

	return filepath.Walk(auditDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		name := filepath.Base(path)
		if len(name) < 15 {
			return nil
		}
		ts, err := time.Parse("20060102-150405", name[:15])
		if err != nil {
			return nil
		}
		if ts.Before(cutoff) {
			if err := os.Remove(path); err != nil {
				fmt.Fprintf(os.Stderr, "failed to remove old audit file %s: %v\n", path, err)
			}
		}
		return nil
	})
}

func (fs *FileStore) userFile(userID string) string {
	return filepath.Join(fs.baseDir, "users", sanitizeFilename(userID)+".json")
}

func dedupeStores(stores []BackingStore) []BackingStore {
	seen := make(map[string]int, len(stores))
	out := make([]BackingStore, 0, len(stores))
	for _, s := range stores {
		if i, ok := seen[s.StoreName]; ok {
			out[i] = s // Last write wins for a duplicated name
			continue
		}
		seen[s.StoreName] = len(out)
		out = append(out, s)
	}
	return out
}

// sanitizeFilename replaces characters that might be problematic in filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"\"", "-",
		"<", "-",
		">", "-",
		"|", "-",
		" ", "_",
	)
	return replacer.Replace(name)
}
