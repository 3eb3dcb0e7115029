package directory

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credserrors "github.com/credsync/credsync/internal/errors"
)

func TestDefaultDataDir(t *testing.T) {
	// Cannot use t.Parallel() with t.Setenv

	t.Run("with CREDSYNC_DATA_DIR env var", func(t *testing.T) {
		t.Setenv("CREDSYNC_DATA_DIR", "/custom/dir")
		assert.Equal(t, "/custom/dir", DefaultDataDir())
	})

	t.Run("with XDG_DATA_HOME", func(t *testing.T) {
		t.Setenv("CREDSYNC_DATA_DIR", "")
		t.Setenv("XDG_DATA_HOME", "/home/user/.local/share")
		assert.Equal(t, "/home/user/.local/share/credsync/directory", DefaultDataDir())
	})

	t.Run("fallback", func(t *testing.T) {
		t.Setenv("CREDSYNC_DATA_DIR", "")
		t.Setenv("XDG_DATA_HOME", "")
		dir := DefaultDataDir()
		assert.Contains(t, dir, "credsync")
		assert.Contains(t, dir, "directory")
	})
}

func TestFileStore_GetUser_Unknown(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	entry, err := store.GetUser("nobody")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestFileStore_UpsertUser_CreateAndMerge(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())

	created, err := store.UpsertUser("u1", Entry{})
	require.NoError(t, err)
	assert.Equal(t, "u1", created.UserID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Empty(t, created.BackingStores)

	updated, err := store.UpsertUser("u1", Entry{
		BackingStores: []BackingStore{
			{StoreName: "ldap-main", ExternalRecordID: "cn=u1", Status: StoreStatusSynced},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt.Unix(), updated.CreatedAt.Unix())
	require.Len(t, updated.BackingStores, 1)
	assert.Equal(t, "ldap-main", updated.BackingStores[0].StoreName)

	// A nil slice leaves enrollments untouched.
	again, err := store.UpsertUser("u1", Entry{})
	require.NoError(t, err)
	assert.Len(t, again.BackingStores, 1)
}

func TestFileStore_UpsertUser_DeduplicatesStoreNames(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())

	entry, err := store.UpsertUser("u1", Entry{
		BackingStores: []BackingStore{
			{StoreName: "crm", ExternalRecordID: "old"},
			{StoreName: "crm", ExternalRecordID: "new"},
		},
	})
	require.NoError(t, err)
	require.Len(t, entry.BackingStores, 1)
	assert.Equal(t, "new", entry.BackingStores[0].ExternalRecordID)
}

func TestFileStore_AddBackingStore(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())

	_, err := store.AddBackingStore("missing", BackingStore{StoreName: "crm"})
	var notFound credserrors.UserNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.UserID)

	_, err = store.UpsertUser("u1", Entry{})
	require.NoError(t, err)

	entry, err := store.AddBackingStore("u1", BackingStore{StoreName: "crm", ExternalRecordID: "42"})
	require.NoError(t, err)
	require.Len(t, entry.BackingStores, 1)
	assert.Equal(t, StoreStatusPending, entry.BackingStores[0].Status)
	assert.False(t, entry.BackingStores[0].EnrolledAt.IsZero())

	// Same name replaces, never duplicates.
	entry, err = store.AddBackingStore("u1", BackingStore{StoreName: "crm", ExternalRecordID: "43", Status: StoreStatusSynced})
	require.NoError(t, err)
	require.Len(t, entry.BackingStores, 1)
	assert.Equal(t, "43", entry.BackingStores[0].ExternalRecordID)
	assert.Equal(t, StoreStatusSynced, entry.BackingStores[0].Status)
}

func TestFileStore_RemoveBackingStore(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	_, err := store.UpsertUser("u1", Entry{
		BackingStores: []BackingStore{
			{StoreName: "a"}, {StoreName: "b"},
		},
	})
	require.NoError(t, err)

	entry, err := store.RemoveBackingStore("u1", "a")
	require.NoError(t, err)
	require.Len(t, entry.BackingStores, 1)
	assert.Equal(t, "b", entry.BackingStores[0].StoreName)

	// Removing an absent enrollment is not an error.
	entry, err = store.RemoveBackingStore("u1", "a")
	require.NoError(t, err)
	assert.Len(t, entry.BackingStores, 1)
}

func TestFileStore_SetStoreStatus(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	_, err := store.UpsertUser("u1", Entry{
		BackingStores: []BackingStore{{StoreName: "crm", Status: StoreStatusPending}},
	})
	require.NoError(t, err)

	require.NoError(t, store.SetStoreStatus("u1", "crm", StoreStatusSynced))

	entry, err := store.GetUser("u1")
	require.NoError(t, err)
	assert.Equal(t, StoreStatusSynced, entry.BackingStores[0].Status)

	err = store.SetStoreStatus("u1", "nope", StoreStatusFailed)
	require.Error(t, err)
}

func TestFileStore_DeleteUser_Idempotent(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	_, err := store.UpsertUser("u1", Entry{})
	require.NoError(t, err)

	require.NoError(t, store.DeleteUser("u1"))
	entry, err := store.GetUser("u1")
	require.NoError(t, err)
	assert.Nil(t, entry)

	// Deleting an absent user is not an error.
	require.NoError(t, store.DeleteUser("u1"))
	require.NoError(t, store.DeleteUser("never-existed"))
}

func TestFileStore_AppendAudit_AssignsID(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	store := NewFileStore(tmpDir)

	stored, err := store.AppendAudit(AuditEntry{
		UserID:    "u1",
		Operation: OpPasswordSync,
		Status:    AuditSuccess,
		PerStoreOutcomes: []StoreOutcome{
			{StoreName: "crm", Success: true, Attempts: 1},
		},
		DurationMs: 12,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.LogID)
	assert.False(t, stored.Timestamp.IsZero())

	auditDir := filepath.Join(tmpDir, "audit", "u1")
	assert.DirExists(t, auditDir)
}

func TestFileStore_GetAudit_NewestFirst(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		_, err := store.AppendAudit(AuditEntry{
			LogID:     fmt.Sprintf("log-%03d-padding", i),
			UserID:    "u1",
			Operation: OpPasswordSync,
			Status:    AuditSuccess,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	entries, err := store.GetAudit("u1", 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "log-004-padding", entries[0].LogID)
	assert.Equal(t, "log-003-padding", entries[1].LogID)
	assert.Equal(t, "log-002-padding", entries[2].LogID)
}

func TestFileStore_GetAudit_Empty(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	entries, err := store.GetAudit("u1", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStore_GetAllAudit(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	base := time.Now().Add(-time.Hour)

	for _, user := range []string{"u1", "u2", "u3"} {
		for i := 0; i < 3; i++ {
			_, err := store.AppendAudit(AuditEntry{
				UserID:    user,
				Operation: OpPasswordChange,
				Status:    AuditSuccess,
				Timestamp: base.Add(time.Duration(i) * time.Minute),
			})
			require.NoError(t, err)
		}
	}

	all, err := store.GetAllAudit(5)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	users := make(map[string]int)
	for _, entry := range all {
		users[entry.UserID]++
	}
	assert.Greater(t, len(users), 1, "should include entries from multiple users")
}

func TestFileStore_PruneAudit(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())

	_, err := store.AppendAudit(AuditEntry{
		UserID:    "u1",
		Operation: OpPasswordSync,
		Status:    AuditSuccess,
		Timestamp: time.Now().Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	_, err = store.AppendAudit(AuditEntry{
		UserID:    "u1",
		Operation: OpPasswordSync,
		Status:    AuditSuccess,
	})
	require.NoError(t, err)

	require.NoError(t, store.PruneAudit(24*time.Hour))

	entries, err := store.GetAudit("u1", -1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFileStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(idx int) {
			defer func() { done <- true }()
			_, err := store.UpsertUser(fmt.Sprintf("user-%d", idx), Entry{
				BackingStores: []BackingStore{{StoreName: "crm"}},
			})
			assert.NoError(t, err)
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	for i := 0; i < 10; i++ {
		entry, err := store.GetUser(fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Len(t, entry.BackingStores, 1)
	}
}
