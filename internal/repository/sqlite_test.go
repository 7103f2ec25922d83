package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waegarcia/conversational-assistant/internal/config"
	"github.com/waegarcia/conversational-assistant/internal/domain"
)

func TestSQLiteStoreReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "assistant.db") + "?_busy_timeout=5000"

	s, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	_, err = s.CreateConversation(ctx, newConversation("s1", "u1"))
	require.NoError(t, err)
	u, a := newTurn("hola")
	require.NoError(t, s.AppendTurn(ctx, "s1", u, a))
	require.NoError(t, s.Close())

	// migrations are idempotent
	s, err = NewSQLiteStore(dsn)
	require.NoError(t, err)
	defer s.Close()

	hist, err := s.GetHistory(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, hist)
	assert.Len(t, hist.Messages, 2)
	assert.Equal(t, domain.RoleAssistant, hist.Messages[1].Role)
}

func TestSQLiteStoreAppendTurnIsAtomic(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.CreateConversation(ctx, newConversation("s1", "u1"))
	require.NoError(t, err)

	// make the assistant insert fail after the user insert succeeded
	_, err = s.db.ExecContext(ctx, `CREATE TRIGGER reject_boom BEFORE INSERT ON messages
		WHEN NEW.role = 'ASSISTANT' AND NEW.content = 're: boom'
		BEGIN SELECT RAISE(ABORT, 'boom'); END`)
	require.NoError(t, err)

	u, a := newTurn("boom")
	assert.Error(t, s.AppendTurn(ctx, "s1", u, a))

	hist, err := s.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, hist.Messages)

	u, a = newTurn("ok")
	require.NoError(t, s.AppendTurn(ctx, "s1", u, a))
	assert.Equal(t, 1, u.Seq)
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, &config.Config{StorageBackend: config.StorageMemory}, nil)
	require.NoError(t, err)
	_, ok := s.(*MemoryStore)
	assert.True(t, ok)

	s, err = Open(ctx, &config.Config{StorageBackend: config.StorageSQLite, DatabaseURL: ":memory:"}, nil)
	require.NoError(t, err)
	defer s.Close()
	_, ok = s.(*SQLiteStore)
	assert.True(t, ok)

	_, err = Open(ctx, &config.Config{StorageBackend: "cassandra"}, nil)
	assert.Error(t, err)
}

func TestWithFileDefaults(t *testing.T) {
	assert.Equal(t, "file:a.db?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", withFileDefaults("file:a.db"))
	assert.Equal(t, "a.db?mode=rwc&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", withFileDefaults("a.db?mode=rwc"))
	assert.Equal(t, "a.db?_txlock=deferred&_busy_timeout=5000&_journal_mode=WAL", withFileDefaults("a.db?_txlock=deferred"))
	assert.Equal(t, config.DefaultDatabaseURL, withFileDefaults(config.DefaultDatabaseURL))
}

func TestSQLiteStoreParallelSessionsOnFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "parallel.db")
	dsn := strings.Replace(config.DefaultDatabaseURL, "assistant.db", path, 1)

	s, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	defer s.Close()

	const sessions = 32
	errs := make(chan error, sessions)
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			if _, err := s.CreateConversation(ctx, newConversation(id, "u1")); err != nil {
				errs <- err
				return
			}
			for j := 0; j < 2; j++ {
				u, a := newTurn("hola")
				if err := s.AppendTurn(ctx, id, u, a); err != nil {
					errs <- err
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("turn failed: %v", err)
	}

	n, err := s.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, sessions, n)

	hist, err := s.GetHistory(ctx, "s7")
	require.NoError(t, err)
	require.Len(t, hist.Messages, 4)
	assert.Equal(t, 4, hist.Messages[3].Seq)
}

func TestSQLiteStoreSharedCacheIsSerialized(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "shared.db") + "?cache=shared&mode=rwc"

	s, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateConversation(ctx, newConversation(fmt.Sprintf("s%d", i), "u1"))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, err := s.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
}
