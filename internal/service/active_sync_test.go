package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waegarcia/conversational-assistant/internal/domain"
	"github.com/waegarcia/conversational-assistant/tests/helpers"
)

func TestActiveGaugeSync(t *testing.T) {
	ctx := context.Background()
	db := helpers.NewTestSQLiteStore(t)

	for _, id := range []string{"s1", "s2", "s3"} {
		_, err := db.CreateConversation(ctx, &domain.Conversation{
			SessionID: id,
			UserID:    "u1",
			Status:    domain.ConversationStatusActive,
			StartedAt: time.Now(),
		})
		require.NoError(t, err)
	}
	_, err := db.EndConversation(ctx, "s3", time.Now())
	require.NoError(t, err)

	svc, sink := newTestService(t, db, &helpers.StubGateway{}, testConfig())
	svc.syncActiveGauge(ctx)

	assert.Equal(t, int64(2), sink.Summary().ConversationsActive)
}

func TestRunActiveGaugeSyncStops(t *testing.T) {
	cfg := testConfig()
	cfg.ActiveSyncInterval = 10 * time.Millisecond
	svc, _ := newTestService(t, helpers.NewTestSQLiteStore(t), &helpers.StubGateway{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunActiveGaugeSync(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("sync loop did not stop")
	}
}

func TestKeyedMutexSerializes(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")

	acquired := make(chan struct{})
	go func() {
		u := k.Lock("a")
		close(acquired)
		u()
	}()

	// a different key is not blocked
	k.Lock("b")()

	select {
	case <-acquired:
		t.Fatalf("second lock on same key acquired early")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	<-acquired
	assert.Equal(t, 0, k.size())
}
