package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
)

func newTestRedis(t *testing.T) *goredis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func testState() *domain.SessionState {
	return &domain.SessionState{
		IsActive:  true,
		StartedAt: time.Now().Truncate(time.Second),
		CaixasConfigs: []domain.TerminalConfig{
			{ID: "01-001", Filial: "01", Caixa: "001", Host: "10.0.0.1"},
		},
		ConnectedCaixas: []string{"01-001"},
		Token:           "jwt-token",
	}
}

func TestStateStoreSaveLoad(t *testing.T) {
	client := newTestRedis(t)
	store := NewStateStore(client, nil, nil)
	ctx := context.Background()

	if err := store.Save(ctx, testState()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !loaded.IsActive {
		t.Error("expected isActive preserved")
	}
	if len(loaded.CaixasConfigs) != 1 || loaded.CaixasConfigs[0].ID != "01-001" {
		t.Errorf("expected terminal config preserved, got %+v", loaded.CaixasConfigs)
	}
	if loaded.Token != "jwt-token" {
		t.Errorf("expected token preserved, got %q", loaded.Token)
	}
}

func TestStateStoreLoadAbsent(t *testing.T) {
	store := NewStateStore(newTestRedis(t), nil, nil)

	_, err := store.Load(context.Background())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStateStoreClear(t *testing.T) {
	store := NewStateStore(newTestRedis(t), nil, nil)
	ctx := context.Background()

	if err := store.Save(ctx, testState()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	_, err := store.Load(ctx)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after clear, got %v", err)
	}

	// Clearing an absent document is fine
	if err := store.Clear(ctx); err != nil {
		t.Errorf("expected idempotent clear, got %v", err)
	}
}

func TestStateStoreCorruptedDocumentTreatedAsAbsent(t *testing.T) {
	client := newTestRedis(t)
	store := NewStateStore(client, nil, nil)
	ctx := context.Background()

	if err := client.Set(ctx, stateKey, "{not json", 0).Err(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	_, err := store.Load(ctx)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected corrupted state treated as absent, got %v", err)
	}
}

func TestStateStoreSealedRoundTrip(t *testing.T) {
	client := newTestRedis(t)
	cipher, err := NewStateCipher(testKey())
	if err != nil {
		t.Fatalf("cipher creation failed: %v", err)
	}
	store := NewStateStore(client, cipher, nil)
	ctx := context.Background()

	if err := store.Save(ctx, testState()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// The raw value must not leak the token
	raw, err := client.Get(ctx, stateKey).Result()
	if err != nil {
		t.Fatalf("raw read failed: %v", err)
	}
	if strings.Contains(raw, "jwt-token") {
		t.Error("expected sealed document not to contain the token in the clear")
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Token != "jwt-token" {
		t.Errorf("expected token preserved through sealing, got %q", loaded.Token)
	}
}

func TestStateStoreSealedWrongKeyTreatedAsAbsent(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	c1, _ := NewStateCipher(testKey())
	writer := NewStateStore(client, c1, nil)
	if err := writer.Save(ctx, testState()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	c2, _ := NewStateCipher([]byte(strings.Repeat("k", 32)))
	reader := NewStateStore(client, c2, nil)

	_, err := reader.Load(ctx)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected unreadable state treated as absent, got %v", err)
	}
}

func TestStateStorePing(t *testing.T) {
	store := NewStateStore(newTestRedis(t), nil, nil)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("expected healthy ping, got %v", err)
	}
}
