//go:build integration

package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/valkey-io/valkey-go"
)

func setupValkey(t *testing.T) valkey.Client {
	t.Helper()
	addr := os.Getenv("TEST_VALKEY_ADDR")
	if addr == "" {
		t.Fatal("TEST_VALKEY_ADDR not set")
	}
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		t.Skipf("valkey not available: %v", err)
	}
	ctx := context.Background()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		t.Skipf("valkey ping failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestManager_SaveAndLoad(t *testing.T) {
	client := setupValkey(t)
	mgr := NewManager(client, time.Minute)
	ctx := context.Background()

	sess, err := mgr.Load(ctx, "")
	if err != nil {
		t.Fatalf("load new session: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("auto-generated ID should not be empty")
	}

	sess.Open("0:sort")
	sess.Open("1:filter")
	if err := mgr.Save(ctx, sess); err != nil {
		t.Fatalf("save session: %v", err)
	}

	loaded, err := mgr.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("load saved session: %v", err)
	}
	if !loaded.OpenSteps["0:sort"] || !loaded.OpenSteps["1:filter"] {
		t.Errorf("open steps not persisted: %v", loaded.OpenSteps)
	}

	ttl, err := client.Do(ctx, client.B().Ttl().Key(sessionKeyPrefix+sess.ID).Build()).AsInt64()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > 60 {
		t.Errorf("expected TTL within 60s, got %d", ttl)
	}

	if err := mgr.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	fresh, err := mgr.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("load after delete: %v", err)
	}
	if len(fresh.OpenSteps) != 0 {
		t.Errorf("deleted session should start empty, got %v", fresh.OpenSteps)
	}
}
