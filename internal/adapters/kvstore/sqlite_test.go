package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0xcro3dile/deskmate/internal/adapters/sqlitedb"
	"github.com/0xcro3dile/deskmate/internal/domain/chat"
	"github.com/0xcro3dile/deskmate/internal/domain/entities"
	"github.com/0xcro3dile/deskmate/internal/domain/ports"
)

type closableStore interface {
	ports.KeyValueStore
	Close() error
}

func backends(t *testing.T) map[string]closableStore {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	cgo, err := NewSQLiteStore(ctx, sqlitedb.DriverCGO, filepath.Join(dir, "cgo.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	pure, err := NewSQLiteStore(ctx, sqlitedb.DriverPure, filepath.Join(dir, "pure.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	stores := map[string]closableStore{
		"memory":      NewInMemoryStore(),
		"sqlite3":     cgo,
		"sqlite-pure": pure,
	}
	if os.Getenv("FIRESTORE_EMULATOR_HOST") != "" {
		fs, err := NewFirestoreStore(ctx, "deskmate-test", "kv_test")
		if err != nil {
			t.Fatalf("failed to create firestore store: %v", err)
		}
		stores["firestore"] = fs
	}
	return stores
}

func TestStores_SetGetRemove(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()
			ctx := context.Background()

			if _, found, err := store.Get(ctx, "missing"); err != nil || found {
				t.Fatalf("missing key: found=%v err=%v", found, err)
			}

			if err := store.Set(ctx, "k", "v1"); err != nil {
				t.Fatalf("set failed: %v", err)
			}
			if err := store.Set(ctx, "k", "v2"); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}

			v, found, err := store.Get(ctx, "k")
			if err != nil || !found || v != "v2" {
				t.Errorf("get: v=%q found=%v err=%v", v, found, err)
			}

			if err := store.Remove(ctx, "k"); err != nil {
				t.Fatalf("remove failed: %v", err)
			}
			if err := store.Remove(ctx, "k"); err != nil {
				t.Errorf("removing an absent key should succeed: %v", err)
			}
			if _, found, _ := store.Get(ctx, "k"); found {
				t.Error("key should be gone after remove")
			}
		})
	}
}

func TestStores_BackHistory(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()
			ctx := context.Background()
			history := chat.NewHistoryStore(store, 0)

			msgs := []entities.ChatMessage{
				{Role: entities.RoleUser, Content: "héllo", Timestamp: "2024-01-01T00:00:00Z"},
				{Role: entities.RoleAssistant, Content: "hi"},
			}
			if err := history.Save(ctx, "u1", msgs); err != nil {
				t.Fatalf("save failed: %v", err)
			}

			got, err := history.Load(ctx, "u1")
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			if len(got) != 2 || got[0] != msgs[0] || got[1] != msgs[1] {
				t.Errorf("unexpected history: %+v", got)
			}

			if v, found, _ := store.Get(ctx, "chat_history_u1"); !found || v == "" {
				t.Error("history should be stored under the per-user key")
			}
		})
	}
}

func TestSQLiteStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(ctx, "", path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	store.Set(ctx, "chat_history_u1", `[{"role":"user","content":"hi"}]`)
	store.Close()

	reopened, err := NewSQLiteStore(ctx, "", path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	if v, found, _ := reopened.Get(ctx, "chat_history_u1"); !found || v == "" {
		t.Error("data should survive a reopen")
	}
}
