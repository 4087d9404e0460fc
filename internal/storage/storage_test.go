package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/airsafe/airsafe-core/internal/infrastructure/database"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := New(context.Background(), db.DB)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

func TestSetGet(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, KeySensorData, `{"pm25":12.5}`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get(ctx, KeySensorData)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != `{"pm25":12.5}` {
		t.Errorf("Get() = %q, want %q", got, `{"pm25":12.5}`)
	}
}

func TestSet_Overwrites(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, KeyAlerts, "first"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set(ctx, KeyAlerts, "second"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get(ctx, KeyAlerts)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "second" {
		t.Errorf("Get() = %q, want %q (last write wins)", got, "second")
	}
}

func TestGet_NotFound(t *testing.T) {
	store := testStore(t)

	_, err := store.Get(context.Background(), KeyEvents)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestGet_EmptyKey(t *testing.T) {
	store := testStore(t)

	if _, err := store.Get(context.Background(), ""); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("Get(\"\") error = %v, want ErrEmptyKey", err)
	}
	if err := store.Set(context.Background(), "", "x"); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("Set(\"\") error = %v, want ErrEmptyKey", err)
	}
}

func TestRemove(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, KeyAuthFlag, "true"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Remove(ctx, KeyAuthFlag); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := store.Get(ctx, KeyAuthFlag); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Remove() error = %v, want ErrNotFound", err)
	}

	// Removing a missing key is not an error.
	if err := store.Remove(ctx, KeyAuthFlag); err != nil {
		t.Errorf("Remove() of missing key error = %v, want nil", err)
	}
}

func TestClear(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for _, key := range []string{KeySensorData, KeyAlerts, KeyEvents} {
		if err := store.Set(ctx, key, "value"); err != nil {
			t.Fatalf("Set(%s) error = %v", key, err)
		}
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	for _, key := range []string{KeySensorData, KeyAlerts, KeyEvents} {
		if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%s) after Clear() error = %v, want ErrNotFound", key, err)
		}
	}
}
