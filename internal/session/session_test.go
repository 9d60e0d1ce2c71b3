package session_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/wavecast/wavecast/internal/events"
	"github.com/wavecast/wavecast/internal/session"
	"github.com/wavecast/wavecast/internal/shared"
	tu "github.com/wavecast/wavecast/internal/testing"

	"errors"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T, storage session.Storage, clock *tu.Clock) (*session.Store, *events.Bus) {
	t.Helper()
	bus := events.NewBus(nil)
	store := session.NewStore(session.StoreOpts{
		Storage: storage,
		Bus:     bus,
		Now:     clock.Now,
	})
	return store, bus
}

func validRecord() session.Record {
	return session.Record{
		ID:          "u-1",
		Email:       "ada@example.com",
		Username:    "ada",
		DisplayName: "Ada",
		AvatarRef:   "avatars/ada.png",
		Role:        session.RoleUser,
		Token:       "abc",
		ExpiresAt:   base.Add(1 * time.Hour),
	}
}

func TestStore(t *testing.T) {
	t.Run("Authenticate", func(t *testing.T) {
		t.Run("persists and fires change event", func(t *testing.T) {
			storage := &tu.MemoryStorage{}
			clock := tu.NewClock(base)
			store, bus := newStore(t, storage, clock)

			var changed session.Record
			bus.Subscribe(events.EventSessionChange, func(p any) {
				changed = p.(session.Record)
			})

			if err := store.Authenticate(validRecord()); err != nil {
				t.Fatalf("authenticate failed: %v", err)
			}

			if !storage.Present() {
				t.Error("expected storage entry after authenticate")
			}
			if changed.Username != "ada" {
				t.Errorf("expected change event with record, got %+v", changed)
			}
		})

		t.Run("rejects missing id", func(t *testing.T) {
			storage := &tu.MemoryStorage{}
			store, _ := newStore(t, storage, tu.NewClock(base))

			rec := validRecord()
			rec.ID = ""
			if err := store.Authenticate(rec); !errors.Is(err, shared.ErrInvalidSession) {
				t.Errorf("expected ErrInvalidSession, got %v", err)
			}
		})

		t.Run("rejects unknown role", func(t *testing.T) {
			storage := &tu.MemoryStorage{}
			store, _ := newStore(t, storage, tu.NewClock(base))

			rec := validRecord()
			rec.Role = "admin"
			if err := store.Authenticate(rec); !errors.Is(err, shared.ErrInvalidSession) {
				t.Errorf("expected ErrInvalidSession, got %v", err)
			}
		})

		t.Run("round-trips through storage on rehydration", func(t *testing.T) {
			storage := &tu.MemoryStorage{}
			clock := tu.NewClock(base)
			store, _ := newStore(t, storage, clock)

			rec := validRecord()
			if err := store.Authenticate(rec); err != nil {
				t.Fatalf("authenticate failed: %v", err)
			}

			// Simulate process restart against the same storage.
			reloaded, _ := newStore(t, storage, clock)
			got := reloaded.Current()

			if got.Token != rec.Token {
				t.Errorf("expected token %q, got %q", rec.Token, got.Token)
			}
			if got.Role != rec.Role {
				t.Errorf("expected role %q, got %q", rec.Role, got.Role)
			}
			if got.DisplayName != rec.DisplayName {
				t.Errorf("expected display name %q, got %q", rec.DisplayName, got.DisplayName)
			}
			if !got.ExpiresAt.Equal(rec.ExpiresAt) {
				t.Errorf("expected expiry %v, got %v", rec.ExpiresAt, got.ExpiresAt)
			}
		})

		t.Run("storage projection uses wire keys", func(t *testing.T) {
			storage := &tu.MemoryStorage{}
			store, _ := newStore(t, storage, tu.NewClock(base))

			if err := store.Authenticate(validRecord()); err != nil {
				t.Fatalf("authenticate failed: %v", err)
			}

			data, err := storage.Read()
			if err != nil {
				t.Fatalf("storage read failed: %v", err)
			}

			var raw map[string]any
			if err := json.Unmarshal(data, &raw); err != nil {
				t.Fatalf("stored projection not JSON: %v", err)
			}

			for _, key := range []string{"id", "email", "username", "display_name", "avatar_file_name", "role_type", "token", "expiration_time"} {
				if _, ok := raw[key]; !ok {
					t.Errorf("projection missing key %q", key)
				}
			}
			if raw["expiration_time"] != "2025-06-01T13:00:00Z" {
				t.Errorf("expected RFC 3339 expiration_time, got %v", raw["expiration_time"])
			}
		})
	})

	t.Run("Token", func(t *testing.T) {
		t.Run("returns token while outside the grace window", func(t *testing.T) {
			storage := &tu.MemoryStorage{}
			clock := tu.NewClock(base)
			store, _ := newStore(t, storage, clock)

			rec := validRecord()
			rec.ExpiresAt = base.Add(2*time.Minute + time.Second)
			if err := store.Authenticate(rec); err != nil {
				t.Fatalf("authenticate failed: %v", err)
			}

			token, err := store.Token()
			if err != nil {
				t.Fatalf("expected token, got error: %v", err)
			}
			if token != "abc" {
				t.Errorf("expected token abc, got %q", token)
			}
		})

		t.Run("treats token within grace window as expired", func(t *testing.T) {
			storage := &tu.MemoryStorage{}
			clock := tu.NewClock(base)
			store, _ := newStore(t, storage, clock)

			rec := validRecord()
			rec.ExpiresAt = base.Add(90 * time.Second)
			if err := store.Authenticate(rec); err != nil {
				t.Fatalf("authenticate failed: %v", err)
			}

			if _, err := store.Token(); !errors.Is(err, shared.ErrTokenExpired) {
				t.Errorf("expected ErrTokenExpired, got %v", err)
			}
			if store.IsAuthenticated() {
				t.Error("expected storage cleared after expiry")
			}
		})

		t.Run("expiry path fires change event and collapses to anonymous", func(t *testing.T) {
			storage := &tu.MemoryStorage{}
			clock := tu.NewClock(base)
			store, bus := newStore(t, storage, clock)

			changes := 0
			bus.Subscribe(events.EventSessionChange, func(any) { changes++ })

			if err := store.Authenticate(validRecord()); err != nil {
				t.Fatalf("authenticate failed: %v", err)
			}
			clock.Advance(2 * time.Hour)

			if _, err := store.Token(); !errors.Is(err, shared.ErrTokenExpired) {
				t.Fatalf("expected ErrTokenExpired, got %v", err)
			}

			if changes != 2 {
				t.Errorf("expected change events for authenticate and expiry, got %d", changes)
			}
			if store.Current().ID != "" {
				t.Error("expected anonymous record after expiry")
			}
		})

		t.Run("anonymous store has no token", func(t *testing.T) {
			store, _ := newStore(t, &tu.MemoryStorage{}, tu.NewClock(base))
			if _, err := store.Token(); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("Rehydration", func(t *testing.T) {
		t.Run("accepts a future expiration_time", func(t *testing.T) {
			storage := &tu.MemoryStorage{}
			storage.Seed([]byte(`{"id":"u-1","username":"ada","role_type":"user","token":"abc","expiration_time":"2099-01-01T00:00:00Z"}`))

			store, _ := newStore(t, storage, tu.NewClock(base))
			token, err := store.Token()
			if err != nil {
				t.Fatalf("expected token, got %v", err)
			}
			if token != "abc" {
				t.Errorf("expected token abc, got %q", token)
			}
		})

		t.Run("discards a stale expiration_time", func(t *testing.T) {
			storage := &tu.MemoryStorage{}
			storage.Seed([]byte(`{"id":"u-1","username":"ada","role_type":"user","token":"abc","expiration_time":"2020-01-01T00:00:00Z"}`))

			store, _ := newStore(t, storage, tu.NewClock(base))
			if _, err := store.Token(); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated after discard, got %v", err)
			}
			if store.IsAuthenticated() {
				t.Error("expected storage cleared for stale session")
			}
		})

		t.Run("discards malformed storage", func(t *testing.T) {
			storage := &tu.MemoryStorage{}
			storage.Seed([]byte(`not json`))

			store, _ := newStore(t, storage, tu.NewClock(base))
			if store.Current().ID != "" {
				t.Error("expected anonymous record for malformed storage")
			}
			if storage.Present() {
				t.Error("expected malformed storage cleared")
			}
		})
	})

	t.Run("Invalidate", func(t *testing.T) {
		t.Run("clears memory and storage", func(t *testing.T) {
			storage := &tu.MemoryStorage{}
			store, bus := newStore(t, storage, tu.NewClock(base))

			loggedOut := false
			bus.Subscribe(events.EventLogout, func(any) { loggedOut = true })

			if err := store.Authenticate(validRecord()); err != nil {
				t.Fatalf("authenticate failed: %v", err)
			}
			store.Invalidate()

			if store.Current().ID != "" {
				t.Error("expected anonymous record")
			}
			if store.IsAuthenticated() {
				t.Error("expected storage cleared")
			}
			if !loggedOut {
				t.Error("expected logout event")
			}
		})

		t.Run("triggered by unauthorized event", func(t *testing.T) {
			storage := &tu.MemoryStorage{}
			store, bus := newStore(t, storage, tu.NewClock(base))

			if err := store.Authenticate(validRecord()); err != nil {
				t.Fatalf("authenticate failed: %v", err)
			}

			bus.Publish(events.EventUnauthorized, nil)

			if store.IsAuthenticated() {
				t.Error("expected session cleared after unauthorized signal")
			}
		})
	})

	t.Run("UpdateProfile", func(t *testing.T) {
		t.Run("merges provided fields only", func(t *testing.T) {
			storage := &tu.MemoryStorage{}
			clock := tu.NewClock(base)
			store, _ := newStore(t, storage, clock)

			if err := store.Authenticate(validRecord()); err != nil {
				t.Fatalf("authenticate failed: %v", err)
			}

			name := "Countess"
			if err := store.UpdateProfile(&name, nil); err != nil {
				t.Fatalf("update failed: %v", err)
			}

			got := store.Current()
			if got.DisplayName != "Countess" {
				t.Errorf("expected updated display name, got %q", got.DisplayName)
			}
			if got.AvatarRef != "avatars/ada.png" {
				t.Errorf("avatar should be preserved, got %q", got.AvatarRef)
			}
			if got.Token != "abc" {
				t.Error("token should be preserved")
			}

			// The merge must survive a reload.
			reloaded, _ := newStore(t, storage, clock)
			if reloaded.Current().DisplayName != "Countess" {
				t.Error("expected updated display name after rehydration")
			}
		})

		t.Run("rejected when anonymous", func(t *testing.T) {
			store, _ := newStore(t, &tu.MemoryStorage{}, tu.NewClock(base))
			name := "x"
			if err := store.UpdateProfile(&name, nil); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("Authorized", func(t *testing.T) {
		t.Run("user role", func(t *testing.T) {
			store, _ := newStore(t, &tu.MemoryStorage{}, tu.NewClock(base))
			if err := store.Authenticate(validRecord()); err != nil {
				t.Fatalf("authenticate failed: %v", err)
			}

			if !store.Authorized("/watch/123") {
				t.Error("user should reach /watch")
			}
			if store.Authorized("/studio/broadcast") {
				t.Error("user should not reach /studio")
			}
		})

		t.Run("streamer role", func(t *testing.T) {
			store, _ := newStore(t, &tu.MemoryStorage{}, tu.NewClock(base))
			rec := validRecord()
			rec.Role = session.RoleStreamer
			if err := store.Authenticate(rec); err != nil {
				t.Fatalf("authenticate failed: %v", err)
			}

			if !store.Authorized("/studio/broadcast") {
				t.Error("streamer should reach /studio")
			}
		})

		t.Run("anonymous never authorized", func(t *testing.T) {
			store, _ := newStore(t, &tu.MemoryStorage{}, tu.NewClock(base))
			if store.Authorized("/feed") {
				t.Error("anonymous should not be authorized")
			}
		})
	})
}

func TestFileStorage(t *testing.T) {
	t.Run("write then read round-trips", func(t *testing.T) {
		dir := t.TempDir()
		fs := session.NewFileStorage(dir + "/authinfo.json")

		if fs.Present() {
			t.Error("fresh storage should be absent")
		}
		if err := fs.Write([]byte(`{"id":"u-1"}`)); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if !fs.Present() {
			t.Error("storage should be present after write")
		}

		data, err := fs.Read()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if string(data) != `{"id":"u-1"}` {
			t.Errorf("unexpected contents: %s", data)
		}
	})

	t.Run("read of absent entry returns ErrNoRecord", func(t *testing.T) {
		fs := session.NewFileStorage(t.TempDir() + "/authinfo.json")
		if _, err := fs.Read(); !errors.Is(err, session.ErrNoRecord) {
			t.Errorf("expected ErrNoRecord, got %v", err)
		}
	})

	t.Run("clear removes the entry and is idempotent", func(t *testing.T) {
		fs := session.NewFileStorage(t.TempDir() + "/authinfo.json")
		if err := fs.Write([]byte(`{}`)); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if err := fs.Clear(); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		if fs.Present() {
			t.Error("storage should be absent after clear")
		}
		if err := fs.Clear(); err != nil {
			t.Errorf("second clear should be a no-op, got %v", err)
		}
	})
}
