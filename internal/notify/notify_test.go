package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wavecast/wavecast/internal/models"
	"github.com/wavecast/wavecast/internal/repositories"
	"github.com/wavecast/wavecast/internal/shared"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token() (string, error) {
	return s.token, s.err
}

// fakeFetcher scripts the REST surface the inbox seeds from.
type fakeFetcher struct {
	count    int
	page     []models.Notification
	countErr error

	mu          sync.Mutex
	markedRead  []string
	hidden      []string
	restFailure error
}

func (f *fakeFetcher) NotificationCount(ctx context.Context) (int, error) {
	return f.count, f.countErr
}

func (f *fakeFetcher) Notifications(ctx context.Context, page int) ([]models.Notification, error) {
	return f.page, nil
}

func (f *fakeFetcher) MarkNotificationRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.restFailure != nil {
		return f.restFailure
	}
	f.markedRead = append(f.markedRead, id)
	return nil
}

func (f *fakeFetcher) HideNotification(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.restFailure != nil {
		return f.restFailure
	}
	f.hidden = append(f.hidden, id)
	return nil
}

// feedServer is a scripted notification endpoint.
type feedServer struct {
	upgrader websocket.Upgrader

	mu        sync.Mutex
	conns     []*websocket.Conn
	dialCount int
	lastQuery string
}

func newFeedServer(t *testing.T) (*feedServer, *httptest.Server) {
	t.Helper()
	fs := &feedServer{}
	srv := httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (f *feedServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	f.mu.Lock()
	f.conns = append(f.conns, conn)
	f.dialCount++
	f.lastQuery = r.URL.RawQuery
	f.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *feedServer) push(t *testing.T, payload string) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		t.Fatal("no client connected")
	}
	conn := f.conns[len(f.conns)-1]
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("server write failed: %v", err)
	}
}

func (f *feedServer) dropClient(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		t.Fatal("no client connected")
	}
	f.conns[len(f.conns)-1].Close()
}

func (f *feedServer) dials() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dialCount
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testRepo(t *testing.T) (*repositories.NotificationRepository, *sql.DB) {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return repositories.NewNotificationRepository(db), db
}

func awaitUpdate(t *testing.T, inbox *Inbox) Update {
	t.Helper()
	select {
	case update, ok := <-inbox.Updates():
		if !ok {
			t.Fatal("updates channel closed unexpectedly")
		}
		return update
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	return Update{}
}

func awaitClosed(t *testing.T, inbox *Inbox) []Update {
	t.Helper()
	var drained []Update
	deadline := time.After(2 * time.Second)
	for {
		select {
		case update, ok := <-inbox.Updates():
			if !ok {
				return drained
			}
			drained = append(drained, update)
		case <-deadline:
			t.Fatal("timed out waiting for feed to close")
		}
	}
}

func newTestInbox(t *testing.T, srv *httptest.Server, fetcher *fakeFetcher, repo *repositories.NotificationRepository) *Inbox {
	t.Helper()
	inbox := NewInbox(InboxOpts{
		SocketURL: wsURL(srv),
		Tokens:    staticTokens{token: "tok-1"},
		API:       fetcher,
		Repo:      repo,
		Logger:    shared.NewLogger(nil),
	})
	t.Cleanup(inbox.Close)
	return inbox
}

func frame(t *testing.T, n models.Notification) string {
	t.Helper()
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("failed to marshal frame: %v", err)
	}
	return string(data)
}

func TestInboxSeed(t *testing.T) {
	repo, _ := testRepo(t)
	fetcher := &fakeFetcher{
		count: 3,
		page: []models.Notification{
			{ID: "n1", Kind: models.NotificationSubscriptionLive, CreatedAt: time.Now()},
			{ID: "n2", Kind: models.NotificationNewVideo, CreatedAt: time.Now()},
		},
	}
	inbox := NewInbox(InboxOpts{API: fetcher, Repo: repo, Tokens: staticTokens{}})

	if err := inbox.Seed(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if inbox.UnreadCount() != 3 {
		t.Errorf("expected unread count 3, got %d", inbox.UnreadCount())
	}

	list, err := repo.List(nil)
	if err != nil {
		t.Fatalf("failed to list cached notifications: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 cached notifications, got %d", len(list))
	}
}

func TestInboxSeedFailure(t *testing.T) {
	fetcher := &fakeFetcher{countErr: errors.New("boom")}
	inbox := NewInbox(InboxOpts{API: fetcher, Tokens: staticTokens{}})

	if err := inbox.Seed(context.Background()); err == nil {
		t.Error("expected seed error")
	}
	if inbox.UnreadCount() != 0 {
		t.Errorf("expected unread count 0 after failed seed, got %d", inbox.UnreadCount())
	}
}

func TestInboxListen(t *testing.T) {
	t.Run("dials with token in query", func(t *testing.T) {
		srv, ts := newFeedServer(t)
		inbox := newTestInbox(t, ts, &fakeFetcher{}, nil)

		if err := inbox.Listen(context.Background()); err != nil {
			t.Fatalf("listen failed: %v", err)
		}

		deadline := time.Now().Add(2 * time.Second)
		for srv.dials() == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		if srv.dials() != 1 {
			t.Fatalf("expected 1 dial, got %d", srv.dials())
		}

		srv.mu.Lock()
		query := srv.lastQuery
		srv.mu.Unlock()
		if query != "token=tok-1" {
			t.Errorf("expected token query, got %q", query)
		}
	})

	t.Run("refuses to dial without token", func(t *testing.T) {
		srv, ts := newFeedServer(t)
		inbox := NewInbox(InboxOpts{
			SocketURL: wsURL(ts),
			Tokens:    staticTokens{err: shared.ErrNotAuthenticated},
			API:       &fakeFetcher{},
		})
		t.Cleanup(inbox.Close)

		if err := inbox.Listen(context.Background()); err == nil {
			t.Error("expected listen to fail without token")
		}
		if srv.dials() != 0 {
			t.Errorf("expected no dials, got %d", srv.dials())
		}
	})
}

func TestInboxFeed(t *testing.T) {
	t.Run("new alert raises the counter", func(t *testing.T) {
		repo, _ := testRepo(t)
		srv, ts := newFeedServer(t)
		inbox := newTestInbox(t, ts, &fakeFetcher{}, repo)

		if err := inbox.Listen(context.Background()); err != nil {
			t.Fatalf("listen failed: %v", err)
		}

		srv.push(t, frame(t, models.Notification{
			ID:   "n1",
			Kind: models.NotificationSubscriptionLive,
		}))

		update := awaitUpdate(t, inbox)
		if update.Notification.ID != "n1" {
			t.Errorf("expected notification n1, got %s", update.Notification.ID)
		}
		if update.Unread != 1 {
			t.Errorf("expected unread 1, got %d", update.Unread)
		}
	})

	t.Run("duplicate alert is dropped", func(t *testing.T) {
		repo, _ := testRepo(t)
		srv, ts := newFeedServer(t)
		inbox := newTestInbox(t, ts, &fakeFetcher{}, repo)

		if err := inbox.Listen(context.Background()); err != nil {
			t.Fatalf("listen failed: %v", err)
		}

		payload := frame(t, models.Notification{ID: "n1", Kind: models.NotificationNewVideo})
		srv.push(t, payload)
		awaitUpdate(t, inbox)
		srv.push(t, payload)
		srv.push(t, frame(t, models.Notification{ID: "n2", Kind: models.NotificationNewVideo}))

		update := awaitUpdate(t, inbox)
		if update.Notification.ID != "n2" {
			t.Errorf("expected n2 after duplicate drop, got %s", update.Notification.ID)
		}
		if update.Unread != 2 {
			t.Errorf("expected unread 2, got %d", update.Unread)
		}
	})

	t.Run("malformed frame does not end the feed", func(t *testing.T) {
		repo, _ := testRepo(t)
		srv, ts := newFeedServer(t)
		inbox := newTestInbox(t, ts, &fakeFetcher{}, repo)

		if err := inbox.Listen(context.Background()); err != nil {
			t.Fatalf("listen failed: %v", err)
		}

		srv.push(t, `{"what": true}`)
		srv.push(t, frame(t, models.Notification{ID: "n1", Kind: models.NotificationModeration}))

		update := awaitUpdate(t, inbox)
		if update.Notification.ID != "n1" {
			t.Errorf("expected n1 after malformed frame, got %s", update.Notification.ID)
		}
	})

	t.Run("transport failure closes the feed with a notice", func(t *testing.T) {
		srv, ts := newFeedServer(t)
		inbox := newTestInbox(t, ts, &fakeFetcher{}, nil)

		if err := inbox.Listen(context.Background()); err != nil {
			t.Fatalf("listen failed: %v", err)
		}
		deadline := time.Now().Add(2 * time.Second)
		for srv.dials() == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}

		srv.dropClient(t)

		drained := awaitClosed(t, inbox)
		if len(drained) == 0 || drained[len(drained)-1].Notice == "" {
			t.Error("expected a notice before the feed closed")
		}
	})
}

func TestInboxMarkRead(t *testing.T) {
	repo, _ := testRepo(t)
	fetcher := &fakeFetcher{count: 2, page: []models.Notification{
		{ID: "n1", Kind: models.NotificationSubscriptionLive, CreatedAt: time.Now()},
		{ID: "n2", Kind: models.NotificationNewVideo, CreatedAt: time.Now()},
	}}
	inbox := NewInbox(InboxOpts{API: fetcher, Repo: repo, Tokens: staticTokens{}})

	if err := inbox.Seed(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := inbox.MarkRead(context.Background(), "n1"); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	if inbox.UnreadCount() != 1 {
		t.Errorf("expected unread 1, got %d", inbox.UnreadCount())
	}
	if len(fetcher.markedRead) != 1 || fetcher.markedRead[0] != "n1" {
		t.Errorf("expected backend mark for n1, got %v", fetcher.markedRead)
	}

	// Repeat does not decrement again.
	if err := inbox.MarkRead(context.Background(), "n1"); err != nil {
		t.Fatalf("second mark read failed: %v", err)
	}
	if inbox.UnreadCount() != 1 {
		t.Errorf("expected unread to stay 1, got %d", inbox.UnreadCount())
	}
}

func TestInboxMarkReadBackendFailure(t *testing.T) {
	repo, _ := testRepo(t)
	fetcher := &fakeFetcher{count: 1, page: []models.Notification{
		{ID: "n1", Kind: models.NotificationSubscriptionLive, CreatedAt: time.Now()},
	}}
	inbox := NewInbox(InboxOpts{API: fetcher, Repo: repo, Tokens: staticTokens{}})
	if err := inbox.Seed(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	fetcher.restFailure = errors.New("boom")
	if err := inbox.MarkRead(context.Background(), "n1"); err == nil {
		t.Error("expected backend failure to surface")
	}
	if inbox.UnreadCount() != 1 {
		t.Errorf("expected counter untouched on failure, got %d", inbox.UnreadCount())
	}

	cached, err := repo.Get("n1")
	if err != nil {
		t.Fatalf("failed to get cached notification: %v", err)
	}
	if cached.IsRead {
		t.Error("expected cache untouched on backend failure")
	}
}

func TestInboxHide(t *testing.T) {
	repo, _ := testRepo(t)
	fetcher := &fakeFetcher{count: 1, page: []models.Notification{
		{ID: "n1", Kind: models.NotificationSubscriptionLive, CreatedAt: time.Now()},
	}}
	inbox := NewInbox(InboxOpts{API: fetcher, Repo: repo, Tokens: staticTokens{}})
	if err := inbox.Seed(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := inbox.Hide(context.Background(), "n1"); err != nil {
		t.Fatalf("hide failed: %v", err)
	}
	if inbox.UnreadCount() != 0 {
		t.Errorf("expected unread 0 after hiding unread alert, got %d", inbox.UnreadCount())
	}

	list, err := repo.List(nil)
	if err != nil {
		t.Fatalf("failed to list cached notifications: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected hidden alert excluded from list, got %d", len(list))
	}
}
