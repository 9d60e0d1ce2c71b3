// package notify maintains the account-wide notification inbox: an unread
// counter seeded over REST, a socket feed of new alerts, and a local SQLite
// cache so the inbox survives restarts.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/wavecast/wavecast/internal/live"
	"github.com/wavecast/wavecast/internal/models"
	"github.com/wavecast/wavecast/internal/repositories"
	"github.com/wavecast/wavecast/internal/shared"
)

// Fetcher is the REST surface the inbox needs. Satisfied by *api.Client.
type Fetcher interface {
	NotificationCount(ctx context.Context) (int, error)
	Notifications(ctx context.Context, page int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	HideNotification(ctx context.Context, id string) error
}

// Update is one inbox change delivered to the owner: the alert that arrived
// (zero-valued for pure counter changes) and the unread total after it.
type Update struct {
	Notification models.Notification
	Unread       int
	Notice       string
}

// InboxOpts contains dependencies for creating an Inbox.
type InboxOpts struct {
	// SocketURL is the notification socket endpoint, e.g.
	// wss://live.example.com/notifications.
	SocketURL string
	Tokens    live.TokenSource
	API       Fetcher
	Repo      *repositories.NotificationRepository
	Logger    *log.Logger
	Dialer    *websocket.Dialer
}

// Inbox tracks the user's notifications. The unread counter is seeded once
// over REST and maintained locally from then on; the socket feed only ever
// adds alerts, dedup is by notification id.
type Inbox struct {
	opts InboxOpts
	sock *live.Socket

	mu     sync.Mutex
	unread int
	seeded bool
	closed bool

	updates   chan Update
	closeOnce sync.Once
}

// NewInbox creates an Inbox. The socket is not dialed until Listen.
func NewInbox(opts InboxOpts) *Inbox {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Inbox{
		opts:    opts,
		sock:    live.NewSocket(opts.Dialer, opts.Logger),
		updates: make(chan Update, 64),
	}
}

// Updates returns the inbox change feed. Closed when the socket feed ends.
func (i *Inbox) Updates() <-chan Update {
	return i.updates
}

// Seed fetches the unread count and the first page of notifications over
// REST, caching each alert locally. Safe to call once per inbox.
func (i *Inbox) Seed(ctx context.Context) error {
	count, err := i.opts.API.NotificationCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed unread count: %w", err)
	}

	notifications, err := i.opts.API.Notifications(ctx, 1)
	if err != nil {
		return fmt.Errorf("failed to fetch notifications: %w", err)
	}
	for _, n := range notifications {
		if i.opts.Repo == nil {
			continue
		}
		if _, err := i.opts.Repo.Cache(n); err != nil {
			i.opts.Logger.Warnf("failed to cache notification %s: %v", n.ID, err)
		}
	}

	i.mu.Lock()
	i.unread = count
	i.seeded = true
	i.mu.Unlock()

	return nil
}

// UnreadCount returns the locally maintained unread total.
func (i *Inbox) UnreadCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.unread
}

// Listen dials the notification socket with the current token in the query
// string. Without a valid token no dial is attempted. A second Listen while
// the feed is up is a no-op.
func (i *Inbox) Listen(ctx context.Context) error {
	token, err := i.opts.Tokens.Token()
	if err != nil {
		return fmt.Errorf("cannot listen for notifications: %w", err)
	}

	endpoint := fmt.Sprintf("%s?token=%s", i.opts.SocketURL, url.QueryEscape(token))
	return i.sock.Open(ctx, endpoint, i.handleMessage, i.handleClose)
}

func (i *Inbox) handleMessage(payload []byte) {
	var n models.Notification
	if err := json.Unmarshal(payload, &n); err != nil || n.Validate() != nil {
		i.opts.Logger.Warnf("dropping malformed notification frame: %v", err)
		return
	}

	fresh := true
	if i.opts.Repo != nil {
		cached, err := i.opts.Repo.Cache(n)
		if err != nil {
			i.opts.Logger.Warnf("failed to cache notification %s: %v", n.ID, err)
		} else {
			fresh = cached
		}
	}
	if !fresh {
		return
	}

	i.mu.Lock()
	if !n.IsRead {
		i.unread++
	}
	unread := i.unread
	i.mu.Unlock()

	i.deliver(Update{Notification: n, Unread: unread})
}

func (i *Inbox) handleClose(err error) {
	if err != nil {
		i.opts.Logger.Warnf("notification feed closed: %v", err)
		i.deliver(Update{Unread: i.UnreadCount(), Notice: "notifications unavailable"})
	}
	i.closeOnce.Do(func() {
		i.mu.Lock()
		i.closed = true
		i.mu.Unlock()
		close(i.updates)
	})
}

// MarkRead marks a notification read on the backend and in the local cache,
// then lowers the unread counter. Read is one-way, the counter never rises
// from this path.
func (i *Inbox) MarkRead(ctx context.Context, id string) error {
	wasUnread := i.cachedUnread(id)

	if err := i.opts.API.MarkNotificationRead(ctx, id); err != nil {
		return err
	}
	if i.opts.Repo != nil {
		if err := i.opts.Repo.MarkRead(id); err != nil && !errors.Is(err, shared.ErrNotificationGone) {
			return err
		}
	}

	i.mu.Lock()
	if wasUnread && i.unread > 0 {
		i.unread--
	}
	unread := i.unread
	i.mu.Unlock()

	i.deliver(Update{Unread: unread})
	return nil
}

// Hide removes a notification from view on the backend and locally. Hiding
// an unread alert also lowers the counter.
func (i *Inbox) Hide(ctx context.Context, id string) error {
	wasUnread := i.cachedUnread(id)

	if err := i.opts.API.HideNotification(ctx, id); err != nil {
		return err
	}
	if i.opts.Repo != nil {
		if err := i.opts.Repo.Hide(id); err != nil && !errors.Is(err, shared.ErrNotificationGone) {
			return err
		}
	}

	i.mu.Lock()
	if wasUnread && i.unread > 0 {
		i.unread--
	}
	unread := i.unread
	i.mu.Unlock()

	i.deliver(Update{Unread: unread})
	return nil
}

// cachedUnread reports whether the cached copy of id is unread. Unknown ids
// count as read so the counter is never decremented on guesswork.
func (i *Inbox) cachedUnread(id string) bool {
	if i.opts.Repo == nil {
		return false
	}
	n, err := i.opts.Repo.Get(id)
	if err != nil {
		return false
	}
	return !n.IsRead && !n.IsHidden
}

// Close tears the notification feed down.
func (i *Inbox) Close() {
	i.sock.Close()
}

// deliver pushes an update without blocking the read pump.
func (i *Inbox) deliver(update Update) {
	i.mu.Lock()
	closed := i.closed
	i.mu.Unlock()
	if closed {
		return
	}
	select {
	case i.updates <- update:
	default:
	}
}
