// package live maintains the socket-backed duplex channel for one active
// live session: inbound JSON frames become local state updates, outbound
// intents (reactions, comments) become JSON frames.
package live

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/wavecast/wavecast/internal/events"
	"github.com/wavecast/wavecast/internal/models"
	"github.com/wavecast/wavecast/internal/shared"
)

// TokenSource yields the current bearer token. Satisfied by *session.Store.
type TokenSource interface {
	Token() (string, error)
}

// Update is one state change delivered to the channel's owner. Notice, when
// set, is a one-shot user-visible message (e.g. "chat unavailable").
type Update struct {
	State  State
	Notice string
}

// ChannelOpts contains dependencies for creating a Channel.
type ChannelOpts struct {
	// BaseURL is the stream socket root, e.g. wss://live.example.com/streams.
	BaseURL string
	// SessionID identifies the live session to join.
	SessionID string
	Tokens    TokenSource
	Bus       *events.Bus
	Logger    *log.Logger
	Dialer    *websocket.Dialer
}

// Channel owns the per-session socket lifecycle and message dispatch for one
// live session. State is owned exclusively by the channel and the view that
// created it; snapshots never survive across channel instances.
type Channel struct {
	opts ChannelOpts
	sock *Socket

	mu      sync.Mutex
	state   State
	seen    map[int64]struct{}
	started bool
	noticed bool

	updates   chan Update
	closeOnce sync.Once
}

// NewChannel creates a closed channel for the given live session.
func NewChannel(opts ChannelOpts) *Channel {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Channel{
		opts:    opts,
		sock:    NewSocket(opts.Dialer, opts.Logger),
		state:   newState(),
		seen:    make(map[int64]struct{}),
		updates: make(chan Update, 64),
	}
}

// Updates returns the stream of state snapshots. The channel is closed after
// teardown completes.
func (c *Channel) Updates() <-chan Update {
	return c.updates
}

// Started reports whether the channel is currently live.
func (c *Channel) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Snapshot returns a copy of the current interaction state.
func (c *Channel) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Open connects the channel. Without a valid token the channel does not dial
// at all: the caller gets ErrNotAuthenticated and should surface
// "chat unavailable" instead of attempting a tokenless connection. A second
// Open while connecting or open is a no-op.
func (c *Channel) Open(ctx context.Context) error {
	token, err := c.opts.Tokens.Token()
	if err != nil {
		return fmt.Errorf("cannot open interaction channel: %w", err)
	}

	target := fmt.Sprintf("%s/%s/interaction?token=%s",
		c.opts.BaseURL, c.opts.SessionID, url.QueryEscape(token))

	if err := c.sock.Open(ctx, target, c.handleMessage, c.handleClose); err != nil {
		return err
	}

	c.mu.Lock()
	c.started = true
	c.mu.Unlock()

	if c.opts.Bus != nil {
		c.opts.Bus.Publish(events.EventStreamStarted, c.opts.SessionID)
	}
	return nil
}

// handleMessage runs on the socket read pump, so frames are applied strictly
// in arrival order.
func (c *Channel) handleMessage(payload []byte) {
	frame, err := DecodeFrame(payload)
	if err != nil {
		c.opts.Logger.Warnf("dropping frame for session %s: %v", c.opts.SessionID, err)
		c.mu.Lock()
		snapshot := c.state.clone()
		c.mu.Unlock()
		c.notify(Update{State: snapshot, Notice: "chat unavailable"})
		return
	}

	c.mu.Lock()
	applied := c.state.apply(frame, c.seen)
	if frame.Type == FrameLiveEnded && applied {
		c.started = false
	}
	snapshot := c.state.clone()
	c.mu.Unlock()

	if !applied {
		return
	}

	c.notify(Update{State: snapshot})

	if frame.Type == FrameLiveEnded {
		if c.opts.Bus != nil {
			c.opts.Bus.Publish(events.EventStreamEnded, c.opts.SessionID)
		}
		c.sock.Close()
	}
}

func (c *Channel) handleClose(err error) {
	c.mu.Lock()
	c.started = false
	alreadyNoticed := c.noticed
	c.noticed = true
	snapshot := c.state.clone()
	c.mu.Unlock()

	if err != nil && !alreadyNoticed {
		c.notify(Update{State: snapshot, Notice: "chat unavailable"})
	}
	c.closeOnce.Do(func() { close(c.updates) })
}

// SendReaction toggles the viewer's reaction: sending the kind they already
// hold clears it, anything else sets it. The frame is sent only if the socket
// is open; otherwise the call is silently dropped. The viewer's bucket
// pointer is moved locally, aggregate counts only ever arrive from the server.
func (c *Channel) SendReaction(kind models.Reaction) {
	if !models.KnownReaction(kind) {
		return
	}

	c.mu.Lock()
	if c.state.Ended {
		c.mu.Unlock()
		return
	}
	status := c.state.CurrentUserReaction != kind
	c.mu.Unlock()

	if !c.sock.Send(newOutboundLike(status, kind)) {
		return
	}

	c.mu.Lock()
	if status {
		c.state.CurrentUserReaction = kind
	} else {
		c.state.CurrentUserReaction = models.ReactionNone
	}
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.notify(Update{State: snapshot})
}

// SendComment sends a chat message if the socket is open, else drops it
// silently. The comment itself arrives back as an inbound frame.
func (c *Channel) SendComment(text string) {
	if text == "" {
		return
	}

	c.mu.Lock()
	ended := c.state.Ended
	c.mu.Unlock()
	if ended {
		return
	}

	c.sock.Send(newOutboundComment(text))
}

// Close tears the channel down unconditionally. No dispatch occurs after
// teardown begins.
func (c *Channel) Close() {
	c.mu.Lock()
	c.started = false
	c.mu.Unlock()
	c.sock.Close()
}

// notify delivers an update without blocking the read pump. A slow consumer
// loses intermediate snapshots, never the ordering of those it receives.
func (c *Channel) notify(update Update) {
	select {
	case c.updates <- update:
	default:
	}
}
