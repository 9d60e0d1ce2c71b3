package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/wavecast/wavecast/internal/models"
	"github.com/wavecast/wavecast/internal/notify"
)

type inboxUpdateMsg notify.Update

type inboxClosedMsg struct{}

type actionDoneMsg struct {
	err error
}

// InboxModel is the TUI state for the notification inbox. The list shows
// cached alerts newest first while the live feed appends new ones on top.
type InboxModel struct {
	ctx    context.Context
	inbox  *notify.Inbox
	items  []models.Notification
	unread int
	notice string
	closed bool
	width  int
	height int
	list   list.Model
	help   help.Model
	keys   keyMap
}

// NewInboxModel creates an inbox view seeded with cached notifications.
func NewInboxModel(ctx context.Context, inbox *notify.Inbox, seeded []models.Notification) *InboxModel {
	m := &InboxModel{
		ctx:    ctx,
		inbox:  inbox,
		items:  seeded,
		unread: inbox.UnreadCount(),
		help:   help.New(),
		keys:   newKeyMap(),
	}
	m.list = list.New(m.listItems(), list.NewDefaultDelegate(), 0, 0)
	m.list.SetShowTitle(true)
	m.list.Title = m.title()
	return m
}

// Init starts the feed pump.
func (m *InboxModel) Init() tea.Cmd {
	return m.waitForUpdate()
}

// Update handles incoming messages and updates the model state.
func (m *InboxModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case inboxUpdateMsg:
		update := notify.Update(msg)
		m.unread = update.Unread
		if update.Notice != "" {
			m.notice = update.Notice
		}
		if update.Notification.ID != "" {
			m.items = append([]models.Notification{update.Notification}, m.items...)
		}
		m.refreshList()
		return m, m.waitForUpdate()

	case inboxClosedMsg:
		m.closed = true
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("action failed: %v", msg.err)
		} else {
			m.unread = m.inbox.UnreadCount()
		}
		m.refreshList()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *InboxModel) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "q", key.Matches(msg, m.keys.quit):
		m.inbox.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.enter):
		if selected := m.selected(); selected != nil && !selected.IsRead {
			id := selected.ID
			selected.IsRead = true
			return m, m.run(func() error { return m.inbox.MarkRead(m.ctx, id) })
		}
		return m, nil

	case key.Matches(msg, m.keys.hide):
		if selected := m.selected(); selected != nil {
			id := selected.ID
			m.remove(id)
			return m, m.run(func() error { return m.inbox.Hide(m.ctx, id) })
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the inbox screen.
func (m *InboxModel) View() string {
	view := m.list.View()

	status := ""
	if m.notice != "" {
		status = styles.warn.Render(m.notice)
	} else if m.closed {
		status = styles.help.Render("live feed disconnected")
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.hide, m.keys.quit}
	helpView := styles.help.Render(m.help.ShortHelpView(helpKeys))

	return fmt.Sprintf("%s\n%s\n%s", view, status, helpView)
}

func (m *InboxModel) title() string {
	return fmt.Sprintf("Notifications (%d unread)", m.unread)
}

func (m *InboxModel) listItems() []list.Item {
	items := make([]list.Item, len(m.items))
	for i, n := range m.items {
		items[i] = notificationItem{notification: n}
	}
	return items
}

func (m *InboxModel) refreshList() {
	m.list.SetItems(m.listItems())
	m.list.Title = m.title()
}

func (m *InboxModel) selected() *models.Notification {
	item, ok := m.list.SelectedItem().(notificationItem)
	if !ok {
		return nil
	}
	for i := range m.items {
		if m.items[i].ID == item.notification.ID {
			return &m.items[i]
		}
	}
	return nil
}

func (m *InboxModel) remove(id string) {
	kept := m.items[:0]
	for _, n := range m.items {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	m.items = kept
	m.refreshList()
}

func (m *InboxModel) run(action func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{err: action()}
	}
}

func (m *InboxModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.inbox.Updates()
		if !ok {
			return inboxClosedMsg{}
		}
		return inboxUpdateMsg(update)
	}
}
