package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/wavecast/wavecast/internal/live"
	"github.com/wavecast/wavecast/internal/models"
)

type channelUpdateMsg live.Update

type channelClosedMsg struct{}

// reactionOrder fixes the render order of the reaction bar.
var reactionOrder = []models.Reaction{
	models.ReactionHeart,
	models.ReactionLike,
	models.ReactionLaugh,
	models.ReactionWow,
}

var reactionGlyphs = map[models.Reaction]string{
	models.ReactionHeart: "♥",
	models.ReactionLike:  "👍",
	models.ReactionLaugh: "😂",
	models.ReactionWow:   "😮",
}

// WatchModel is the TUI state for following one live session.
type WatchModel struct {
	channel  *live.Channel
	streamer string
	state    live.State
	notice   string
	closed   bool
	width    int
	height   int
	chat     viewport.Model
	input    textinput.Model
	help     help.Model
	keys     keyMap
}

// NewWatchModel creates a watch view over an already opened channel.
func NewWatchModel(channel *live.Channel, streamer string) *WatchModel {
	input := textinput.New()
	input.Placeholder = "say something"
	input.CharLimit = 500
	input.Focus()

	return &WatchModel{
		channel:  channel,
		streamer: streamer,
		state:    channel.Snapshot(),
		chat:     viewport.New(0, 0),
		input:    input,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts the update pump and the input cursor.
func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForUpdate())
}

// Update handles incoming messages and updates the model state.
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chat.Width = msg.Width - 2
		m.chat.Height = msg.Height - 9
		if m.chat.Height < 3 {
			m.chat.Height = 3
		}
		m.input.Width = msg.Width - 4
		m.refreshChat()
		return m, nil

	case channelUpdateMsg:
		update := live.Update(msg)
		m.state = update.State
		if update.Notice != "" {
			m.notice = update.Notice
		}
		m.refreshChat()
		return m, m.waitForUpdate()

	case channelClosedMsg:
		m.closed = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.chat, cmd = m.chat.Update(msg)
	return m, cmd
}

func (m *WatchModel) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.back):
		m.channel.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.heart):
		m.react(models.ReactionHeart)
		return m, nil
	case key.Matches(msg, m.keys.like):
		m.react(models.ReactionLike)
		return m, nil
	case key.Matches(msg, m.keys.laugh):
		m.react(models.ReactionLaugh)
		return m, nil
	case key.Matches(msg, m.keys.wow):
		m.react(models.ReactionWow)
		return m, nil

	case key.Matches(msg, m.keys.enter):
		text := strings.TrimSpace(m.input.Value())
		if text != "" && !m.state.Ended {
			m.channel.SendComment(text)
			m.input.Reset()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *WatchModel) react(kind models.Reaction) {
	if m.state.Ended {
		return
	}
	m.channel.SendReaction(kind)
	m.state = m.channel.Snapshot()
}

// View renders the watch screen.
func (m *WatchModel) View() string {
	var b strings.Builder

	banner := styles.ok.Render("● LIVE")
	if m.state.Ended {
		banner = styles.err.Render("■ STREAM ENDED")
	} else if m.closed {
		banner = styles.warn.Render("disconnected")
	}
	header := fmt.Sprintf("%s  %s  %d watching", NewBold("#6C5CE7").Render(m.streamer), banner, m.state.ViewerCount)
	b.WriteString(header)
	b.WriteString("\n\n")

	b.WriteString(m.chat.View())
	b.WriteString("\n")

	b.WriteString(m.renderReactions())
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(styles.warn.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")

	helpKeys := []key.Binding{m.keys.heart, m.keys.like, m.keys.enter, m.keys.back}
	b.WriteString(styles.help.Render(m.help.ShortHelpView(helpKeys)))

	return b.String()
}

func (m *WatchModel) renderReactions() string {
	parts := make([]string, 0, len(reactionOrder)+1)
	for _, kind := range reactionOrder {
		label := fmt.Sprintf("%s %d", reactionGlyphs[kind], m.state.ReactionCounts[kind])
		if m.state.CurrentUserReaction == kind {
			label = styles.ok.Render(label)
		}
		parts = append(parts, label)
	}
	parts = append(parts, fmt.Sprintf("likes %d", m.state.LikeCount))
	return strings.Join(parts, "   ")
}

func (m *WatchModel) refreshChat() {
	nameStyle := NewBold("#6C5CE7")
	lines := make([]string, 0, len(m.state.Comments))
	for _, comment := range m.state.Comments {
		lines = append(lines, fmt.Sprintf("%s: %s", nameStyle.Render(comment.Username), comment.Content))
	}
	m.chat.SetContent(strings.Join(lines, "\n"))
	m.chat.GotoBottom()
}

func (m *WatchModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.channel.Updates()
		if !ok {
			return channelClosedMsg{}
		}
		return channelUpdateMsg(update)
	}
}
