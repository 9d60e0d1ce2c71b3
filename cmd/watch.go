package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"github.com/wavecast/wavecast/internal/live"
	"github.com/wavecast/wavecast/internal/models"
	"github.com/wavecast/wavecast/internal/repositories"
	"github.com/wavecast/wavecast/internal/shared"
	"github.com/wavecast/wavecast/internal/ui"
)

// Watch joins a live session: opens the interaction channel, launches the
// watch view, and records the viewing in the local history.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}

	sessionID := cmd.StringArg("session")
	if sessionID == "" {
		return fmt.Errorf("%w: live session id", shared.ErrMissingArgument)
	}

	streamer := cmd.String("streamer")
	if streamer == "" {
		streamer = sessionID
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	dataDir, err := shared.DataDir()
	if err != nil {
		return err
	}
	fileLogger, err := shared.NewFileLogger(filepath.Join(dataDir, "wavecast-tui.log"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	channel := live.NewChannel(live.ChannelOpts{
		BaseURL:   r.config.Platform.StreamSocketURL,
		SessionID: sessionID,
		Tokens:    r.session,
		Bus:       r.bus,
		Logger:    fileLogger,
		Dialer:    r.dialer,
	})
	defer channel.Close()

	if err := channel.Open(ctx); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	history := repositories.NewWatchHistoryRepository(db)
	entry := &models.WatchEntry{
		StreamID:     sessionID,
		StreamerName: streamer,
		StartedAt:    time.Now(),
	}
	if err := history.Create(entry); err != nil {
		fileLogger.Warnf("failed to record watch entry: %v", err)
		entry = nil
	}

	model := ui.NewWatchModel(channel, streamer)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if entry != nil {
		final := channel.Snapshot()
		if err := history.Finish(entry.ID, time.Now(), final.ViewerCount, len(final.Comments)); err != nil {
			fileLogger.Warnf("failed to close watch entry: %v", err)
		}
	}

	return nil
}
