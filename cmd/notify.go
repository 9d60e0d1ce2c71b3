package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"github.com/wavecast/wavecast/internal/notify"
	"github.com/wavecast/wavecast/internal/repositories"
	"github.com/wavecast/wavecast/internal/shared"
	"github.com/wavecast/wavecast/internal/ui"
)

// NotifyCount shows the unread notification count.
func (r *Runner) NotifyCount(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}

	count, err := r.api.NotificationCount(ctx)
	if err != nil {
		return err
	}

	return r.writePlain("%d unread\n", count)
}

// NotifyList lists notifications from the backend, or from the local cache
// with --cached.
func (r *Runner) NotifyList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}

	if cmd.Bool("cached") {
		return r.listCachedNotifications(cmd)
	}

	notifications, err := r.api.Notifications(ctx, int(cmd.Int("page")))
	if err != nil {
		return err
	}

	if cmd.Bool("unread") {
		unread := notifications[:0]
		for _, n := range notifications {
			if !n.IsRead {
				unread = append(unread, n)
			}
		}
		notifications = unread
	}

	if cmd.Bool("json") {
		return r.writeJSON(notifications, true)
	}

	r.writePlainHeader("Notifications")
	for _, n := range notifications {
		marker := " "
		if !n.IsRead {
			marker = "●"
		}
		r.writePlain("%s %-38s %-22s %s\n", marker, n.ID, n.Kind, n.Content)
	}
	return nil
}

func (r *Runner) listCachedNotifications(cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewNotificationRepository(db)
	criteria := map[string]any{}
	if cmd.Bool("unread") {
		criteria["unread"] = true
	}

	notifications, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(notifications, true)
	}

	r.writePlainHeader("Cached Notifications")
	for _, n := range notifications {
		marker := " "
		if !n.IsRead {
			marker = "●"
		}
		r.writePlain("%s %-38s %-22s %s\n", marker, n.ID, n.Kind, n.Content)
	}
	return nil
}

// NotifyRead marks a notification as read on the backend and locally.
func (r *Runner) NotifyRead(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: notification id", shared.ErrMissingArgument)
	}

	inbox, cleanup, err := r.buildInbox()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := inbox.MarkRead(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Marked %s as read\n", id)
}

// NotifyHide hides a notification.
func (r *Runner) NotifyHide(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: notification id", shared.ErrMissingArgument)
	}

	inbox, cleanup, err := r.buildInbox()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := inbox.Hide(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Hid %s\n", id)
}

// NotifyListen opens the interactive inbox with the live notification feed.
func (r *Runner) NotifyListen(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
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

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewNotificationRepository(db)
	inbox := notify.NewInbox(notify.InboxOpts{
		SocketURL: r.config.Platform.NotifySocketURL,
		Tokens:    r.session,
		API:       r.api,
		Repo:      repo,
		Logger:    fileLogger,
		Dialer:    r.dialer,
	})
	defer inbox.Close()

	if err := inbox.Seed(ctx); err != nil {
		return err
	}
	if err := inbox.Listen(ctx); err != nil {
		return err
	}

	seeded, err := repo.List(nil)
	if err != nil {
		return err
	}

	model := ui.NewInboxModel(ctx, inbox, seeded)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// buildInbox wires an Inbox over the local cache for one-shot actions.
func (r *Runner) buildInbox() (*notify.Inbox, func(), error) {
	db, err := r.openDatabase()
	if err != nil {
		return nil, nil, err
	}

	repo := repositories.NewNotificationRepository(db)
	inbox := notify.NewInbox(notify.InboxOpts{
		SocketURL: r.config.Platform.NotifySocketURL,
		Tokens:    r.session,
		API:       r.api,
		Repo:      repo,
		Logger:    r.logger,
		Dialer:    r.dialer,
	})

	return inbox, func() { db.Close() }, nil
}
