package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// SubsList lists the streamers the current user subscribes to.
func (r *Runner) SubsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}

	subscriptions, err := r.api.Subscriptions(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(subscriptions, true)
	}

	if len(subscriptions) == 0 {
		return r.writePlain("No subscriptions yet\n")
	}

	r.writePlainHeader("Subscriptions")
	for _, sub := range subscriptions {
		marker := " "
		if sub.IsMuted {
			marker = "🔇"
		}
		r.writePlain("%s %-24s since %s\n", marker, sub.StreamerName, sub.SubscribedAt.Format("Jan 2 2006"))
	}
	return nil
}
