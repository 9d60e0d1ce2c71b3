package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"github.com/wavecast/wavecast/internal/shared"
)

// StreamsCategories lists the browsable categories.
func (r *Runner) StreamsCategories(ctx context.Context, cmd *cli.Command) error {
	categories, err := r.api.Categories(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(categories, true)
	}

	r.writePlainHeader("Categories")
	for _, category := range categories {
		r.writePlain("%-24s %d live\n", category.Name, category.StreamCount)
	}
	return nil
}

// StreamsStreamer shows one streamer's public profile.
func (r *Runner) StreamsStreamer(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: streamer id", shared.ErrMissingArgument)
	}

	streamer, err := r.api.StreamerDetails(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(streamer, true)
	}

	r.writePlainHeader(streamer.DisplayName)
	r.writePlain("Username: %s\n", streamer.Username)
	if streamer.Bio != "" {
		r.writePlain("Bio: %s\n", streamer.Bio)
	}
	r.writePlain("Followers: %d\n", streamer.FollowerCount)
	if streamer.IsLive {
		r.writePlain("● LIVE now\n")
	}
	return nil
}

// StreamsInit initializes a broadcast. Only streamer accounts may do this,
// checked locally before the backend is asked.
func (r *Runner) StreamsInit(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}
	if !r.session.Authorized("/studio") {
		return fmt.Errorf("%w: broadcasting requires a streamer account", shared.ErrNotAuthorized)
	}

	stream, err := r.api.InitializeStream(ctx, cmd.String("title"), cmd.String("category"))
	if err != nil {
		return err
	}

	r.logger.Info("broadcast initialized", "id", stream.ID)

	r.writePlainHeader("Broadcast Ready")
	r.writePlain("Session: %s\n", stream.ID)
	r.writePlain("Title: %s\n", stream.Title)
	r.writePlain("Stream key: %s\n", stream.StreamKey)
	r.writePlainln("Point your broadcast software at the ingest with this key.")
	return nil
}
