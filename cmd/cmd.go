// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// authCommand handles account sign-in, registration, and two-step verification
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Account authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with a username and password, or with Google",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "username",
						Aliases: []string{"u"},
						Usage:   "Account username",
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
					},
					&cli.BoolFlag{
						Name:  "google",
						Usage: "Sign in with a Google account via the browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create a new account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Desired username",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Account password",
						Required: true,
					},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Clear the persisted session",
				Action: r.AuthLogout,
			},
			{
				Name:  "profile",
				Usage: "Update the display name or avatar on the account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "New display name",
					},
					&cli.StringFlag{
						Name:    "avatar",
						Aliases: []string{"a"},
						Usage:   "Avatar file reference",
					},
				},
				Action: r.AuthProfile,
			},
			{
				Name:   "status",
				Usage:  "Show the current session",
				Action: r.AuthStatus,
			},
			{
				Name:  "2fa",
				Usage: "Two-step verification",
				Commands: []*cli.Command{
					{
						Name:   "status",
						Usage:  "Show whether two-step verification is enabled",
						Action: r.TwoFactorStatus,
					},
					{
						Name:  "enable",
						Usage: "Enable (or disable with --off) two-step verification",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "off",
								Usage: "Disable two-step verification",
							},
						},
						Action: r.TwoFactorEnable,
					},
					{
						Name:  "code",
						Usage: "Print the current verification code",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "verify",
								Usage: "Also verify the code with the backend",
							},
						},
						Action: r.TwoFactorCode,
					},
				},
			},
		},
	}
}

// streamsCommand handles browsing and broadcasting operations
func streamsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "streams",
		Usage: "Browse categories and manage broadcasts",
		Commands: []*cli.Command{
			{
				Name:  "categories",
				Usage: "List browsable categories",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.StreamsCategories,
			},
			{
				Name:  "streamer",
				Usage: "Show a streamer's public profile",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.StreamsStreamer,
			},
			{
				Name:  "init",
				Usage: "Initialize a broadcast (streamer accounts only)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Usage:    "Stream title",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "category",
						Usage:    "Category ID",
						Required: true,
					},
				},
				Action: r.StreamsInit,
			},
		},
	}
}

// subsCommand handles the subscription list
func subsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "subs",
		Usage: "Subscriptions",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List streamers you subscribe to",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SubsList,
			},
		},
	}
}

// notifyCommand handles the notification inbox
func notifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "notify",
		Aliases: []string{"inbox"},
		Usage:   "Notification inbox",
		Commands: []*cli.Command{
			{
				Name:   "count",
				Usage:  "Show the unread notification count",
				Action: r.NotifyCount,
			},
			{
				Name:  "list",
				Usage: "List notifications",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "unread",
						Usage: "Only unread notifications",
					},
					&cli.BoolFlag{
						Name:  "cached",
						Usage: "List from the local cache instead of the backend",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "Result page",
						Value: 1,
					},
				},
				Action: r.NotifyList,
			},
			{
				Name:  "read",
				Usage: "Mark a notification as read",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.NotifyRead,
			},
			{
				Name:  "hide",
				Usage: "Hide a notification",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.NotifyHide,
			},
			{
				Name:   "listen",
				Usage:  "Open the interactive inbox with the live notification feed",
				Action: r.NotifyListen,
			},
		},
	}
}

// watchCommand joins a live session
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Watch a live session with chat and reactions",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "session",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "streamer",
				Usage: "Streamer name shown in the header",
			},
		},
		Action: r.Watch,
	}
}
