// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}

func prettyFlag() cli.Flag {
	return &cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output"}
}

func idArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "id"}}
}

func songFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "song",
		Aliases:  []string{"s"},
		Usage:    "Song title, song ID, or id:<n> to force an ID when a title is numeric",
		Required: true,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, initialize the database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration instead of applying pending ones",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles the session lifecycle
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in, sign up and inspect the stored session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in and store the access token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Account username",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Account password",
						Sources:  cli.EnvVars("SETLIST_PASSWORD"),
						Required: true,
					},
				},
				Action: r.Login,
			},
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "first-name", Usage: "First name", Required: true},
					&cli.StringFlag{Name: "last-name", Usage: "Last name", Required: true},
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Account username", Required: true},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Account password",
						Sources:  cli.EnvVars("SETLIST_PASSWORD"),
						Required: true,
					},
					&cli.StringFlag{
						Name:  "confirm-password",
						Usage: "Repeat the password (defaults to --password)",
					},
				},
				Action: r.Register,
			},
			{
				Name:   "logout",
				Usage:  "Discard the stored session",
				Action: r.Logout,
			},
			{
				Name:   "status",
				Usage:  "Show whether a session is stored and when it expires",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.Status,
			},
		},
	}
}

// songsCommand handles catalog browsing
func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "songs",
		Usage: "Browse the song catalog",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List songs, optionally filtered by title",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "title",
						Aliases: []string{"t"},
						Usage:   "Case-insensitive title filter",
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "Page number (1-based)",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "per-page",
						Usage: "Songs per page",
						Value: 20,
					},
					jsonFlag(),
					prettyFlag(),
				},
				Action: r.Songs,
			},
		},
	}
}

// playlistCommand handles playlist reads, writes and exports
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List your playlists",
				Flags:  []cli.Flag{jsonFlag(), prettyFlag()},
				Action: r.Playlists,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist with its songs",
				Arguments: idArg(),
				Flags:     []cli.Flag{jsonFlag(), prettyFlag()},
				Action:    r.ShowPlaylist,
			},
			{
				Name:      "create",
				Usage:     "Create a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "title"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "cover", Usage: "Cover URL returned by 'playlist cover'"},
					jsonFlag(),
				},
				Action: r.CreatePlaylist,
			},
			{
				Name:      "update",
				Usage:     "Rename a playlist or change its cover",
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "New title"},
					&cli.StringFlag{Name: "cover", Usage: "New cover URL"},
					jsonFlag(),
				},
				Action: r.UpdatePlaylist,
			},
			{
				Name:      "delete",
				Usage:     "Delete a playlist",
				Arguments: idArg(),
				Action:    r.DeletePlaylist,
			},
			{
				Name:      "add",
				Usage:     "Add a song to a playlist",
				Arguments: idArg(),
				Flags:     []cli.Flag{songFlag()},
				Action:    r.AddSong,
			},
			{
				Name:      "remove",
				Usage:     "Remove a song from a playlist",
				Arguments: idArg(),
				Flags:     []cli.Flag{songFlag()},
				Action:    r.RemoveSong,
			},
			{
				Name:      "cover",
				Usage:     "Upload a cover image, optionally attaching it to a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "file"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "playlist", Usage: "Playlist ID to attach the uploaded cover to"},
				},
				Action: r.UploadCover,
			},
			{
				Name:  "export",
				Usage: "Export playlists to files with a JSON manifest",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "id",
						Usage: "Playlist ID to export (repeatable); all playlists when omitted",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: json, csv, md or txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default setlist_export_{timestamp})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers (1-10)",
						Value: 5,
					},
					&cli.IntFlag{
						Name:  "rate",
						Usage: "Playlist reads per second",
						Value: 5,
					},
				},
				Action: r.Export,
			},
			{
				Name:  "exports",
				Usage: "List previously written exports",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "playlist", Usage: "Only exports of this playlist ID"},
					jsonFlag(),
					prettyFlag(),
				},
				Action: r.Exports,
			},
		},
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local web front",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to listen on (defaults to server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on (defaults to server.port)",
			},
		},
		Action: r.Serve,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive terminal UI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "start",
				Usage: "Route to open first",
				Value: "/dashboard",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the UI owns the terminal",
				Value: "./tmp/setlist-tui.log",
			},
		},
		Action: r.TUI,
	}
}
