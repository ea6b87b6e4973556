package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/nudge/internal/config"
	"github.com/hpungsan/nudge/internal/conversation"
	"github.com/hpungsan/nudge/internal/digest"
	"github.com/hpungsan/nudge/internal/errors"
	"github.com/hpungsan/nudge/internal/heartbeat"
	"github.com/hpungsan/nudge/internal/meeting"
	"github.com/hpungsan/nudge/internal/ops"
	"github.com/hpungsan/nudge/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, hb *heartbeat.Store, meetings *meeting.Store) *cli.App {
	app := &cli.App{
		Name:    "nudge",
		Usage:   "Notification and liveness state engine",
		Version: Version,
		Commands: []*cli.Command{
			ingestCmd(db),
			resolveCmd(db),
			pendingCmd(db),
			awaitingCmd(db),
			statsCmd(db),
			notifyCmd(db),
			historyCmd(db),
			digestCmd(),
			healthCmd(hb, cfg),
			beatCmd(hb),
			meetingsCmd(meetings, cfg),
			webCmd(db, cfg, hb, meetings),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// ingestCmd creates the ingest command.
func ingestCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Record a conversation observation (reads JSON from stdin)",
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewValidation("observation JSON must be piped via stdin"))
			}

			raw, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			var obs conversation.Observation
			if err := json.Unmarshal([]byte(raw), &obs); err != nil {
				return outputError(errors.NewValidation("observation is not valid JSON: " + err.Error()))
			}

			output, err := ops.Ingest(db, ops.IngestInput{Observation: obs})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// resolveCmd creates the resolve command.
func resolveCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Mark a conversation resolved (no-op if already resolved)",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewMissingField("id"))
			}

			output, err := ops.Resolve(db, ops.ResolveInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// pendingFlags are shared by the pending and awaiting commands.
func pendingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Filter by conversation type (email|slack-dm|slack-mention)"},
		&cli.Int64Flag{Name: "older-than", Usage: "Minimum idle time in seconds"},
		&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum number of results"},
	}
}

func runPending(c *cli.Context, db *sql.DB, waitingFor conversation.Waiting) error {
	output, err := ops.Pending(db, ops.PendingInput{
		WaitingFor:       waitingFor,
		Type:             c.String("type"),
		OlderThanSeconds: c.Int64("older-than"),
		Limit:            c.Int("limit"),
	})
	if err != nil {
		return outputError(err)
	}

	return outputJSON(output)
}

// pendingCmd creates the pending command.
func pendingCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "pending",
		Usage: "List conversations waiting on my response, oldest first",
		Flags: pendingFlags(),
		Action: func(c *cli.Context) error {
			return runPending(c, db, conversation.WaitingMyResponse)
		},
	}
}

// awaitingCmd creates the awaiting command.
func awaitingCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "awaiting",
		Usage: "List conversations waiting on their response, oldest first",
		Flags: pendingFlags(),
		Action: func(c *cli.Context) error {
			return runPending(c, db, conversation.WaitingTheirResponse)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Aggregate active conversations by type and direction",
		Action: func(c *cli.Context) error {
			output, err := ops.Stats(db)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// notifyCmd creates the notify command.
func notifyCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "notify",
		Usage:     "Claim a notification tier for a conversation (idempotent gate)",
		ArgsUsage: "<conversation-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tier", Required: true, Usage: "Escalation tier (immediate|4h|daily|escalation)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewMissingField("conversation_id"))
			}

			output, err := ops.Notify(db, ops.NotifyInput{
				ConversationID: c.Args().First(),
				Tier:           conversation.Tier(c.String("tier")),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show every notification tier fired for a conversation",
		ArgsUsage: "<conversation-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewMissingField("conversation_id"))
			}

			output, err := ops.History(db, c.Args().First())
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// digestCmd creates the digest command.
func digestCmd() *cli.Command {
	return &cli.Command{
		Name:  "digest",
		Usage: "Build deduplicated digest items from collector output (reads JSON array from stdin)",
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewValidation("collector items must be piped via stdin"))
			}

			raw, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			var items []digest.Fields
			if err := json.Unmarshal([]byte(raw), &items); err != nil {
				return outputError(errors.NewValidation("collector items are not valid JSON: " + err.Error()))
			}

			output, err := ops.Compose(ops.ComposeInput{Items: items})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// healthCmd creates the health command.
func healthCmd(hb *heartbeat.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "health",
		Usage:     "Classify service liveness from heartbeat files",
		ArgsUsage: "[service]",
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				output, err := ops.ServiceHealth(hb, cfg, c.Args().First())
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			}

			output, err := ops.Health(hb, cfg)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// beatCmd creates the beat command.
func beatCmd(hb *heartbeat.Store) *cli.Command {
	return &cli.Command{
		Name:      "beat",
		Usage:     "Record a service heartbeat (for poller wrapper scripts)",
		ArgsUsage: "<service>",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "interval", Aliases: []string{"i"}, Required: true, Usage: "Service check interval in seconds"},
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "Self-reported status (default ok)"},
			&cli.StringFlag{Name: "last-error", Usage: "Most recent error message"},
			&cli.IntFlag{Name: "error-count", Usage: "Errors since service start"},
			&cli.StringFlag{Name: "metrics", Usage: "Service metrics as a JSON object"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewMissingField("service"))
			}

			input := ops.BeatInput{
				Service:       c.Args().First(),
				CheckInterval: c.Int64("interval"),
				Status:        c.String("status"),
			}

			if c.IsSet("last-error") || c.IsSet("error-count") {
				input.Errors = &heartbeat.ErrorInfo{
					LastError:       c.String("last-error"),
					CountSinceStart: c.Int("error-count"),
				}
			}

			if raw := c.String("metrics"); raw != "" {
				var metrics map[string]any
				if err := json.Unmarshal([]byte(raw), &metrics); err != nil {
					return outputError(errors.NewValidation("metrics is not a valid JSON object: " + err.Error()))
				}
				input.Metrics = metrics
			}

			output, err := ops.Beat(hb, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// meetingsCmd creates the meetings command.
func meetingsCmd(meetings *meeting.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "meetings",
		Usage: "Show upcoming meetings from the cached calendar snapshot",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "minutes-ahead", Aliases: []string{"m"}, Value: 60, Usage: "Lookahead window in minutes"},
			&cli.BoolFlag{Name: "refresh", Usage: "Replace the cache with an event list piped via stdin"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("refresh") {
				if !stdinHasData() {
					return outputError(errors.NewValidation("event JSON must be piped via stdin with --refresh"))
				}

				raw, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}

				var events []meeting.Event
				if err := json.Unmarshal([]byte(raw), &events); err != nil {
					return outputError(errors.NewValidation("events are not valid JSON: " + err.Error()))
				}

				output, err := ops.RefreshMeetings(meetings, cfg, ops.RefreshMeetingsInput{Events: events})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			}

			output, err := ops.Meetings(meetings, cfg, ops.MeetingsInput{
				MinutesAhead: c.Int("minutes-ahead"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// webCmd creates the web command.
func webCmd(db *sql.DB, cfg *config.Config, hb *heartbeat.Store, meetings *meeting.Store) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Run the status dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8377, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(db, cfg, hb, meetings, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI as a JSON payload on stderr.
func outputError(err error) error {
	eErr, ok := err.(*errors.EngineError)
	if !ok {
		eErr = errors.NewInternal(err)
	}

	payload := map[string]any{
		"error": map[string]any{
			"code":    eErr.Code,
			"message": eErr.Message,
			"status":  eErr.Status,
		},
	}
	data, jsonErr := json.Marshal(payload)
	if jsonErr != nil {
		return cli.Exit(fmt.Sprintf(`{"error":{"code":"INTERNAL","message":%q,"status":500}}`, eErr.Message), 1)
	}
	return cli.Exit(string(data), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
