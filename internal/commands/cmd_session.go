package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/margin-sh/margin/internal/core/review"
	"github.com/margin-sh/margin/pkg/iojson"
)

type SessionCmd struct {
	flags *Flags

	// start flags
	startFeature string
	startScope   string
	startBaseRef string
	startHeadRef string

	// list flags
	listFeature string

	// submit flags
	submitVerdict string
	submitSummary string
}

// NewSessionCmd creates a new session command.
func NewSessionCmd(flags *Flags) *SessionCmd {
	return &SessionCmd{flags: flags}
}

// Register adds the session command to the application.
func (cmd *SessionCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "session",
		Usage: "Manage review sessions",
		Description: `Session commands create, inspect, and submit review sessions.

Each feature directory owns its sessions as reviews/review-<id>.json files
plus a reviews/index.json summary. All output is indented JSON on stdout.`,
		Commands: []*cli.Command{
			cmd.startCmd(),
			cmd.getCmd(),
			cmd.listCmd(),
			cmd.submitCmd(),
		},
	})

	return app
}

func (cmd *SessionCmd) startCmd() *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Start a new review session for a feature",
		UsageText: "margin session start --feature <name> [--scope code] [--base-ref main] [--head-ref HEAD]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "feature",
				Aliases:     []string{"f"},
				Usage:       "feature the session belongs to",
				Required:    true,
				Destination: &cmd.startFeature,
			},
			&cli.StringFlag{
				Name:        "scope",
				Usage:       "review scope (feature, task, context, plan, code)",
				Value:       string(review.ScopeFeature),
				Destination: &cmd.startScope,
			},
			&cli.StringFlag{
				Name:        "base-ref",
				Usage:       "base git ref for code reviews",
				Destination: &cmd.startBaseRef,
			},
			&cli.StringFlag{
				Name:        "head-ref",
				Usage:       "head git ref for code reviews",
				Destination: &cmd.startHeadRef,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			sess, err := cmd.flags.Sessions.StartSession(ctx, cmd.startFeature, review.Scope(cmd.startScope), cmd.startBaseRef, cmd.startHeadRef)
			if err != nil {
				return err
			}
			return iojson.Write(sess)
		},
	}
}

func (cmd *SessionCmd) getCmd() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Print a session by id",
		UsageText: "margin session get <session-id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			if id == "" {
				return fmt.Errorf("session id required")
			}

			sess, err := cmd.flags.Sessions.GetSession(ctx, id)
			if err != nil {
				return err
			}
			return iojson.Write(sess)
		},
	}
}

func (cmd *SessionCmd) listCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List session summaries for a feature",
		UsageText: "margin session list --feature <name>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "feature",
				Aliases:     []string{"f"},
				Required:    true,
				Destination: &cmd.listFeature,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			entries, err := cmd.flags.Sessions.ListSessions(ctx, cmd.listFeature)
			if err != nil {
				return err
			}
			return iojson.Write(entries)
		},
	}
}

func (cmd *SessionCmd) submitCmd() *cli.Command {
	return &cli.Command{
		Name:      "submit",
		Usage:     "Submit a verdict and close the session",
		UsageText: "margin session submit <session-id> --verdict approve [--summary text]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "verdict",
				Usage:       "approve, request_changes, or comment",
				Required:    true,
				Destination: &cmd.submitVerdict,
			},
			&cli.StringFlag{
				Name:        "summary",
				Destination: &cmd.submitSummary,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			if id == "" {
				return fmt.Errorf("session id required")
			}

			sess, err := cmd.flags.Sessions.SubmitSession(ctx, id, review.Verdict(cmd.submitVerdict), cmd.submitSummary)
			if err != nil {
				return err
			}
			return iojson.Write(sess)
		},
	}
}
