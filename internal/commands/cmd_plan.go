package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/margin-sh/margin/internal/core/plan"
	"github.com/margin-sh/margin/internal/core/review"
	"github.com/margin-sh/margin/pkg/iojson"
)

type PlanCmd struct {
	flags *Flags

	feature string

	// write flags
	writeFile string

	// comment flags
	commentStartLine int
	commentEndLine   int
	commentBody      string
	commentAgent     bool

	// reply flags
	replyComment string
	replyBody    string
	replyAgent   bool
}

// NewPlanCmd creates a new plan command.
func NewPlanCmd(flags *Flags) *PlanCmd {
	return &PlanCmd{flags: flags}
}

// Register adds the plan command to the application.
func (cmd *PlanCmd) Register(app *cli.Command) *cli.Command {
	featureFlag := &cli.StringFlag{
		Name:        "feature",
		Aliases:     []string{"f"},
		Usage:       "feature owning the plan",
		Required:    true,
		Destination: &cmd.feature,
	}

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "plan",
		Usage: "Manage plan documents and their comments",
		Description: `Plan commands read and write a feature's plan.md and the comment
collection attached to it. Writing a new plan body clears all comments
and revokes any prior approval. Approval requires every comment to be
resolved.`,
		Flags: []cli.Flag{featureFlag},
		Commands: []*cli.Command{
			cmd.writeCmd(),
			cmd.readCmd(),
			cmd.approveCmd(),
			cmd.revokeCmd(),
			cmd.commentCmd(),
			cmd.replyCmd(),
		},
	})

	return app
}

func (cmd *PlanCmd) author() plan.Author {
	if cmd.commentAgent {
		return plan.AuthorAgent
	}
	return plan.AuthorHuman
}

func (cmd *PlanCmd) writeCmd() *cli.Command {
	return &cli.Command{
		Name:      "write",
		Usage:     "Write the plan body from a file or stdin",
		UsageText: "margin plan -f <feature> write [--file plan.md]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Usage:       "read plan body from file (default: stdin)",
				Destination: &cmd.writeFile,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			var (
				data []byte
				err  error
			)
			if cmd.writeFile != "" {
				data, err = os.ReadFile(cmd.writeFile)
			} else {
				data, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return fmt.Errorf("read plan body: %w", err)
			}

			if err := cmd.flags.Plans.Write(ctx, cmd.feature, string(data)); err != nil {
				return err
			}
			return iojson.Write(map[string]any{"feature": cmd.feature, "written": true})
		},
	}
}

func (cmd *PlanCmd) readCmd() *cli.Command {
	return &cli.Command{
		Name:  "read",
		Usage: "Print the plan body, status, and comments",
		Action: func(ctx context.Context, c *cli.Command) error {
			doc, err := cmd.flags.Plans.Read(ctx, cmd.feature)
			if err != nil {
				return err
			}
			return iojson.Write(doc)
		},
	}
}

func (cmd *PlanCmd) approveCmd() *cli.Command {
	return &cli.Command{
		Name:  "approve",
		Usage: "Approve the plan; fails while unresolved comments remain",
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cmd.flags.Plans.Approve(ctx, cmd.feature); err != nil {
				return err
			}
			return iojson.Write(map[string]any{"feature": cmd.feature, "approved": true})
		},
	}
}

func (cmd *PlanCmd) revokeCmd() *cli.Command {
	return &cli.Command{
		Name:  "revoke",
		Usage: "Revoke a prior approval",
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cmd.flags.Plans.RevokeApproval(ctx, cmd.feature); err != nil {
				return err
			}
			return iojson.Write(map[string]any{"feature": cmd.feature, "approved": false})
		},
	}
}

func (cmd *PlanCmd) commentCmd() *cli.Command {
	return &cli.Command{
		Name:  "comment",
		Usage: "Manage plan comments",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a comment anchored to a line span",
				UsageText: "margin plan -f <feature> comment add --body <text> [--start-line N] [--end-line N] [--agent]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "start-line", Destination: &cmd.commentStartLine},
					&cli.IntFlag{Name: "end-line", Destination: &cmd.commentEndLine},
					&cli.StringFlag{
						Name:        "body",
						Aliases:     []string{"b"},
						Required:    true,
						Destination: &cmd.commentBody,
					},
					&cli.BoolFlag{
						Name:        "agent",
						Usage:       "attribute the comment to the agent",
						Destination: &cmd.commentAgent,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					r := review.Range{
						Start: review.Position{Line: cmd.commentStartLine},
						End:   review.Position{Line: cmd.commentEndLine},
					}
					comment, err := cmd.flags.Plans.AddComment(ctx, cmd.feature, r, cmd.commentBody, cmd.author())
					if err != nil {
						return err
					}
					return iojson.Write(comment)
				},
			},
			{
				Name:  "list",
				Usage: "List comments in stored order",
				Action: func(ctx context.Context, c *cli.Command) error {
					comments, err := cmd.flags.Plans.GetComments(ctx, cmd.feature)
					if err != nil {
						return err
					}
					return iojson.Write(comments)
				},
			},
			{
				Name:      "resolve",
				Usage:     "Mark a comment resolved",
				UsageText: "margin plan -f <feature> comment resolve <comment-id>",
				Action: func(ctx context.Context, c *cli.Command) error {
					id := c.Args().First()
					if id == "" {
						return fmt.Errorf("comment id required")
					}

					comment, err := cmd.flags.Plans.ResolveComment(ctx, cmd.feature, id)
					if err != nil {
						return err
					}
					return iojson.Write(comment)
				},
			},
			{
				Name:  "unresolve",
				Usage: "Reopen a resolved comment",
				Action: func(ctx context.Context, c *cli.Command) error {
					id := c.Args().First()
					if id == "" {
						return fmt.Errorf("comment id required")
					}

					comment, err := cmd.flags.Plans.UnresolveComment(ctx, cmd.feature, id)
					if err != nil {
						return err
					}
					return iojson.Write(comment)
				},
			},
			{
				Name:  "edit",
				Usage: "Edit a comment's body",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "body",
						Aliases:     []string{"b"},
						Required:    true,
						Destination: &cmd.commentBody,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					id := c.Args().First()
					if id == "" {
						return fmt.Errorf("comment id required")
					}

					comment, err := cmd.flags.Plans.EditComment(ctx, cmd.feature, id, cmd.commentBody)
					if err != nil {
						return err
					}
					return iojson.Write(comment)
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a comment and its replies",
				Action: func(ctx context.Context, c *cli.Command) error {
					id := c.Args().First()
					if id == "" {
						return fmt.Errorf("comment id required")
					}

					if err := cmd.flags.Plans.DeleteComment(ctx, cmd.feature, id); err != nil {
						return err
					}
					return iojson.Write(map[string]any{"deleted": id})
				},
			},
		},
	}
}

func (cmd *PlanCmd) replyCmd() *cli.Command {
	commentFlag := &cli.StringFlag{
		Name:        "comment",
		Aliases:     []string{"c"},
		Usage:       "parent comment id",
		Required:    true,
		Destination: &cmd.replyComment,
	}

	return &cli.Command{
		Name:  "reply",
		Usage: "Manage replies under a plan comment",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a reply",
				UsageText: "margin plan -f <feature> reply add --comment <id> --body <text> [--agent]",
				Flags: []cli.Flag{
					commentFlag,
					&cli.StringFlag{
						Name:        "body",
						Aliases:     []string{"b"},
						Required:    true,
						Destination: &cmd.replyBody,
					},
					&cli.BoolFlag{
						Name:        "agent",
						Destination: &cmd.replyAgent,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					author := plan.AuthorHuman
					if cmd.replyAgent {
						author = plan.AuthorAgent
					}
					reply, err := cmd.flags.Plans.AddReply(ctx, cmd.feature, cmd.replyComment, cmd.replyBody, author)
					if err != nil {
						return err
					}
					return iojson.Write(reply)
				},
			},
			{
				Name:  "edit",
				Usage: "Edit a reply's body",
				Flags: []cli.Flag{
					commentFlag,
					&cli.StringFlag{
						Name:        "body",
						Aliases:     []string{"b"},
						Required:    true,
						Destination: &cmd.replyBody,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					id := c.Args().First()
					if id == "" {
						return fmt.Errorf("reply id required")
					}

					reply, err := cmd.flags.Plans.EditReply(ctx, cmd.feature, cmd.replyComment, id, cmd.replyBody)
					if err != nil {
						return err
					}
					return iojson.Write(reply)
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a reply",
				Flags: []cli.Flag{commentFlag},
				Action: func(ctx context.Context, c *cli.Command) error {
					id := c.Args().First()
					if id == "" {
						return fmt.Errorf("reply id required")
					}

					if err := cmd.flags.Plans.DeleteReply(ctx, cmd.feature, cmd.replyComment, id); err != nil {
						return err
					}
					return iojson.Write(map[string]any{"deleted": id})
				},
			},
		},
	}
}
