package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/margin-sh/margin/internal/core/review"
	"github.com/margin-sh/margin/pkg/iojson"
)

type ThreadCmd struct {
	flags *Flags

	// add flags
	addSession     string
	addEntity      string
	addURI         string
	addStartLine   int
	addStartChar   int
	addEndLine     int
	addEndChar     int
	addType        string
	addBody        string
	addAgent       string
	addReplacement string

	// reply flags
	replyBody  string
	replyAgent string

	// delete flags
	deleteSession string

	// annotation flags
	annThread string
	annBody   string
}

// NewThreadCmd creates a new thread command.
func NewThreadCmd(flags *Flags) *ThreadCmd {
	return &ThreadCmd{flags: flags}
}

// Register adds the thread and annotation commands to the application.
func (cmd *ThreadCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "thread",
		Usage: "Manage review threads",
		Commands: []*cli.Command{
			cmd.addCmd(),
			cmd.replyCmd(),
			cmd.statusCmd("resolve", "Mark a thread resolved"),
			cmd.statusCmd("unresolve", "Reopen a resolved thread"),
			cmd.statusCmd("outdated", "Mark a thread outdated after the code changed"),
			cmd.deleteCmd(),
		},
	})

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "annotation",
		Usage: "Edit, delete, or apply individual annotations",
		Commands: []*cli.Command{
			cmd.annotationEditCmd(),
			cmd.annotationDeleteCmd(),
			cmd.annotationApplyCmd(),
		},
	})

	return app
}

func (cmd *ThreadCmd) addCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a thread with its first annotation",
		UsageText: "margin thread add --session <id> --entity <id> --body <text> [--uri file] [--start-line N] [--type suggestion --replacement text]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "session",
				Aliases:     []string{"s"},
				Required:    true,
				Destination: &cmd.addSession,
			},
			&cli.StringFlag{
				Name:        "entity",
				Usage:       "entity the thread is anchored to",
				Required:    true,
				Destination: &cmd.addEntity,
			},
			&cli.StringFlag{
				Name:        "uri",
				Usage:       "file the range refers to (omit for document-level threads)",
				Destination: &cmd.addURI,
			},
			&cli.IntFlag{Name: "start-line", Destination: &cmd.addStartLine},
			&cli.IntFlag{Name: "start-char", Destination: &cmd.addStartChar},
			&cli.IntFlag{Name: "end-line", Destination: &cmd.addEndLine},
			&cli.IntFlag{Name: "end-char", Destination: &cmd.addEndChar},
			&cli.StringFlag{
				Name:        "type",
				Usage:       "annotation type (comment, suggestion, task, question, approval)",
				Value:       string(review.AnnotationComment),
				Destination: &cmd.addType,
			},
			&cli.StringFlag{
				Name:        "body",
				Aliases:     []string{"b"},
				Required:    true,
				Destination: &cmd.addBody,
			},
			&cli.StringFlag{
				Name:        "agent",
				Usage:       "agent id; attributes the annotation to an llm author",
				Destination: &cmd.addAgent,
			},
			&cli.StringFlag{
				Name:        "replacement",
				Usage:       "replacement text for suggestion annotations",
				Destination: &cmd.addReplacement,
			},
		},
		Action: cmd.runAdd,
	}
}

func (cmd *ThreadCmd) runAdd(ctx context.Context, c *cli.Command) error {
	var uri *string
	if cmd.addURI != "" {
		uri = &cmd.addURI
	}

	author := review.Author{Type: review.AuthorHuman}
	if cmd.addAgent != "" {
		author = review.Author{Type: review.AuthorLLM, Name: cmd.addAgent, AgentID: cmd.addAgent}
	}

	input := review.AnnotationInput{
		Type:   review.AnnotationType(cmd.addType),
		Body:   cmd.addBody,
		Author: author,
	}
	if cmd.addReplacement != "" {
		input.Suggestion = &review.Suggestion{Replacement: cmd.addReplacement}
	}

	r := review.Range{
		Start: review.Position{Line: cmd.addStartLine, Character: cmd.addStartChar},
		End:   review.Position{Line: cmd.addEndLine, Character: cmd.addEndChar},
	}

	thread, err := cmd.flags.Sessions.AddThread(ctx, cmd.addSession, cmd.addEntity, uri, r, input)
	if err != nil {
		return err
	}
	return iojson.Write(thread)
}

func (cmd *ThreadCmd) replyCmd() *cli.Command {
	return &cli.Command{
		Name:      "reply",
		Usage:     "Reply to a thread",
		UsageText: "margin thread reply <thread-id> --body <text> [--agent id]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "body",
				Aliases:     []string{"b"},
				Required:    true,
				Destination: &cmd.replyBody,
			},
			&cli.StringFlag{
				Name:        "agent",
				Destination: &cmd.replyAgent,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			threadID := c.Args().First()
			if threadID == "" {
				return fmt.Errorf("thread id required")
			}

			ann, err := cmd.flags.Sessions.ReplyToThread(ctx, threadID, cmd.replyBody, cmd.replyAgent)
			if err != nil {
				return err
			}
			return iojson.Write(ann)
		},
	}
}

func (cmd *ThreadCmd) statusCmd(name, usage string) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		UsageText: "margin thread " + name + " <thread-id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			threadID := c.Args().First()
			if threadID == "" {
				return fmt.Errorf("thread id required")
			}

			var (
				thread *review.Thread
				err    error
			)
			switch name {
			case "resolve":
				thread, err = cmd.flags.Sessions.ResolveThread(ctx, threadID)
			case "unresolve":
				thread, err = cmd.flags.Sessions.UnresolveThread(ctx, threadID)
			default:
				thread, err = cmd.flags.Sessions.MarkThreadOutdated(ctx, threadID)
			}
			if err != nil {
				return err
			}
			return iojson.Write(thread)
		},
	}
}

func (cmd *ThreadCmd) deleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a thread from a session",
		UsageText: "margin thread delete <thread-id> --session <id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "session",
				Aliases:     []string{"s"},
				Required:    true,
				Destination: &cmd.deleteSession,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			threadID := c.Args().First()
			if threadID == "" {
				return fmt.Errorf("thread id required")
			}

			if err := cmd.flags.Sessions.DeleteThread(ctx, cmd.deleteSession, threadID); err != nil {
				return err
			}
			return iojson.Write(map[string]any{"deleted": threadID})
		},
	}
}

func (cmd *ThreadCmd) annotationEditCmd() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit an annotation's body",
		UsageText: "margin annotation edit <annotation-id> --thread <id> --body <text>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "thread",
				Aliases:     []string{"t"},
				Required:    true,
				Destination: &cmd.annThread,
			},
			&cli.StringFlag{
				Name:        "body",
				Aliases:     []string{"b"},
				Required:    true,
				Destination: &cmd.annBody,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			annotationID := c.Args().First()
			if annotationID == "" {
				return fmt.Errorf("annotation id required")
			}

			ann, err := cmd.flags.Sessions.EditAnnotation(ctx, cmd.annThread, annotationID, cmd.annBody)
			if err != nil {
				return err
			}
			return iojson.Write(ann)
		},
	}
}

func (cmd *ThreadCmd) annotationDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an annotation; deleting the last one deletes the thread",
		UsageText: "margin annotation delete <annotation-id> --thread <id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "thread",
				Aliases:     []string{"t"},
				Required:    true,
				Destination: &cmd.annThread,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			annotationID := c.Args().First()
			if annotationID == "" {
				return fmt.Errorf("annotation id required")
			}

			result, err := cmd.flags.Sessions.DeleteAnnotation(ctx, cmd.annThread, annotationID)
			if err != nil {
				return err
			}
			return iojson.Write(result)
		},
	}
}

func (cmd *ThreadCmd) annotationApplyCmd() *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "Mark a suggestion annotation as applied",
		UsageText: "margin annotation apply <annotation-id> --thread <id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "thread",
				Aliases:     []string{"t"},
				Required:    true,
				Destination: &cmd.annThread,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			annotationID := c.Args().First()
			if annotationID == "" {
				return fmt.Errorf("annotation id required")
			}

			ann, err := cmd.flags.Sessions.MarkSuggestionApplied(ctx, cmd.annThread, annotationID)
			if err != nil {
				return err
			}
			return iojson.Write(ann)
		},
	}
}
