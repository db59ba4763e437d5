package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/margin-sh/margin/internal/core/diff"
	"github.com/margin-sh/margin/pkg/iojson"
)

type DiffCmd struct {
	flags *Flags

	parseFile   string
	numstatFile string
}

// NewDiffCmd creates a new diff command.
func NewDiffCmd(flags *Flags) *DiffCmd {
	return &DiffCmd{flags: flags}
}

// Register adds the diff command to the application.
func (cmd *DiffCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "diff",
		Usage: "Parse unified diff text",
		Commands: []*cli.Command{
			{
				Name:      "parse",
				Usage:     "Parse a unified diff into structured files and hunks",
				UsageText: "margin diff parse [--file diff.patch] [--numstat files.json]",
				Description: `Reads unified diff text from --file or stdin and prints one entry per
file with status, line counts, and hunks. When --numstat points at a
JSON array of per-file summaries, those summaries take precedence for
status and counts and files missing from the diff text are emitted
with empty hunks.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "file",
						Usage:       "read diff text from file (default: stdin)",
						Destination: &cmd.parseFile,
					},
					&cli.StringFlag{
						Name:        "numstat",
						Usage:       "JSON file with per-file change summaries",
						Destination: &cmd.numstatFile,
					},
				},
				Action: cmd.runParse,
			},
		},
	})

	return app
}

func (cmd *DiffCmd) runParse(ctx context.Context, c *cli.Command) error {
	var (
		data []byte
		err  error
	)
	if cmd.parseFile != "" {
		data, err = os.ReadFile(cmd.parseFile)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("read diff text: %w", err)
	}

	files := diff.ParseDiffContent(string(data))

	if cmd.numstatFile != "" {
		raw, err := os.ReadFile(cmd.numstatFile)
		if err != nil {
			return fmt.Errorf("read numstat file: %w", err)
		}

		var detailed []diff.DetailedFile
		if err := json.Unmarshal(raw, &detailed); err != nil {
			return fmt.Errorf("parse numstat file: %w", err)
		}

		files = diff.MergeDetailedWithParsed(detailed, files)
	}

	return iojson.Write(files)
}
