package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/drill/internal/config"
	"github.com/hpungsan/drill/internal/errors"
	"github.com/hpungsan/drill/internal/ops"
	"github.com/hpungsan/drill/internal/selection"
	"github.com/hpungsan/drill/internal/web"
)

// maxInputBytes bounds source text and item batches read from stdin or a file.
const maxInputBytes = 16 * 1024 * 1024

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "drill",
		Usage:   "Reading practice passages, adaptive sessions and spaced review",
		Version: Version,
		Commands: []*cli.Command{
			ingestCmd(db, cfg),
			passagesCmd(db),
			passageCmd(db),
			itemsCmd(db),
			sessionCmd(db, cfg),
			gradeCmd(db),
			dueCmd(db, cfg),
			reviewCmd(db),
			forgetCmd(db),
			progressCmd(db, cfg),
			exportCmd(db, cfg),
			importCmd(db, cfg),
			uiCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// ingestCmd creates the ingest command.
func ingestCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Clean, chunk and filter source text into passages (reads text from stdin or --file)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Required: true, Usage: "Source type: book|encyclopedia|news|markdown"},
			&cli.StringFlag{Name: "title", Required: true, Usage: "Source title"},
			&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Source author"},
			&cli.StringFlag{Name: "genre", Aliases: []string{"g"}, Required: true, Usage: "Genre label"},
			&cli.IntFlag{Name: "target-words", Usage: "Preferred passage length in words (125-200)"},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read text from this file instead of stdin"},
		},
		Action: func(c *cli.Context) error {
			text, err := readInput(c, maxInputBytes)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Ingest(c.Context, db, cfg, ops.IngestInput{
				Text:        text,
				SourceType:  c.String("type"),
				Title:       c.String("title"),
				Author:      c.String("author"),
				Genre:       c.String("genre"),
				TargetWords: c.Int("target-words"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// passagesCmd creates the passages command.
func passagesCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "passages",
		Usage: "List stored passages, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "genre", Aliases: []string{"g"}, Usage: "Filter by genre"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListPassages(c.Context, db, ops.ListPassagesInput{
				Genre:  c.String("genre"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// passageCmd creates the passage command.
func passageCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "passage",
		Usage:     "Show one passage with its items",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("passage ID is required"))
			}
			output, err := ops.FetchPassage(c.Context, db, ops.FetchPassageInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// itemsCmd creates the items command.
func itemsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "items",
		Usage: "Add practice items from a JSON array (stdin or --file)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read items from this file instead of stdin"},
		},
		Action: func(c *cli.Context) error {
			data, err := readInput(c, maxInputBytes)
			if err != nil {
				return outputError(err)
			}
			var items []ops.ItemSpec
			if err := json.Unmarshal([]byte(data), &items); err != nil {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("items must be a JSON array: %v", err)))
			}

			output, err := ops.AddItems(c.Context, db, ops.AddItemsInput{Items: items})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// sessionCmd creates the session command.
func sessionCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Build a practice session",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "size", Aliases: []string{"n"}, Usage: "Number of items (default from config)"},
			&cli.StringFlag{Name: "genre", Aliases: []string{"g"}, Usage: "Only items from this genre"},
			&cli.Int64Flag{Name: "seed", Usage: "Shuffle seed for a reproducible session"},
			&cli.StringFlag{Name: "mix", Usage: "Difficulty mix easy/medium/hard in percent, e.g. 20/50/30"},
			&cli.Float64Flag{Name: "accuracy", Usage: "Derive the mix from this accuracy percent"},
			&cli.BoolFlag{Name: "adaptive", Usage: "Derive the mix from recent attempts"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Select without storing the session"},
		},
		Action: func(c *cli.Context) error {
			input := ops.BuildSessionInput{
				Size:     c.Int("size"),
				Genre:    c.String("genre"),
				Adaptive: c.Bool("adaptive"),
				DryRun:   c.Bool("dry-run"),
			}
			if c.IsSet("seed") {
				seed := c.Int64("seed")
				input.Seed = &seed
			}
			if c.IsSet("mix") {
				mix, err := parseMix(c.String("mix"))
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.Mix = &mix
			}
			if c.IsSet("accuracy") {
				acc := c.Float64("accuracy")
				input.Accuracy = &acc
			}

			output, err := ops.BuildSession(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// gradeCmd creates the grade command.
func gradeCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "grade",
		Usage:     "Record session results; missed items enter the review schedule",
		ArgsUsage: "<session-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "correct", Aliases: []string{"c"}, Usage: "Comma-separated item IDs answered correctly"},
			&cli.StringFlag{Name: "wrong", Aliases: []string{"w"}, Usage: "Comma-separated item IDs answered wrong"},
			&cli.StringFlag{Name: "today", Usage: "Grading date YYYY-MM-DD (default: today)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("session ID is required"))
			}

			var results []ops.ItemResult
			for _, id := range parseIDs(c.String("correct")) {
				results = append(results, ops.ItemResult{ItemID: id, Correct: true})
			}
			for _, id := range parseIDs(c.String("wrong")) {
				results = append(results, ops.ItemResult{ItemID: id, Correct: false})
			}

			output, err := ops.GradeSession(c.Context, db, ops.GradeSessionInput{
				SessionID: c.Args().First(),
				Results:   results,
				Today:     c.String("today"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// dueCmd creates the due command.
func dueCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "due",
		Usage: "List review items due today, most overdue first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "today", Usage: "Date YYYY-MM-DD (default: today)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum items to return (default from config)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.DueReviews(c.Context, db, cfg, ops.DueReviewsInput{
				Today: c.String("today"),
				Limit: c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// reviewCmd creates the review command.
func reviewCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "review",
		Usage:     "Grade recall of a review item (0-5) and reschedule it",
		ArgsUsage: "<item-id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "grade", Aliases: []string{"g"}, Required: true, Usage: "Recall grade 0-5; below 3 resets the interval"},
			&cli.StringFlag{Name: "today", Usage: "Review date YYYY-MM-DD (default: today)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("item ID is required"))
			}
			output, err := ops.GradeReview(c.Context, db, ops.GradeReviewInput{
				ItemID: c.Args().First(),
				Grade:  c.Int("grade"),
				Today:  c.String("today"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// forgetCmd creates the forget command.
func forgetCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "forget",
		Usage:     "Stop reviewing an item",
		ArgsUsage: "<item-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("item ID is required"))
			}
			output, err := ops.RemoveReview(c.Context, db, ops.RemoveReviewInput{ItemID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// progressCmd creates the progress command.
func progressCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "progress",
		Usage: "Show accuracy, recommended mix, review load and library size",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "today", Usage: "Date YYYY-MM-DD for due counts (default: today)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Progress(c.Context, db, cfg, ops.ProgressInput{Today: c.String("today")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export passages, items and review records to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.drill/exports/<genre|all>-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "genre", Aliases: []string{"g"}, Usage: "Only this genre"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, db, cfg, ops.ExportInput{
				Path:  c.String("path"),
				Genre: c.String("genre"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a JSONL export",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Problem handling: error|skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, db, cfg, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			if err := outputJSON(c, output); err != nil {
				return err
			}
			if len(output.Errors) > 0 && ops.ImportMode(c.String("mode")) != ops.ImportModeSkip {
				return cli.Exit(fmt.Sprintf("[%s] import aborted: %d problem(s), nothing imported", errors.ErrInvalidRequest, len(output.Errors)), 1)
			}
			return nil
		},
	}
}

// uiCmd creates the ui command.
func uiCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Serve the local web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default from config, 127.0.0.1:8377)"},
		},
		Action: func(c *cli.Context) error {
			addr := c.String("addr")
			if addr == "" {
				addr = cfg.WebAddr
			}
			srv, err := web.NewServer(db, cfg, Version, addr)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := web.Run(c.Context, srv); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON writes result to the app's stdout as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if dErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", dErr.Code, dErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// readInput reads --file when set, otherwise piped stdin.
func readInput(c *cli.Context, limit int64) (string, error) {
	if path := c.String("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", errors.NewNotFound("file", path)
			}
			return "", errors.NewInternal(err)
		}
		defer f.Close()
		return readLimited(f, limit)
	}

	if f, ok := c.App.Reader.(*os.File); ok && isCharDevice(f) {
		return "", errors.NewInvalidRequest("input must be piped via stdin or given with --file")
	}
	return readLimited(c.App.Reader, limit)
}

// readLimited reads all of r, failing when it exceeds limit bytes.
func readLimited(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("input exceeds %d bytes", limit))
	}
	return string(data), nil
}

// isCharDevice reports whether f is an interactive terminal.
func isCharDevice(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}

// parseIDs splits a comma-separated list of item IDs.
func parseIDs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if id := strings.TrimSpace(p); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// parseMix parses "easy/medium/hard" percentages, e.g. "20/50/30".
func parseMix(s string) (selection.Mix, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return selection.Mix{}, fmt.Errorf("mix must look like 20/50/30 (easy/medium/hard)")
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return selection.Mix{}, fmt.Errorf("invalid mix value %q", p)
		}
		v[i] = n
	}
	return selection.Mix{Easy: v[0], Medium: v[1], Hard: v[2]}, nil
}
