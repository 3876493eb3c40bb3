package mcp

import "github.com/mark3labs/mcp-go/mcp"

var ingestToolDef = mcp.NewTool("passage_ingest",
	mcp.WithDescription("Clean, chunk and quality-filter raw source text into reading passages. "+
		"Passages are content-addressed, so re-ingesting the same text reports duplicates instead of storing copies."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Raw source text (plain text, HTML or markdown)")),
	mcp.WithString("source_type", mcp.Required(),
		mcp.Enum("book", "encyclopedia", "news", "markdown"),
		mcp.Description("Kind of source; selects the boilerplate cleaner")),
	mcp.WithString("title", mcp.Required(), mcp.Description("Source title")),
	mcp.WithString("author", mcp.Description("Source author")),
	mcp.WithString("genre", mcp.Required(), mcp.Description("Genre label used for session diversity")),
	mcp.WithNumber("target_words", mcp.Min(125), mcp.Max(200),
		mcp.Description("Preferred passage length in words (default 150)")),
)

var listPassagesToolDef = mcp.NewTool("passage_list",
	mcp.WithDescription("List stored passages, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("genre", mcp.Description("Only passages of this genre")),
	mcp.WithNumber("limit", mcp.Description("Max results (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Results to skip")),
)

var fetchPassageToolDef = mcp.NewTool("passage_fetch",
	mcp.WithDescription("Fetch one passage with its practice items."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Passage ID")),
)

var addItemsToolDef = mcp.NewTool("item_add",
	mcp.WithDescription("Attach practice items to stored passages. The batch is stored all-or-nothing."),
	mcp.WithArray("items", mcp.Required(),
		mcp.Description("Items to add (max 500)"),
		mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":         map[string]any{"type": "string", "description": "Item ID (default: generated)"},
				"passage_id": map[string]any{"type": "string"},
				"difficulty": map[string]any{"type": "string", "enum": []string{"easy", "medium", "hard"}},
				"payload":    map[string]any{"type": "object", "description": "Opaque question content"},
			},
			"required": []string{"passage_id", "difficulty"},
		})),
)

var buildSessionToolDef = mcp.NewTool("session_build",
	mcp.WithDescription("Select a practice session from the item pool. "+
		"Items are spread across passages and genres and split by the difficulty mix. "+
		"Pass mix for an explicit split, accuracy or adaptive for a recommended one."),
	mcp.WithNumber("size", mcp.Min(1), mcp.Max(200), mcp.Description("Number of items (default from config)")),
	mcp.WithString("genre", mcp.Description("Only items from passages of this genre")),
	mcp.WithNumber("seed", mcp.Description("Shuffle seed; the same seed and pool give the same session")),
	mcp.WithObject("mix",
		mcp.Description("Difficulty percentages; must sum to 100"),
		mcp.Properties(map[string]any{
			"easy":   map[string]any{"type": "integer"},
			"medium": map[string]any{"type": "integer"},
			"hard":   map[string]any{"type": "integer"},
		})),
	mcp.WithNumber("accuracy", mcp.Min(0), mcp.Max(100), mcp.Description("Recent accuracy percent to derive the mix from")),
	mcp.WithBoolean("adaptive", mcp.Description("Derive the mix from recorded attempts")),
	mcp.WithBoolean("dry_run", mcp.Description("Select without storing the session")),
)

var gradeSessionToolDef = mcp.NewTool("session_grade",
	mcp.WithDescription("Record results for a built session. Missed items enter the review schedule. A session can be graded once."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID from session_build")),
	mcp.WithArray("results", mcp.Required(),
		mcp.Description("Per-item results"),
		mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"item_id": map[string]any{"type": "string"},
				"correct": map[string]any{"type": "boolean"},
			},
			"required": []string{"item_id", "correct"},
		})),
	mcp.WithString("today", mcp.Description("Grading date YYYY-MM-DD (default: today)")),
)

var dueReviewsToolDef = mcp.NewTool("review_due",
	mcp.WithDescription("List review items due on or before today, most overdue first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("today", mcp.Description("Date YYYY-MM-DD (default: today)")),
	mcp.WithNumber("limit", mcp.Description("Max results (default from config, max 500)")),
)

var gradeReviewToolDef = mcp.NewTool("review_grade",
	mcp.WithDescription("Grade recall of a review item on the 0-5 scale and reschedule it. Grades below 3 reset the interval."),
	mcp.WithString("item_id", mcp.Required(), mcp.Description("Item ID")),
	mcp.WithNumber("grade", mcp.Required(), mcp.Min(0), mcp.Max(5), mcp.Description("Recall grade 0-5")),
	mcp.WithString("today", mcp.Description("Review date YYYY-MM-DD (default: today)")),
)

var removeReviewToolDef = mcp.NewTool("review_remove",
	mcp.WithDescription("Stop reviewing an item."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("item_id", mcp.Required(), mcp.Description("Item ID")),
)

var progressToolDef = mcp.NewTool("progress_get",
	mcp.WithDescription("Summarize rolling accuracy, the recommended difficulty mix, review load and library size."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("today", mcp.Description("Date YYYY-MM-DD for due counts (default: today)")),
)

var exportToolDef = mcp.NewTool("library_export",
	mcp.WithDescription("Export passages, items and review records to a JSONL file."),
	mcp.WithString("path", mcp.Description("Destination .jsonl path (default: ~/.drill/exports/<genre|all>-<timestamp>.jsonl)")),
	mcp.WithString("genre", mcp.Description("Only this genre")),
)

var importToolDef = mcp.NewTool("library_import",
	mcp.WithDescription("Import a JSONL export. Passages are re-checked for quality; existing records are never overwritten."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Source .jsonl path")),
	mcp.WithString("mode", mcp.Enum("error", "skip"),
		mcp.Description("error: abort and import nothing on any problem (default). skip: import what is valid and report the rest")),
)
