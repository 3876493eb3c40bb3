package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/drill/internal/config"
	"github.com/hpungsan/drill/internal/errors"
	"github.com/hpungsan/drill/internal/ops"
	"github.com/hpungsan/drill/internal/selection"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	return &Handlers{db: db, cfg: cfg}
}

// Request types for each tool

// IngestRequest represents the arguments for passage_ingest.
type IngestRequest struct {
	Text        string `json:"text"`
	SourceType  string `json:"source_type"`
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Genre       string `json:"genre"`
	TargetWords int    `json:"target_words,omitempty"`
}

// ListPassagesRequest represents the arguments for passage_list.
type ListPassagesRequest struct {
	Genre  string `json:"genre,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// FetchPassageRequest represents the arguments for passage_fetch.
type FetchPassageRequest struct {
	ID string `json:"id"`
}

// AddItemsRequest represents the arguments for item_add.
type AddItemsRequest struct {
	Items []ops.ItemSpec `json:"items"`
}

// BuildSessionRequest represents the arguments for session_build.
type BuildSessionRequest struct {
	Size     int            `json:"size,omitempty"`
	Genre    string         `json:"genre,omitempty"`
	Seed     *int64         `json:"seed,omitempty"`
	Mix      *selection.Mix `json:"mix,omitempty"`
	Accuracy *float64       `json:"accuracy,omitempty"`
	Adaptive bool           `json:"adaptive,omitempty"`
	DryRun   bool           `json:"dry_run,omitempty"`
}

// GradeSessionRequest represents the arguments for session_grade.
type GradeSessionRequest struct {
	SessionID string           `json:"session_id"`
	Results   []ops.ItemResult `json:"results"`
	Today     string           `json:"today,omitempty"`
}

// DueReviewsRequest represents the arguments for review_due.
type DueReviewsRequest struct {
	Today string `json:"today,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// GradeReviewRequest represents the arguments for review_grade.
type GradeReviewRequest struct {
	ItemID string `json:"item_id"`
	Grade  *int   `json:"grade"`
	Today  string `json:"today,omitempty"`
}

// RemoveReviewRequest represents the arguments for review_remove.
type RemoveReviewRequest struct {
	ItemID string `json:"item_id"`
}

// ProgressRequest represents the arguments for progress_get.
type ProgressRequest struct {
	Today string `json:"today,omitempty"`
}

// ExportRequest represents the arguments for library_export.
type ExportRequest struct {
	Path  string `json:"path,omitempty"`
	Genre string `json:"genre,omitempty"`
}

// ImportRequest represents the arguments for library_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// Handler implementations

// HandleIngest handles the passage_ingest tool call.
func (h *Handlers) HandleIngest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IngestRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Ingest(ctx, h.db, h.cfg, ops.IngestInput{
		Text:        input.Text,
		SourceType:  input.SourceType,
		Title:       input.Title,
		Author:      input.Author,
		Genre:       input.Genre,
		TargetWords: input.TargetWords,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleListPassages handles the passage_list tool call.
func (h *Handlers) HandleListPassages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListPassagesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListPassages(ctx, h.db, ops.ListPassagesInput{
		Genre:  input.Genre,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFetchPassage handles the passage_fetch tool call.
func (h *Handlers) HandleFetchPassage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchPassageRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.FetchPassage(ctx, h.db, ops.FetchPassageInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAddItems handles the item_add tool call.
func (h *Handlers) HandleAddItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddItemsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AddItems(ctx, h.db, ops.AddItemsInput{Items: input.Items})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleBuildSession handles the session_build tool call.
func (h *Handlers) HandleBuildSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BuildSessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.BuildSession(ctx, h.db, h.cfg, ops.BuildSessionInput{
		Size:     input.Size,
		Genre:    input.Genre,
		Seed:     input.Seed,
		Mix:      input.Mix,
		Accuracy: input.Accuracy,
		Adaptive: input.Adaptive,
		DryRun:   input.DryRun,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleGradeSession handles the session_grade tool call.
func (h *Handlers) HandleGradeSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GradeSessionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.GradeSession(ctx, h.db, ops.GradeSessionInput{
		SessionID: input.SessionID,
		Results:   input.Results,
		Today:     input.Today,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDueReviews handles the review_due tool call.
func (h *Handlers) HandleDueReviews(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DueReviewsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.DueReviews(ctx, h.db, h.cfg, ops.DueReviewsInput{
		Today: input.Today,
		Limit: input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleGradeReview handles the review_grade tool call.
func (h *Handlers) HandleGradeReview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GradeReviewRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Grade == nil {
		return errorResult(errors.NewInvalidRequest("grade is required")), nil
	}

	result, err := ops.GradeReview(ctx, h.db, ops.GradeReviewInput{
		ItemID: input.ItemID,
		Grade:  *input.Grade,
		Today:  input.Today,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRemoveReview handles the review_remove tool call.
func (h *Handlers) HandleRemoveReview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RemoveReviewRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RemoveReview(ctx, h.db, ops.RemoveReviewInput{ItemID: input.ItemID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleProgress handles the progress_get tool call.
func (h *Handlers) HandleProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProgressRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Progress(ctx, h.db, h.cfg, ops.ProgressInput{Today: input.Today})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the library_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.db, h.cfg, ops.ExportInput{
		Path:  input.Path,
		Genre: input.Genre,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the library_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.db, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are logged, never returned to the client.
func errorResult(err error) *mcp.CallToolResult {
	errorObj := map[string]any{
		"code":    errors.ErrInternal,
		"message": "an internal error occurred",
		"status":  500,
	}

	if dErr, ok := errors.As(err); ok {
		errorObj["code"] = dErr.Code
		errorObj["message"] = dErr.Message
		errorObj["status"] = dErr.Status
		if dErr.Code != errors.ErrInternal && len(dErr.Details) > 0 {
			errorObj["details"] = dErr.Details
		}
		if dErr.Code == errors.ErrInternal {
			slog.Error("tool call failed", "error", err, "details", dErr.Details)
		}
	} else {
		slog.Error("tool call failed", "error", err)
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
