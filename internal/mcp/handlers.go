package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yswa-var/DOCX-agent/internal/approval"
	"github.com/yswa-var/DOCX-agent/internal/config"
	"github.com/yswa-var/DOCX-agent/internal/document"
	"github.com/yswa-var/DOCX-agent/internal/errors"
	"github.com/yswa-var/DOCX-agent/internal/index"
	"github.com/yswa-var/DOCX-agent/internal/ops"
	"github.com/yswa-var/DOCX-agent/internal/tool"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	cfg  *config.Config
	docs *index.Registry
	gate *approval.Gate
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg *config.Config, docs *index.Registry, gate *approval.Gate) *Handlers {
	return &Handlers{cfg: cfg, docs: docs, gate: gate}
}

// Request types for each tool

// OutlineRequest represents the arguments for document_outline.
type OutlineRequest struct {
	Document string `json:"document,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
}

// SearchRequest represents the arguments for document_search.
type SearchRequest struct {
	Query         string `json:"query"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
	Document      string `json:"document,omitempty"`
	ThreadID      string `json:"thread_id,omitempty"`
}

// ParagraphRequest represents the arguments for document_paragraph.
type ParagraphRequest struct {
	Anchor   *document.Anchor `json:"anchor"`
	Document string           `json:"document,omitempty"`
	ThreadID string           `json:"thread_id,omitempty"`
}

// UpdateRequest represents the arguments for document_update.
type UpdateRequest struct {
	ThreadID string           `json:"thread_id"`
	Anchor   *document.Anchor `json:"anchor"`
	NewText  *string          `json:"new_text"`
	Document string           `json:"document,omitempty"`
}

// ExportRequest represents the arguments for document_export.
type ExportRequest struct {
	Path     string `json:"path,omitempty"`
	Document string `json:"document,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
}

// ResolveRequest represents the arguments for approval_resolve.
type ResolveRequest struct {
	ThreadID string `json:"thread_id"`
	Approved *bool  `json:"approved,omitempty"`
	Decision string `json:"decision,omitempty"`
}

// ThreadOpenRequest represents the arguments for thread_open.
type ThreadOpenRequest struct {
	Platform string `json:"platform"`
	UserID   string `json:"user_id"`
}

// ThreadRequest represents the arguments for thread_status and thread_delete.
type ThreadRequest struct {
	ThreadID string `json:"thread_id"`
}

// DispatchRequest represents the arguments for thread_dispatch.
type DispatchRequest struct {
	ThreadID string      `json:"thread_id"`
	Calls    []tool.Call `json:"calls"`
}

// Handler implementations

// HandleOutline handles the document_outline tool call.
func (h *Handlers) HandleOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[OutlineRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ThreadID != "" {
		return h.route(ctx, input.ThreadID, tool.Call{Kind: tool.KindGetOutline, Document: input.Document})
	}

	result, err := ops.GetOutline(ctx, h.docs, h.cfg, ops.GetOutlineInput{Document: input.Document})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSearch handles the document_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ThreadID != "" {
		return h.route(ctx, input.ThreadID, tool.Call{
			Kind:          tool.KindSearch,
			Document:      input.Document,
			Query:         input.Query,
			CaseSensitive: input.CaseSensitive,
		})
	}

	result, err := ops.Search(ctx, h.docs, h.cfg, ops.SearchInput{
		Document:      input.Document,
		Query:         input.Query,
		CaseSensitive: input.CaseSensitive,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleParagraph handles the document_paragraph tool call.
func (h *Handlers) HandleParagraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ParagraphRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ThreadID != "" {
		return h.route(ctx, input.ThreadID, tool.Call{Kind: tool.KindGetParagraph, Document: input.Document, Anchor: input.Anchor})
	}

	result, err := ops.GetParagraph(ctx, h.docs, h.cfg, ops.GetParagraphInput{Document: input.Document, Anchor: input.Anchor})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleUpdate handles the document_update tool call. Edits always go
// through the approval gate.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ProposeEdit(ctx, h.gate, h.cfg, ops.ProposeEditInput{
		ThreadID: input.ThreadID,
		Document: input.Document,
		Anchor:   input.Anchor,
		NewText:  input.NewText,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the document_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ThreadID != "" {
		return h.route(ctx, input.ThreadID, tool.Call{Kind: tool.KindExportIndex, Document: input.Document, Path: input.Path})
	}

	result, err := ops.ExportIndex(ctx, h.docs, h.cfg, ops.ExportIndexInput{Document: input.Document, Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleResolve handles the approval_resolve tool call.
func (h *Handlers) HandleResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ResolveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var approved bool
	switch {
	case strings.TrimSpace(input.Decision) != "":
		if approved, err = approval.ParseDecision(input.Decision); err != nil {
			return errorResult(err), nil
		}
	case input.Approved != nil:
		approved = *input.Approved
	default:
		return errorResult(errors.NewInvalidRequest("approved or decision is required")), nil
	}

	result, err := ops.ResolveApproval(ctx, h.gate, ops.ResolveApprovalInput{ThreadID: input.ThreadID, Approved: approved})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleThreadOpen handles the thread_open tool call.
func (h *Handlers) HandleThreadOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ThreadOpenRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.OpenThread(ctx, h.gate.Store(), ops.OpenThreadInput{Platform: input.Platform, UserID: input.UserID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleThreadStatus handles the thread_status tool call.
func (h *Handlers) HandleThreadStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ThreadRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ThreadStatus(ctx, h.gate, ops.ThreadStatusInput{ThreadID: input.ThreadID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleThreadDelete handles the thread_delete tool call.
func (h *Handlers) HandleThreadDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ThreadRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.DeleteThread(ctx, h.gate.Store(), ops.DeleteThreadInput{ThreadID: input.ThreadID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleThreadList handles the thread_list tool call.
func (h *Handlers) HandleThreadList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListThreads(ctx, h.gate.Store())
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDispatch handles the thread_dispatch tool call.
func (h *Handlers) HandleDispatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DispatchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Dispatch(ctx, h.gate, h.cfg, ops.DispatchInput{ThreadID: input.ThreadID, Calls: input.Calls})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

func (h *Handlers) route(ctx context.Context, threadID string, c tool.Call) (*mcp.CallToolResult, error) {
	result, err := ops.Route(ctx, h.gate, h.cfg, threadID, c)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if aErr, ok := errors.As(err); ok {
		msg := aErr.Message
		// Keep context added by wrapping, e.g. "calls[2]: ...".
		if prefix := strings.TrimSuffix(err.Error(), aErr.Error()); prefix != err.Error() {
			msg = prefix + msg
		}
		errorObj := map[string]any{
			"code":    aErr.Code,
			"message": msg,
			"status":  aErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if aErr.Code != errors.ErrInternal && aErr.Details != nil {
			errorObj["details"] = aErr.Details
		}
		if aErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
