package mcp

import "github.com/mark3labs/mcp-go/mcp"

const (
	documentDesc = "Document path (.docx or .md). Defaults to document_path from config."
	threadDesc   = "Conversation thread id from thread_open. When set, the call is refused while the thread waits on an approval."
	anchorDesc   = `Paragraph anchor: ["body", paragraph] or ["table", table, row, col, paragraph]. Obtain anchors from document_search or document_outline.`
)

var outlineToolDef = mcp.NewTool("document_outline",
	mcp.WithDescription("List the document's headings in order, each with its level, anchor and breadcrumb of parent headings."),
	mcp.WithString("document", mcp.Description(documentDesc)),
	mcp.WithString("thread_id", mcp.Description(threadDesc)),
)

var searchToolDef = mcp.NewTool("document_search",
	mcp.WithDescription("Find paragraphs containing a plain substring. Case-insensitive unless case_sensitive is true. An empty query matches nothing."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Text to look for")),
	mcp.WithBoolean("case_sensitive", mcp.Description("Match case exactly (default false)")),
	mcp.WithString("document", mcp.Description(documentDesc)),
	mcp.WithString("thread_id", mcp.Description(threadDesc)),
)

var paragraphToolDef = mcp.NewTool("document_paragraph",
	mcp.WithDescription("Read one paragraph by anchor, with its style and breadcrumb."),
	mcp.WithArray("anchor", mcp.Required(), mcp.Description(anchorDesc)),
	mcp.WithString("document", mcp.Description(documentDesc)),
	mcp.WithString("thread_id", mcp.Description(threadDesc)),
)

var updateToolDef = mcp.NewTool("document_update",
	mcp.WithDescription("Propose replacing a paragraph's text. The edit waits for a human decision via approval_resolve and is never applied before it."),
	mcp.WithString("thread_id", mcp.Required(), mcp.Description("Conversation thread id from thread_open")),
	mcp.WithArray("anchor", mcp.Required(), mcp.Description(anchorDesc)),
	mcp.WithString("new_text", mcp.Required(), mcp.Description("Replacement text. Tabs and newlines are kept.")),
	mcp.WithString("document", mcp.Description(documentDesc)),
)

var exportToolDef = mcp.NewTool("document_export",
	mcp.WithDescription("Write the paragraph index to a JSONL file (default ~/.docxagent/exports/<document>-<timestamp>.jsonl)."),
	mcp.WithString("path", mcp.Description("Destination .jsonl file directly inside an allowed directory")),
	mcp.WithString("document", mcp.Description(documentDesc)),
	mcp.WithString("thread_id", mcp.Description(threadDesc)),
)

var resolveToolDef = mcp.NewTool("approval_resolve",
	mcp.WithDescription("Approve or reject the thread's pending edit. Approval runs it; rejection cancels it and skips the rest of its batch."),
	mcp.WithString("thread_id", mcp.Required(), mcp.Description("Thread holding the pending request")),
	mcp.WithBoolean("approved", mcp.Description("true to approve, false to reject")),
	mcp.WithString("decision", mcp.Description("Free-text decision such as yes, no, /approve or /reject. Overrides approved.")),
)

var threadOpenToolDef = mcp.NewTool("thread_open",
	mcp.WithDescription("Get or create the conversation thread of a chat user."),
	mcp.WithString("platform", mcp.Required(), mcp.Description("Chat platform, e.g. telegram or slack")),
	mcp.WithString("user_id", mcp.Required(), mcp.Description("User id on that platform")),
)

var threadStatusToolDef = mcp.NewTool("thread_status",
	mcp.WithDescription("Show a thread and its pending approval request, if any."),
	mcp.WithString("thread_id", mcp.Required(), mcp.Description("Thread id")),
)

var threadDeleteToolDef = mcp.NewTool("thread_delete",
	mcp.WithDescription("Delete a thread and discard its pending request."),
	mcp.WithString("thread_id", mcp.Required(), mcp.Description("Thread id")),
)

var threadListToolDef = mcp.NewTool("thread_list",
	mcp.WithDescription("List all threads, most recently active first."),
)

var dispatchToolDef = mcp.NewTool("thread_dispatch",
	mcp.WithDescription("Submit the tool calls of one model turn. Reads run at once; if any call edits the document, nothing runs until the first edit is approved."),
	mcp.WithString("thread_id", mcp.Required(), mcp.Description("Conversation thread id")),
	mcp.WithArray("calls", mcp.Required(),
		mcp.Description(`Calls in order: {"id", "tool": get_document_outline|search_document|get_paragraph|update_paragraph|export_index, "document", "anchor", "query", "case_sensitive", "new_text", "path"}`),
		mcp.Items(map[string]any{"type": "object"}),
	),
)
