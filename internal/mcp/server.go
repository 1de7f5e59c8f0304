package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yswa-var/DOCX-agent/internal/approval"
	"github.com/yswa-var/DOCX-agent/internal/config"
	"github.com/yswa-var/DOCX-agent/internal/index"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"document", "approval", "thread"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"document_outline": {
		def:     outlineToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOutline },
	},
	"document_search": {
		def:     searchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"document_paragraph": {
		def:     paragraphToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleParagraph },
	},
	"document_update": {
		def:     updateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdate },
	},
	"document_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"approval_resolve": {
		def:     resolveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleResolve },
	},
	"thread_open": {
		def:     threadOpenToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleThreadOpen },
	},
	"thread_status": {
		def:     threadStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleThreadStatus },
	},
	"thread_delete": {
		def:     threadDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleThreadDelete },
	},
	"thread_list": {
		def:     threadListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleThreadList },
	},
	"thread_dispatch": {
		def:     dispatchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDispatch },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "document_search" → "document").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with the document tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(cfg *config.Config, docs *index.Registry, gate *approval.Gate, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"docxagent",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(cfg, docs, gate)

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(cfg *config.Config, docs *index.Registry, gate *approval.Gate, version string) error {
	s := NewServer(cfg, docs, gate, version)
	return server.ServeStdio(s)
}
