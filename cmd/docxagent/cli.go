package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yswa-var/DOCX-agent/internal/approval"
	"github.com/yswa-var/DOCX-agent/internal/document"
	"github.com/yswa-var/DOCX-agent/internal/errors"
	"github.com/yswa-var/DOCX-agent/internal/ops"
	"github.com/yswa-var/DOCX-agent/internal/tool"
)

// maxStdinBytes bounds text and call batches read from stdin.
const maxStdinBytes = 4 << 20

// cliPlatform is the identity platform of threads opened with --user.
const cliPlatform = "cli"

func documentFlag() cli.Flag {
	return &cli.StringFlag{Name: "document", Aliases: []string{"d"}, Usage: "Document path (defaults to document_path from config)"}
}

func threadFlag() cli.Flag {
	return &cli.StringFlag{Name: "thread", Aliases: []string{"t"}, Usage: "Thread id; a pending approval on it blocks the command"}
}

func userFlag() cli.Flag {
	return &cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Open or reuse the cli thread of this user instead of passing --thread"}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(d *deps) *cli.App {
	app := &cli.App{
		Name:    "docxagent",
		Usage:   "Approval-gated document editing for chat agents",
		Version: Version,
		Commands: []*cli.Command{
			outlineCmd(d),
			searchCmd(d),
			paragraphCmd(d),
			exportCmd(d),
			editCmd(d),
			resolveCmd(d, "approve", "Approve the thread's pending edit", true),
			resolveCmd(d, "reject", "Reject the thread's pending edit", false),
			decideCmd(d),
			dispatchCmd(d),
			threadsCmd(d),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// outlineCmd creates the outline command.
func outlineCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "outline",
		Usage: "List the document's headings with breadcrumbs",
		Flags: []cli.Flag{documentFlag(), threadFlag(), userFlag()},
		Action: func(c *cli.Context) error {
			call := tool.Call{Kind: tool.KindGetOutline, Document: c.String("document")}
			return runRead(c, d, call, func() (any, error) {
				return ops.GetOutline(c.Context, d.docs, d.cfg, ops.GetOutlineInput{Document: call.Document})
			})
		},
	}
}

// searchCmd creates the search command.
func searchCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Find paragraphs containing a substring",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			documentFlag(), threadFlag(), userFlag(),
			&cli.BoolFlag{Name: "case-sensitive", Aliases: []string{"c"}, Usage: "Match case exactly"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one query argument is required"))
			}
			call := tool.Call{
				Kind:          tool.KindSearch,
				Document:      c.String("document"),
				Query:         c.Args().First(),
				CaseSensitive: c.Bool("case-sensitive"),
			}
			return runRead(c, d, call, func() (any, error) {
				return ops.Search(c.Context, d.docs, d.cfg, ops.SearchInput{
					Document:      call.Document,
					Query:         call.Query,
					CaseSensitive: call.CaseSensitive,
				})
			})
		},
	}
}

// paragraphCmd creates the paragraph command.
func paragraphCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "paragraph",
		Usage:     "Read one paragraph by anchor",
		ArgsUsage: "<anchor>  (body,3 or table,0,1,2,0)",
		Flags:     []cli.Flag{documentFlag(), threadFlag(), userFlag()},
		Action: func(c *cli.Context) error {
			a, err := anchorArg(c)
			if err != nil {
				return outputError(err)
			}
			call := tool.Call{Kind: tool.KindGetParagraph, Document: c.String("document"), Anchor: &a}
			return runRead(c, d, call, func() (any, error) {
				return ops.GetParagraph(c.Context, d.docs, d.cfg, ops.GetParagraphInput{Document: call.Document, Anchor: &a})
			})
		},
	}
}

// exportCmd creates the export command.
func exportCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the paragraph index to a JSONL file",
		Flags: []cli.Flag{
			documentFlag(), threadFlag(), userFlag(),
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.docxagent/exports/<document>-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			call := tool.Call{Kind: tool.KindExportIndex, Document: c.String("document"), Path: c.String("path")}
			return runRead(c, d, call, func() (any, error) {
				return ops.ExportIndex(c.Context, d.docs, d.cfg, ops.ExportIndexInput{Document: call.Document, Path: call.Path})
			})
		},
	}
}

// editCmd creates the edit command. The edit is proposed on a thread and
// waits for approve or reject.
func editCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Propose replacing a paragraph's text (reads text from --text, --text-file or stdin)",
		ArgsUsage: "<anchor>",
		Flags: []cli.Flag{
			documentFlag(), threadFlag(), userFlag(),
			&cli.StringFlag{Name: "text", Usage: "Replacement text"},
			&cli.StringFlag{Name: "text-file", Usage: "Read replacement text from this file"},
		},
		Action: func(c *cli.Context) error {
			a, err := anchorArg(c)
			if err != nil {
				return outputError(err)
			}
			text, err := newText(c)
			if err != nil {
				return outputError(err)
			}
			threadID, err := requireThread(c, d)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.ProposeEdit(c.Context, d.gate, d.cfg, ops.ProposeEditInput{
				ThreadID: threadID,
				Document: c.String("document"),
				Anchor:   &a,
				NewText:  &text,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// resolveCmd creates the approve and reject commands.
func resolveCmd(d *deps, name, usage string, approved bool) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{threadFlag(), userFlag()},
		Action: func(c *cli.Context) error {
			return resolve(c, d, approved)
		},
	}
}

// decideCmd creates the decide command, which takes a free-text reply.
func decideCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "decide",
		Usage:     "Resolve the pending edit from a chat reply such as yes, no, /approve or /reject",
		ArgsUsage: "<reply>",
		Flags:     []cli.Flag{threadFlag(), userFlag()},
		Action: func(c *cli.Context) error {
			approved, err := approval.ParseDecision(strings.Join(c.Args().Slice(), " "))
			if err != nil {
				return outputError(err)
			}
			return resolve(c, d, approved)
		},
	}
}

// dispatchCmd creates the dispatch command.
func dispatchCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "dispatch",
		Usage: "Run a JSON array of tool calls from stdin through the approval gate",
		Flags: []cli.Flag{threadFlag(), userFlag()},
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("calls must be piped via stdin"))
			}
			data, err := readStdin(maxStdinBytes)
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			var calls []tool.Call
			if err := json.Unmarshal([]byte(data), &calls); err != nil {
				return outputError(errors.NewInvalidRequest("calls: " + err.Error()))
			}
			threadID, err := requireThread(c, d)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Dispatch(c.Context, d.gate, d.cfg, ops.DispatchInput{ThreadID: threadID, Calls: calls})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// threadsCmd creates the threads command group.
func threadsCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "threads",
		Usage: "Manage conversation threads",
		Subcommands: []*cli.Command{
			{
				Name:  "open",
				Usage: "Get or create the thread of a chat user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "platform", Value: cliPlatform, Usage: "Chat platform"},
					&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Required: true, Usage: "User id on the platform"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.OpenThread(c.Context, d.gate.Store(), ops.OpenThreadInput{
						Platform: c.String("platform"),
						UserID:   c.String("user"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "status",
				Usage:     "Show a thread and its pending approval",
				ArgsUsage: "<thread-id>",
				Action: func(c *cli.Context) error {
					output, err := ops.ThreadStatus(c.Context, d.gate, ops.ThreadStatusInput{ThreadID: c.Args().First()})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a thread and any pending approval",
				ArgsUsage: "<thread-id>",
				Action: func(c *cli.Context) error {
					output, err := ops.DeleteThread(c.Context, d.gate.Store(), ops.DeleteThreadInput{ThreadID: c.Args().First()})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List threads, most recently active first",
				Action: func(c *cli.Context) error {
					output, err := ops.ListThreads(c.Context, d.gate.Store())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// Helper functions

// runRead routes call through the thread when one is named, else runs direct.
func runRead(c *cli.Context, d *deps, call tool.Call, direct func() (any, error)) error {
	threadID, err := optionalThread(c, d)
	if err != nil {
		return outputError(err)
	}

	var output any
	if threadID != "" {
		output, err = ops.Route(c.Context, d.gate, d.cfg, threadID, call)
	} else {
		output, err = direct()
	}
	if err != nil {
		return outputError(err)
	}
	return outputJSON(output)
}

func resolve(c *cli.Context, d *deps, approved bool) error {
	threadID, err := requireThread(c, d)
	if err != nil {
		return outputError(err)
	}
	output, err := ops.ResolveApproval(c.Context, d.gate, ops.ResolveApprovalInput{ThreadID: threadID, Approved: approved})
	if err != nil {
		return outputError(err)
	}
	return outputJSON(output)
}

// optionalThread returns the --thread id, or the cli thread of --user.
func optionalThread(c *cli.Context, d *deps) (string, error) {
	if id := strings.TrimSpace(c.String("thread")); id != "" {
		return id, nil
	}
	user := strings.TrimSpace(c.String("user"))
	if user == "" {
		return "", nil
	}
	out, err := ops.OpenThread(c.Context, d.gate.Store(), ops.OpenThreadInput{Platform: cliPlatform, UserID: user})
	if err != nil {
		return "", err
	}
	return out.ThreadID, nil
}

func requireThread(c *cli.Context, d *deps) (string, error) {
	id, err := optionalThread(c, d)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", errors.NewInvalidRequest("--thread or --user is required")
	}
	return id, nil
}

func anchorArg(c *cli.Context) (document.Anchor, error) {
	if c.NArg() != 1 {
		return document.Anchor{}, errors.NewInvalidRequest("exactly one anchor argument is required")
	}
	a, err := document.ParseAnchorString(c.Args().First())
	if err != nil {
		return document.Anchor{}, errors.NewInvalidRequest(err.Error())
	}
	return a, nil
}

// newText picks the replacement text from --text, --text-file or stdin, in
// that order. Text from a file or stdin keeps inner newlines but loses one
// trailing newline.
func newText(c *cli.Context) (string, error) {
	if c.IsSet("text") {
		return c.String("text"), nil
	}
	if path := c.String("text-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", errors.NewFileNotFound(path)
			}
			return "", errors.NewInvalidRequest(fmt.Sprintf("read %s: %v", path, err))
		}
		return trimNewline(string(data)), nil
	}
	if stdinHasData() {
		text, err := readStdin(maxStdinBytes)
		if err != nil {
			return "", errors.NewInvalidRequest(err.Error())
		}
		// An empty pipe is treated as no input; clear a paragraph with --text "".
		if text != "" {
			return text, nil
		}
	}
	return "", errors.NewInvalidRequest("new text is required (--text, --text-file or stdin)")
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if aErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", aErr.Code, aErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return trimNewline(string(data)), nil
}

func trimNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
