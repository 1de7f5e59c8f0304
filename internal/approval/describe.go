package approval

import (
	"fmt"
	"strings"

	"github.com/yswa-var/DOCX-agent/internal/tool"
)

// DefaultPreviewChars bounds the new-text preview in a request description.
const DefaultPreviewChars = 100

// Describe renders the human-readable summary shown to the approver.
func Describe(call tool.Call, previewChars int) string {
	if previewChars <= 0 {
		previewChars = DefaultPreviewChars
	}
	switch call.Kind {
	case tool.KindUpdateParagraph:
		location := "unknown"
		if call.Anchor != nil {
			location = call.Anchor.String()
		}
		newText := ""
		if call.NewText != nil {
			newText = *call.NewText
		}
		var b strings.Builder
		b.WriteString("**DOCX Edit Operation**\n")
		if call.Document != "" {
			fmt.Fprintf(&b, "- Document: %s\n", call.Document)
		}
		fmt.Fprintf(&b, "- Location: %s\n", location)
		fmt.Fprintf(&b, "- New text: %s\n\n", Preview(newText, previewChars))
		b.WriteString("Do you approve this DOCX change? (yes/no)")
		return b.String()
	}
	return fmt.Sprintf("Approve DOCX %s operation with args: %v? (yes/no)", call.Kind.Name(), call.Arguments())
}

// Preview truncates s to n runes, appending "..." when anything was cut.
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func cancelledMessage(k tool.Kind) string {
	return fmt.Sprintf("DOCX operation cancelled by user. The %s operation was not executed.", k.Name())
}

func skippedMessage(k tool.Kind) string {
	return fmt.Sprintf("Skipped due to user rejection of DOCX %s.", k.Name())
}
