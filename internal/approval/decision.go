package approval

import (
	"strings"

	"github.com/yswa-var/DOCX-agent/internal/errors"
)

var (
	approveWords = []string{"yes", "y", "approve", "approved", "true", "/approve"}
	rejectWords  = []string{"no", "n", "reject", "rejected", "false", "/reject"}
)

// ParseDecision maps a chat reply to an approval decision.
func ParseDecision(text string) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(text))
	for _, w := range approveWords {
		if v == w {
			return true, nil
		}
	}
	for _, w := range rejectWords {
		if v == w {
			return false, nil
		}
	}
	return false, errors.NewInvalidRequest("unrecognized decision " + quote(text) + "; reply yes or no")
}

func quote(s string) string { return `"` + s + `"` }
