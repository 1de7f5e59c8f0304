package ops

import (
	"context"

	"github.com/yswa-var/DOCX-agent/internal/approval"
	"github.com/yswa-var/DOCX-agent/internal/config"
	"github.com/yswa-var/DOCX-agent/internal/errors"
	"github.com/yswa-var/DOCX-agent/internal/tool"
)

// DispatchInput contains parameters for the Dispatch operation.
type DispatchInput struct {
	ThreadID string      `json:"thread_id"`
	Calls    []tool.Call `json:"calls"`
}

// Dispatch hands the tool calls of one model turn to the approval gate.
// Calls without a document get the configured default now, so an approved
// edit lands on the document it was proposed against.
func Dispatch(ctx context.Context, gate *approval.Gate, cfg *config.Config, input DispatchInput) (*approval.Outcome, error) {
	if input.ThreadID == "" {
		return nil, errors.NewInvalidRequest("thread_id is required")
	}
	calls := make([]tool.Call, len(input.Calls))
	for i, c := range input.Calls {
		if c.Document == "" && cfg != nil {
			c.Document = cfg.DocumentPath
		}
		calls[i] = c
	}
	return gate.Propose(ctx, input.ThreadID, calls)
}

// Route runs a single read call through a thread, so a pending approval on
// that thread blocks it. The call's output or error is returned as if it
// had been invoked directly.
func Route(ctx context.Context, gate *approval.Gate, cfg *config.Config, threadID string, c tool.Call) (any, error) {
	if c.Kind.RequiresApproval() {
		return nil, errors.NewInvalidRequest(c.Kind.Name() + " requires approval; use ProposeEdit")
	}
	out, err := Dispatch(ctx, gate, cfg, DispatchInput{ThreadID: threadID, Calls: []tool.Call{c}})
	if err != nil {
		return nil, err
	}
	r := out.Results[0]
	if r.Status == approval.CallFailed {
		return nil, r.Err()
	}
	return r.Output, nil
}
