package ops

import (
	"context"

	"github.com/yswa-var/DOCX-agent/internal/approval"
	"github.com/yswa-var/DOCX-agent/internal/config"
	"github.com/yswa-var/DOCX-agent/internal/document"
	"github.com/yswa-var/DOCX-agent/internal/errors"
	"github.com/yswa-var/DOCX-agent/internal/threads"
	"github.com/yswa-var/DOCX-agent/internal/tool"
)

// ProposeEditInput contains parameters for the ProposeEdit operation.
type ProposeEditInput struct {
	ThreadID string           `json:"thread_id"`
	Document string           `json:"document,omitempty"`
	Anchor   *document.Anchor `json:"anchor"`
	NewText  *string          `json:"new_text"`
}

// ProposeEditOutput contains the result of the ProposeEdit operation.
// Result is set when the edit ran; ApprovalRequest when it waits.
type ProposeEditOutput struct {
	Status          approval.Status          `json:"status"`
	Result          any                      `json:"result,omitempty"`
	ApprovalRequest *threads.ApprovalRequest `json:"approval_request,omitempty"`
	Message         string                   `json:"message,omitempty"`
}

// ProposeEdit submits a paragraph edit for approval on a thread.
func ProposeEdit(ctx context.Context, gate *approval.Gate, cfg *config.Config, input ProposeEditInput) (*ProposeEditOutput, error) {
	if _, err := requireAnchor(input.Anchor); err != nil {
		return nil, err
	}
	if input.NewText == nil {
		return nil, errors.NewInvalidRequest("new_text is required")
	}
	call := tool.Call{
		Kind:     tool.KindUpdateParagraph,
		Document: input.Document,
		Anchor:   input.Anchor,
		NewText:  input.NewText,
	}
	out, err := Dispatch(ctx, gate, cfg, DispatchInput{ThreadID: input.ThreadID, Calls: []tool.Call{call}})
	if err != nil {
		return nil, err
	}

	res := &ProposeEditOutput{Status: out.Status, ApprovalRequest: out.Request, Message: out.Message}
	if len(out.Results) > 0 {
		r := out.Results[0]
		if r.Status == approval.CallFailed {
			return nil, r.Err()
		}
		res.Result = r.Output
	}
	return res, nil
}

// ResolveApprovalInput contains parameters for the ResolveApproval operation.
type ResolveApprovalInput struct {
	ThreadID string `json:"thread_id"`
	Approved bool   `json:"approved"`
}

// ResolveApproval applies a human decision to the thread's pending request.
func ResolveApproval(ctx context.Context, gate *approval.Gate, input ResolveApprovalInput) (*approval.Outcome, error) {
	if input.ThreadID == "" {
		return nil, errors.NewInvalidRequest("thread_id is required")
	}
	return gate.Resolve(ctx, input.ThreadID, input.Approved)
}
