package ops

import (
	"context"
	"strings"

	"github.com/yswa-var/DOCX-agent/internal/approval"
	"github.com/yswa-var/DOCX-agent/internal/errors"
	"github.com/yswa-var/DOCX-agent/internal/threads"
)

// OpenThreadInput contains parameters for the OpenThread operation.
type OpenThreadInput struct {
	Platform string `json:"platform"`
	UserID   string `json:"user_id"`
}

// OpenThreadOutput contains the result of the OpenThread operation.
type OpenThreadOutput struct {
	*threads.Thread
	Created bool `json:"created"`
}

// OpenThread returns the identity's thread, creating it on first contact.
func OpenThread(ctx context.Context, store threads.Store, input OpenThreadInput) (*OpenThreadOutput, error) {
	id := threads.Identity{
		Platform: strings.TrimSpace(input.Platform),
		UserID:   strings.TrimSpace(input.UserID),
	}
	th, created, err := store.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	return &OpenThreadOutput{Thread: th, Created: created}, nil
}

// ThreadStatusInput contains parameters for the ThreadStatus operation.
type ThreadStatusInput struct {
	ThreadID string `json:"thread_id"`
}

// ThreadStatus returns a thread with its live pending request. A request
// found expired is resolved as a rejection first.
func ThreadStatus(ctx context.Context, gate *approval.Gate, input ThreadStatusInput) (*threads.Thread, error) {
	if input.ThreadID == "" {
		return nil, errors.NewInvalidRequest("thread_id is required")
	}
	if _, err := gate.Pending(ctx, input.ThreadID); err != nil {
		return nil, err
	}
	return gate.Store().Get(ctx, input.ThreadID)
}

// DeleteThreadInput contains parameters for the DeleteThread operation.
type DeleteThreadInput struct {
	ThreadID string `json:"thread_id"`
}

// DeleteThreadOutput contains the result of the DeleteThread operation.
type DeleteThreadOutput struct {
	ThreadID string `json:"thread_id"`
	Deleted  bool   `json:"deleted"`
}

// DeleteThread removes a thread and any pending request it holds.
func DeleteThread(ctx context.Context, store threads.Store, input DeleteThreadInput) (*DeleteThreadOutput, error) {
	if input.ThreadID == "" {
		return nil, errors.NewInvalidRequest("thread_id is required")
	}
	if err := store.Delete(ctx, input.ThreadID); err != nil {
		return nil, err
	}
	return &DeleteThreadOutput{ThreadID: input.ThreadID, Deleted: true}, nil
}

// ListThreadsOutput contains the result of the ListThreads operation.
type ListThreadsOutput struct {
	Threads []*threads.Thread `json:"threads"`
	Count   int               `json:"count"`
	Pending int               `json:"pending"`
}

// ListThreads returns every thread, most recently active first.
func ListThreads(ctx context.Context, store threads.Store) (*ListThreadsOutput, error) {
	list, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := &ListThreadsOutput{Threads: list, Count: len(list)}
	for _, th := range list {
		if th.Pending != nil {
			out.Pending++
		}
	}
	return out, nil
}
