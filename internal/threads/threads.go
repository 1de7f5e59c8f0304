// Package threads persists conversation threads and their pending approval.
package threads

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yswa-var/DOCX-agent/internal/tool"
)

// Identity is a chat-platform user. Each identity owns exactly one thread.
type Identity struct {
	Platform string `json:"platform"`
	UserID   string `json:"user_id"`
}

// RequestState is the lifecycle state of an approval request.
type RequestState string

const (
	StateProposed         RequestState = "proposed"
	StateAwaitingApproval RequestState = "awaiting_approval"
	StateApproved         RequestState = "approved"
	StateRejected         RequestState = "rejected"
	StateResolved         RequestState = "resolved"
)

// ApprovalRequest is a suspended batch of tool calls waiting on a human.
// Batch holds every call proposed in the same turn; Batch[Surfaced] is the
// call the human is deciding on.
type ApprovalRequest struct {
	RequestID    string         `json:"request_id"`
	ThreadID     string         `json:"thread_id"`
	Document     string         `json:"document,omitempty"`
	ToolName     string         `json:"tool_name"`
	Arguments    map[string]any `json:"arguments"`
	Description  string         `json:"description"`
	Batch        []tool.Call    `json:"batch"`
	Surfaced     int            `json:"surfaced"`
	Fingerprint  string         `json:"fingerprint,omitempty"`
	ExpectedText *string        `json:"expected_text,omitempty"`
	State        RequestState   `json:"state"`
	CreatedAt    int64          `json:"created_at"`
	ExpiresAt    int64          `json:"expires_at,omitempty"`
}

// Expired reports whether the request has a deadline that has passed.
func (r *ApprovalRequest) Expired(now time.Time) bool {
	return r.ExpiresAt > 0 && now.Unix() >= r.ExpiresAt
}

// Thread is the durable state of one conversation.
type Thread struct {
	ThreadID       string           `json:"thread_id"`
	Identity       Identity         `json:"identity"`
	Pending        *ApprovalRequest `json:"pending_approval"`
	CreatedAt      int64            `json:"created_at"`
	LastActivityAt int64            `json:"last_activity_at"`
}

// Store is the thread registry. Implementations enforce at most one pending
// approval per thread themselves, so the guarantee holds across processes
// sharing the backend.
type Store interface {
	// GetOrCreate returns the identity's thread, creating it on first contact.
	GetOrCreate(ctx context.Context, id Identity) (th *Thread, created bool, err error)
	// Get returns NOT_FOUND for unknown threads.
	Get(ctx context.Context, threadID string) (*Thread, error)
	// SetPending stores req only if the thread has no pending request;
	// otherwise it returns PENDING_APPROVAL_CONFLICT.
	SetPending(ctx context.Context, threadID string, req *ApprovalRequest) error
	// ClearPending removes and returns the pending request if its id matches;
	// otherwise it returns NO_PENDING_APPROVAL. Each request is consumed once.
	ClearPending(ctx context.Context, threadID, requestID string) (*ApprovalRequest, error)
	Touch(ctx context.Context, threadID string, at time.Time) error
	Delete(ctx context.Context, threadID string) error
	List(ctx context.Context) ([]*Thread, error)
	Close() error
}

// NewID returns a new ULID string.
func NewID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
