// Package approval suspends mutating tool calls until a human decides on them.
package approval

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yswa-var/DOCX-agent/internal/errors"
	"github.com/yswa-var/DOCX-agent/internal/threads"
	"github.com/yswa-var/DOCX-agent/internal/tool"
)

// Invoker executes a tool call against the documents.
type Invoker interface {
	Invoke(ctx context.Context, call tool.Call) (any, error)
}

// Snapshot is the state of a call's target at proposal time.
type Snapshot struct {
	Document    string
	Fingerprint string
	Text        *string
}

// Snapshotter is implemented by invokers that can report the current text
// under a call's anchor. The gate stores it so a stale edit is detected on
// approval.
type Snapshotter interface {
	Snapshot(ctx context.Context, call tool.Call) (Snapshot, error)
}

// Status is the overall outcome of a Propose or Resolve.
type Status string

const (
	StatusExecuted        Status = "executed"
	StatusWaitingApproval Status = "waiting_approval"
	StatusCompleted       Status = "completed"
)

// CallStatus is the fate of one call in a batch.
type CallStatus string

const (
	CallExecuted CallStatus = "executed"
	CallRejected CallStatus = "rejected"
	CallSkipped  CallStatus = "skipped"
	CallFailed   CallStatus = "failed"
)

// CallResult reports one call of a batch.
type CallResult struct {
	CallID  string     `json:"call_id,omitempty"`
	Tool    string     `json:"tool"`
	Status  CallStatus `json:"status"`
	Output  any        `json:"output,omitempty"`
	Code    string     `json:"code,omitempty"`
	Error   string     `json:"error,omitempty"`
	Message string     `json:"message,omitempty"`

	err error
}

// Err returns the error of a failed call, or nil.
func (r CallResult) Err() error { return r.err }

// Outcome is returned by Propose and Resolve.
type Outcome struct {
	Status   Status                   `json:"status"`
	ThreadID string                   `json:"thread_id"`
	Message  string                   `json:"message,omitempty"`
	Results  []CallResult             `json:"results"`
	Request  *threads.ApprovalRequest `json:"approval_request,omitempty"`
	// Expired holds the rejection results of a request that timed out
	// before this call.
	Expired []CallResult `json:"expired,omitempty"`
}

// Gate is the approval state machine. Calls for one thread are serialized
// in process; the store serializes across processes.
type Gate struct {
	store        threads.Store
	invoker      Invoker
	logger       *slog.Logger
	ttl          time.Duration
	previewChars int
	now          func() time.Time

	locks keyedMutex
}

// Option configures a Gate.
type Option func(*Gate)

// WithTTL expires pending requests after d. Zero disables expiry.
func WithTTL(d time.Duration) Option {
	return func(g *Gate) { g.ttl = d }
}

// WithPreviewChars sets the new-text preview length in descriptions.
func WithPreviewChars(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.previewChars = n
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// New returns a gate that persists requests in store and runs calls with invoker.
func New(store threads.Store, invoker Invoker, opts ...Option) *Gate {
	g := &Gate{
		store:        store,
		invoker:      invoker,
		logger:       slog.Default(),
		previewChars: DefaultPreviewChars,
		now:          time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Store returns the thread store backing the gate.
func (g *Gate) Store() threads.Store { return g.store }

// Propose runs a batch of calls for a thread. If none requires approval all
// run in order. Otherwise nothing runs: the first approval-requiring call is
// surfaced and the thread waits for Resolve.
func (g *Gate) Propose(ctx context.Context, threadID string, calls []tool.Call) (*Outcome, error) {
	if len(calls) == 0 {
		return nil, errors.NewInvalidRequest("at least one tool call is required")
	}
	calls = append([]tool.Call(nil), calls...)
	for i, c := range calls {
		if err := c.Validate(); err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		// The gate owns this field.
		calls[i].ExpectedText = nil
	}

	unlock := g.locks.Lock(threadID)
	defer unlock()

	th, err := g.store.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}

	out := &Outcome{ThreadID: threadID}
	if p := th.Pending; p != nil {
		if !p.Expired(g.now()) {
			return nil, errors.NewPendingApprovalConflict(threadID, p.RequestID)
		}
		expired, err := g.expire(ctx, p)
		if err != nil {
			return nil, err
		}
		out.Expired = expired.Results
	}
	if err := g.store.Touch(ctx, threadID, g.now()); err != nil {
		return nil, err
	}

	surfaced := firstApproval(calls)
	if surfaced < 0 {
		out.Status = StatusExecuted
		out.Results = g.run(ctx, calls)
		return out, nil
	}

	req, err := g.suspend(ctx, threadID, calls, surfaced)
	if err != nil {
		return nil, err
	}
	out.Status = StatusWaitingApproval
	out.Request = req
	out.Results = []CallResult{}
	out.Message = req.Description
	return out, nil
}

// Resolve applies a human decision to the thread's pending request. The
// request is consumed exactly once; a decision with nothing pending fails
// with NO_PENDING_APPROVAL and changes nothing.
func (g *Gate) Resolve(ctx context.Context, threadID string, approved bool) (*Outcome, error) {
	unlock := g.locks.Lock(threadID)
	defer unlock()

	th, err := g.store.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if th.Pending == nil {
		return nil, errors.NewNoPendingApproval(threadID)
	}

	req, err := g.store.ClearPending(ctx, threadID, th.Pending.RequestID)
	if err != nil {
		return nil, err
	}

	if req.Expired(g.now()) {
		return g.reject(threadID, req, true)
	}
	if !approved {
		return g.reject(threadID, req, false)
	}
	return g.approve(ctx, threadID, req)
}

// Pending returns the thread's live pending request, or nil. An expired
// request is resolved as a rejection first.
func (g *Gate) Pending(ctx context.Context, threadID string) (*threads.ApprovalRequest, error) {
	unlock := g.locks.Lock(threadID)
	defer unlock()

	th, err := g.store.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if th.Pending == nil {
		return nil, nil
	}
	if th.Pending.Expired(g.now()) {
		if _, err := g.expire(ctx, th.Pending); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return th.Pending, nil
}

func (g *Gate) expire(ctx context.Context, p *threads.ApprovalRequest) (*Outcome, error) {
	req, err := g.store.ClearPending(ctx, p.ThreadID, p.RequestID)
	if err != nil {
		if errors.Is(err, errors.ErrNoPendingApproval) {
			// Another process resolved it first.
			return &Outcome{ThreadID: p.ThreadID, Status: StatusCompleted}, nil
		}
		return nil, err
	}
	return g.reject(p.ThreadID, req, true)
}

func (g *Gate) approve(ctx context.Context, threadID string, req *threads.ApprovalRequest) (*Outcome, error) {
	if err := advance(req, threads.StateApproved); err != nil {
		return nil, errors.NewInternal(err)
	}
	batch := req.Batch
	head := append([]tool.Call(nil), batch[:req.Surfaced+1]...)
	head[req.Surfaced].ExpectedText = req.ExpectedText

	// Logged before running: the pending record is already cleared.
	g.logger.Info("approval granted", "thread_id", threadID, "request_id", req.RequestID, "tool", req.ToolName)
	results := g.run(ctx, head)
	_ = advance(req, threads.StateResolved)

	out := &Outcome{ThreadID: threadID, Results: results}
	rest := batch[req.Surfaced+1:]
	for {
		next := firstApproval(rest)
		if next < 0 {
			out.Results = append(out.Results, g.run(ctx, rest)...)
			out.Status = StatusCompleted
			out.Message = "Approved. The " + req.ToolName + " operation was executed."
			return out, nil
		}

		follow, err := g.suspend(ctx, threadID, rest, next)
		if err == nil {
			out.Status = StatusWaitingApproval
			out.Request = follow
			out.Message = follow.Description
			return out, nil
		}
		// A follow-up that cannot be surfaced fails on its own.
		out.Results = append(out.Results, g.run(ctx, rest[:next])...)
		out.Results = append(out.Results, g.failed(rest[next], err))
		rest = rest[next+1:]
	}
}

func (g *Gate) reject(threadID string, req *threads.ApprovalRequest, expired bool) (*Outcome, error) {
	if err := advance(req, threads.StateRejected); err != nil {
		return nil, errors.NewInternal(err)
	}
	surfaced := req.Batch[req.Surfaced].Kind
	results := make([]CallResult, len(req.Batch))
	for i, c := range req.Batch {
		r := CallResult{CallID: c.ID, Tool: c.Kind.Name()}
		if i == req.Surfaced {
			r.Status = CallRejected
			r.Message = cancelledMessage(c.Kind)
		} else {
			r.Status = CallSkipped
			r.Message = skippedMessage(surfaced)
		}
		results[i] = r
	}
	_ = advance(req, threads.StateResolved)

	msg := "Rejected. The " + req.ToolName + " operation was not executed."
	if expired {
		msg = "The approval request expired and was treated as a rejection. The " + req.ToolName + " operation was not executed."
	}
	g.logger.Info("approval rejected", "thread_id", threadID, "request_id", req.RequestID, "tool", req.ToolName, "expired", expired)
	return &Outcome{ThreadID: threadID, Status: StatusCompleted, Message: msg, Results: results}, nil
}

// suspend records calls[surfaced] as the thread's pending request.
func (g *Gate) suspend(ctx context.Context, threadID string, calls []tool.Call, surfaced int) (*threads.ApprovalRequest, error) {
	call := calls[surfaced]
	now := g.now()
	req := &threads.ApprovalRequest{
		RequestID:   threads.NewID(),
		ThreadID:    threadID,
		Document:    call.Document,
		ToolName:    call.Kind.Name(),
		Arguments:   call.Arguments(),
		Description: Describe(call, g.previewChars),
		Batch:       append([]tool.Call(nil), calls...),
		Surfaced:    surfaced,
		State:       threads.StateProposed,
		CreatedAt:   now.Unix(),
	}
	if g.ttl > 0 {
		req.ExpiresAt = now.Add(g.ttl).Unix()
	}
	if snap, ok := g.invoker.(Snapshotter); ok {
		s, err := snap.Snapshot(ctx, call)
		if err != nil {
			return nil, err
		}
		if s.Document != "" {
			req.Document = s.Document
		}
		req.Fingerprint = s.Fingerprint
		req.ExpectedText = s.Text
	}
	if err := advance(req, threads.StateAwaitingApproval); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := g.store.SetPending(ctx, threadID, req); err != nil {
		return nil, err
	}
	g.logger.Info("approval requested", "thread_id", threadID, "request_id", req.RequestID, "tool", req.ToolName)
	return req, nil
}

// run executes calls in order. A failing call does not stop the batch.
func (g *Gate) run(ctx context.Context, calls []tool.Call) []CallResult {
	results := make([]CallResult, 0, len(calls))
	for _, c := range calls {
		output, err := g.invoker.Invoke(ctx, c)
		if err != nil {
			results = append(results, g.failed(c, err))
			continue
		}
		results = append(results, CallResult{CallID: c.ID, Tool: c.Kind.Name(), Status: CallExecuted, Output: output})
	}
	return results
}

func (g *Gate) failed(c tool.Call, err error) CallResult {
	r := CallResult{CallID: c.ID, Tool: c.Kind.Name(), Status: CallFailed, err: err, Error: err.Error()}
	if aErr, ok := errors.As(err); ok {
		r.Code = string(aErr.Code)
		r.Error = aErr.Message
	}
	g.logger.Warn("tool call failed", "tool", r.Tool, "error", err)
	return r
}

func firstApproval(calls []tool.Call) int {
	for i, c := range calls {
		if c.Kind.RequiresApproval() {
			return i
		}
	}
	return -1
}

// keyedMutex hands out one mutex per key and forgets it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
