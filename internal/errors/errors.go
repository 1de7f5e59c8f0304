package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an agent error code.
type ErrorCode string

const (
	ErrInvalidRequest          ErrorCode = "INVALID_REQUEST"           // 400
	ErrNotFound                ErrorCode = "NOT_FOUND"                 // 404
	ErrFileNotFound            ErrorCode = "FILE_NOT_FOUND"            // 404
	ErrAnchorNotFound          ErrorCode = "ANCHOR_NOT_FOUND"          // 404
	ErrNoPendingApproval       ErrorCode = "NO_PENDING_APPROVAL"       // 409
	ErrPendingApprovalConflict ErrorCode = "PENDING_APPROVAL_CONFLICT" // 409
	ErrDocumentParse           ErrorCode = "DOCUMENT_PARSE_ERROR"      // 422
	ErrCancelled               ErrorCode = "CANCELLED"                 // 499
	ErrMutationIO              ErrorCode = "MUTATION_IO_FAILURE"       // 500
	ErrInternal                ErrorCode = "INTERNAL"                  // 500
)

// AgentError represents a structured error with code, status, and details.
type AgentError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *AgentError {
	return &AgentError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing thread or other keyed record.
func NewNotFound(kind, identifier string) *AgentError {
	return &AgentError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing file.
func NewFileNotFound(path string) *AgentError {
	return &AgentError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewAnchorNotFound creates a 404 error for an anchor that does not resolve to a paragraph.
// Callers should re-search the document to obtain a fresh anchor.
func NewAnchorNotFound(anchor string) *AgentError {
	return &AgentError{
		Code:    ErrAnchorNotFound,
		Status:  404,
		Message: fmt.Sprintf("anchor does not resolve to a paragraph: %s", anchor),
		Details: map[string]any{"anchor": anchor},
	}
}

// NewNoPendingApproval creates a 409 error for a decision with nothing to resolve.
func NewNoPendingApproval(threadID string) *AgentError {
	return &AgentError{
		Code:    ErrNoPendingApproval,
		Status:  409,
		Message: "no pending approval found",
		Details: map[string]any{"thread_id": threadID},
	}
}

// NewPendingApprovalConflict creates a 409 error when a thread already waits on a decision.
func NewPendingApprovalConflict(threadID, requestID string) *AgentError {
	return &AgentError{
		Code:    ErrPendingApprovalConflict,
		Status:  409,
		Message: "thread has a pending approval request; approve or reject it first",
		Details: map[string]any{"thread_id": threadID, "request_id": requestID},
	}
}

// NewDocumentParse creates a 422 error for a missing or malformed document.
func NewDocumentParse(path string, err error) *AgentError {
	msg := "cannot parse document"
	if err != nil {
		msg = fmt.Sprintf("cannot parse document: %v", err)
	}
	return &AgentError{
		Code:    ErrDocumentParse,
		Status:  422,
		Message: msg,
		Details: map[string]any{"path": path},
	}
}

// NewMutationIO creates a 500 error when persisting an edit fails.
// The index is left dirty and must be reloaded before reads are trusted.
func NewMutationIO(path string, err error) *AgentError {
	msg := "failed to persist document"
	if err != nil {
		msg = fmt.Sprintf("failed to persist document: %v", err)
	}
	return &AgentError{
		Code:    ErrMutationIO,
		Status:  500,
		Message: msg,
		Details: map[string]any{"path": path},
	}
}

// NewCancelled creates a 499 error for an operation aborted by its context.
func NewCancelled(operation string) *AgentError {
	return &AgentError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *AgentError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &AgentError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// As extracts an *AgentError from err, following wrapped errors.
func As(err error) (*AgentError, bool) {
	var aErr *AgentError
	if stderrors.As(err, &aErr) {
		return aErr, true
	}
	return nil, false
}

// Is checks if an error is (or wraps) an AgentError with the given code.
func Is(err error, code ErrorCode) bool {
	if aErr, ok := As(err); ok {
		return aErr.Code == code
	}
	return false
}
