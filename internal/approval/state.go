package approval

import (
	"fmt"

	"github.com/yswa-var/DOCX-agent/internal/threads"
)

// transitions lists the legal moves of an approval request. A proposal with
// nothing to approve passes straight from proposed to resolved.
var transitions = map[threads.RequestState][]threads.RequestState{
	threads.StateProposed:         {threads.StateAwaitingApproval, threads.StateResolved},
	threads.StateAwaitingApproval: {threads.StateApproved, threads.StateRejected},
	threads.StateApproved:         {threads.StateResolved},
	threads.StateRejected:         {threads.StateResolved},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to threads.RequestState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func advance(req *threads.ApprovalRequest, to threads.RequestState) error {
	if !CanTransition(req.State, to) {
		return fmt.Errorf("illegal approval transition %s -> %s", req.State, to)
	}
	req.State = to
	return nil
}
