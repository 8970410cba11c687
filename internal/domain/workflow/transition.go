package workflow

import (
	"time"

	"github.com/dwatkins/billtrack/internal/domain"
)

// Transition describes what an assignment must do to a bill's stage:
// the stage the bill ends up in, and which stage-entry timestamp (if
// any) must be stamped as part of the same write.
type Transition struct {
	// NextStage is the stage the bill moves to. Equal to the current
	// stage when assignment does not advance the bill.
	NextStage domain.BillStage

	// StampStage names the stage whose entry timestamp must be set, or
	// "" when no stamping is needed (the timestamp already exists).
	StampStage domain.BillStage
}

// NeedsStamp reports whether the transition requires writing a
// stage-entry timestamp.
func (t Transition) NeedsStamp() bool {
	return t.StampStage != ""
}

// PlanAssignment computes the stage transition an assignment performs on
// the given bill. Picking up a draft bill advances it to submitted;
// picking up an already-submitted bill leaves the stage unchanged. In
// both cases the submitted-entry timestamp is stamped, but only if the
// bill has never been stamped for that stage (stamping is idempotent:
// an existing timestamp is never overwritten).
//
// Returns ErrStageNotAssignable if the bill's stage is not in the
// policy's assignable set; the caller is expected to have rejected such
// bills already.
func (p *Policy) PlanAssignment(bill *domain.Bill) (Transition, error) {
	if bill == nil {
		return Transition{}, ErrNilBill
	}
	if !p.IsAssignable(bill.Stage) {
		return Transition{}, ErrStageNotAssignable
	}

	next := bill.Stage
	if bill.Stage == domain.StageDraft {
		next = domain.StageSubmitted
	}

	t := Transition{NextStage: next}
	if bill.StageEnteredAt(next) == nil {
		t.StampStage = next
	}

	return t, nil
}

// Apply mutates the bill according to the transition: stage, optional
// stage-entry stamp, and the updated-at timestamp. The assignee is the
// caller's concern; Apply only performs the stage bookkeeping.
func (t Transition) Apply(bill *domain.Bill, now time.Time) {
	bill.Stage = t.NextStage
	if t.NeedsStamp() {
		bill.SetStageEnteredAt(t.StampStage, now)
	}
	bill.UpdatedAt = now
}
