// Package workflow encodes the bill workflow policy: which stages count
// toward a user's assignment cap, which stages a bill can be picked up
// from, and how an assignment moves a bill through the stage progression.
// Everything in this package is pure computation over domain values; it
// never touches storage.
package workflow

import (
	"errors"
	"fmt"

	"github.com/dwatkins/billtrack/internal/domain"
)

// Common errors
var (
	ErrNilBill            = errors.New("bill cannot be nil")
	ErrStageNotAssignable = errors.New("bill stage is not assignable")
	ErrNoActiveStages     = errors.New("policy must declare at least one active stage")
	ErrNoAssignableStages = errors.New("policy must declare at least one assignable stage")
	ErrInvalidMaxAssigned = errors.New("policy max assigned bills must be at least 1")
)

// Policy defines the configurable workflow rules that the assignment
// protocol consults. The stage sets are policy, not code: whether an
// on-hold bill still occupies one of a user's slots is a product
// decision and can be changed here without touching the protocol.
type Policy struct {
	// MaxAssigned is the cap on bills a user may hold in an active
	// stage at the same time.
	MaxAssigned int

	// ActiveStages are the stages whose bills count toward MaxAssigned.
	ActiveStages []domain.BillStage

	// AssignableStages are the stages an unassigned bill may be picked
	// up from. Must be a subset of ActiveStages.
	AssignableStages []domain.BillStage

	active     map[domain.BillStage]struct{}
	assignable map[domain.BillStage]struct{}
}

// PolicyConfig allows overriding the default policy values.
// Zero-valued fields keep their defaults.
type PolicyConfig struct {
	MaxAssigned      int
	ActiveStages     []domain.BillStage
	AssignableStages []domain.BillStage
}

// NewDefaultPolicy returns the standard workflow policy: a cap of three
// bills, with draft, submitted, in-review and on-hold bills occupying
// slots, and draft or submitted bills eligible for pickup.
func NewDefaultPolicy() *Policy {
	p, err := NewPolicy(PolicyConfig{})
	if err != nil {
		// Defaults are statically known to be valid.
		panic(fmt.Sprintf("default workflow policy invalid: %v", err))
	}
	return p
}

// NewPolicy builds a Policy from the given config, applying defaults for
// unset fields and validating the result.
func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	p := &Policy{
		MaxAssigned:      cfg.MaxAssigned,
		ActiveStages:     cfg.ActiveStages,
		AssignableStages: cfg.AssignableStages,
	}

	if p.MaxAssigned == 0 {
		p.MaxAssigned = 3
	}
	if len(p.ActiveStages) == 0 {
		p.ActiveStages = []domain.BillStage{
			domain.StageDraft,
			domain.StageSubmitted,
			domain.StageInReview,
			domain.StageOnHold,
		}
	}
	if len(p.AssignableStages) == 0 {
		p.AssignableStages = []domain.BillStage{
			domain.StageDraft,
			domain.StageSubmitted,
		}
	}

	if err := p.validate(); err != nil {
		return nil, err
	}

	p.active = make(map[domain.BillStage]struct{}, len(p.ActiveStages))
	for _, s := range p.ActiveStages {
		p.active[s] = struct{}{}
	}
	p.assignable = make(map[domain.BillStage]struct{}, len(p.AssignableStages))
	for _, s := range p.AssignableStages {
		p.assignable[s] = struct{}{}
	}

	return p, nil
}

// validate checks the policy for internal consistency.
func (p *Policy) validate() error {
	if p.MaxAssigned < 1 {
		return ErrInvalidMaxAssigned
	}
	if len(p.ActiveStages) == 0 {
		return ErrNoActiveStages
	}
	if len(p.AssignableStages) == 0 {
		return ErrNoAssignableStages
	}

	active := make(map[domain.BillStage]struct{}, len(p.ActiveStages))
	for _, s := range p.ActiveStages {
		if !s.IsValid() {
			return fmt.Errorf("%w: active stage %q", domain.ErrInvalidStage, s)
		}
		active[s] = struct{}{}
	}
	for _, s := range p.AssignableStages {
		if !s.IsValid() {
			return fmt.Errorf("%w: assignable stage %q", domain.ErrInvalidStage, s)
		}
		if _, ok := active[s]; !ok {
			return fmt.Errorf(
				"assignable stage %q is not an active stage", s)
		}
	}

	return nil
}

// IsActive reports whether bills in the given stage count toward the
// assignment cap.
func (p *Policy) IsActive(stage domain.BillStage) bool {
	_, ok := p.active[stage]
	return ok
}

// IsAssignable reports whether an unassigned bill in the given stage may
// be picked up.
func (p *Policy) IsAssignable(stage domain.BillStage) bool {
	_, ok := p.assignable[stage]
	return ok
}
