package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Bill-specific validation errors
var (
	// ErrBillIDEmpty is returned when a bill ID is empty or nil.
	ErrBillIDEmpty = errors.New("bill ID cannot be empty")

	// ErrBillTitleEmpty is returned when a bill's title is empty.
	ErrBillTitleEmpty = errors.New("bill title cannot be empty")

	// ErrBillAmountNegative is returned when a bill's amount is negative.
	ErrBillAmountNegative = errors.New("bill amount cannot be negative")

	// ErrBillStageInvalid is returned when a bill's stage is not a known
	// workflow stage.
	ErrBillStageInvalid = errors.New("bill stage is not a known workflow stage")
)

// BillStage identifies a bill's position in the tracking workflow.
// The stage values form a fixed, ordered progression; which stages count
// as active or assignable is decided by workflow.Policy, not here.
type BillStage string

// Workflow stages, in progression order.
const (
	StageDraft     BillStage = "draft"
	StageSubmitted BillStage = "submitted"
	StageInReview  BillStage = "in_review"
	StageApproved  BillStage = "approved"
	StageOnHold    BillStage = "on_hold"
	StagePaid      BillStage = "paid"
	StageRejected  BillStage = "rejected"
)

// BillStages lists every known stage in progression order.
var BillStages = []BillStage{
	StageDraft,
	StageSubmitted,
	StageInReview,
	StageApproved,
	StageOnHold,
	StagePaid,
	StageRejected,
}

// ParseBillStage converts a string to a BillStage.
// Returns ErrBillStageInvalid if the value is not a known stage.
func ParseBillStage(s string) (BillStage, error) {
	stage := BillStage(strings.ToLower(strings.TrimSpace(s)))
	if !stage.IsValid() {
		return "", ErrBillStageInvalid
	}
	return stage, nil
}

// IsValid reports whether the stage is one of the known workflow stages.
func (s BillStage) IsValid() bool {
	switch s {
	case StageDraft, StageSubmitted, StageInReview, StageApproved,
		StageOnHold, StagePaid, StageRejected:
		return true
	}
	return false
}

// Bill represents a tracked bill that can be assigned to a user.
// Stage-entry timestamps record when a bill first reached a stage and,
// once set, are never overwritten.
type Bill struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	AmountCents int64      `json:"amount_cents"`
	Stage       BillStage  `json:"stage"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`

	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ReviewStartedAt *time.Time `json:"review_started_at,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBill creates a new unassigned Bill in the draft stage.
// It generates a new UUID for the bill ID and sets the creation/update
// timestamps. Returns an error if validation fails.
func NewBill(title string, amountCents int64) (*Bill, error) {
	bill := &Bill{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(title),
		AmountCents: amountCents,
		Stage:       StageDraft,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := bill.Validate(); err != nil {
		return nil, err
	}

	return bill, nil
}

// Validate checks if the Bill has valid data.
// Returns an error if any field fails validation.
func (b *Bill) Validate() error {
	if b.ID == uuid.Nil {
		return ErrBillIDEmpty
	}

	if b.Title == "" {
		return ErrBillTitleEmpty
	}

	if b.AmountCents < 0 {
		return ErrBillAmountNegative
	}

	if !b.Stage.IsValid() {
		return ErrBillStageInvalid
	}

	return nil
}

// IsAssigned reports whether the bill currently has an owner.
func (b *Bill) IsAssigned() bool {
	return b.AssignedTo != nil && *b.AssignedTo != uuid.Nil
}

// StageEnteredAt returns the timestamp recorded for entering the given
// stage, or nil if the bill has not entered that stage or the stage has
// no tracked entry timestamp.
func (b *Bill) StageEnteredAt(stage BillStage) *time.Time {
	switch stage {
	case StageSubmitted:
		return b.SubmittedAt
	case StageInReview:
		return b.ReviewStartedAt
	case StageApproved:
		return b.ApprovedAt
	case StagePaid:
		return b.PaidAt
	}
	return nil
}

// SetStageEnteredAt records the entry timestamp for the given stage.
// The timestamp is only written if it has not been set before, keeping
// stamping idempotent.
func (b *Bill) SetStageEnteredAt(stage BillStage, t time.Time) {
	switch stage {
	case StageSubmitted:
		if b.SubmittedAt == nil {
			b.SubmittedAt = &t
		}
	case StageInReview:
		if b.ReviewStartedAt == nil {
			b.ReviewStartedAt = &t
		}
	case StageApproved:
		if b.ApprovedAt == nil {
			b.ApprovedAt = &t
		}
	case StagePaid:
		if b.PaidAt == nil {
			b.PaidAt = &t
		}
	}
}
