package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/dwatkins/billtrack/internal/domain"
)

// BillStore defines the interface for bill data persistence.
type BillStore interface {
	// Create saves a new bill to the store.
	// Returns validation errors from the domain Bill if data is invalid.
	Create(ctx context.Context, bill *domain.Bill) error

	// GetByID retrieves a bill by its unique ID.
	// Returns ErrBillNotFound if the bill does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Bill, error)

	// GetByIDForUpdate retrieves a bill by its unique ID and locks the
	// row for the remainder of the enclosing transaction. Must only be
	// called on a store bound to a transaction via WithTx.
	// Returns ErrBillNotFound if the bill does not exist, and
	// ErrTransientConflict if the row lock could not be acquired within
	// the database's bounded lock wait.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Bill, error)

	// CountAssignedInStages returns how many bills are assigned to the
	// given user and currently sit in one of the given stages. Inside a
	// transaction this is the authoritative capacity count.
	CountAssignedInStages(
		ctx context.Context,
		userID uuid.UUID,
		stages []domain.BillStage,
	) (int, error)

	// ListByAssignee retrieves all bills currently assigned to a user,
	// newest first.
	ListByAssignee(ctx context.Context, userID uuid.UUID) ([]*domain.Bill, error)

	// UpdateAssignment writes the bill's assignee, stage, stage-entry
	// timestamps and updated-at in a single statement.
	// Returns ErrBillNotFound if the bill does not exist.
	UpdateAssignment(ctx context.Context, bill *domain.Bill) error

	// WithTx returns a new BillStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller
	// (typically a service).
	WithTx(tx *sql.Tx) BillStore
}
