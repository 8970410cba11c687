package assignment

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/dwatkins/billtrack/internal/domain"
	"github.com/dwatkins/billtrack/internal/platform/postgres"
	"github.com/dwatkins/billtrack/internal/store"
)

// BillRepository is the bill persistence surface the assignment
// protocol needs. It is satisfied by an adapter over store.BillStore so
// tests can substitute deterministic fakes.
type BillRepository interface {
	// GetByIDForUpdate loads a bill and locks its row for the enclosing
	// transaction. Returns store.ErrBillNotFound if absent and
	// store.ErrTransientConflict on an expired lock wait.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Bill, error)

	// CountAssignedInStages returns the user's authoritative active
	// assignment count over the given stages.
	CountAssignedInStages(
		ctx context.Context,
		userID uuid.UUID,
		stages []domain.BillStage,
	) (int, error)

	// UpdateAssignment persists the bill's assignee, stage and stamps
	// atomically.
	UpdateAssignment(ctx context.Context, bill *domain.Bill) error

	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *sql.Tx) BillRepository
}

// UserRepository is the user persistence surface the assignment
// protocol needs.
type UserRepository interface {
	// GetByID returns store.ErrUserNotFound if the user is absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *sql.Tx) UserRepository
}

// TxRunner runs a function inside a database transaction, committing on
// nil and rolling back on error. The production implementation wraps
// store.RunInTransaction; tests substitute one that drives the retry
// controller deterministically.
type TxRunner interface {
	RunInTransaction(ctx context.Context, fn store.TxFn) error
}

// Service exposes the two operations the surrounding application calls.
type Service interface {
	// AssignBill assigns the bill to the user, advancing the bill's
	// stage and stamping its stage-entry timestamp as one atomic
	// transaction. Business-rule rejections surface as this package's
	// sentinel errors; transient transaction conflicts are retried up
	// to the configured bound before surfacing ErrConcurrentUpdate.
	AssignBill(ctx context.Context, userID, billID uuid.UUID) (*domain.Bill, error)

	// CheckCapacity returns the user's capacity view, served from the
	// cache when fresh. The view is advisory and intended for
	// pre-flight UI hints, not enforcement.
	CheckCapacity(ctx context.Context, userID uuid.UUID) (CapacityView, error)
}

// sqlTxRunner is the production TxRunner over a *sql.DB.
type sqlTxRunner struct {
	db *sql.DB
}

// NewSQLTxRunner creates a TxRunner that executes functions through
// store.RunInTransaction on the given database handle.
func NewSQLTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

// RunInTransaction implements TxRunner. Errors raised by the
// transaction machinery itself are mapped through postgres.MapError:
// Postgres can reject a serializable transaction at COMMIT (SQLSTATE
// 40001), and that failure must classify as store.ErrTransientConflict
// so the retry controller sees it.
func (r *sqlTxRunner) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	if err := store.RunInTransaction(ctx, r.db, fn); err != nil {
		return postgres.MapError(err)
	}
	return nil
}

// billRepositoryAdapter adapts a store.BillStore to BillRepository.
type billRepositoryAdapter struct {
	store store.BillStore
}

// NewBillRepository wraps a store.BillStore as a BillRepository.
func NewBillRepository(s store.BillStore) BillRepository {
	return &billRepositoryAdapter{store: s}
}

func (a *billRepositoryAdapter) GetByIDForUpdate(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Bill, error) {
	return a.store.GetByIDForUpdate(ctx, id)
}

func (a *billRepositoryAdapter) CountAssignedInStages(
	ctx context.Context,
	userID uuid.UUID,
	stages []domain.BillStage,
) (int, error) {
	return a.store.CountAssignedInStages(ctx, userID, stages)
}

func (a *billRepositoryAdapter) UpdateAssignment(
	ctx context.Context,
	bill *domain.Bill,
) error {
	return a.store.UpdateAssignment(ctx, bill)
}

func (a *billRepositoryAdapter) WithTx(tx *sql.Tx) BillRepository {
	return &billRepositoryAdapter{store: a.store.WithTx(tx)}
}

// userRepositoryAdapter adapts a store.UserStore to UserRepository.
type userRepositoryAdapter struct {
	store store.UserStore
}

// NewUserRepository wraps a store.UserStore as a UserRepository.
func NewUserRepository(s store.UserStore) UserRepository {
	return &userRepositoryAdapter{store: s}
}

func (a *userRepositoryAdapter) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*domain.User, error) {
	return a.store.GetByID(ctx, id)
}

func (a *userRepositoryAdapter) WithTx(tx *sql.Tx) UserRepository {
	return &userRepositoryAdapter{store: a.store.WithTx(tx)}
}
