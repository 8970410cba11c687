package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dwatkins/billtrack/internal/domain"
	"github.com/dwatkins/billtrack/internal/platform/logger"
	"github.com/dwatkins/billtrack/internal/store"
)

// billColumns is the column list shared by every bill SELECT.
const billColumns = `id, title, amount_cents, stage, assigned_to,
	submitted_at, review_started_at, approved_at, paid_at,
	created_at, updated_at`

// PostgresBillStore implements the store.BillStore interface
// using a PostgreSQL database as the storage backend.
type PostgresBillStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresBillStore creates a new PostgreSQL implementation of the
// BillStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresBillStore(db store.DBTX, logger *slog.Logger) *PostgresBillStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresBillStore{
		db:     db,
		logger: logger.With(slog.String("component", "bill_store")),
	}
}

// Ensure PostgresBillStore implements store.BillStore interface
var _ store.BillStore = (*PostgresBillStore)(nil)

// Create implements store.BillStore.Create
// It saves a new bill to the database, handling domain validation.
func (s *PostgresBillStore) Create(ctx context.Context, bill *domain.Bill) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := bill.Validate(); err != nil {
		log.Warn("bill validation failed during create",
			slog.String("error", err.Error()),
			slog.String("bill_id", bill.ID.String()))
		return err
	}

	query := `
		INSERT INTO bills (` + billColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		bill.ID,
		bill.Title,
		bill.AmountCents,
		string(bill.Stage),
		assigneeValue(bill),
		bill.SubmittedAt,
		bill.ReviewStartedAt,
		bill.ApprovedAt,
		bill.PaidAt,
		bill.CreatedAt,
		bill.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create bill",
			slog.String("error", err.Error()),
			slog.String("bill_id", bill.ID.String()))
		return MapError(err)
	}

	log.Info("bill created successfully",
		slog.String("bill_id", bill.ID.String()),
		slog.String("stage", string(bill.Stage)))
	return nil
}

// GetByID implements store.BillStore.GetByID
// It retrieves a bill by its unique ID.
// Returns store.ErrBillNotFound if the bill does not exist.
func (s *PostgresBillStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = $1`
	return s.getBill(ctx, query, id)
}

// GetByIDForUpdate implements store.BillStore.GetByIDForUpdate
// It retrieves a bill by its unique ID with a row lock held for the
// remainder of the enclosing transaction. Lock waits are bounded by
// the lock_timeout that store.RunInTransaction sets; an expired wait
// surfaces as store.ErrTransientConflict.
func (s *PostgresBillStore) GetByIDForUpdate(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = $1 FOR UPDATE`
	return s.getBill(ctx, query, id)
}

// getBill runs a single-row bill query and maps the result.
func (s *PostgresBillStore) getBill(
	ctx context.Context,
	query string,
	id uuid.UUID,
) (*domain.Bill, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		bill       domain.Bill
		stage      string
		assignedTo uuid.NullUUID
	)

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&bill.ID,
		&bill.Title,
		&bill.AmountCents,
		&stage,
		&assignedTo,
		&bill.SubmittedAt,
		&bill.ReviewStartedAt,
		&bill.ApprovedAt,
		&bill.PaidAt,
		&bill.CreatedAt,
		&bill.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("bill not found", slog.String("bill_id", id.String()))
			return nil, store.ErrBillNotFound
		}
		log.Error("failed to get bill",
			slog.String("error", err.Error()),
			slog.String("bill_id", id.String()))
		return nil, MapError(err)
	}

	bill.Stage = domain.BillStage(stage)
	if assignedTo.Valid {
		bill.AssignedTo = &assignedTo.UUID
	}

	return &bill, nil
}

// CountAssignedInStages implements store.BillStore.CountAssignedInStages
// It counts the bills assigned to a user whose stage is in the given
// set. Run inside a transaction, this is the authoritative capacity
// count for that user.
func (s *PostgresBillStore) CountAssignedInStages(
	ctx context.Context,
	userID uuid.UUID,
	stages []domain.BillStage,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(stages) == 0 {
		return 0, nil
	}

	// Expand the stage set into placeholders; pgx through database/sql
	// does not bind Go slices directly.
	placeholders := make([]string, len(stages))
	args := make([]any, 0, len(stages)+1)
	args = append(args, userID)
	for i, stage := range stages {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, string(stage))
	}

	query := `
		SELECT COUNT(*)
		FROM bills
		WHERE assigned_to = $1 AND stage IN (` + strings.Join(placeholders, ", ") + `)
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		log.Error("failed to count assigned bills",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, MapError(err)
	}

	return count, nil
}

// ListByAssignee implements store.BillStore.ListByAssignee
// It retrieves all bills currently assigned to a user, newest first.
func (s *PostgresBillStore) ListByAssignee(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.Bill, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE assigned_to = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to list bills by assignee",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var bills []*domain.Bill
	for rows.Next() {
		var (
			bill       domain.Bill
			stage      string
			assignedTo uuid.NullUUID
		)
		err := rows.Scan(
			&bill.ID,
			&bill.Title,
			&bill.AmountCents,
			&stage,
			&assignedTo,
			&bill.SubmittedAt,
			&bill.ReviewStartedAt,
			&bill.ApprovedAt,
			&bill.PaidAt,
			&bill.CreatedAt,
			&bill.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan bill row",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()))
			return nil, MapError(err)
		}
		bill.Stage = domain.BillStage(stage)
		if assignedTo.Valid {
			bill.AssignedTo = &assignedTo.UUID
		}
		bills = append(bills, &bill)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return bills, nil
}

// UpdateAssignment implements store.BillStore.UpdateAssignment
// It writes the bill's assignee, stage, stage-entry timestamps and
// updated-at in one statement, so an assignment commits atomically.
// Returns store.ErrBillNotFound if the bill does not exist.
func (s *PostgresBillStore) UpdateAssignment(ctx context.Context, bill *domain.Bill) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE bills
		SET assigned_to = $1,
		    stage = $2,
		    submitted_at = $3,
		    review_started_at = $4,
		    approved_at = $5,
		    paid_at = $6,
		    updated_at = $7
		WHERE id = $8
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		assigneeValue(bill),
		string(bill.Stage),
		bill.SubmittedAt,
		bill.ReviewStartedAt,
		bill.ApprovedAt,
		bill.PaidAt,
		bill.UpdatedAt,
		bill.ID,
	)

	if err != nil {
		log.Error("failed to update bill assignment",
			slog.String("error", err.Error()),
			slog.String("bill_id", bill.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "bill"); err != nil {
		return err
	}

	log.Debug("bill assignment updated",
		slog.String("bill_id", bill.ID.String()),
		slog.String("stage", string(bill.Stage)))
	return nil
}

// WithTx implements store.BillStore.WithTx
// It returns a new BillStore instance bound to the provided transaction.
func (s *PostgresBillStore) WithTx(tx *sql.Tx) store.BillStore {
	return &PostgresBillStore{
		db:     tx,
		logger: s.logger,
	}
}

// assigneeValue converts the bill's assignee pointer into a nullable
// database value.
func assigneeValue(bill *domain.Bill) uuid.NullUUID {
	if bill.AssignedTo == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *bill.AssignedTo, Valid: true}
}
