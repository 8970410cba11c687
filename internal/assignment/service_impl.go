package assignment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dwatkins/billtrack/internal/domain"
	"github.com/dwatkins/billtrack/internal/domain/workflow"
	"github.com/dwatkins/billtrack/internal/platform/logger"
	"github.com/dwatkins/billtrack/internal/platform/metrics"
	"github.com/dwatkins/billtrack/internal/redact"
	"github.com/dwatkins/billtrack/internal/store"
)

// defaultMaxAttempts bounds how many times a transient transaction
// conflict is retried before surfacing ErrConcurrentUpdate.
const defaultMaxAttempts = 3

// ServiceConfig holds the dependencies for the assignment service.
type ServiceConfig struct {
	Bills   BillRepository
	Users   UserRepository
	Tx      TxRunner
	Cache   *CapacityCache
	Policy  *workflow.Policy
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// MaxAttempts bounds transaction retries; zero means the default.
	MaxAttempts int
}

// serviceImpl implements the Service interface.
type serviceImpl struct {
	bills       BillRepository
	users       UserRepository
	tx          TxRunner
	cache       *CapacityCache
	policy      *workflow.Policy
	metrics     *metrics.Metrics
	logger      *slog.Logger
	maxAttempts int
	now         func() time.Time
}

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

// NewService creates the assignment service.
// It returns an error if any of the required dependencies are nil.
func NewService(cfg ServiceConfig) (Service, error) {
	if cfg.Bills == nil {
		return nil, domain.NewValidationError("bills", "cannot be nil", domain.ErrValidation)
	}
	if cfg.Users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	}
	if cfg.Tx == nil {
		return nil, domain.NewValidationError("tx", "cannot be nil", domain.ErrValidation)
	}
	if cfg.Cache == nil {
		return nil, domain.NewValidationError("cache", "cannot be nil", domain.ErrValidation)
	}

	policy := cfg.Policy
	if policy == nil {
		policy = workflow.NewDefaultPolicy()
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &serviceImpl{
		bills:       cfg.Bills,
		users:       cfg.Users,
		tx:          cfg.Tx,
		cache:       cfg.Cache,
		policy:      policy,
		metrics:     m,
		logger:      log.With(slog.String("component", "assignment_service")),
		maxAttempts: maxAttempts,
		now:         time.Now,
	}, nil
}

// AssignBill implements Service.AssignBill.
//
// The cache is consulted only as a fast-path rejection for users already
// known to be at their cap; every other decision happens inside the
// transaction, where the capacity count is re-derived authoritatively.
// Transient conflicts (serialization failures, deadlock victims,
// expired lock waits) are retried up to maxAttempts with the caller's
// context checked between attempts; an in-flight attempt is always
// allowed to finish or roll back cleanly.
func (s *serviceImpl) AssignBill(
	ctx context.Context,
	userID, billID uuid.UUID,
) (*domain.Bill, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	start := s.now()
	defer func() {
		s.metrics.AssignmentDuration.Observe(time.Since(start).Seconds())
	}()

	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user ID cannot be empty", domain.ErrInvalidID)
	}
	if billID == uuid.Nil {
		return nil, fmt.Errorf("%w: bill ID cannot be empty", domain.ErrInvalidID)
	}

	// Fast path: a fresh FULL view means the transaction cannot
	// succeed, so skip it. A stale AVAILABLE view is harmless; the
	// in-transaction recount still enforces the cap.
	view, lookup := s.cache.Lookup(userID)
	s.metrics.CacheLookups.WithLabelValues(string(lookup)).Inc()
	if lookup == LookupHit && view.Status == StatusFull {
		log.Debug("assignment rejected by cached capacity view",
			slog.String("user_id", userID.String()),
			slog.String("bill_id", billID.String()))
		s.metrics.AssignmentOutcomes.WithLabelValues(KindUserBillLimitExceeded.Code).Inc()
		return nil, ErrUserBillLimitExceeded
	}

	var bill *domain.Bill
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		// Honor caller cancellation between attempts; never interrupt
		// an attempt mid-transaction.
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Warn("assignment canceled between attempts",
				slog.String("user_id", userID.String()),
				slog.String("bill_id", billID.String()),
				slog.Int("attempt", attempt))
			return nil, ctxErr
		}

		bill, err = s.assignOnce(ctx, userID, billID)
		if err == nil {
			// Invalidate before returning so the next capacity read
			// recomputes rather than serving the pre-commit view.
			s.cache.Invalidate(userID)
			log.Info("bill assigned",
				slog.String("user_id", userID.String()),
				slog.String("bill_id", billID.String()),
				slog.String("stage", string(bill.Stage)),
				slog.Int("attempt", attempt))
			s.metrics.AssignmentOutcomes.WithLabelValues("ASSIGNED").Inc()
			return bill, nil
		}

		if store.IsTransientError(err) {
			s.metrics.AssignmentRetries.Inc()
			log.Debug("transient conflict during assignment, retrying",
				slog.String("user_id", userID.String()),
				slog.String("bill_id", billID.String()),
				slog.Int("attempt", attempt),
				slog.String("error", redact.Error(err)))
			continue
		}

		if isTerminal(err) {
			log.Debug("assignment rejected",
				slog.String("user_id", userID.String()),
				slog.String("bill_id", billID.String()),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			s.metrics.AssignmentOutcomes.WithLabelValues(Classify(err).Code).Inc()
			return nil, err
		}

		// Unclassified persistence failure: log the full cause for
		// operators, surface only the opaque kind to the caller.
		log.Error("assignment failed with unclassified error",
			slog.String("operation", "assign_bill"),
			slog.String("user_id", userID.String()),
			slog.String("bill_id", billID.String()),
			slog.Int("attempt", attempt),
			slog.String("error", redact.Error(err)))
		s.metrics.AssignmentOutcomes.WithLabelValues(KindUnknown.Code).Inc()
		return nil, fmt.Errorf("assign bill: %w", err)
	}

	log.Warn("assignment attempts exhausted on transient conflicts",
		slog.String("user_id", userID.String()),
		slog.String("bill_id", billID.String()),
		slog.Int("max_attempts", s.maxAttempts),
		slog.String("last_error", redact.Error(err)))
	s.metrics.AssignmentOutcomes.WithLabelValues(KindConcurrentUpdate.Code).Inc()
	return nil, ErrConcurrentUpdate
}

// assignOnce runs one transactional attempt of the assignment protocol.
// All reads and the final write happen inside a single transaction with
// the bill row locked, so no intermediate state is ever observable.
func (s *serviceImpl) assignOnce(
	ctx context.Context,
	userID, billID uuid.UUID,
) (*domain.Bill, error) {
	var assigned *domain.Bill

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		users := s.users.WithTx(tx)
		bills := s.bills.WithTx(tx)

		// 1. The assignee must exist.
		if _, err := users.GetByID(ctx, userID); err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		// 2. Authoritative capacity check. Mandatory even when the
		// cached fast path already passed: this recount is the sole
		// guard of the cap invariant.
		count, err := bills.CountAssignedInStages(ctx, userID, s.policy.ActiveStages)
		if err != nil {
			return fmt.Errorf("failed to count active assignments: %w", err)
		}
		if count >= s.policy.MaxAssigned {
			return ErrUserBillLimitExceeded
		}

		// 3. Load and lock the bill row. Concurrent assignments of the
		// same bill serialize here.
		bill, err := bills.GetByIDForUpdate(ctx, billID)
		if err != nil {
			if errors.Is(err, store.ErrBillNotFound) {
				return ErrBillNotFound
			}
			return fmt.Errorf("failed to load bill: %w", err)
		}

		// 4. The bill must be unclaimed.
		if bill.IsAssigned() {
			return ErrBillAlreadyAssigned
		}

		// 5. The bill must be in an assignable stage.
		if !s.policy.IsAssignable(bill.Stage) {
			return fmt.Errorf("%w: %s", ErrInvalidBillStage, bill.Stage)
		}

		// 6. Plan the stage transition and stamp.
		transition, err := s.policy.PlanAssignment(bill)
		if err != nil {
			return fmt.Errorf("failed to plan stage transition: %w", err)
		}

		// 7. Apply and persist assignee, stage and stamp as one write.
		transition.Apply(bill, s.now().UTC())
		owner := userID
		bill.AssignedTo = &owner

		if err := bills.UpdateAssignment(ctx, bill); err != nil {
			return fmt.Errorf("failed to persist assignment: %w", err)
		}

		assigned = bill
		return nil
	})
	if err != nil {
		return nil, err
	}

	return assigned, nil
}

// CheckCapacity implements Service.CheckCapacity.
// Served from the cache when a fresh entry exists; otherwise the count
// is read through the store and the cache repopulated.
func (s *serviceImpl) CheckCapacity(
	ctx context.Context,
	userID uuid.UUID,
) (CapacityView, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if userID == uuid.Nil {
		return CapacityView{}, fmt.Errorf("%w: user ID cannot be empty", domain.ErrInvalidID)
	}

	view, lookup := s.cache.Lookup(userID)
	s.metrics.CacheLookups.WithLabelValues(string(lookup)).Inc()
	if lookup == LookupHit {
		return view, nil
	}

	count, err := s.bills.CountAssignedInStages(ctx, userID, s.policy.ActiveStages)
	if err != nil {
		log.Error("failed to compute capacity view",
			slog.String("operation", "check_capacity"),
			slog.String("user_id", userID.String()),
			slog.String("error", redact.Error(err)))
		return CapacityView{}, fmt.Errorf("check capacity: %w", err)
	}

	view = NewCapacityView(count, s.policy.MaxAssigned)
	s.cache.Put(userID, view)

	log.Debug("capacity view computed",
		slog.String("user_id", userID.String()),
		slog.Int("active_count", view.ActiveCount),
		slog.String("status", string(view.Status)))
	return view, nil
}
