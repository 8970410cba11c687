package assignment_test

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dwatkins/billtrack/internal/assignment"
	"github.com/dwatkins/billtrack/internal/domain"
	"github.com/dwatkins/billtrack/internal/store"
)

// memStore is a shared in-memory backing store for the fake
// repositories. All mutation goes through its mutex.
type memStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
	bills map[uuid.UUID]*domain.Bill
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[uuid.UUID]*domain.User),
		bills: make(map[uuid.UUID]*domain.Bill),
	}
}

func (s *memStore) addUser(t *testing.T, email string) uuid.UUID {
	t.Helper()

	user, err := domain.NewUser(email, "Test User")
	require.NoError(t, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return user.ID
}

func (s *memStore) addBill(t *testing.T, stage domain.BillStage, assignee *uuid.UUID) uuid.UUID {
	t.Helper()

	bill, err := domain.NewBill("Test bill", 1000)
	require.NoError(t, err)
	bill.Stage = stage
	bill.AssignedTo = assignee
	if stage != domain.StageDraft {
		now := time.Now().UTC()
		bill.SetStageEnteredAt(stage, now)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills[bill.ID] = bill
	return bill.ID
}

func (s *memStore) getBill(t *testing.T, id uuid.UUID) *domain.Bill {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()
	bill, ok := s.bills[id]
	require.True(t, ok, "bill %s not in store", id)
	copied := *bill
	return &copied
}

// memBillRepo is an in-memory BillRepository over a memStore.
type memBillRepo struct {
	store      *memStore
	countCalls atomic.Int64
}

var _ assignment.BillRepository = (*memBillRepo)(nil)

func (r *memBillRepo) GetByIDForUpdate(
	_ context.Context,
	id uuid.UUID,
) (*domain.Bill, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	bill, ok := r.store.bills[id]
	if !ok {
		return nil, store.ErrBillNotFound
	}
	copied := *bill
	return &copied, nil
}

func (r *memBillRepo) CountAssignedInStages(
	_ context.Context,
	userID uuid.UUID,
	stages []domain.BillStage,
) (int, error) {
	r.countCalls.Add(1)

	active := make(map[domain.BillStage]bool, len(stages))
	for _, stage := range stages {
		active[stage] = true
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	count := 0
	for _, bill := range r.store.bills {
		if bill.AssignedTo != nil && *bill.AssignedTo == userID && active[bill.Stage] {
			count++
		}
	}
	return count, nil
}

func (r *memBillRepo) UpdateAssignment(_ context.Context, bill *domain.Bill) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.bills[bill.ID]; !ok {
		return store.ErrBillNotFound
	}
	copied := *bill
	r.store.bills[bill.ID] = &copied
	return nil
}

func (r *memBillRepo) WithTx(_ *sql.Tx) assignment.BillRepository {
	return r
}

// memUserRepo is an in-memory UserRepository over a memStore.
type memUserRepo struct {
	store *memStore
}

var _ assignment.UserRepository = (*memUserRepo)(nil)

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	user, ok := r.store.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) WithTx(_ *sql.Tx) assignment.UserRepository {
	return r
}

// memTxRunner serializes transaction functions under a mutex so
// concurrent assignment attempts observe each other's committed state,
// the way serialized database transactions would. An optional script
// can fail a call before the function runs, which is how transient
// conflicts are injected.
type memTxRunner struct {
	mu     sync.Mutex
	calls  atomic.Int64
	script func(call int64) error
}

var _ assignment.TxRunner = (*memTxRunner)(nil)

func (r *memTxRunner) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	call := r.calls.Add(1)
	if r.script != nil {
		if err := r.script(call); err != nil {
			return err
		}
	}
	return fn(ctx, nil)
}

// testEnv bundles the fakes behind a service for assignment tests.
type testEnv struct {
	store *memStore
	bills *memBillRepo
	users *memUserRepo
	tx    *memTxRunner
	cache *assignment.CapacityCache
	svc   assignment.Service
}

func newTestEnv(t *testing.T, opts ...func(*assignment.ServiceConfig)) *testEnv {
	t.Helper()

	ms := newMemStore()
	env := &testEnv{
		store: ms,
		bills: &memBillRepo{store: ms},
		users: &memUserRepo{store: ms},
		tx:    &memTxRunner{},
		cache: assignment.NewCapacityCache(time.Minute),
	}

	cfg := assignment.ServiceConfig{
		Bills: env.bills,
		Users: env.users,
		Tx:    env.tx,
		Cache: env.cache,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	svc, err := assignment.NewService(cfg)
	require.NoError(t, err)
	env.svc = svc
	return env
}
