package cart

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/oms-labs/oms-backend/pkg/db/models"
	pkgerrors "github.com/oms-labs/oms-backend/pkg/errors"
	"gorm.io/gorm"
)

func TestReconcileReplacesPersistedSet(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	p1, p2, p3 := uuid.New(), uuid.New(), uuid.New()
	repo := newStubRepo(
		models.CartItem{ID: uuid.New(), UserID: userID, ProductID: p1, Name: "one", Quantity: 2},
		models.CartItem{ID: uuid.New(), UserID: userID, ProductID: p3, Name: "three", Quantity: 4},
	)
	products := stubProducts{p1: {Stock: 10}, p2: {Stock: 10}, p3: {Stock: 10}}
	svc := newTestService(t, repo, products)

	desired := []LineItemInput{
		{ProductID: p1, Name: "one", Quantity: 5},
		{ProductID: p2, Name: "two", Quantity: 1},
	}
	if err := svc.Reconcile(context.Background(), userID, desired); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertCartEquals(t, repo, map[uuid.UUID]int{p1: 5, p2: 1})
}

func TestReconcileIsIdempotent(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	p1 := uuid.New()
	repo := newStubRepo()
	products := stubProducts{p1: {Stock: 10}}
	svc := newTestService(t, repo, products)

	desired := []LineItemInput{{ProductID: p1, Name: "one", Quantity: 3}}
	for i := 0; i < 2; i++ {
		if err := svc.Reconcile(context.Background(), userID, desired); err != nil {
			t.Fatalf("pass %d: unexpected error: %v", i, err)
		}
	}

	assertCartEquals(t, repo, map[uuid.UUID]int{p1: 3})
	if len(repo.items) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(repo.items))
	}
}

func TestReconcileDeletesOmittedAndUpdatesKept(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	p1, p2 := uuid.New(), uuid.New()
	repo := newStubRepo(
		models.CartItem{ID: uuid.New(), UserID: userID, ProductID: p1, Name: "one", Quantity: 2},
		models.CartItem{ID: uuid.New(), UserID: userID, ProductID: p2, Name: "two", Quantity: 1},
	)
	products := stubProducts{p1: {Stock: 10}, p2: {Stock: 10}}
	svc := newTestService(t, repo, products)

	desired := []LineItemInput{{ProductID: p1, Quantity: 3}}
	if err := svc.Reconcile(context.Background(), userID, desired); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertCartEquals(t, repo, map[uuid.UUID]int{p1: 3})
}

func TestReconcileCollapsesDuplicateRows(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	p1 := uuid.New()
	repo := newStubRepo(
		models.CartItem{ID: uuid.New(), UserID: userID, ProductID: p1, Name: "one", Quantity: 2},
		models.CartItem{ID: uuid.New(), UserID: userID, ProductID: p1, Name: "one", Quantity: 7},
	)
	products := stubProducts{p1: {Stock: 10}}
	svc := newTestService(t, repo, products)

	desired := []LineItemInput{{ProductID: p1, Quantity: 4}}
	if err := svc.Reconcile(context.Background(), userID, desired); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertCartEquals(t, repo, map[uuid.UUID]int{p1: 4})
	if len(repo.items) != 1 {
		t.Fatalf("expected duplicates collapsed to one row, got %d", len(repo.items))
	}
}

func TestReconcileEmptyDesiredClearsCart(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	p1 := uuid.New()
	repo := newStubRepo(
		models.CartItem{ID: uuid.New(), UserID: userID, ProductID: p1, Name: "one", Quantity: 2},
	)
	svc := newTestService(t, repo, stubProducts{})

	if err := svc.Reconcile(context.Background(), userID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.items) != 0 {
		t.Fatalf("expected empty cart, got %d rows", len(repo.items))
	}
}

func TestReconcileRejectsInsufficientStock(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	p1, p2 := uuid.New(), uuid.New()
	repo := newStubRepo(
		models.CartItem{ID: uuid.New(), UserID: userID, ProductID: p1, Name: "one", Quantity: 2},
	)
	products := stubProducts{p1: {Stock: 3}, p2: {Stock: 10}}
	svc := newTestService(t, repo, products)

	desired := []LineItemInput{
		{ProductID: p1, Quantity: 5},
		{ProductID: p2, Quantity: 1},
	}
	err := svc.Reconcile(context.Background(), userID, desired)
	if err == nil {
		t.Fatal("expected conflict error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error code: %v", err)
	}
	conflicts, ok := typed.Details().([]stockConflict)
	if !ok || len(conflicts) != 1 || conflicts[0].Requested != 5 || conflicts[0].Available != 3 {
		t.Fatalf("unexpected conflict details: %#v", typed.Details())
	}

	// Nothing may change when the batch is rejected.
	assertCartEquals(t, repo, map[uuid.UUID]int{p1: 2})
}

func TestReconcileStockCheckAppliesToCreates(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	p1 := uuid.New()
	repo := newStubRepo()
	products := stubProducts{p1: {Stock: 1}}
	svc := newTestService(t, repo, products)

	err := svc.Reconcile(context.Background(), userID, []LineItemInput{{ProductID: p1, Quantity: 2}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for over-stock create, got %v", err)
	}
	if len(repo.items) != 0 {
		t.Fatalf("expected no rows created, got %d", len(repo.items))
	}
}

func TestReconcileMissingProduct(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	repo := newStubRepo()
	svc := newTestService(t, repo, stubProducts{})

	err := svc.Reconcile(context.Background(), userID, []LineItemInput{{ProductID: uuid.New(), Quantity: 1}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestReconcileValidation(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	svc := newTestService(t, repo, stubProducts{})
	userID := uuid.New()
	p1 := uuid.New()

	cases := []struct {
		name    string
		userID  uuid.UUID
		desired []LineItemInput
	}{
		{"nil user", uuid.Nil, []LineItemInput{{ProductID: p1, Quantity: 1}}},
		{"zero quantity", userID, []LineItemInput{{ProductID: p1, Quantity: 0}}},
		{"missing product id", userID, []LineItemInput{{Quantity: 1}}},
		{"duplicate product", userID, []LineItemInput{{ProductID: p1, Quantity: 1}, {ProductID: p1, Quantity: 2}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Reconcile(context.Background(), tc.userID, tc.desired)
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestReconcileLockFailure(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	svc, err := NewService(repo, stubTxRunner{}, stubProducts{}, failingLocker{}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	rerr := svc.Reconcile(context.Background(), uuid.New(), []LineItemInput{{ProductID: uuid.New(), Quantity: 1}})
	if typed := pkgerrors.As(rerr); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict from lock, got %v", rerr)
	}
}

func TestAddItemsAppendsUnconditionally(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	p1 := uuid.New()
	repo := newStubRepo(
		models.CartItem{ID: uuid.New(), UserID: userID, ProductID: p1, Name: "one", Quantity: 1},
	)
	svc := newTestService(t, repo, stubProducts{})

	created, err := svc.AddItems(context.Background(), userID, []LineItemInput{{ProductID: p1, Name: "one", Quantity: 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected one created row, got %d", len(created))
	}
	if len(repo.items) != 2 {
		t.Fatalf("expected duplicate rows to stack, got %d", len(repo.items))
	}
}

func TestDeleteAllForUser(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	repo := newStubRepo(
		models.CartItem{ID: uuid.New(), UserID: userID, ProductID: uuid.New(), Quantity: 1},
		models.CartItem{ID: uuid.New(), UserID: userID, ProductID: uuid.New(), Quantity: 2},
	)
	svc := newTestService(t, repo, stubProducts{})

	count, err := svc.DeleteAllForUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 deleted, got %d", count)
	}

	count, err = svc.DeleteAllForUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no-op on empty cart, got %d", count)
	}
}

func TestGetCartReturnsRows(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	repo := newStubRepo(
		models.CartItem{ID: uuid.New(), UserID: userID, ProductID: uuid.New(), Name: "one", Quantity: 1},
	)
	svc := newTestService(t, repo, stubProducts{})

	rows, err := svc.GetCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
}

func newTestService(t *testing.T, repo CartRepository, products stubProducts) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, products, stubLocker{}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func assertCartEquals(t *testing.T, repo *stubRepo, want map[uuid.UUID]int) {
	t.Helper()
	got := map[uuid.UUID]int{}
	for _, item := range repo.items {
		got[item.ProductID] = item.Quantity
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d products, got %d", len(want), len(got))
	}
	for productID, qty := range want {
		if got[productID] != qty {
			t.Fatalf("product %s: expected qty %d, got %d", productID, qty, got[productID])
		}
	}
}

type stubRepo struct {
	items []models.CartItem
}

func newStubRepo(seed ...models.CartItem) *stubRepo {
	return &stubRepo{items: seed}
}

func (s *stubRepo) WithTx(tx *gorm.DB) CartRepository { return s }

func (s *stubRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	for _, item := range s.items {
		if item.UserID == userID {
			rows = append(rows, item)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	return rows, nil
}

func (s *stubRepo) ListByUserForUpdate(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return s.ListByUser(ctx, userID)
}

func (s *stubRepo) ListByUserWithProduct(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return s.ListByUser(ctx, userID)
}

func (s *stubRepo) Create(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	s.items = append(s.items, *item)
	return item, nil
}

func (s *stubRepo) CreateBatch(ctx context.Context, items []models.CartItem) ([]models.CartItem, error) {
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		s.items = append(s.items, items[i])
	}
	return items, nil
}

func (s *stubRepo) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Quantity = quantity
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *stubRepo) DeleteAllByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var kept []models.CartItem
	var removed int64
	for _, item := range s.items {
		if item.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept
	return removed, nil
}

type stubProducts map[uuid.UUID]*models.Product

func (s stubProducts) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *product
	copied.ID = id
	return &copied, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubLocker struct{}

func (stubLocker) Acquire(ctx context.Context, userID string) (func(context.Context), error) {
	return func(context.Context) {}, nil
}

type failingLocker struct{}

func (failingLocker) Acquire(ctx context.Context, userID string) (func(context.Context), error) {
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart is busy")
}
