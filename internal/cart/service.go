package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oms-labs/oms-backend/pkg/db/models"
	pkgerrors "github.com/oms-labs/oms-backend/pkg/errors"
	"github.com/oms-labs/oms-backend/pkg/metrics"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes cart persistence operations.
type Service interface {
	Reconcile(ctx context.Context, userID uuid.UUID, desired []LineItemInput) error
	AddItems(ctx context.Context, userID uuid.UUID, items []LineItemInput) ([]models.CartItem, error)
	GetCart(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
	locker   Locker
	rec      *metrics.ReconcileMetrics
}

// NewService builds a cart service backed by the provided stack. The metrics
// argument may be nil.
func NewService(repo CartRepository, tx txRunner, products productLoader, locker Locker, rec *metrics.ReconcileMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: products,
		locker:   locker,
		rec:      rec,
	}, nil
}

// LineItemInput is one (product, quantity) pairing submitted by the client.
type LineItemInput struct {
	ProductID uuid.UUID
	Name      string
	Quantity  int
}

type stockConflict struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// Reconcile replaces the user's persisted cart with the desired line set.
// Matched rows get their quantity updated, new products are created, omitted
// products are deleted, and duplicate rows left behind by plain adds are
// collapsed. The whole batch runs inside one transaction under a per-user
// lease, and every line is stock-checked against its desired quantity. Any
// insufficient line aborts the entire call with a conflict carrying per-line
// detail.
func (s *service) Reconcile(ctx context.Context, userID uuid.UUID, desired []LineItemInput) error {
	start := time.Now()
	if err := validateLines(userID, desired, true); err != nil {
		s.rec.ObserveRun("invalid", time.Since(start))
		return err
	}

	release, err := s.locker.Acquire(ctx, userID.String())
	if err != nil {
		s.rec.ObserveRun("lock_failed", time.Since(start))
		return err
	}
	defer release(ctx)

	var created, updated, deleted int
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		current, err := txRepo.ListByUserForUpdate(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		// First row per product wins; later duplicates are always removed.
		currentByProduct := make(map[uuid.UUID]*models.CartItem, len(current))
		var surplus []uuid.UUID
		for i := range current {
			row := &current[i]
			if _, seen := currentByProduct[row.ProductID]; seen {
				surplus = append(surplus, row.ID)
				continue
			}
			currentByProduct[row.ProductID] = row
		}

		var conflicts []stockConflict
		loaded := make(map[uuid.UUID]*models.Product, len(desired))
		for _, line := range desired {
			product, err := s.products.FindByID(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
						WithDetails(map[string]string{"product_id": line.ProductID.String()})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			if product.Stock < line.Quantity {
				conflicts = append(conflicts, stockConflict{
					ProductID: product.ID.String(),
					Requested: line.Quantity,
					Available: product.Stock,
				})
				continue
			}
			loaded[line.ProductID] = product
		}
		if len(conflicts) > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").WithDetails(conflicts)
		}

		var toCreate []models.CartItem
		desiredSet := make(map[uuid.UUID]struct{}, len(desired))
		for _, line := range desired {
			desiredSet[line.ProductID] = struct{}{}

			if row, ok := currentByProduct[line.ProductID]; ok {
				if row.Quantity == line.Quantity {
					continue
				}
				if err := txRepo.UpdateQuantity(ctx, row.ID, line.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
				}
				updated++
				continue
			}

			name := line.Name
			if name == "" {
				name = loaded[line.ProductID].Name
			}
			toCreate = append(toCreate, models.CartItem{
				UserID:    userID,
				ProductID: line.ProductID,
				Name:      name,
				Quantity:  line.Quantity,
			})
		}

		if len(toCreate) > 0 {
			if _, err := txRepo.CreateBatch(ctx, toCreate); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart lines")
			}
			created = len(toCreate)
		}

		for productID, row := range currentByProduct {
			if _, keep := desiredSet[productID]; keep {
				continue
			}
			surplus = append(surplus, row.ID)
		}
		for _, id := range surplus {
			if err := txRepo.Delete(ctx, id); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		s.rec.ObserveRun(outcomeLabel(err), time.Since(start))
		return err
	}

	s.rec.ObserveRun("applied", time.Since(start))
	s.rec.AddChanges("create", created)
	s.rec.AddChanges("update", updated)
	s.rec.AddChanges("delete", deleted)
	return nil
}

// AddItems unconditionally appends one row per submitted item. No merge with
// existing rows and no stock check, matching the plain "add to cart" UX.
func (s *service) AddItems(ctx context.Context, userID uuid.UUID, items []LineItemInput) ([]models.CartItem, error) {
	if err := validateLines(userID, items, false); err != nil {
		return nil, err
	}

	rows := make([]models.CartItem, 0, len(items))
	for _, line := range items {
		rows = append(rows, models.CartItem{
			UserID:    userID,
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
		})
	}

	created, err := s.repo.CreateBatch(ctx, rows)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart lines")
	}
	return created, nil
}

// GetCart returns the user's persisted cart with product detail joined.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUserWithProduct(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return rows, nil
}

// DeleteAllForUser tears down the user's cart and reports the removed row
// count. A user with no cart rows succeeds with zero.
func (s *service) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	count, err := s.repo.DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
	}
	return count, nil
}

func validateLines(userID uuid.UUID, lines []LineItemInput, rejectDuplicates bool) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var combined error
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for i, line := range lines {
		if line.ProductID == uuid.Nil {
			combined = multierr.Append(combined, fmt.Errorf("line %d: product id is required", i))
		}
		if line.Quantity < 1 {
			combined = multierr.Append(combined, fmt.Errorf("line %d: quantity must be positive", i))
		}
		if rejectDuplicates {
			if _, dup := seen[line.ProductID]; dup {
				combined = multierr.Append(combined, fmt.Errorf("line %d: duplicate product %s", i, line.ProductID))
			}
			seen[line.ProductID] = struct{}{}
		}
	}
	if combined != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, combined, "invalid cart payload")
	}
	return nil
}

func outcomeLabel(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	switch typed.Code() {
	case pkgerrors.CodeConflict:
		return "conflict"
	case pkgerrors.CodeNotFound:
		return "not_found"
	case pkgerrors.CodeValidation:
		return "invalid"
	default:
		return "error"
	}
}
