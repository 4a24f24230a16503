package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/oms-labs/oms-backend/api/middleware"
	"github.com/oms-labs/oms-backend/api/responses"
	"github.com/oms-labs/oms-backend/api/validators"
	cartsvc "github.com/oms-labs/oms-backend/internal/cart"
	"github.com/oms-labs/oms-backend/pkg/db/models"
	pkgerrors "github.com/oms-labs/oms-backend/pkg/errors"
	"github.com/oms-labs/oms-backend/pkg/logger"
)

type cartLinePayload struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type cartWriteRequest struct {
	Products []cartLinePayload `json:"products" validate:"dive"`
}

func (r cartWriteRequest) toInputs() []cartsvc.LineItemInput {
	lines := make([]cartsvc.LineItemInput, len(r.Products))
	for i, payload := range r.Products {
		lines[i] = cartsvc.LineItemInput{
			ProductID: payload.ProductID,
			Name:      payload.Name,
			Quantity:  payload.Quantity,
		}
	}
	return lines
}

type cartLineResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Stock     *int      `json:"stock,omitempty"`
	Price     *string   `json:"price,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type cartResponse struct {
	Items []cartLineResponse `json:"items"`
	Count int                `json:"count"`
}

func newCartResponse(rows []models.CartItem) cartResponse {
	items := make([]cartLineResponse, len(rows))
	for i, row := range rows {
		line := cartLineResponse{
			ID:        row.ID,
			ProductID: row.ProductID,
			Name:      row.Name,
			Quantity:  row.Quantity,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		}
		if row.Product != nil {
			stock := row.Product.Stock
			price := row.Product.Price.StringFixed(2)
			line.Stock = &stock
			line.Price = &price
			if line.Name == "" {
				line.Name = row.Product.Name
			}
		}
		items[i] = line
	}
	return cartResponse{Items: items, Count: len(items)}
}

// GetCart returns the caller's cart rows with product detail attached.
func GetCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.GetCart(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(rows))
	}
}

// ReconcileCart replaces the caller's persisted cart with the submitted
// product set, applying the minimal create/update/delete changes.
func ReconcileCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartWriteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Reconcile(r.Context(), userID, payload.toInputs()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.GetCart(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusOK, "cart updated successfully", newCartResponse(rows))
	}
}

// AddCartItems appends rows to the caller's cart without reconciling
// against what is already persisted.
func AddCartItems(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartWriteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.AddItems(r.Context(), userID, payload.toInputs())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusCreated, "items added to cart", newCartResponse(rows))
	}
}

// ClearCart drops every row in the caller's cart.
func ClearCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		removed, err := svc.DeleteAllForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusOK, "cart cleared", map[string]int64{
			"items_removed": removed,
		})
	}
}

func authedUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id in token")
	}
	return userID, nil
}
