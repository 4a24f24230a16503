package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/oms-labs/oms-backend/api/middleware"
	cartsvc "github.com/oms-labs/oms-backend/internal/cart"
	"github.com/oms-labs/oms-backend/pkg/db/models"
	pkgerrors "github.com/oms-labs/oms-backend/pkg/errors"
)

type stubCartService struct {
	rows         []models.CartItem
	reconcileErr error
	addErr       error
	getErr       error
	reconciled   [][]cartsvc.LineItemInput
	added        [][]cartsvc.LineItemInput
	deleted      int64
}

func (s *stubCartService) Reconcile(ctx context.Context, userID uuid.UUID, desired []cartsvc.LineItemInput) error {
	s.reconciled = append(s.reconciled, desired)
	return s.reconcileErr
}

func (s *stubCartService) AddItems(ctx context.Context, userID uuid.UUID, items []cartsvc.LineItemInput) ([]models.CartItem, error) {
	s.added = append(s.added, items)
	if s.addErr != nil {
		return nil, s.addErr
	}
	return s.rows, nil
}

func (s *stubCartService) GetCart(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.rows, nil
}

func (s *stubCartService) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.deleted, nil
}

func newAuthedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
}

func TestGetCartSuccess(t *testing.T) {
	productID := uuid.New()
	stock := 5
	svc := &stubCartService{rows: []models.CartItem{{
		ID:        uuid.New(),
		ProductID: productID,
		Name:      "Widget",
		Quantity:  2,
		Product:   &models.Product{ID: productID, Name: "Widget", Stock: stock},
	}}}
	handler := GetCart(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newAuthedRequest(http.MethodGet, "/api/v1/cart", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Count != 1 {
		t.Fatalf("expected 1 item got %d", envelope.Data.Count)
	}
	if envelope.Data.Items[0].Stock == nil || *envelope.Data.Items[0].Stock != stock {
		t.Fatal("expected product stock in response")
	}
}

func TestGetCartRequiresAuth(t *testing.T) {
	handler := GetCart(&stubCartService{}, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestReconcileCartSuccess(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{rows: []models.CartItem{{ID: uuid.New(), ProductID: productID, Name: "Widget", Quantity: 3}}}
	handler := ReconcileCart(svc, nil)

	body := `{"products":[{"product_id":"` + productID.String() + `","name":"Widget","quantity":3}]}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newAuthedRequest(http.MethodPut, "/api/v1/cart", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(svc.reconciled) != 1 || len(svc.reconciled[0]) != 1 {
		t.Fatalf("expected one reconcile call with one line, got %v", svc.reconciled)
	}
	if svc.reconciled[0][0].ProductID != productID {
		t.Fatalf("unexpected product id %s", svc.reconciled[0][0].ProductID)
	}

	var envelope struct {
		Message string       `json:"message"`
		Data    cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Message != "cart updated successfully" {
		t.Fatalf("unexpected message %q", envelope.Message)
	}
}

func TestReconcileCartEmptyProductsClearsCart(t *testing.T) {
	svc := &stubCartService{}
	handler := ReconcileCart(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newAuthedRequest(http.MethodPut, "/api/v1/cart", `{"products":[]}`))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(svc.reconciled) != 1 || len(svc.reconciled[0]) != 0 {
		t.Fatalf("expected reconcile with empty set, got %v", svc.reconciled)
	}
}

func TestReconcileCartStockConflict(t *testing.T) {
	conflictErr := pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
		WithDetails([]map[string]any{{"product_id": uuid.NewString(), "requested": 9, "available": 2}})
	svc := &stubCartService{reconcileErr: conflictErr}
	handler := ReconcileCart(svc, nil)

	body := `{"products":[{"product_id":"` + uuid.NewString() + `","quantity":9}]}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newAuthedRequest(http.MethodPut, "/api/v1/cart", body))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Details any    `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeConflict) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
	if envelope.Error.Details == nil {
		t.Fatal("expected conflict details in response")
	}
}

func TestReconcileCartRejectsUnknownFields(t *testing.T) {
	handler := ReconcileCart(&stubCartService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newAuthedRequest(http.MethodPut, "/api/v1/cart", `{"items":[]}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestClearCartReportsRemovedCount(t *testing.T) {
	svc := &stubCartService{deleted: 2}
	handler := ClearCart(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newAuthedRequest(http.MethodDelete, "/api/v1/cart", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["items_removed"] != 2 {
		t.Fatalf("expected 2 removed got %d", envelope.Data["items_removed"])
	}
}

func TestAddCartItemsCreated(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{rows: []models.CartItem{{ID: uuid.New(), ProductID: productID, Quantity: 1}}}
	handler := AddCartItems(svc, nil)

	body := `{"products":[{"product_id":"` + productID.String() + `","name":"Widget","quantity":1}]}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newAuthedRequest(http.MethodPost, "/api/v1/cart", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if len(svc.added) != 1 {
		t.Fatalf("expected one add call got %d", len(svc.added))
	}
}
