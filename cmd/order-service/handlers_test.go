package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Abdullraaa/mai-inji/internal/audit"
	"github.com/Abdullraaa/mai-inji/internal/menu"
	"github.com/Abdullraaa/mai-inji/internal/money"
	"github.com/Abdullraaa/mai-inji/internal/order"
	"github.com/Abdullraaa/mai-inji/internal/payment"
	"github.com/Abdullraaa/mai-inji/internal/refund"
	"github.com/Abdullraaa/mai-inji/internal/webhook"
)

//
// ---------- STUBS & FAKES ----------
//

// stubOrders implements the orderStore interface in memory.
type stubOrders struct {
	byID          map[string]*order.Order
	createErr     error
	transitionErr error
	lastTarget    order.Status
	lastActor     audit.ActorType
	transitions   int
}

func newStubOrders() *stubOrders {
	return &stubOrders{byID: map[string]*order.Order{}}
}

func (s *stubOrders) Create(ctx context.Context, in order.CreateInput) (*order.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	o := &order.Order{
		ID:          uuid.NewString(),
		OrderNumber: "MAI-20260901-0001",
		UserID:      in.UserID,
		Status:      order.StatusCreated,
		Subtotal:    50000,
		TotalAmount: 50000,
		Fulfillment: in.Fulfillment,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	s.byID[o.ID] = o
	return o, nil
}

func (s *stubOrders) GetByID(ctx context.Context, id string) (*order.Order, error) {
	o, ok := s.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (s *stubOrders) Transition(ctx context.Context, id string, target order.Status, actorType audit.ActorType, actorID, reason string) (*order.Order, error) {
	if s.transitionErr != nil {
		return nil, s.transitionErr
	}
	o, ok := s.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	if !o.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, o.Status, target)
	}
	o.Status = target
	s.lastTarget = target
	s.lastActor = actorType
	s.transitions++
	return o, nil
}

func (s *stubOrders) List(ctx context.Context, q order.ListQuery) ([]order.Order, int, error) {
	var out []order.Order
	for _, o := range s.byID {
		out = append(out, *o)
	}
	return out, len(out), nil
}

// stubPayments implements the paymentService interface.
type stubPayments struct {
	initErr      error
	verifyErr    error
	verifyOut    *payment.VerifyOutcome
	lastAmount   money.Kobo
	finalized    int
	finalizeErr  error
	initializeds int
}

func (s *stubPayments) Initialize(ctx context.Context, orderID string, amount money.Kobo, email string) (*payment.InitOutcome, error) {
	if s.initErr != nil {
		return nil, s.initErr
	}
	s.lastAmount = amount
	s.initializeds++
	return &payment.InitOutcome{
		PaymentID:        uuid.NewString(),
		AuthorizationURL: "https://checkout.paystack.com/abc123",
		Reference:        "MAI-" + orderID + "-1",
	}, nil
}

func (s *stubPayments) Verify(ctx context.Context, reference string) (*payment.VerifyOutcome, error) {
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return s.verifyOut, nil
}

func (s *stubPayments) FinalizeRefund(ctx context.Context, orderID, actorID string) error {
	s.finalized++
	return s.finalizeErr
}

type stubReconciler struct {
	ack *webhook.Ack
	err error
}

func (s *stubReconciler) Process(ctx context.Context, body []byte) (*webhook.Ack, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ack, nil
}

type stubRefunder struct {
	res *refund.Result
	err error
}

func (s *stubRefunder) Refund(ctx context.Context, orderID, actorID, reason string) (*refund.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.res, nil
}

type stubMenu struct {
	items []menu.Item
	err   error
}

func (s *stubMenu) List(ctx context.Context, includeSoldOut bool) ([]menu.Item, error) {
	return s.items, s.err
}

func (s *stubMenu) Update(ctx context.Context, id string, u menu.ItemUpdate) (*menu.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if u.Price != nil {
			s.items[i].Price = *u.Price
		}
		if u.IsAvailable != nil {
			s.items[i].IsAvailable = *u.IsAvailable
		}
		if u.Description != nil {
			s.items[i].Description = *u.Description
		}
		return &s.items[i], nil
	}
	return nil, menu.ErrNotFound
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func envelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad response body: %s", w.Body.String())
	}
	return out
}

//
// ---------- TESTS ----------
//

func TestCreateOrder_HappyPath(t *testing.T) {
	t.Parallel()

	repo := newStubOrders()
	r := gin.New()
	r.POST("/orders", createOrderHandler(repo))

	body := fmt.Sprintf(`{"items":[{"menu_item_id":%q,"quantity":2}],"fulfillment_type":"PICKUP"}`, uuid.NewString())
	w := doJSON(t, r, http.MethodPost, "/orders", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	env := envelope(t, w)
	if env["success"] != true {
		t.Fatalf("expected success envelope, got %s", w.Body.String())
	}
	if repo.lastTarget != order.StatusPaymentPending {
		t.Fatalf("order not moved to PAYMENT_PENDING, last target %q", repo.lastTarget)
	}
	if repo.lastActor != audit.ActorSystem {
		t.Fatalf("automatic transition should be SYSTEM, got %q", repo.lastActor)
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"no items", `{"items":[],"fulfillment_type":"PICKUP"}`},
		{"zero quantity", `{"items":[{"menu_item_id":"x","quantity":0}],"fulfillment_type":"PICKUP"}`},
		{"missing item id", `{"items":[{"quantity":1}],"fulfillment_type":"PICKUP"}`},
		{"bad fulfillment", `{"items":[{"menu_item_id":"x","quantity":1}],"fulfillment_type":"TELEPORT"}`},
		{"delivery without address", `{"items":[{"menu_item_id":"x","quantity":1}],"fulfillment_type":"DELIVERY"}`},
	}

	repo := newStubOrders()
	r := gin.New()
	r.POST("/orders", createOrderHandler(repo))

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/orders", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
		})
	}
	if repo.transitions != 0 {
		t.Fatalf("rejected requests must not touch the store")
	}
}

func TestCreateOrder_UnknownMenuItem(t *testing.T) {
	t.Parallel()

	repo := newStubOrders()
	repo.createErr = fmt.Errorf("menu item abc: %w", menu.ErrNotFound)
	r := gin.New()
	r.POST("/orders", createOrderHandler(repo))

	body := `{"items":[{"menu_item_id":"abc","quantity":1}],"fulfillment_type":"PICKUP"}`
	w := doJSON(t, r, http.MethodPost, "/orders", body)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.GET("/orders/:id", getOrderHandler(newStubOrders()))

	w := doJSON(t, r, http.MethodGet, "/orders/"+uuid.NewString(), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if env := envelope(t, w); env["success"] != false {
		t.Fatalf("expected error envelope, got %s", w.Body.String())
	}
}

func TestListOrders_UnknownStatusRejected(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.GET("/orders", listOrdersHandler(newStubOrders()))

	w := doJSON(t, r, http.MethodGet, "/orders?status=BOGUS", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestListOrders_Pagination(t *testing.T) {
	t.Parallel()

	repo := newStubOrders()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := repo.Create(ctx, order.CreateInput{
			UserID: "u1", Lines: []order.Line{{MenuItemID: "m", Quantity: 1}}, Fulfillment: order.FulfillmentPickup,
		}); err != nil {
			t.Fatal(err)
		}
	}
	r := gin.New()
	r.GET("/orders", listOrdersHandler(repo))

	w := doJSON(t, r, http.MethodGet, "/orders?page=1&limit=20", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	env := envelope(t, w)
	data := env["data"].(map[string]any)
	pg := data["pagination"].(map[string]any)
	if pg["total_count"].(float64) != 3 || pg["has_next"].(bool) {
		t.Fatalf("unexpected pagination: %v", pg)
	}
}

func TestUpdateOrderStatus_InvalidTransition(t *testing.T) {
	t.Parallel()

	repo := newStubOrders()
	o, _ := repo.Create(context.Background(), order.CreateInput{
		UserID: "u1", Lines: []order.Line{{MenuItemID: "m", Quantity: 1}}, Fulfillment: order.FulfillmentPickup,
	})
	pays := &stubPayments{}
	r := gin.New()
	r.PATCH("/orders/:id/status", updateOrderStatusHandler(repo, pays))

	// CREATED cannot jump straight to PREPARING.
	w := doJSON(t, r, http.MethodPatch, "/orders/"+o.ID+"/status", `{"status":"PREPARING"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPatch, "/orders/"+o.ID+"/status", `{"status":"SHIPPED"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestUpdateOrderStatus_RefundedSettlesPayment(t *testing.T) {
	t.Parallel()

	repo := newStubOrders()
	o, _ := repo.Create(context.Background(), order.CreateInput{
		UserID: "u1", Lines: []order.Line{{MenuItemID: "m", Quantity: 1}}, Fulfillment: order.FulfillmentPickup,
	})
	o.Status = order.StatusRefunding
	pays := &stubPayments{}
	r := gin.New()
	r.PATCH("/orders/:id/status", updateOrderStatusHandler(repo, pays))

	w := doJSON(t, r, http.MethodPatch, "/orders/"+o.ID+"/status", `{"status":"REFUNDED","reason":"customer refunded"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if pays.finalized != 1 {
		t.Fatalf("expected payment settlement, got %d calls", pays.finalized)
	}
	if repo.lastActor != audit.ActorAdmin {
		t.Fatalf("manual transition should be ADMIN, got %q", repo.lastActor)
	}
}

func TestInitializePayment(t *testing.T) {
	t.Parallel()

	repo := newStubOrders()
	o, _ := repo.Create(context.Background(), order.CreateInput{
		UserID: "u1", Lines: []order.Line{{MenuItemID: "m", Quantity: 1}}, Fulfillment: order.FulfillmentPickup,
	})
	pays := &stubPayments{}
	r := gin.New()
	r.POST("/orders/:id/payment", initializePaymentHandler(repo, pays))

	// CREATED is not payable yet.
	w := doJSON(t, r, http.MethodPost, "/orders/"+o.ID+"/payment", `{"user_email":"ada@example.com"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	o.Status = order.StatusPaymentPending
	w = doJSON(t, r, http.MethodPost, "/orders/"+o.ID+"/payment", `{"user_email":"ada@example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if pays.lastAmount != o.TotalAmount {
		t.Fatalf("charged %d, order total %d", pays.lastAmount, o.TotalAmount)
	}

	w = doJSON(t, r, http.MethodPost, "/orders/"+o.ID+"/payment", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing email: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestVerifyPayment(t *testing.T) {
	t.Parallel()

	repo := newStubOrders()
	o, _ := repo.Create(context.Background(), order.CreateInput{
		UserID: "u1", Lines: []order.Line{{MenuItemID: "m", Quantity: 1}}, Fulfillment: order.FulfillmentPickup,
	})
	o.Status = order.StatusPaymentPending
	pays := &stubPayments{verifyOut: &payment.VerifyOutcome{
		OrderID: o.ID, PaymentID: uuid.NewString(), Status: payment.StatusSuccess, Successful: true,
	}}
	r := gin.New()
	r.POST("/orders/payment/verify", verifyPaymentHandler(repo, pays))

	w := doJSON(t, r, http.MethodPost, "/orders/payment/verify", `{"reference":"MAI-x-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if o.Status != order.StatusPaid {
		t.Fatalf("order status %q, want PAID", o.Status)
	}

	// Re-verifying an already-PAID order is tolerated.
	w = doJSON(t, r, http.MethodPost, "/orders/payment/verify", `{"reference":"MAI-x-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("replay: status=%d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/orders/payment/verify", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing reference: status=%d body=%s", w.Code, w.Body.String())
	}

	pays.verifyErr = payment.ErrNotFound
	w = doJSON(t, r, http.MethodPost, "/orders/payment/verify", `{"reference":"unknown"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown reference: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestWebhookHandler_StatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		rec      *stubReconciler
		wantCode int
		wantBody string
	}{
		{"ok", &stubReconciler{ack: &webhook.Ack{Status: "ok"}}, http.StatusOK, `"ok"`},
		{"duplicate acked", &stubReconciler{ack: &webhook.Ack{Status: "ok", Duplicate: true}}, http.StatusOK, `"ok"`},
		{"missing reference", &stubReconciler{err: webhook.ErrMissingReference}, http.StatusBadRequest, `"error"`},
		{"payment not found", &stubReconciler{err: webhook.ErrPaymentNotFound}, http.StatusNotFound, `"error"`},
		{"order not found", &stubReconciler{err: webhook.ErrOrderNotFound}, http.StatusNotFound, `"error"`},
		{"internal error acked", &stubReconciler{err: fmt.Errorf("db down")}, http.StatusOK, `"error"`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/orders/payment/webhook", webhookHandler(tc.rec))
			w := doJSON(t, r, http.MethodPost, "/orders/payment/webhook",
				`{"event":"charge.success","data":{"reference":"MAI-x-1","status":"success"}}`)
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			if !bytes.Contains(w.Body.Bytes(), []byte(tc.wantBody)) {
				t.Fatalf("body %s missing %s", w.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestRefundOrder(t *testing.T) {
	t.Parallel()

	res := &refund.Result{
		OrderID:         uuid.NewString(),
		Status:          order.StatusRefunding,
		RefundReference: "RF-1",
		Reason:          "wrong order delivered",
		InitiatedAt:     time.Now(),
	}
	r := gin.New()
	r.POST("/orders/:id/refund", refundOrderHandler(&stubRefunder{res: res}))

	w := doJSON(t, r, http.MethodPost, "/orders/"+res.OrderID+"/refund", `{"reason":"wrong order delivered"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/orders/"+res.OrderID+"/refund", `{"reason":"  "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank reason: status=%d body=%s", w.Code, w.Body.String())
	}

	notRefundable := gin.New()
	notRefundable.POST("/orders/:id/refund", refundOrderHandler(&stubRefunder{err: refund.ErrNotRefundable}))
	w = doJSON(t, notRefundable, http.MethodPost, "/orders/x/refund", `{"reason":"r"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("not refundable: status=%d body=%s", w.Code, w.Body.String())
	}

	missing := gin.New()
	missing.POST("/orders/:id/refund", refundOrderHandler(&stubRefunder{err: refund.ErrOrderNotFound}))
	w = doJSON(t, missing, http.MethodPost, "/orders/x/refund", `{"reason":"r"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("order not found: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestListMenu(t *testing.T) {
	t.Parallel()

	items := []menu.Item{{ID: uuid.NewString(), Name: "Jollof Rice", Price: 250000, IsAvailable: true}}
	r := gin.New()
	r.GET("/menu", listMenuHandler(&stubMenu{items: items}))

	w := doJSON(t, r, http.MethodGet, "/menu", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("Jollof Rice")) {
		t.Fatalf("menu item missing from body: %s", w.Body.String())
	}
}

func TestUpdateMenuItem(t *testing.T) {
	t.Parallel()

	store := &stubMenu{items: []menu.Item{{ID: uuid.NewString(), Name: "Suya", Price: 150000, IsAvailable: true}}}
	r := gin.New()
	r.PATCH("/menu/:id", updateMenuItemHandler(store))

	id := store.items[0].ID
	w := doJSON(t, r, http.MethodPatch, "/menu/"+id, `{"is_available":false,"price":180000}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if store.items[0].IsAvailable || store.items[0].Price != 180000 {
		t.Fatalf("edit not applied: %+v", store.items[0])
	}

	w = doJSON(t, r, http.MethodPatch, "/menu/"+id, `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty edit: status=%d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPatch, "/menu/"+id, `{"price":-1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("negative price: status=%d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPatch, "/menu/"+uuid.NewString(), `{"is_available":true}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown item: status=%d body=%s", w.Code, w.Body.String())
	}
}

func init() {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
	log.SetOutput(io.Discard)
}
