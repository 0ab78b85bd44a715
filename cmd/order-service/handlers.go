package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Abdullraaa/mai-inji/internal/audit"
	"github.com/Abdullraaa/mai-inji/internal/httpx"
	"github.com/Abdullraaa/mai-inji/internal/logging"
	"github.com/Abdullraaa/mai-inji/internal/menu"
	"github.com/Abdullraaa/mai-inji/internal/money"
	"github.com/Abdullraaa/mai-inji/internal/order"
	"github.com/Abdullraaa/mai-inji/internal/payment"
	"github.com/Abdullraaa/mai-inji/internal/refund"
	"github.com/Abdullraaa/mai-inji/internal/webhook"
)

type orderStore interface {
	Create(ctx context.Context, in order.CreateInput) (*order.Order, error)
	GetByID(ctx context.Context, id string) (*order.Order, error)
	Transition(ctx context.Context, id string, target order.Status, actorType audit.ActorType, actorID, reason string) (*order.Order, error)
	List(ctx context.Context, q order.ListQuery) ([]order.Order, int, error)
}

type paymentService interface {
	Initialize(ctx context.Context, orderID string, amount money.Kobo, email string) (*payment.InitOutcome, error)
	Verify(ctx context.Context, reference string) (*payment.VerifyOutcome, error)
	FinalizeRefund(ctx context.Context, orderID, actorID string) error
}

type webhookProcessor interface {
	Process(ctx context.Context, body []byte) (*webhook.Ack, error)
}

type refunder interface {
	Refund(ctx context.Context, orderID, actorID, reason string) (*refund.Result, error)
}

type menuStore interface {
	List(ctx context.Context, includeSoldOut bool) ([]menu.Item, error)
}

type menuEditor interface {
	Update(ctx context.Context, id string, u menu.ItemUpdate) (*menu.Item, error)
}

func userID(c *gin.Context) string {
	if id := c.GetHeader("X-User-ID"); id != "" {
		return id
	}
	return "guest-user"
}

func createOrderHandler(orders orderStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, http.StatusBadRequest, "invalid json")
			return
		}
		if len(req.Items) == 0 {
			httpx.Fail(c, http.StatusBadRequest, "invalid items")
			return
		}
		for _, it := range req.Items {
			if it.MenuItemID == "" || it.Quantity <= 0 {
				httpx.Fail(c, http.StatusBadRequest, "invalid items")
				return
			}
		}
		if !req.FulfillmentType.Valid() {
			httpx.Fail(c, http.StatusBadRequest, "invalid fulfillment type")
			return
		}
		if req.FulfillmentType == order.FulfillmentDelivery && strings.TrimSpace(req.DeliveryAddress) == "" {
			httpx.Fail(c, http.StatusBadRequest, "delivery address is required for delivery orders")
			return
		}

		lines := make([]order.Line, 0, len(req.Items))
		for _, it := range req.Items {
			lines = append(lines, order.Line{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
		}

		uid := userID(c)
		o, err := orders.Create(c.Request.Context(), order.CreateInput{
			UserID:          uid,
			Lines:           lines,
			Fulfillment:     req.FulfillmentType,
			DeliveryAddress: req.DeliveryAddress,
		})
		if err != nil {
			switch {
			case errors.Is(err, menu.ErrNotFound):
				httpx.Fail(c, http.StatusNotFound, err.Error())
			case errors.Is(err, order.ErrNoLines):
				httpx.Fail(c, http.StatusBadRequest, err.Error())
			default:
				logging.FromGin(c).Error("order creation failed", "error", err)
				httpx.Fail(c, http.StatusInternalServerError, "failed to create order")
			}
			return
		}

		pending, err := orders.Transition(c.Request.Context(), o.ID, order.StatusPaymentPending,
			audit.ActorSystem, "system", "Awaiting payment")
		if err != nil {
			logging.FromGin(c).Error("move to PAYMENT_PENDING failed", "order_id", o.ID, "error", err)
			httpx.Fail(c, http.StatusInternalServerError, "failed to create order")
			return
		}
		httpx.OK(c, http.StatusCreated, pending)
	}
}

func getOrderHandler(orders orderStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := orders.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				httpx.Fail(c, http.StatusNotFound, "order not found")
				return
			}
			logging.FromGin(c).Error("order fetch failed", "error", err)
			httpx.Fail(c, http.StatusInternalServerError, "failed to fetch order")
			return
		}
		httpx.OK(c, http.StatusOK, o)
	}
}

func listOrdersHandler(orders orderStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var statuses []order.Status
		if raw := c.Query("status"); raw != "" {
			for _, s := range strings.Split(raw, ",") {
				st := order.Status(strings.TrimSpace(s))
				if !st.Valid() {
					httpx.Fail(c, http.StatusBadRequest, "unknown status "+string(st))
					return
				}
				statuses = append(statuses, st)
			}
		}
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 100 {
			limit = 20
		}

		list, total, err := orders.List(c.Request.Context(), order.ListQuery{
			Statuses: statuses, Page: page, Limit: limit,
		})
		if err != nil {
			logging.FromGin(c).Error("order list failed", "error", err)
			httpx.Fail(c, http.StatusInternalServerError, "failed to fetch orders")
			return
		}
		totalPages := (total + limit - 1) / limit
		httpx.OK(c, http.StatusOK, gin.H{
			"orders": list,
			"pagination": pagination{
				Page:       page,
				Limit:      limit,
				TotalCount: total,
				TotalPages: totalPages,
				HasNext:    page < totalPages,
				HasPrev:    page > 1,
			},
		})
	}
}

func updateOrderStatusHandler(orders orderStore, payments paymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil || !req.Status.Valid() {
			httpx.Fail(c, http.StatusBadRequest, "invalid status")
			return
		}

		actor := httpx.ActorID(c)
		o, err := orders.Transition(c.Request.Context(), c.Param("id"), req.Status,
			audit.ActorAdmin, actor, req.Reason)
		if err != nil {
			switch {
			case errors.Is(err, order.ErrNotFound):
				httpx.Fail(c, http.StatusNotFound, "order not found")
			case errors.Is(err, order.ErrInvalidTransition):
				httpx.Fail(c, http.StatusConflict, err.Error())
			default:
				logging.FromGin(c).Error("status update failed", "error", err)
				httpx.Fail(c, http.StatusInternalServerError, "failed to update order")
			}
			return
		}

		// A refund reaching its terminal state also settles the payment row.
		if req.Status == order.StatusRefunded {
			if err := payments.FinalizeRefund(c.Request.Context(), o.ID, actor); err != nil {
				logging.FromGin(c).Error("refund settlement failed", "order_id", o.ID, "error", err)
			}
		}
		httpx.OK(c, http.StatusOK, o)
	}
}

func initializePaymentHandler(orders orderStore, payments paymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req InitializePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.UserEmail == "" {
			httpx.Fail(c, http.StatusBadRequest, "user email is required")
			return
		}

		o, err := orders.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				httpx.Fail(c, http.StatusNotFound, "order not found")
				return
			}
			logging.FromGin(c).Error("order fetch failed", "error", err)
			httpx.Fail(c, http.StatusInternalServerError, "failed to fetch order")
			return
		}
		if o.Status != order.StatusPaymentPending {
			httpx.Fail(c, http.StatusBadRequest, "cannot pay for order in "+string(o.Status)+" status")
			return
		}

		out, err := payments.Initialize(c.Request.Context(), o.ID, o.TotalAmount, req.UserEmail)
		if err != nil {
			logging.FromGin(c).Error("payment initialization failed", "order_id", o.ID, "error", err)
			httpx.Fail(c, http.StatusBadGateway, "payment initialization failed")
			return
		}
		httpx.OK(c, http.StatusOK, out)
	}
}

func verifyPaymentHandler(orders orderStore, payments paymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Reference == "" {
			httpx.Fail(c, http.StatusBadRequest, "payment reference is required")
			return
		}

		out, err := payments.Verify(c.Request.Context(), req.Reference)
		if err != nil {
			if errors.Is(err, payment.ErrNotFound) {
				httpx.Fail(c, http.StatusNotFound, "no payment for reference")
				return
			}
			logging.FromGin(c).Error("payment verification failed", "reference", req.Reference, "error", err)
			httpx.Fail(c, http.StatusBadGateway, "payment verification failed")
			return
		}

		target := order.StatusPaymentFailed
		reason := "Payment failed"
		if out.Successful {
			target = order.StatusPaid
			reason = "Payment confirmed"
		}
		if _, err := orders.Transition(c.Request.Context(), out.OrderID, target,
			audit.ActorSystem, "system", reason); err != nil {
			// Already applied (e.g. the webhook got there first) is fine.
			cur, gerr := orders.GetByID(c.Request.Context(), out.OrderID)
			if gerr != nil || cur.Status != target {
				logging.FromGin(c).Error("verification transition failed", "order_id", out.OrderID, "error", err)
				httpx.Fail(c, http.StatusConflict, err.Error())
				return
			}
		}
		httpx.OK(c, http.StatusOK, out)
	}
}

func webhookHandler(rec webhookProcessor) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := httpx.RawBody(c)
		if body == nil {
			var err error
			if body, err = c.GetRawData(); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
				return
			}
		}

		ack, err := rec.Process(c.Request.Context(), body)
		if err != nil {
			switch {
			case errors.Is(err, webhook.ErrMissingReference):
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
			case errors.Is(err, webhook.ErrPaymentNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			case errors.Is(err, webhook.ErrOrderNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			default:
				// Internal failures are acked so the provider does not retry
				// storms at us; alerting happens through the log pipeline.
				logging.FromGin(c).Error("webhook processing failed", "error", err)
				c.JSON(http.StatusOK, gin.H{"status": "error"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": ack.Status})
	}
}

func refundOrderHandler(f refunder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefundRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Reason) == "" {
			httpx.Fail(c, http.StatusBadRequest, "refund reason is required")
			return
		}

		res, err := f.Refund(c.Request.Context(), c.Param("id"), httpx.ActorID(c), strings.TrimSpace(req.Reason))
		if err != nil {
			switch {
			case errors.Is(err, refund.ErrOrderNotFound):
				httpx.Fail(c, http.StatusNotFound, "order not found")
			case errors.Is(err, refund.ErrNotRefundable),
				errors.Is(err, refund.ErrNoGatewayPayment),
				errors.Is(err, refund.ErrPaymentNotRefundable),
				errors.Is(err, refund.ErrReasonRequired):
				httpx.Fail(c, http.StatusBadRequest, err.Error())
			default:
				logging.FromGin(c).Error("refund failed", "order_id", c.Param("id"), "error", err)
				httpx.Fail(c, http.StatusBadGateway, "failed to process refund with payment provider")
			}
			return
		}
		httpx.OK(c, http.StatusOK, res)
	}
}

func updateMenuItemHandler(items menuEditor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateMenuItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, http.StatusBadRequest, "invalid json")
			return
		}
		if req.Price == nil && req.IsAvailable == nil && req.Description == nil {
			httpx.Fail(c, http.StatusBadRequest, "nothing to update")
			return
		}
		if req.Price != nil && req.Price.IsNegative() {
			httpx.Fail(c, http.StatusBadRequest, "price must not be negative")
			return
		}

		it, err := items.Update(c.Request.Context(), c.Param("id"), menu.ItemUpdate{
			Price:       req.Price,
			IsAvailable: req.IsAvailable,
			Description: req.Description,
		})
		if err != nil {
			if errors.Is(err, menu.ErrNotFound) {
				httpx.Fail(c, http.StatusNotFound, "menu item not found")
				return
			}
			logging.FromGin(c).Error("menu update failed", "item_id", c.Param("id"), "error", err)
			httpx.Fail(c, http.StatusInternalServerError, "failed to update menu item")
			return
		}
		httpx.OK(c, http.StatusOK, it)
	}
}

func listMenuHandler(items menuStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		includeSoldOut := c.Query("include_sold_out") == "true"
		list, err := items.List(c.Request.Context(), includeSoldOut)
		if err != nil {
			logging.FromGin(c).Error("menu list failed", "error", err)
			httpx.Fail(c, http.StatusInternalServerError, "failed to fetch menu")
			return
		}
		httpx.OK(c, http.StatusOK, gin.H{"items": list})
	}
}
