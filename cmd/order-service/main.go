package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Abdullraaa/mai-inji/internal/audit"
	"github.com/Abdullraaa/mai-inji/internal/config"
	"github.com/Abdullraaa/mai-inji/internal/httpx"
	"github.com/Abdullraaa/mai-inji/internal/logging"
	"github.com/Abdullraaa/mai-inji/internal/menu"
	"github.com/Abdullraaa/mai-inji/internal/money"
	"github.com/Abdullraaa/mai-inji/internal/order"
	"github.com/Abdullraaa/mai-inji/internal/payment"
	"github.com/Abdullraaa/mai-inji/internal/refund"
	"github.com/Abdullraaa/mai-inji/internal/webhook"
)

func main() {
	cfg := config.Load()
	log := logging.Init("order-service", cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres pool", "error", err)
		return
	}
	defer pool.Close()

	auditor := audit.NewPGRecorder(pool, logging.New("audit"))
	menuRepo := menu.NewPGRepo(pool)
	orders := order.NewPGRepo(pool, auditor, order.Options{
		DeliveryFee:  money.Kobo(cfg.DeliveryFeeKobo),
		NumberPrefix: cfg.OrderNumberPrefix,
	})
	gateway := payment.NewPaystack(cfg.PaystackBaseURL, cfg.PaystackSecret)
	payments := payment.NewService(payment.NewPGRepo(pool), gateway, auditor, logging.New("payment"))
	reconciler := webhook.NewReconciler(webhook.NewPGStore(pool), payment.NewPGRepo(pool), orders, logging.New("webhook"))
	refunder := refund.New(orders, payment.NewPGRepo(pool), gateway, auditor, logging.New("refund"))

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(), httpx.Metrics())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/menu", listMenuHandler(menuRepo))

	r.POST("/orders", createOrderHandler(orders))
	r.GET("/orders/:id", getOrderHandler(orders))
	r.POST("/orders/:id/payment", initializePaymentHandler(orders, payments))
	r.POST("/orders/payment/webhook",
		httpx.VerifyPaystackSignature(cfg.PaystackWebhookSecret), webhookHandler(reconciler))
	r.POST("/orders/payment/verify", verifyPaymentHandler(orders, payments))

	adm := r.Group("/", httpx.AdminAuth(cfg.JWTSecret))
	adm.GET("/orders", listOrdersHandler(orders))
	adm.PATCH("/orders/:id/status", updateOrderStatusHandler(orders, payments))
	adm.POST("/orders/:id/refund", refundOrderHandler(refunder))
	adm.PATCH("/menu/:id", updateMenuItemHandler(menuRepo))

	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	go func() {
		log.Info("order-service listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
	log.Info("order-service stopped")
}
