package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	"github.com/nellaishop/order/internal/payments"
	"github.com/nellaishop/order/internal/service/models/order"
	"github.com/nellaishop/order/internal/service/models/status"
	"github.com/nellaishop/order/internal/service/services/ordersvc"
	cancelorder "github.com/nellaishop/order/internal/transport/http/cancel_order"
	createorder "github.com/nellaishop/order/internal/transport/http/create_order"
	listorders "github.com/nellaishop/order/internal/transport/http/list_orders"
	paymentcallback "github.com/nellaishop/order/internal/transport/http/payment_callback"
	trackorder "github.com/nellaishop/order/internal/transport/http/track_order"
	updatestatus "github.com/nellaishop/order/internal/transport/http/update_status"
	"github.com/nellaishop/order/pkg/http/middleware/trace"
	"github.com/nellaishop/order/pkg/logger"
)

type service interface {
	BuildDraft(cmd ordersvc.CheckoutCommand) (order.Draft, error)
	Create(ctx context.Context, draft order.Draft) (order.Order, error)
	ListByUser(ctx context.Context, userID string) ([]order.Order, error)
	Track(ctx context.Context, token string) (ordersvc.TrackingView, error)
	Cancel(ctx context.Context, id string) (order.Order, error)
	SetOrderStatus(ctx context.Context, id string, next status.OrderStatus) (order.Order, error)
}

type coordinator interface {
	Begin(ctx context.Context, draft order.Draft) (payments.Checkout, error)
	Reconcile(ctx context.Context, orderID string, result payments.CollectResult) (order.Order, error)
}

type HTTPTransport struct {
	server      *http.Server
	router      *chi.Mux
	service     service
	coordinator coordinator
}

func NewHTTPTransport(service service, coordinator coordinator) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:      server,
		router:      router,
		service:     service,
		coordinator: coordinator,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.createOrder)
		r.Post("/orders/checkout", h.checkoutOnline)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/track", h.trackOrder)
		r.Post("/orders/{id}/cancel", h.cancelOrder)
		r.Patch("/orders/{id}/status", h.updateStatus)
		r.Post("/payments/callback", h.paymentCallback)
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.service, h.coordinator)
}

func (h *HTTPTransport) checkoutOnline(w http.ResponseWriter, r *http.Request) {
	createorder.CheckoutOnline(w, r, h.service, h.coordinator)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.service)
}

func (h *HTTPTransport) trackOrder(w http.ResponseWriter, r *http.Request) {
	trackorder.TrackOrder(w, r, h.service)
}

func (h *HTTPTransport) cancelOrder(w http.ResponseWriter, r *http.Request) {
	cancelorder.CancelOrder(w, r, h.service)
}

func (h *HTTPTransport) updateStatus(w http.ResponseWriter, r *http.Request) {
	updatestatus.UpdateStatus(w, r, h.service)
}

func (h *HTTPTransport) paymentCallback(w http.ResponseWriter, r *http.Request) {
	paymentcallback.PaymentCallback(w, r, h.coordinator)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
