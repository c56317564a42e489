// Package httpapi exposes the order core over HTTP JSON under /api.
package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/safar/techshop-orders/internal/auth"
	"github.com/safar/techshop-orders/internal/models"
	"github.com/safar/techshop-orders/internal/service"
	"github.com/safar/techshop-orders/internal/store"
)

type OrderService interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*models.Order, error)
	SetStatus(ctx context.Context, orderID int64, status models.OrderStatus, actorID *int64, note string) error
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	ListOrders(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.Order], error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error)
	ListOrdersCursor(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage[models.Order], error)
}

type CouponValidator interface {
	Validate(ctx context.Context, code string, orderTotal decimal.Decimal) (*service.CouponPreview, error)
}

type ProductCatalog interface {
	ListProducts(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.Product], error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, p service.NewProduct) (*models.Product, error)
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal, version int) (*models.Product, error)
}

type UserDirectory interface {
	CreateUser(ctx context.Context, email, name string, role models.Role) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.User], error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Dependencies struct {
	Orders   OrderService
	Coupons  CouponValidator
	Products ProductCatalog
	Users    UserDirectory
	DB       Pinger
	Auth     *auth.Authenticator
	Logger   *zap.Logger

	// Checkout rate limit per caller; zero disables it.
	CheckoutRPS   float64
	CheckoutBurst int
}

func NewRouter(deps Dependencies) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(recoverer)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(req.Context(), w, http.StatusNotFound, fmt.Sprintf("no route for %s", req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(req.Context(), w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path))
	})

	orders := &orderHandlers{orders: deps.Orders}
	products := &productHandlers{products: deps.Products}
	coupons := &couponHandlers{coupons: deps.Coupons}
	users := &userHandlers{users: deps.Users}
	health := &healthHandlers{db: deps.DB}
	limiter := newKeyedLimiter(deps.CheckoutRPS, deps.CheckoutBurst)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", health.check)

		api.Post("/coupons/validate", coupons.validate)

		api.Route("/products", func(pr chi.Router) {
			pr.Get("/", products.list)
			pr.Get("/{id}", products.get)
			pr.Group(func(admin chi.Router) {
				admin.Use(deps.Auth.RequireAuth, deps.Auth.RequireAdmin)
				admin.Post("/", products.create)
				admin.Patch("/{id}/price", products.updatePrice)
			})
		})

		api.Route("/users", func(ur chi.Router) {
			ur.Use(deps.Auth.RequireAuth, deps.Auth.RequireAdmin)
			ur.Get("/", users.list)
			ur.Post("/", users.create)
			ur.Get("/{id}", users.get)
		})

		api.Route("/orders", func(or chi.Router) {
			or.Use(deps.Auth.RequireAuth)
			or.With(limiter.middleware).Post("/", orders.create)
			or.Get("/me", orders.mine)
			or.Get("/{id}", orders.get)
			or.Group(func(admin chi.Router) {
				admin.Use(deps.Auth.RequireAdmin)
				admin.Get("/", orders.list)
				admin.Patch("/{id}/status", orders.setStatus)
			})
		})
	})

	return r
}
