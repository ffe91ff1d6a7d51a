package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/medmarket-api/internal/application/auth"
	"github.com/medmarket-api/internal/application/medicine"
	"github.com/medmarket-api/internal/application/otp"
	"github.com/medmarket-api/internal/application/review"
	"github.com/medmarket-api/internal/application/store"
	"github.com/medmarket-api/internal/application/user"
	"github.com/medmarket-api/internal/config"
	"github.com/medmarket-api/internal/domain"
	jwtinfra "github.com/medmarket-api/internal/infrastructure/jwt"
	"github.com/medmarket-api/internal/transport/http/handler"
	appmiddleware "github.com/medmarket-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo     UserRepository
	OTPRepo      OTPRepository
	StoreRepo    StoreRepository
	MedicineRepo MedicineRepository
	ReviewRepo   ReviewRepository
	Images       ObjectStore
	SMSSender    SMSSender
	JWTProvider  *jwtinfra.Provider
	// BcryptCost is passed to services that hash passwords; zero means the library default.
	BcryptCost int
}

// NewRouter builds and returns the application router. ctx bounds the
// background sweeper of the per-IP rate limiter.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)
	vendorOnly := appmiddleware.RequireRole(domain.RoleVendor)
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)

	otpSvc := otp.NewService(otp.ServiceDeps{
		Records: deps.OTPRepo,
		Users:   deps.UserRepo,
		SMS:     deps.SMSSender,
		Config:  cfg.OTP,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		OTP:        otpSvc,
		Users:      deps.UserRepo,
		Tokens:     deps.JWTProvider,
		BcryptCost: deps.BcryptCost,
	})
	userSvc := user.NewService(user.ServiceDeps{UserRepo: deps.UserRepo, BcryptCost: deps.BcryptCost})
	storeSvc := store.NewService(store.ServiceDeps{StoreRepo: deps.StoreRepo, MedicineRepo: deps.MedicineRepo})
	medicineSvc := medicine.NewService(medicine.ServiceDeps{
		MedicineRepo: deps.MedicineRepo,
		StoreRepo:    deps.StoreRepo,
		Images:       deps.Images,
	})
	reviewSvc := review.NewService(review.ServiceDeps{ReviewRepo: deps.ReviewRepo, MedicineRepo: deps.MedicineRepo})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	userH := handler.NewUserHandler(userSvc)
	storeH := handler.NewStoreHandler(storeSvc)
	medicineH := handler.NewMedicineHandler(medicineSvc)
	reviewH := handler.NewReviewHandler(reviewSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)
			r.Post("/signup", authH.Signup)
			r.Post("/login", authH.Login)
			r.Post("/verify-otp", authH.VerifyOTP)
			r.Post("/login/password", authH.PasswordLogin)
		})

		r.Get("/medicines", medicineH.List)
		r.Get("/medicines/{id}", medicineH.Get)
		r.Get("/medicines/{id}/reviews", reviewH.ListByMedicine)
		r.Get("/vendors/{id}/medicines", medicineH.ListByVendor)
		r.Get("/stores", storeH.List)
		r.Get("/stores/{id}", storeH.Get)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/me", userH.Me)
			r.Get("/users", userH.List)
			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)
			r.Delete("/users/{id}", userH.Delete)
			r.Post("/reviews", reviewH.Create)
			r.Delete("/reviews/{id}", reviewH.Delete)

			// Vendor-only routes; ownership is checked by the services.
			r.Group(func(r chi.Router) {
				r.Use(vendorOnly)

				r.Post("/stores", storeH.Create)
				r.Put("/stores/{id}", storeH.Update)
				r.Delete("/stores/{id}", storeH.Delete)
				r.Post("/medicines", medicineH.Create)
				r.Put("/medicines/{id}", medicineH.Update)
				r.Delete("/medicines/{id}", medicineH.Delete)
				r.Put("/medicines/{id}/image", medicineH.SetImage)
			})
		})
	})

	return r
}
