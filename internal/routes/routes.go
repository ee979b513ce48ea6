package routes

import (
	"net/http"

	"github.com/reyschwartz19/OpTracker/internal/app"
	"github.com/reyschwartz19/OpTracker/internal/handler"
	"github.com/reyschwartz19/OpTracker/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	home := handler.NewHomeHandler(app.DB)
	auth := handler.NewAuthHandler(app.AuthService, app.Cfg)
	account := handler.NewAccountHandler(app.UserService, app.ProfileService)
	opportunity := handler.NewOpportunityHandler(app.OpportunityService)
	dashboard := handler.NewDashboardHandler(app.DashboardService)
	document := handler.NewDocumentHandler(app.DocumentService)
	cron := handler.NewCronHandler(app.Scheduler)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", home.Healthz)

	// Auth (rate limited)
	rateLimiter := middleware.RateLimitAuth()

	mux.HandleFunc("POST /api/auth/signup", rateLimiter(auth.Signup))
	mux.HandleFunc("POST /api/auth/login", rateLimiter(auth.Login))
	mux.HandleFunc("POST /api/auth/logout", auth.Logout)
	mux.HandleFunc("POST /api/auth/forgot-password", rateLimiter(auth.ForgotPassword))
	mux.HandleFunc("POST /api/auth/reset-password", rateLimiter(auth.ResetPassword))

	// OAuth
	mux.HandleFunc("GET /auth/google", rateLimiter(auth.GoogleAuth))
	mux.HandleFunc("GET /auth/google/callback", rateLimiter(auth.GoogleCallback))

	// Cron
	cronAuth := middleware.CronAuth(app.Cfg.CronSecret, app.Cfg.IsDevelopment())
	mux.HandleFunc("GET /api/cron/reminders", cronAuth(cron.Reminders))

	// ============================================================================
	// PROTECTED ROUTES (/api/*)
	// ============================================================================

	// Account
	mux.HandleFunc("GET /api/user", middleware.RequireAuth(account.Me))
	mux.HandleFunc("PATCH /api/user/settings", middleware.RequireAuth(account.UpdateSettings))
	mux.HandleFunc("PUT /api/user/password", middleware.RequireAuth(account.ChangePassword))

	// Opportunities
	mux.HandleFunc("GET /api/opportunities", middleware.RequireAuth(opportunity.List))
	mux.HandleFunc("POST /api/opportunities", middleware.RequireAuth(opportunity.Create))
	mux.HandleFunc("GET /api/opportunities/{id}", middleware.RequireAuth(opportunity.Detail))
	mux.HandleFunc("PATCH /api/opportunities/{id}", middleware.RequireAuth(opportunity.Update))
	mux.HandleFunc("DELETE /api/opportunities/{id}", middleware.RequireAuth(opportunity.Delete))
	mux.HandleFunc("PUT /api/opportunities/{id}/status", middleware.RequireAuth(opportunity.UpdateStatus))

	// Dashboard
	mux.HandleFunc("GET /api/dashboard", middleware.RequireAuth(dashboard.Dashboard))
	mux.HandleFunc("GET /api/calendar", middleware.RequireAuth(dashboard.Calendar))

	// Documents
	mux.HandleFunc("GET /api/documents", middleware.RequireAuth(document.List))
	mux.HandleFunc("POST /api/documents/upload", middleware.RequireAuth(document.Upload))
	mux.HandleFunc("DELETE /api/documents/{id}", middleware.RequireAuth(document.Delete))

	// ============================================================================
	// FALLBACK
	// ============================================================================

	mux.HandleFunc("/{path...}", home.NotFound)

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Config(app.Cfg),
		middleware.RequestLogging,
		middleware.AuthMiddleware(app.AuthService, app.UserService, app.ProfileService),
	)

	return handler
}
