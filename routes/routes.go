package routes

import (
	"net/http"
	"time"

	"furk/handlers"
	"furk/middleware"
	"furk/models"
	"furk/services/auth"
	"furk/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options carries what RegisterRoutes needs besides the handlers.
type Options struct {
	Auth              *auth.Service
	Cookies           sessions.Store
	CookieName        string
	AllowedOrigins    []string
	MaxRequestsPerMin int
}

// DefaultPublicPaths are reachable without logging in.
var DefaultPublicPaths = []string{
	"/",
	"/health",
	"/metrics",
	"/login",
	"/signup",
	"/verify",
	"/forgot-password",
	"/new-password",
	"/services",
	"/services/*",
	"/auth/*",
	"/api/services",
	"/api/services/*",
	"/api/referrals/validate",
}

// RegisterHealthRoute registers health and metrics endpoints.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RegisterAuthRoutes registers the anonymous auth pages and the auth API.
func RegisterAuthRoutes(r *gin.Engine, hb *handlers.HandlerBundle, a *auth.Service) {
	anon := r.Group("")
	anon.Use(middleware.RequireAnonymous(a))
	{
		anon.GET("/login", hb.Auth.AuthPage("login"))
		anon.GET("/signup", hb.Auth.AuthPage("signup"))
		anon.GET("/verify", hb.Auth.AuthPage("verify"))
		anon.GET("/forgot-password", hb.Auth.AuthPage("forgot-password"))
		anon.GET("/new-password", hb.Auth.AuthPage("new-password"))
	}

	api := r.Group("/auth")
	{
		api.POST("/login", middleware.RequireAnonymous(a), hb.Auth.Login)
		api.POST("/new-password", middleware.RequireAnonymous(a), hb.Auth.CompleteNewPassword)
		api.POST("/signup", hb.Auth.SignUp)
		api.POST("/verify", hb.Auth.Verify)
		api.POST("/resend", hb.Auth.Resend)
		api.POST("/forgot", hb.Auth.Forgot)
		api.POST("/reset", hb.Auth.Reset)
		api.POST("/logout", hb.Auth.Logout)
		api.GET("/status", hb.Auth.Status)
	}
}

// RegisterOwnerRoutes registers pages any logged-in role may browse plus the
// pet owner's own screens.
func RegisterOwnerRoutes(r *gin.Engine, hb *handlers.HandlerBundle, a *auth.Service) {
	p := hb.Pages

	r.GET("/", p.Home)
	for _, prefix := range []string{"", "/api"} {
		r.GET(prefix+"/services", p.ServicesPage())
		r.GET(prefix+"/services/:id", p.ServiceDetailPage())
	}
	r.GET("/api/referrals/validate", p.ValidateReferral)

	anyRole := r.Group("")
	anyRole.Use(middleware.RequireAuth(a))
	{
		for _, prefix := range []string{"", "/api"} {
			anyRole.GET(prefix+"/notifications", p.NotificationsPage())
			anyRole.GET(prefix+"/profile", p.Profile)
		}
		anyRole.PUT("/api/notifications/:id/read", p.MarkNotificationRead)
		anyRole.PUT("/api/profile", p.UpdateProfile)

		anyRole.GET("/api/progress", hb.Progress.Snapshot)
		anyRole.POST("/api/progress/dismiss", hb.Progress.Dismiss)
		anyRole.GET("/ws/progress", hb.Progress.Stream)
	}

	owner := r.Group("")
	owner.Use(middleware.RequireAuth(a, models.RoleUser))
	{
		for _, prefix := range []string{"", "/api"} {
			owner.GET(prefix+"/bookings", p.BookingsPage())
		}
		owner.POST("/api/bookings", p.CreateBooking)
		owner.PUT("/api/bookings/:id/cancel", p.CancelBooking)
		owner.POST("/api/services/:id/reviews", p.CreateReview)
	}
}

// RegisterMerchantRoutes registers the merchant screens.
func RegisterMerchantRoutes(r *gin.Engine, hb *handlers.HandlerBundle, a *auth.Service) {
	p := hb.Pages
	for _, prefix := range []string{"", "/api"} {
		g := r.Group(prefix + "/merchant")
		g.Use(middleware.RequireAuth(a, models.RoleMerchant))
		g.GET("/dashboard", p.MerchantDashboard)
		g.GET("/listings", p.MerchantListingsPage())
		g.GET("/bookings", p.MerchantBookingsPage())
		g.GET("/business-hours", p.BusinessHours)
		g.GET("/transactions", p.MerchantTransactionsPage())
	}

	api := r.Group("/api/merchant")
	api.Use(middleware.RequireAuth(a, models.RoleMerchant))
	{
		api.POST("/listings", p.CreateListing)
		api.PUT("/listings/:id", p.UpdateListing)
		api.DELETE("/listings/:id", p.DeleteListing)
		api.PUT("/bookings/:id/status", p.UpdateBookingStatus)
		api.PUT("/business-hours", p.SaveBusinessHours)
	}
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle, a *auth.Service) {
	p := hb.Pages
	for _, prefix := range []string{"", "/api"} {
		g := r.Group(prefix + "/admin")
		g.Use(middleware.RequireAuth(a, models.RoleAdmin))
		g.GET("/applications", p.AdminApplicationsPage())
	}
	api := r.Group("/api/admin")
	api.Use(middleware.RequireAuth(a, models.RoleAdmin))
	{
		api.PUT("/applications/:id/approve", p.DecideApplication(true))
		api.PUT("/applications/:id/reject", p.DecideApplication(false))
	}
}

// RegisterAffiliateRoutes registers the affiliate screens.
func RegisterAffiliateRoutes(r *gin.Engine, hb *handlers.HandlerBundle, a *auth.Service) {
	p := hb.Pages
	for _, prefix := range []string{"", "/api"} {
		g := r.Group(prefix + "/affiliate")
		g.Use(middleware.RequireAuth(a, models.RoleAffiliate))
		g.GET("/dashboard", p.AffiliateDashboard)
		g.GET("/referrals", p.AffiliateReferralsPage())
		g.GET("/transactions", p.AffiliateTransactionsPage())
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, opts Options) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.AuthStatusHeader, middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(utils.ErrorHandler())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(middleware.RateLimitMiddleware(opts.MaxRequestsPerMin))
	r.Use(middleware.BrowserSession(opts.Cookies, opts.CookieName))

	publicPaths := hb.PublicPaths
	if publicPaths == nil {
		publicPaths = DefaultPublicPaths
	}
	r.Use(middleware.AuthWatch(opts.Auth, publicPaths))

	RegisterHealthRoute(r)
	RegisterAuthRoutes(r, hb, opts.Auth)
	RegisterOwnerRoutes(r, hb, opts.Auth)
	RegisterMerchantRoutes(r, hb, opts.Auth)
	RegisterAdminRoutes(r, hb, opts.Auth)
	RegisterAffiliateRoutes(r, hb, opts.Auth)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	})
}
