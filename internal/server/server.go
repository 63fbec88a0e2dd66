package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"airpool/internal/airport"
	"airpool/internal/auth"
	"airpool/internal/booking"
	"airpool/internal/chat"
	"airpool/internal/config"
	"airpool/internal/notification"
	"airpool/internal/payout"
	"airpool/internal/rating"
	"airpool/internal/request"
	"airpool/internal/ride"
	"airpool/internal/user"
	"airpool/internal/wallet"
	"airpool/internal/webhook"
)

// Handlers bundles every package's HTTP surface so New doesn't take a
// dozen positional parameters. cmd/app/main.go builds one of these
// after wiring every repository/service.
type Handlers struct {
	User         *user.Handler
	Airport      *airport.Handler
	Ride         *ride.Handler
	Booking      *booking.Handler
	Request      *request.Handler
	Wallet       *wallet.Handler
	Payout       *payout.Handler
	Rating       *rating.Handler
	Notification *notification.Handler
	Webhook      *webhook.Handler
	Chat         *chat.Handler
}

type Server struct {
	router *gin.Engine
	http   *http.Server
	config *config.Config
}

// New assembles the full route tree. It never constructs a
// repository, service, or handler itself — everything arrives
// pre-wired in h, which keeps this package ignorant of Mongo,
// Stripe, and Redis entirely.
func New(cfg *config.Config, authn *auth.JWTAuthenticator, h Handlers) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(20, 40))

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	// Stripe verifies its own signature over the raw request body, so
	// this route must be registered before anything that would
	// consume or rewrite it.
	router.POST("/stripe/webhook", h.Webhook.Stripe)

	authMiddleware := auth.Middleware(authn)

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", h.User.Register)
			authGroup.POST("/login", h.User.Login)
			authGroup.POST("/refresh", h.User.Refresh)
			authGroup.POST("/logout", h.User.Logout)
			authGroup.DELETE("/me", authMiddleware, h.User.DeleteMe)
		}

		airports := v1.Group("/airports")
		{
			airports.GET("", h.Airport.List)
			airports.GET("/:id", h.Airport.Get)
		}

		users := v1.Group("/users")
		users.Use(authMiddleware)
		{
			users.GET("/:id", h.User.GetByID)
		}

		me := v1.Group("/me")
		me.Use(authMiddleware)
		{
			me.GET("", h.User.Me)
			me.GET("/bookings", h.Booking.MyBookings)
		}

		// GET /rides/:id, /rides/:id/bookings and /rides/:id/messages
		// share a single unauthenticated group so the ":id" wildcard
		// is registered exactly once in gin's GET tree; auth is then
		// enforced per-route via middleware where it's needed.
		rides := v1.Group("/rides")
		{
			rides.GET("/search", h.Ride.Search)
			rides.GET("/:id", h.Ride.Get)
			rides.GET("/:id/bookings", authMiddleware, h.Booking.ListByRide)
			rides.GET("/:id/messages", authMiddleware, h.Chat.ListRideMessages)

			ridesAuthed := rides.Group("")
			ridesAuthed.Use(authMiddleware)
			{
				ridesAuthed.POST("", h.Ride.Create)
				ridesAuthed.POST("/route-preview", h.Ride.RoutePreview)
				ridesAuthed.PATCH("/:id", h.Ride.Update)
				ridesAuthed.GET("/my-rides", h.Ride.MyRides)
				ridesAuthed.POST("/:rideId/bookings", h.Booking.Create)
				ridesAuthed.POST("/:rideId/bookings/card", h.Booking.PayWithCard)
				ridesAuthed.POST("/:rideId/bookings/wallet", h.Booking.PayWithWallet)
				ridesAuthed.POST("/:rideId/messages", h.Chat.SendRideMessage)
				ridesAuthed.DELETE("/:rideId", h.Booking.CancelRide)
			}
		}

		bookings := v1.Group("/bookings")
		bookings.Use(authMiddleware)
		{
			bookings.GET("/:id", h.Booking.Get)
			bookings.PATCH("/:id", h.Booking.Transition)
			bookings.PATCH("/:id/seats", h.Booking.UpdateSeats)
			bookings.POST("/complete-payment", h.Booking.CompletePayment)
		}

		rideRequests := v1.Group("/ride-requests")
		{
			rideRequests.GET("/:id", h.Request.Get)

			rideRequestsAuthed := rideRequests.Group("")
			rideRequestsAuthed.Use(authMiddleware)
			{
				rideRequestsAuthed.POST("", h.Request.Create)
				rideRequestsAuthed.GET("/available", h.Request.Available)
				rideRequestsAuthed.GET("/my-requests", h.Request.MyRequests)
				rideRequestsAuthed.GET("/my-offers", h.Request.MyOffers)
				rideRequestsAuthed.GET("/:id/messages", h.Chat.ListRequestMessages)
				rideRequestsAuthed.POST("/:id/messages", h.Chat.SendRequestMessage)
				rideRequestsAuthed.POST("/:id/offer", h.Request.MakeOffer)
				rideRequestsAuthed.DELETE("/:id/offer", h.Request.WithdrawOffer)
				rideRequestsAuthed.PUT("/:id/reject-offer", h.Request.RejectOffer)
				rideRequestsAuthed.PUT("/:id/accept-offer", h.Request.AcceptOffer)
				rideRequestsAuthed.POST("/:id/accept-offer-with-payment", h.Request.AcceptOfferWithPayment)
				rideRequestsAuthed.PUT("/:id/cancel", h.Request.Cancel)
			}
		}

		// create-intent and wallet alias the /rides/:rideId/bookings/*
		// routes for callers that already resolved a ride id and
		// would rather not embed it in the path; the handlers read
		// rideId from the body when no :rideId path segment is set.
		payments := v1.Group("/payments")
		payments.Use(authMiddleware)
		{
			payments.POST("/create-intent", h.Booking.PayWithCard)
			payments.POST("/wallet", h.Booking.PayWithWallet)
			payments.POST("/create-offer-intent", h.Request.CreateOfferIntent)
			payments.POST("/complete", h.Booking.CompletePayment)
		}

		walletGroup := v1.Group("/wallet")
		walletGroup.Use(authMiddleware)
		{
			walletGroup.GET("", h.Wallet.GetBalance)
			walletGroup.GET("/transactions", h.Wallet.ListTransactions)
			walletGroup.GET("/earnings-summary", h.Wallet.EarningsSummary)
			walletGroup.GET("/calculate-earnings", h.Wallet.CalculateEarnings)
			walletGroup.GET("/payouts", h.Payout.List)
			walletGroup.POST("/withdraw", h.Payout.Withdraw)
			walletGroup.POST("/connect-bank", h.Payout.ConnectBank)
			walletGroup.GET("/bank-status", h.Payout.BankStatus)
		}

		ratings := v1.Group("/ratings")
		{
			ratings.GET("/stats/:userId", h.Rating.Stats)

			ratingsAuthed := ratings.Group("")
			ratingsAuthed.Use(authMiddleware)
			{
				ratingsAuthed.GET("/pending", h.Rating.Pending)
				ratingsAuthed.GET("/can-rate/:bookingId", h.Rating.CanRate)
				ratingsAuthed.POST("", h.Rating.Create)
			}
		}

		notifications := v1.Group("/notifications")
		notifications.Use(authMiddleware)
		{
			notifications.GET("", h.Notification.List)
			notifications.PATCH("/:id/read", h.Notification.MarkRead)
		}
	}

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	return &Server{router: router, http: httpServer, config: cfg}
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
