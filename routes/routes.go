package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"cliniq/handlers"
	"cliniq/middleware"
	syncsvc "cliniq/services/sync"
	"cliniq/utils"
)

// HandlerBundle groups the endpoint handlers for registration.
type HandlerBundle struct {
	Booking      *handlers.BookingHandler
	Availability *handlers.AvailabilityHandler
	Appointments *handlers.AppointmentHandler
	Sync         *syncsvc.Handler
}

// RegisterBookingRoutes sets up the booking wizard and payment endpoints.
// Every endpoint is draft-scoped; the wizard enforces step order server-side.
func RegisterBookingRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/booking")
	{
		api.Use(middleware.JWTAuthMiddleware("patient"))
		api.POST("/draft", hb.Booking.StartBooking)
		api.POST("/reschedule", hb.Booking.StartReschedule)
		api.GET("/draft/:draftID", hb.Booking.ResumeBooking)
		api.PUT("/draft/:draftID/subject", hb.Booking.ChooseSubject)
		api.PUT("/draft/:draftID/kind", hb.Booking.ChooseKind)
		api.PUT("/draft/:draftID/department", hb.Booking.ChooseDepartment)
		api.PUT("/draft/:draftID/date", hb.Booking.ChooseDate)
		api.PUT("/draft/:draftID/session", hb.Booking.ChooseSession)
		api.PUT("/draft/:draftID/doctor", hb.Booking.ChooseDoctor)
		api.POST("/draft/:draftID/auto-assign", hb.Booking.AutoAssignDoctor)
		api.POST("/draft/:draftID/back", hb.Booking.Back)
		api.DELETE("/draft/:draftID", hb.Booking.AbandonBooking)
		api.GET("/draft/:draftID/sessions/refresh", hb.Booking.RefreshSessions)
		api.POST("/draft/:draftID/pay", hb.Booking.BeginPayment)
	}

	// Gateway success callback; authenticated by reference, not by user token.
	r.POST("/api/payments/callback", hb.Booking.PaymentCallback)
}

// RegisterAvailabilityRoutes sets up read-only availability views.
func RegisterAvailabilityRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/availability")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.GET("/:departmentID/dates", hb.Availability.ListDates)
		api.GET("/:departmentID/dates/:date/sessions", hb.Availability.ListSessions)
		api.GET("/:departmentID/dates/:date/doctors", hb.Availability.ListDoctors)
	}
}

// RegisterAppointmentRoutes sets up confirmed-appointment endpoints.
func RegisterAppointmentRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/appointments")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.GET("/:id", hb.Appointments.GetAppointment)
		api.POST("/:id/cancel", hb.Appointments.CancelAppointment)
	}
}

// RegisterSyncRoutes sets up the real-time channel endpoint. Auth happens in
// the join frame after the upgrade, so the route itself is open.
func RegisterSyncRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.GET("/ws/sync", hb.Sync.HandleConnect)
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "services": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware())

	RegisterHealthRoute(r)
	RegisterBookingRoutes(r, hb)
	RegisterAvailabilityRoutes(r, hb)
	RegisterAppointmentRoutes(r, hb)
	RegisterSyncRoutes(r, hb)
}
