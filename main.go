package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"

	"cliniq/config"
	"cliniq/cron"
	"cliniq/database"
	appointmentRepo "cliniq/database/repository/appointment"
	paymentRepo "cliniq/database/repository/payment"
	scheduleRepo "cliniq/database/repository/schedule"
	"cliniq/handlers"
	"cliniq/routes"
	"cliniq/services/booking"
	"cliniq/services/payment"
	syncsvc "cliniq/services/sync"
	"cliniq/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()
	utils.StartHealthMonitor([]*redis.Client{
		utils.GetCacheClient(), utils.GetDraftCacheClient(), utils.GetLockCacheClient(),
	}, database.MongoClient)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	appts := appointmentRepo.NewMongoAppointmentRepo()
	schedule := scheduleRepo.NewMongoScheduleRepo()
	payments := paymentRepo.NewMongoPaymentRepo()

	// real-time sync hub.
	hub := syncsvc.NewHub()
	syncHandler := syncsvc.NewHandler(hub)

	// booking engine.
	drafts := &booking.RedisDraftStore{Client: utils.GetDraftCacheClient()}
	availability := &booking.AvailabilityResolver{Schedule: schedule}
	conflicts := &booking.ConflictGuard{Appointments: appts}
	wizard := booking.NewWizard(drafts, availability, conflicts, appts)

	locker := booking.NewRedisSlotLocker(utils.GetLockCacheClient(), 10*time.Second)
	enqueuer := cron.NewEnqueuer()
	commit := &booking.CommitCoordinator{
		Drafts:       drafts,
		Schedule:     schedule,
		Appointments: appts,
		Payments:     payments,
		Gateway:      payment.NewStripeGateway(),
		Locker:       locker,
		Tasks:        enqueuer,
		Publisher:    hub,
	}

	cron.InitTaskWorker(payments, appts, hub)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()
	refresher := &booking.AvailabilityRefresher{Publisher: hub}
	go refresher.Run(rootCtx)

	handlerBundle := &routes.HandlerBundle{
		Booking: &handlers.BookingHandler{
			Wizard: wizard,
			Commit: commit,
		},
		Availability: &handlers.AvailabilityHandler{Availability: availability},
		Appointments: &handlers.AppointmentHandler{Appointments: appts, Publisher: hub},
		Sync:         syncHandler,
	}

	routes.RegisterRoutes(router, handlerBundle)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
