package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/transport/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Bookings  *BookingHandler
	Contracts *ContractHandler
	Fleet     *FleetHandler
	Admin     *AdminHandler // nil unless the redis queue is in use

	// Checks are run by /health, keyed by dependency name.
	Checks map[string]func(ctx context.Context) error
}

func InitRoutes(h Handlers, tokens middleware.TokenParser, gatherer prometheus.Gatherer, timeout time.Duration) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(timeout))

	router.GET("/health", health(h.Checks))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(tokens))
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("", h.Bookings.CreateBooking)
			bookings.GET("", h.Bookings.GetMyBookings)
			bookings.GET("/:id", h.Bookings.GetBooking)
			bookings.GET("/:id/ledger", h.Bookings.GetLedger)
			bookings.GET("/:id/contract", h.Contracts.GetBookingContract)
			bookings.POST("/:id/approve", h.Bookings.ApproveBooking)
			bookings.POST("/:id/reject", h.Bookings.RejectBooking)
			bookings.POST("/:id/pay", h.Bookings.ConfirmPayment)
			bookings.POST("/:id/ready", h.Bookings.MarkReadyForPickup)
			bookings.POST("/:id/start", h.Bookings.StartTrip)
			bookings.POST("/:id/complete", h.Bookings.CompleteBooking)
			bookings.POST("/:id/cancel", h.Bookings.CancelBooking)
		}

		cars := api.Group("/cars")
		{
			cars.POST("", h.Fleet.RegisterCar)
			cars.GET("/:id", h.Fleet.GetCar)
			cars.GET("/:id/bookings", h.Bookings.GetCarBookings)
		}

		inspections := api.Group("/inspections")
		{
			inspections.POST("", h.Fleet.ScheduleInspection)
			inspections.POST("/:id/contract", h.Contracts.CreateInspectionContract)
		}

		contracts := api.Group("/contracts")
		{
			contracts.GET("/:id", h.Contracts.GetContract)
			contracts.POST("/:id/sign", h.Contracts.SignContract)
		}

		if h.Admin != nil {
			admin := api.Group("/admin")
			{
				admin.GET("/queue", h.Admin.QueueStats)
				admin.GET("/dlq", h.Admin.FailedTasks)
				admin.POST("/dlq/:id/requeue", h.Admin.RequeueTask)
			}
		}
	}

	return router
}

func health(checks map[string]func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		deps := make(gin.H, len(checks))

		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				status = http.StatusServiceUnavailable
				deps[name] = err.Error()
				continue
			}
			deps[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"status": state,
			"deps":   deps,
			"time":   time.Now().UTC(),
		})
	}
}
