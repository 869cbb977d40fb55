// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"toda/internal/http/handlers"
	"toda/internal/http/middleware"
	"toda/internal/infra"
	"toda/internal/modules/dispatch"
	"toda/internal/modules/fleet"
)

type RiderStore interface {
	handlers.RiderBlocker
	handlers.RiderProfiles
}

type RouterDeps struct {
	Dispatch *dispatch.Service
	Fleet    *fleet.Service
	Riders   RiderStore
	Verifier infra.TokenVerifier
	Logger   *slog.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Logger), middleware.Logging(deps.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	riderHandler := handlers.NewRiderHandler(deps.Riders)
	api.POST("/riders/me", riderHandler.Register)
	api.GET("/riders/me", riderHandler.Trust)

	bookingHandler := handlers.NewBookingHandler(deps.Dispatch)
	api.POST("/bookings/quote", bookingHandler.Quote)
	api.POST("/bookings", bookingHandler.Create)
	api.GET("/bookings/:id", bookingHandler.Get)
	api.POST("/bookings/:id/cancel", bookingHandler.Cancel)

	drivers := api.Group("/drivers", middleware.RequireRole(middleware.RoleDriver))
	driverHandler := handlers.NewDriverHandler(deps.Dispatch)
	streamHandler := handlers.NewStreamHandler(deps.Dispatch, deps.Logger)
	drivers.GET("/bookings", driverHandler.Nearby)
	drivers.GET("/bookings/stream", streamHandler.Stream)
	drivers.POST("/bookings/:id/accept", driverHandler.Accept)
	drivers.POST("/bookings/:id/reject", driverHandler.Reject)
	drivers.POST("/bookings/:id/start", driverHandler.Start)
	drivers.POST("/bookings/:id/complete", driverHandler.Complete)
	drivers.POST("/bookings/:id/chat", driverHandler.Channel)

	admin := api.Group("/admin", middleware.RequireRole(middleware.RoleAdmin))
	adminHandler := handlers.NewAdminHandler(deps.Fleet, deps.Riders, deps.Dispatch)
	admin.POST("/drivers", adminHandler.RegisterDriver)
	admin.POST("/tricycles", adminHandler.RegisterTricycle)
	admin.PUT("/drivers/:id/tricycle", adminHandler.AssignTricycle)
	admin.PUT("/drivers/:id/active", adminHandler.SetDriverActive)
	admin.PUT("/riders/:id/block", adminHandler.SetRiderBlocked)
	admin.POST("/bookings/:id/cancel", adminHandler.CancelBooking)

	return r
}
