package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"venuebook/internal/infra/config"
	"venuebook/internal/infra/obs"
)

type VenueHTTP interface {
	Availability(c *gin.Context)
	Validate(c *gin.Context)
	Submit(c *gin.Context)
	CloseView(c *gin.Context)
	CloseSession(c *gin.Context)
}

type OwnerHTTP interface {
	Bookings(c *gin.Context)
}

type Handlers struct {
	Venue   VenueHTTP
	Owner   OwnerHTTP
	Metrics http.Handler
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	router.Use(Identity())

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := router.Group("/api/v1")
	if h.Venue != nil {
		venues := api.Group("/venues/:id")
		venues.GET("/availability", h.Venue.Availability)
		venues.POST("/bookings/validate", h.Venue.Validate)
		venues.POST("/bookings", h.Venue.Submit)
		venues.DELETE("/view", h.Venue.CloseView)
		api.DELETE("/session/views", h.Venue.CloseSession)
	}
	if h.Owner != nil {
		api.GET("/owner/venues/:id/bookings", h.Owner.Bookings)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			headerIdempotencyKey, obs.HeaderSessionID, headerOwnerID, headerCustomerID,
		},
		ExposeHeaders: []string{"Content-Length", "Content-Type", obs.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
