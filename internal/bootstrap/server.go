package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aerohive/missions/api"
	"github.com/aerohive/missions/config"
	"github.com/aerohive/missions/internal/service/booking"
	"github.com/aerohive/missions/internal/service/limiter"
	"github.com/aerohive/missions/internal/service/pilots"
	"github.com/aerohive/missions/internal/service/tracking"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Run starts the HTTP server and blocks until ctx is canceled or the server
// fails.
func Run(ctx context.Context, cfg *config.Config,
	lifecycle booking.LifecycleUseCase,
	limits limiter.LimitUseCase,
	matcher pilots.MatchUseCase,
	feed tracking.FeedUseCase,
) error {
	router := newRouter(cfg, lifecycle, limits, matcher, feed)

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newRouter(cfg *config.Config,
	lifecycle booking.LifecycleUseCase,
	limits limiter.LimitUseCase,
	matcher pilots.MatchUseCase,
	feed tracking.FeedUseCase,
) *gin.Engine {
	router := gin.Default()

	corsCfg := cors.DefaultConfig()
	if len(cfg.HTTP.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.HTTP.CORSOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	router.Use(cors.New(corsCfg))

	bookingHandler := api.NewBookingHandler(lifecycle, limits, feed)
	bookingHandler.Register(router.Group("/bookings"))
	bookingHandler.RegisterTracking(router)

	api.NewJobHandler(lifecycle, feed).Register(router.Group("/jobs"))
	api.NewPilotHandler(matcher).Register(router.Group("/pilots"))

	if cfg.HTTP.SwaggerDir != "" {
		router.StaticFS("/swagger", http.Dir(cfg.HTTP.SwaggerDir))
		router.GET("/docs/missions/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger/missions.swagger.json"),
		)))
	}

	return router
}
