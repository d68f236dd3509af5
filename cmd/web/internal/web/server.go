// Package web assembles the echo server: middleware, routes, and the
// dependency wiring for the HTTP handlers.
package web

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/adreel/adreel/cmd/web/handlers/api/session_api"
	"github.com/adreel/adreel/cmd/web/handlers/api/usage_api"
	"github.com/adreel/adreel/internal/creative"
	"github.com/adreel/adreel/internal/scenejob"
	"github.com/adreel/adreel/internal/stitch"
	"github.com/adreel/adreel/internal/usage"
)

type Webserver struct {
	*echo.Echo
	creative *creative.Service
	jobs     *scenejob.Processor
	stitcher *stitch.Stitcher
	usage    *usage.Counter
}

func NewWebserver(svc *creative.Service, jobs *scenejob.Processor, stitcher *stitch.Stitcher, counter *usage.Counter) *Webserver {
	webserver := &Webserver{
		Echo:     echo.New(),
		creative: svc,
		jobs:     jobs,
		stitcher: stitcher,
		usage:    counter,
	}

	webserver.setupMiddleware()
	webserver.registerRoutes()

	return webserver
}

func (s *Webserver) setupMiddleware() {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.BodyLimit("2M"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Long-lived SSE connections would dominate the request log.
			return c.Path() == "/api/sessions/:id/progress/stream"
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))
}

func (s *Webserver) registerRoutes() {
	apiGroup := s.Group("/api")

	apiGroup.POST("/sessions", session_api.HandleCreate(s.creative))
	apiGroup.GET("/sessions/:id", session_api.HandleGet(s.creative))
	apiGroup.DELETE("/sessions/:id", session_api.HandleDelete(s.creative))

	apiGroup.POST("/sessions/:id/demographics", session_api.HandleDemographics(s.creative))
	apiGroup.POST("/sessions/:id/characters", session_api.HandleGenerateCharacters(s.creative))
	apiGroup.POST("/sessions/:id/character", session_api.HandleSelectCharacter(s.creative))
	apiGroup.POST("/sessions/:id/product-shots", session_api.HandleGenerateProductShots(s.creative))
	apiGroup.POST("/sessions/:id/product-shot", session_api.HandleSelectProductShot(s.creative))

	apiGroup.PUT("/sessions/:id/scenes", session_api.HandleUpdateScenes(s.creative))
	apiGroup.POST("/sessions/:id/scenes/:index/image", session_api.HandleGenerateSceneImage(s.creative))

	apiGroup.POST("/sessions/:id/videos", session_api.HandleSubmitVideos(s.creative, s.jobs))
	apiGroup.GET("/sessions/:id/videos", session_api.HandleVideoStatus(s.jobs))

	apiGroup.POST("/sessions/:id/stitch", session_api.HandleStitch(s.creative, s.stitcher))
	apiGroup.GET("/sessions/:id/progress", session_api.HandleProgress(s.creative, s.stitcher))
	apiGroup.GET("/sessions/:id/progress/stream", session_api.HandleProgressStream(s.creative, s.stitcher))

	apiGroup.GET("/usage", usage_api.HandleTotals(s.usage))

	// Health check
	s.GET("/healthz", func(c echo.Context) error {
		return c.String(200, "ok")
	})
}
