package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/contentops/scheduler/ui/rest"
	"github.com/contentops/scheduler/ui/rest/middleware"
	"github.com/contentops/scheduler/ui/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the scheduling engine over HTTP and run the pollers",
	Run:   restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func restServer(_ *cobra.Command, _ []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pollers.Start(ctx); err != nil {
		logrus.Fatalf("failed to start pollers: %v", err)
	}

	fiberConfig := fiber.Config{
		AppName:      "Content Scheduler",
		Network:      "tcp",
		ServerHeader: "Hidden",
	}
	if len(appConfig.App.TrustedProxies) > 0 {
		fiberConfig.EnableTrustedProxyCheck = true
		fiberConfig.TrustedProxies = appConfig.App.TrustedProxies
		fiberConfig.ProxyHeader = fiber.HeaderXForwardedFor
	}

	app := fiber.New(fiberConfig)

	app.Use(requestid.New())
	app.Use(middleware.Recovery())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(appConfig.App.CorsAllowedOrigins, ", "),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Actor, X-Request-ID",
	}))
	if appConfig.App.Debug {
		app.Use(logger.New())
	}

	api := app.Group(appConfig.App.BasePath)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": appConfig.App.Version})
	})

	handler := rest.NewScheduleHandler(schedulerService, templateService, statsService)
	handler.Register(api)

	go websocket.RunHub()
	websocket.RegisterRoutes(api)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logrus.Info("[APP] Shutdown signal received")
		cancel()
		_ = app.Shutdown()
	}()

	logrus.Infof("[APP] Listening on :%s", appConfig.App.Port)
	if err := app.Listen(":" + appConfig.App.Port); err != nil {
		logrus.WithError(err).Error("[APP] Server stopped")
	}

	StopApp()
}
