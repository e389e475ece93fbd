package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/airquality-etl/internal/api/http"
	"github.com/i474232898/airquality-etl/internal/config"
	"github.com/i474232898/airquality-etl/internal/history"
	"github.com/i474232898/airquality-etl/internal/scheduler"
	"github.com/i474232898/airquality-etl/internal/store"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline every SCHEDULE_INTERVAL and serve the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), true)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only API over the destination table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), false)
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd, serveCmd)
}

func serve(ctx context.Context, withScheduler bool) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Long-lived read handle for the API; pipeline runs open their own.
	st, err := store.Open(ctx, cfg.DB, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()
	if err := st.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	// In-memory run history with configured retention.
	runs := history.NewMemory(cfg.RunHistory, cfg.RunHistoryMaxAge)

	if withScheduler {
		p, err := newPipeline(cfg, log, true)
		if err != nil {
			return err
		}
		sched := scheduler.New(p, runs, cfg.ScheduleInterval, log)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	app := newApp(cfg)
	httpapi.RegisterRoutes(app, st, runs)

	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Error("fiber server stopped", "err", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "err", err)
	}
	return nil
}

func newApp(cfg *config.AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "airquality-etl",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	if cfg.AppEnv == "dev" {
		app.Use(logger.New())
	}
	app.Use(recover.New())
	return app
}
