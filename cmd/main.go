package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/internal/api"
	"github.com/satriahrh/arunika/interview/internal/auth"
	"github.com/satriahrh/arunika/interview/internal/config"
	"github.com/satriahrh/arunika/interview/internal/websocket"
	"github.com/satriahrh/arunika/interview/usecase"
)

type rootOptions struct {
	debug bool
}

func (o *rootOptions) newLogger() (*zap.Logger, error) {
	if o.debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "interview",
		Short:         "Real-time mock interview orchestrator",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable development logging")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newPracticeCommand(opts))
	root.AddCommand(newTopicsCommand(opts))
	root.AddCommand(newSmokeCommand())
	return root
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var mockSpeech bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve interviews over WebSocket and reports over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return serve(buildOptions{speech: true, mockSpeech: mockSpeech}, logger)
		},
	}
	cmd.Flags().BoolVar(&mockSpeech, "mock-speech", false, "echo text frames instead of calling speech services")
	return cmd
}

func serve(opts buildOptions, logger *zap.Logger) error {
	cfg, err := config.Load(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := buildComponents(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	defer comps.Close(context.Background(), logger)

	retention := usecase.NewReportRetentionService(comps.reports, usecase.RetentionConfig{Retention: cfg.ReportRetention}, logger)
	retention.Start()
	defer retention.Stop()

	var authenticator *auth.Authenticator
	if cfg.JWTSecret != "" {
		authenticator, err = auth.NewAuthenticator(cfg.JWTSecret, 0)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("JWT_SECRET not set, every candidate is anonymous")
	}

	// Initialize WebSocket hub with the interview service
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	hub := websocket.NewHub(comps.interviews, websocket.HubConfig{}, logger)
	go hub.Run(hubCtx)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, api.Dependencies{
		Hub:     hub,
		Topics:  comps.topics,
		Reports: comps.reporting,
		Auth:    authenticator,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("Interview server started", zap.String("port", cfg.Port))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
		return err
	}

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cancelHub()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exited")
	return nil
}
