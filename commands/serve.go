package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"blazeoffice/handlers"
	"blazeoffice/middleware"
	"blazeoffice/models"
	"blazeoffice/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting BLAZE back-office",
		zap.String("environment", cfg.Environment),
		zap.Bool("chat", cfg.Features.ChatEnabled),
		zap.Bool("scheduler", cfg.Features.SchedulerEnabled),
		zap.Bool("slack", cfg.Features.SlackEnabled),
		zap.Bool("events", cfg.Features.EventsEnabled),
		zap.Bool("cache", cfg.Features.CacheEnabled))

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.CronSecret == "" {
		log.Warn("CRON_SECRET not set, cron endpoints will reject every request")
	}

	done := make(chan struct{})
	defer close(done)
	signupLimiter := middleware.NewRateLimiter(cfg.SignupRatePerMin, cfg.SignupBurst, log)
	chatLimiter := middleware.NewRateLimiter(cfg.ChatRatePerMin, cfg.ChatBurst, log)
	signupLimiter.StartCleanup(10*time.Minute, done)
	chatLimiter.StartCleanup(10*time.Minute, done)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handlers.NewHandler(handlers.Deps{
		Waitlist:    a.waitlist,
		Commitments: a.commitment,
		Pricing:     a.pricing,
		Leaderboard: a.leaderboard,
		Contact:     a.contact,
		Chat:        a.chat,
		Bulk:        a.bulk,
		Backfill:    a.backfill,
		Stats:       a.stats,
		Campaigns:   a.campaigns,
		EmailLogs: map[string]handlers.EmailLogReader{
			models.AudienceWaitlist:   a.emailLogs[models.AudienceWaitlist],
			models.AudienceCommitment: a.emailLogs[models.AudienceCommitment],
		},
		Runner:         a.runner,
		Auth:           a.auth,
		CronSecret:     cfg.CronSecret,
		SecureCookies:  cfg.IsProduction(),
		TrustedProxies: cfg.Proxies(),
		SignupLimiter:  signupLimiter,
		ChatLimiter:    chatLimiter,
	}, log)

	var scheduler *services.Scheduler
	if cfg.Features.SchedulerEnabled {
		scheduler = services.NewScheduler(a.runner, log)
		if err := scheduler.Add(cfg.DripSchedule, models.AudienceWaitlist); err != nil {
			return err
		}
		if err := scheduler.Add(cfg.CommitmentSchedule, models.AudienceCommitment); err != nil {
			return err
		}
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			log.Warn("Scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
		return err
	}
	log.Info("Server stopped")
	return nil
}
