package commands

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"blazeoffice/db"
	"blazeoffice/models"
	"blazeoffice/repository"
	"blazeoffice/services"
)

// app is the wired service graph shared by the server and the one-shot
// commands.
type app struct {
	db *sqlx.DB

	signups     *repository.WaitlistRepository
	commitments *repository.CommitmentRepository
	campaigns   *repository.CampaignRepository
	emailLogs   map[string]*repository.EmailLogRepository
	stats       *repository.StatsRepository

	dispatcher  *services.Dispatcher
	runner      *services.CampaignRunner
	waitlist    *services.WaitlistService
	pricing     *services.PricingService
	leaderboard *services.LeaderboardService
	commitment  *services.CommitmentService
	contact     *services.ContactService
	bulk        *services.BulkMailer
	backfill    *services.CountryBackfill
	chat        *services.ChatService
	auth        *services.AdminAuth

	closers []func() error
}

func newApp(ctx context.Context) (*app, error) {
	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{db: conn}
	a.closers = append(a.closers, conn.Close)

	if cfg.MigrateOnBoot {
		if err := db.Migrate(cfg.DatabaseURL, false, log); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.signups = repository.NewWaitlistRepository(conn)
	a.commitments = repository.NewCommitmentRepository(conn)
	a.campaigns = repository.NewCampaignRepository(conn)
	a.stats = repository.NewStatsRepository(conn)
	a.emailLogs = map[string]*repository.EmailLogRepository{
		models.AudienceWaitlist:   repository.NewEmailLogRepository(conn, models.AudienceWaitlist),
		models.AudienceCommitment: repository.NewEmailLogRepository(conn, models.AudienceCommitment),
	}
	logStores := map[string]services.EmailLogStore{}
	for audience, repo := range a.emailLogs {
		logStores[audience] = repo
	}

	templates, err := services.LoadDefaultTemplates(cfg.SiteURL)
	if err != nil {
		a.Close()
		return nil, err
	}

	var mailer services.Mailer
	if cfg.SendGridAPIKey != "" {
		mailer = services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName)
	} else {
		log.Warn("SENDGRID_API_KEY not set, outgoing email is disabled")
		mailer = services.NewDisabledMailer(log)
	}
	var pacer *rate.Limiter
	if cfg.EmailSendInterval > 0 {
		pacer = rate.NewLimiter(rate.Every(cfg.EmailSendInterval), 1)
	}
	a.dispatcher = services.NewDispatcher(mailer, templates, logStores, pacer, log)

	cache := a.cache(ctx)
	events := a.events()
	var notifier services.Notifier = services.NoopNotifier{}
	if cfg.Features.SlackEnabled && cfg.SlackWebhookURL != "" {
		notifier = services.NewSlackNotifier(cfg.SlackWebhookURL, log)
	}
	geo := services.NewHTTPGeoLocator(cfg.GeoIPURL, cfg.GeoIPTimeout)

	a.leaderboard = services.NewLeaderboardService(a.signups, repository.NewRewardRepository(conn), cache)
	a.pricing = services.NewPricingService(repository.NewPricingRepository(conn), a.commitments, cache, log)
	a.waitlist = services.NewWaitlistService(a.signups, a.dispatcher, a.leaderboard, events, cfg.SiteURL, log)
	a.commitment = services.NewCommitmentService(a.commitments, a.pricing, a.dispatcher, notifier, events, geo, log)
	a.contact = services.NewContactService(repository.NewContactRepository(conn), a.dispatcher, notifier, events, log)
	a.bulk = services.NewBulkMailer(a.signups, a.commitments, a.dispatcher, cfg.SiteURL, log)
	a.backfill = services.NewCountryBackfill(a.commitments, geo, cfg.GeoIPConcurrency, log)
	a.runner = services.NewCampaignRunner(a.campaigns, a.signups, a.commitments, a.dispatcher, cfg.SiteURL, cfg.MaxSendsPerRun, log)
	a.auth = services.NewAdminAuth(cfg.Admins(), cfg.AdminPasswordHash, cfg.JWTSecret, cfg.AdminTokenTTL)
	a.chat = services.NewChatService(a.chatModel(ctx), log)

	return a, nil
}

// cache falls back to no caching when Redis is off or unreachable.
func (a *app) cache(ctx context.Context) services.Cache {
	if !cfg.Features.CacheEnabled || cfg.RedisURL == "" {
		return services.NoopCache{}
	}
	c, err := services.NewRedisCache(ctx, cfg.RedisURL, cfg.CacheTTL, log)
	if err != nil {
		log.Warn("Redis unavailable, caching disabled", zap.Error(err))
		return services.NoopCache{}
	}
	a.closers = append(a.closers, c.Close)
	return c
}

func (a *app) events() services.EventPublisher {
	if !cfg.Features.EventsEnabled || cfg.AMQPURL == "" {
		return services.NoopPublisher{}
	}
	p, err := services.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	if err != nil {
		log.Warn("Event broker unavailable, events disabled", zap.Error(err))
		return services.NoopPublisher{}
	}
	a.closers = append(a.closers, p.Close)
	return p
}

func (a *app) chatModel(ctx context.Context) services.ChatModel {
	if !cfg.Features.ChatEnabled || cfg.GeminiAPIKey == "" {
		return nil
	}
	m, err := services.NewGeminiChatModel(ctx, cfg.GeminiAPIKey, cfg.ChatModel)
	if err != nil {
		log.Warn("Chat model unavailable, chat disabled", zap.Error(err))
		return nil
	}
	return m
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn("Shutdown close failed", zap.Error(err))
		}
	}
}

func requireAudience(audience string) error {
	switch audience {
	case models.AudienceWaitlist, models.AudienceCommitment:
		return nil
	default:
		return fmt.Errorf("%w: %q", services.ErrUnknownAudience, audience)
	}
}
