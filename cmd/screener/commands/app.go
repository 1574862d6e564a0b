package commands

import (
	"fmt"

	"github.com/wonny/sevensplit/internal/external/dart"
	"github.com/wonny/sevensplit/internal/external/krx"
	"github.com/wonny/sevensplit/internal/external/naver"
	"github.com/wonny/sevensplit/internal/notify"
	"github.com/wonny/sevensplit/internal/screening"
	"github.com/wonny/sevensplit/internal/store"
	"github.com/wonny/sevensplit/internal/strategy"
	"github.com/wonny/sevensplit/pkg/config"
	"github.com/wonny/sevensplit/pkg/database"
	"github.com/wonny/sevensplit/pkg/httputil"
	"github.com/wonny/sevensplit/pkg/logger"
	"github.com/wonny/sevensplit/pkg/redis"
)

// app holds every wired component a command may need.
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	db           *database.DB
	redisClient  *redis.Client
	store        *store.Store
	settings     *store.Settings
	registry     *strategy.Registry
	collector    *screening.Collector
	orchestrator *screening.Orchestrator
}

// initApp wires the full screening pipeline from configuration.
// Callers own the shutdown (call close when done).
func initApp() (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.DART.APIKey == "" {
		return nil, fmt.Errorf("DART_API_KEY is required for screening")
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Connect to Redis (rate limiting + snapshot cache)
	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	limiter := redis.NewRateLimiter(redisClient, "screener")
	cache := redis.NewCache(redisClient, "screener")

	// 5. Create HTTP client
	httpClient := httputil.New(cfg, log)

	// 6. Create external API clients
	krxClient := krx.NewClient(cfg, log, limiter, cache)
	naverClient := naver.NewClient(httpClient, log)
	dartClient := dart.NewClient(cfg, log, limiter)

	// 7. Create persistence layer
	st := store.NewStore(db.Pool)
	settings := store.NewSettings(db.Pool)

	// 8. Create strategy registry
	registry := strategy.NewRegistry(settings)

	// 9. Create collector (KRX 시세 우선, 네이버 파이낸스 폴백)
	collector := screening.NewCollector(krxClient, krxClient, naverClient, dartClient, dartClient, dartClient, log)

	// 10. Create notifier
	webhookURL := ""
	if cfg.Discord.Enabled {
		webhookURL = cfg.Discord.WebhookURL
	}
	notifier := notify.NewDiscordNotifier(webhookURL, httpClient, log)

	// 11. Create orchestrator
	orchConfig := screening.Config{
		DefaultStrategy: cfg.Screening.DefaultStrategy,
		ProgressEvery:   cfg.Screening.ProgressEvery,
		FlushEvery:      cfg.Screening.FlushEvery,
		PaceInterval:    cfg.Screening.PaceInterval,
	}
	orchestrator := screening.NewOrchestrator(registry, collector, settings, st, notifier, orchConfig, log)

	return &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		redisClient:  redisClient,
		store:        st,
		settings:     settings,
		registry:     registry,
		collector:    collector,
		orchestrator: orchestrator,
	}, nil
}

func (a *app) close() {
	if a.redisClient != nil {
		a.redisClient.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
