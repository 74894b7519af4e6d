package commands

import (
	"fmt"

	"github.com/lamnt/fashionstore/internal/catalog"
	"github.com/lamnt/fashionstore/internal/extract"
	"github.com/lamnt/fashionstore/internal/mining"
	"github.com/lamnt/fashionstore/internal/orders"
	"github.com/lamnt/fashionstore/internal/reco"
	"github.com/lamnt/fashionstore/pkg/config"
	"github.com/lamnt/fashionstore/pkg/database"
	"github.com/lamnt/fashionstore/pkg/logger"
	"github.com/lamnt/fashionstore/pkg/redis"
)

// services holds the wired application components shared by the CLI
// commands.
type services struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *database.DB
	redisClient *redis.Client

	catalogRepo *catalog.Repository
	ordersRepo  *orders.Repository

	extractor    *extract.Extractor
	orchestrator *mining.Orchestrator
	bridge       *mining.Bridge

	corrCache *reco.CorrelationCache
	scorer    *reco.Scorer
	service   *reco.Service
	combos    *reco.ComboBuilder
}

// buildServices loads configuration, connects the collaborators and wires
// every component of the subsystem.
func buildServices() (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)
	if verbose {
		cfg.LogLevel = "debug"
		log = logger.New(cfg)
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	catalogRepo := catalog.NewRepository(db.Pool)
	ordersRepo := orders.NewRepository(db.Pool)

	extractor := extract.New(ordersRepo, cfg.Mining, log)
	materializer := mining.NewMaterializer(catalogRepo, cfg.Mining, log)
	orchestrator := mining.NewOrchestrator(extractor, materializer, cfg.Mining, log)
	bridge := mining.NewBridge(cfg.Mining, log)

	corrCache := reco.NewCorrelationCache(cfg.Mining, log)
	scorer := reco.NewScorer(corrCache, catalogRepo, log)
	cartCache := redis.NewCache(redisClient, "recsys")
	service := reco.NewService(corrCache, scorer, catalogRepo, ordersRepo, bridge, cartCache, cfg.Mining, log)
	combos := reco.NewComboBuilder(corrCache, catalogRepo, log)

	return &services{
		cfg:          cfg,
		log:          log,
		db:           db,
		redisClient:  redisClient,
		catalogRepo:  catalogRepo,
		ordersRepo:   ordersRepo,
		extractor:    extractor,
		orchestrator: orchestrator,
		bridge:       bridge,
		corrCache:    corrCache,
		scorer:       scorer,
		service:      service,
		combos:       combos,
	}, nil
}

// Close releases the collaborator connections.
func (s *services) Close() {
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.WithError(err).Warn("Failed to close redis client")
		}
	}
	if s.db != nil {
		s.db.Close()
	}
}
