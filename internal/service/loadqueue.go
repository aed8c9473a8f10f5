package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"guarita-loadqueue/common/database"
	"guarita-loadqueue/common/mqtt"
	rediscommon "guarita-loadqueue/common/redis"
	"guarita-loadqueue/internal/config"
	"guarita-loadqueue/internal/engine"
	"guarita-loadqueue/internal/httpapi"
	"guarita-loadqueue/internal/publisher"
	"guarita-loadqueue/internal/repository"
	"guarita-loadqueue/internal/snapshot"
	"guarita-loadqueue/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// LoadQueueService wires the source, engine, refresher, side stores and HTTP server
type LoadQueueService struct {
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqtt.Client

	store     *snapshot.Store
	engine    *engine.Engine
	refresher *Refresher
	server    *Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLoadQueueService connects to the configured backends
func NewLoadQueueService(cfg *config.Config, logger *zap.Logger) (*LoadQueueService, error) {
	s := &LoadQueueService{config: cfg, logger: logger}

	var source repository.Source
	switch cfg.Source.Mode {
	case config.SourceREST:
		source = repository.NewRESTSource(cfg.Source.REST.BaseURL, cfg.Source.REST.APIKey, cfg.Source.REST.Timeout, cfg.Source.HistoryDays, logger)
	default:
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.db = db
		source = repository.NewPostgresSource(db, cfg.Source.HistoryDays, logger)
	}

	// Redis is optional: without it the view cache, preferences and alert stream are off
	var kv store.KVStore
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
		logger.Warn("Redis unavailable, side stores disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = redisClient.Close()
	} else {
		s.redisClient = redisClient
		kv = store.NewRedisKVStore(redisClient)
	}

	var alertPublishers []publisher.AlertPublisher
	if cfg.Alerts.MQTTEnabled {
		client, err := mqtt.NewClient(&cfg.MQTT, logger)
		if err != nil {
			s.closeBackends()
			return nil, fmt.Errorf("failed to connect to mqtt broker: %w", err)
		}
		s.mqttClient = client
		alertPublishers = append(alertPublishers, publisher.NewMQTTAlertPublisher(client, cfg.Alerts.MQTTTopic))
	}
	if cfg.Alerts.StreamEnabled && s.redisClient != nil {
		alertPublishers = append(alertPublishers, publisher.NewStreamAlertPublisher(s.redisClient, cfg.Alerts.Stream, cfg.Alerts.StreamMaxLen))
	}

	s.store = snapshot.NewStore()
	s.engine = engine.NewEngine(s.store, cfg.Engine.Location, logger, engine.WithRankingLimit(cfg.Engine.RankingLimit))
	s.refresher = NewRefresher(source, s.store, cfg.Engine.RefreshInterval, logger)

	var sink ViewSink
	var cached ViewSource
	var prefs httpapi.PreferenceLists
	if kv != nil {
		if cfg.ViewCache.Enabled {
			cache := store.NewViewCache(kv, cfg.ViewCache.Key, cfg.ViewCache.TTL, logger)
			sink, cached = cache, cache
		}
		prefs = store.NewPreferenceStore(kv, cfg.Preferences.KeyPrefix, logger)
	}
	views := NewViewPublisher(s.engine, sink, publisher.NewDispatcher(logger, alertPublishers...), logger)
	views.Restore(context.Background(), cached)
	s.refresher.OnRefresh(views.Publish)

	router := httpapi.NewRouter(logger)
	router.RegisterLoadQueueRoutes(httpapi.NewLoadQueueHandler(s.engine, source, s.refresher, prefs, logger))
	s.server = NewServer(cfg.HTTP.Addr, router, logger)

	return s, nil
}

// Start runs the refresher and the HTTP server until ctx is done or the server fails
func (s *LoadQueueService) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.logger.Info("Starting load queue service",
		zap.String("source_mode", s.config.Source.Mode),
		zap.Duration("refresh_interval", s.config.Engine.RefreshInterval),
		zap.String("timezone", s.config.Engine.Timezone),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.refresher.Run(ctx)
	}()

	return s.server.Start()
}

// Stop shuts the HTTP server down, waits for the refresher and closes the backends
func (s *LoadQueueService) Stop(ctx context.Context) error {
	var errs []error
	if err := s.server.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	if err := s.closeBackends(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *LoadQueueService) closeBackends() error {
	var errs []error
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if err := rediscommon.Close(s.redisClient); err != nil {
		errs = append(errs, fmt.Errorf("redis: %w", err))
	}
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	return errors.Join(errs...)
}
