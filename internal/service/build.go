package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MereWhiplash/jobmatch/internal/config"
	"github.com/MereWhiplash/jobmatch/internal/conversation"
	"github.com/MereWhiplash/jobmatch/internal/embedcache"
	"github.com/MereWhiplash/jobmatch/internal/embedder"
	"github.com/MereWhiplash/jobmatch/internal/generator"
	"github.com/MereWhiplash/jobmatch/internal/index"
	"github.com/MereWhiplash/jobmatch/internal/logger"
	"github.com/MereWhiplash/jobmatch/internal/matching"
	"github.com/MereWhiplash/jobmatch/internal/storage"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

// Deps overrides the external capabilities Build would otherwise create from config
type Deps struct {
	Storage   storage.Storage
	Embedder  embedder.Embedder
	Generator generator.Generator
}

// Build constructs the whole core from settings. The returned Service owns the
// storage backend and closes it on Close.
func Build(ctx context.Context, cfg *config.Config, deps Deps, log *zap.Logger) (*Service, error) {
	log = logger.OrNop(log)

	required := make([]types.PreferenceField, 0, len(cfg.Conversation.RequiredFields))
	for _, name := range cfg.Conversation.RequiredFields {
		f, err := types.ParsePreferenceField(name)
		if err != nil {
			return nil, fmt.Errorf("conversation.required-fields: %w", err)
		}
		required = append(required, f)
	}

	var err error
	emb := deps.Embedder
	if emb == nil {
		if emb, err = embedder.New(ctx, cfg.Embedding); err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
	}
	gen := deps.Generator
	if gen == nil {
		if gen, err = generator.New(ctx, cfg.Generation); err != nil {
			return nil, fmt.Errorf("failed to create generator: %w", err)
		}
	}

	store := deps.Storage
	if store == nil {
		store, err = storage.New(ctx, storage.Config{
			Driver:          cfg.Storage.Driver,
			SQLitePath:      cfg.Storage.SQLitePath,
			PostgresDSN:     cfg.Storage.PostgresDSN,
			MongoDBURI:      cfg.Storage.MongoDBURI,
			MongoDBDatabase: cfg.Storage.MongoDBDatabase,
			RedisAddr:       cfg.Storage.RedisAddr,
			RedisPassword:   cfg.Storage.RedisPassword,
			RedisDB:         cfg.Storage.RedisDB,
			RedisPrefix:     cfg.Storage.RedisPrefix,
			SessionTTL:      cfg.Storage.SessionTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	tiers := []embedcache.Store{embedcache.NewMemoryStore(cfg.Cache.MemoryEntries)}
	var cacheClient *redis.Client
	if cfg.Cache.Redis {
		cacheClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		if err := cacheClient.Ping(ctx).Err(); err != nil {
			cacheClient.Close()
			store.Close()
			return nil, fmt.Errorf("failed to reach redis cache: %w", err)
		}
		tiers = append(tiers, embedcache.NewRedisStore(cacheClient, cfg.Cache.Prefix, cfg.Cache.TTL))
	}
	cache := embedcache.New(emb, log.Named("cache"), tiers...)

	jobs := index.NewDurable(types.KindJob, store, log.Named("index"))
	candidates := index.NewDurable(types.KindCandidate, store, log.Named("index"))
	for _, idx := range []*index.Durable{jobs, candidates} {
		if err := idx.Load(ctx); err != nil {
			if cacheClient != nil {
				cacheClient.Close()
			}
			store.Close()
			return nil, err
		}
	}

	matcher := matching.New(cache, jobs, candidates, gen, log.Named("matching"),
		matching.WithTopK(cfg.Matching.DefaultTopK, cfg.Matching.MaxTopK),
		matching.WithRecentResults(cfg.Matching.RecentResults),
		matching.WithIndexWorkers(cfg.Matching.IndexWorkers),
		matching.WithAnalysisMemo(cfg.Matching.AnalysisMemo),
	)
	chats := conversation.New(store, gen, log.Named("conversation"),
		conversation.WithRequiredFields(required...),
		conversation.WithMatcher(matcher),
		conversation.WithTurnTopK(cfg.Conversation.RecommendTopK),
	)

	svc := New(matcher, chats, cache, store, cfg.ProviderTimeout, log)
	if cacheClient != nil {
		svc.closers = append(svc.closers, cacheClient.Close)
	}
	return svc, nil
}
