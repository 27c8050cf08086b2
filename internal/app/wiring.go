package app

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hitoshi/backoffice/internal/account"
	"github.com/hitoshi/backoffice/internal/blobstore"
	"github.com/hitoshi/backoffice/internal/catalog"
	"github.com/hitoshi/backoffice/internal/config"
	"github.com/hitoshi/backoffice/internal/database"
	"github.com/hitoshi/backoffice/internal/dedupe"
	"github.com/hitoshi/backoffice/internal/functions"
	"github.com/hitoshi/backoffice/internal/identity"
	"github.com/hitoshi/backoffice/internal/metrics"
	"github.com/hitoshi/backoffice/internal/repository"
	"github.com/hitoshi/backoffice/internal/role"
	"github.com/hitoshi/backoffice/internal/search"
	"github.com/hitoshi/backoffice/internal/trigger"
)

// stores はドキュメントストアごとのリポジトリ実装をまとめた構造体。
type stores struct {
	profiles repository.ProfileRepository
	roles    repository.RoleRepository
	counters repository.CounterRepository
	lister   repository.DocumentLister
	health   repository.HealthChecker
}

func firestoreStores(client *firestore.Client) stores {
	lister := repository.NewFirestoreDocumentLister(client)
	return stores{
		profiles: repository.NewFirestoreProfileRepo(client),
		roles:    repository.NewFirestoreRoleRepo(client),
		counters: repository.NewFirestoreCounterRepo(client),
		lister:   lister,
		health:   lister,
	}
}

func mongoStores(store *repository.MongoStore) stores {
	return stores{
		profiles: repository.NewMongoProfileRepo(store),
		roles:    repository.NewMongoRoleRepo(store),
		counters: repository.NewMongoCounterRepo(store),
		lister:   store,
		health:   store,
	}
}

// backend はプロセス起動時に1回だけ生成し、全ての関数呼び出しで共有する依存関係。
type backend struct {
	cfg       *config.Config
	firebase  *database.FirebaseClients
	mongo     *mongo.Client
	redis     *redis.Client
	stores    stores
	provider  *identity.FirebaseProvider
	indexer   *catalog.Indexer
	registry  *trigger.Registry
	collector *metrics.Collector
	gatherer  prometheus.Gatherer
}

// newBackend は設定に従って外部サービスへ接続し、関数を登録したRegistryを構築する。
func newBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	rt := &backend{cfg: cfg}

	useFirestore := cfg.DocumentStore == config.DocumentStoreFirestore
	fb, err := database.OpenFirebase(ctx, database.FirebaseConfig{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsFile: cfg.CredentialsFile,
		StorageBucket:   cfg.StorageBucket,
	}, useFirestore)
	if err != nil {
		return nil, err
	}
	rt.firebase = fb

	if useFirestore {
		rt.stores = firestoreStores(fb.Firestore)
	} else {
		client, err := database.OpenMongo(ctx, cfg.MongoURI)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.mongo = client
		rt.stores = mongoStores(repository.NewMongoStore(client, cfg.MongoDatabase))
		slog.Info("mongodb connection established", slog.String("database", cfg.MongoDatabase))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rt.collector = metrics.NewCollector(reg)
	rt.gatherer = reg

	opts := []trigger.Option{trigger.WithRecorder(rt.collector)}
	if cfg.RedisURL != "" {
		client, err := database.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.redis = client
		opts = append(opts, trigger.WithDeduplicator(dedupe.NewRedisDeduplicator(client, cfg.DedupeTTL)))
		slog.Info("duplicate delivery guard enabled", slog.String("store", "redis"), slog.Duration("ttl", cfg.DedupeTTL))
	} else {
		opts = append(opts, trigger.WithDeduplicator(dedupe.NewMemoryDeduplicator(0, cfg.DedupeTTL)))
		slog.Info("duplicate delivery guard enabled", slog.String("store", "memory"), slog.Duration("ttl", cfg.DedupeTTL))
	}

	rt.provider = identity.NewFirebaseProvider(fb.Auth)
	rt.indexer = catalog.NewIndexer(search.NewAlgoliaIndexer(search.Config{
		AppID:     cfg.AlgoliaAppID,
		AdminKey:  cfg.AlgoliaAdminKey,
		SearchKey: cfg.AlgoliaSearchKey,
		IndexName: cfg.AlgoliaIndexName,
	}), slog.Default())

	registry, err := buildRegistry(functions.Deps{
		Accounts: account.NewService(rt.stores.profiles),
		Roles: role.NewService(rt.provider, rt.stores.roles,
			role.WithCompensation(cfg.RoleCompensation)),
		Indexer:  rt.indexer,
		Counters: catalog.NewCounters(rt.stores.counters, slog.Default()),
		Images: catalog.NewImageCleaner(blobstore.NewGCSBucket(fb.Bucket), rt.collector,
			slog.Default(), cfg.ImageDeleteConcurrency),
	}, opts...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.registry = registry

	return rt, nil
}

// buildRegistry は全ての関数を登録したRegistryを生成する。
func buildRegistry(deps functions.Deps, opts ...trigger.Option) (*trigger.Registry, error) {
	registry := trigger.NewRegistry(opts...)
	if err := functions.Register(registry, deps); err != nil {
		return nil, fmt.Errorf("failed to register functions: %w", err)
	}
	for _, fn := range registry.Functions() {
		slog.Debug("function registered",
			slog.String("function", fn.Name),
			slog.String("kind", string(fn.Kind)),
			slog.String("collection", fn.Collection),
		)
	}
	return registry, nil
}

// Close は保持している接続を閉じる。
func (rt *backend) Close() {
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			slog.Warn("failed to close redis client", slog.String("error", err.Error()))
		}
	}
	if rt.mongo != nil {
		if err := rt.mongo.Disconnect(context.Background()); err != nil {
			slog.Warn("failed to disconnect mongodb", slog.String("error", err.Error()))
		}
	}
	if rt.firebase != nil {
		if err := rt.firebase.Close(); err != nil {
			slog.Warn("failed to close firebase clients", slog.String("error", err.Error()))
		}
	}
}
