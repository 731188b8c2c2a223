// Package app wires every adapter and collaborator spec.md names into one
// process, mirroring the teacher's internal/app.New: a single constructor
// that builds the logger, the relational store, every platform adapter,
// then the domain-level services on top, and returns one struct the
// entrypoint starts and stops. RUN_SERVER / RUN_WORKER / RUN_NOTIFIER
// gate which of the three independent loops (HTTP server, Job Worker,
// Notifier Worker) this process actually runs, since spec.md §4 treats
// them as separable deployables, not one monolith.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/streemm-backend/internal/data/graph"
	catalogrepo "github.com/yungbote/streemm-backend/internal/data/repos/catalog"
	videorepo "github.com/yungbote/streemm-backend/internal/data/repos/video"
	"github.com/yungbote/streemm-backend/internal/enrich"
	"github.com/yungbote/streemm-backend/internal/ffmpeg"
	httpapi "github.com/yungbote/streemm-backend/internal/http"
	"github.com/yungbote/streemm-backend/internal/http/handlers"
	"github.com/yungbote/streemm-backend/internal/media"
	"github.com/yungbote/streemm-backend/internal/notifier"
	"github.com/yungbote/streemm-backend/internal/platform/envutil"
	"github.com/yungbote/streemm-backend/internal/platform/gcp"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
	"github.com/yungbote/streemm-backend/internal/platform/neo4jdb"
	"github.com/yungbote/streemm-backend/internal/platform/openai"
	"github.com/yungbote/streemm-backend/internal/platform/otelsetup"
	"github.com/yungbote/streemm-backend/internal/platform/pgdb"
	"github.com/yungbote/streemm-backend/internal/platform/redisqueue"
	"github.com/yungbote/streemm-backend/internal/platform/searchindex"
	"github.com/yungbote/streemm-backend/internal/platform/sendgrid"
	"github.com/yungbote/streemm-backend/internal/recall"
	"github.com/yungbote/streemm-backend/internal/seed"
	"github.com/yungbote/streemm-backend/internal/worker"
)

type App struct {
	Log    *logger.Logger
	DB     *gorm.DB
	Cfg    Config
	Router *gin.Engine
	Recall *recall.Engine

	worker   *worker.Worker
	notifier *notifier.Worker

	cancel         context.CancelFunc
	tracerShutdown otelsetup.Shutdown
}

func New() (*App, error) {
	logMode := envutil.GetEnv("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig()

	tracerShutdown, err := otelsetup.Setup(context.Background(), log, "streemm-backend")
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init otel tracing: %w", err)
	}

	db, err := pgdb.Open(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pgdb.AutoMigrate(db); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}

	search, err := searchindex.New(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init search index: %w", err)
	}
	bootstrapCtx, cancelBootstrap := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBootstrap()
	if err := search.Bootstrap(bootstrapCtx); err != nil {
		log.Warn("search index bootstrap failed, continuing without guaranteed indexes", "error", err)
	}

	kg, err := newGraph(bootstrapCtx, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init graph store: %w", err)
	}

	videos := videorepo.NewVideoRepo(db, log)
	assets := videorepo.NewVideoAssetRepo(db, log)
	summaries := videorepo.NewVideoSummaryRepo(db, log)
	watchHistory := videorepo.NewWatchHistoryRepo(db, log)
	catalog := catalogrepo.NewCatalogRepo(db, log)

	seedBuilder := seed.NewBuilder(log, watchHistory, videos, catalog, search)
	recallEngine := recall.NewEngine(log, seedBuilder, search, kg, cfg.Recall)

	a := &App{Log: log, DB: db, Cfg: cfg, Recall: recallEngine, tracerShutdown: tracerShutdown}

	if cfg.RunServer {
		searchHandler := handlers.NewSearchHandler(search)
		healthHandler := handlers.NewHealthHandler()
		a.Router = httpapi.NewRouter(httpapi.RouterConfig{
			HealthHandler: healthHandler,
			SearchHandler: searchHandler,
		})
	}

	if cfg.RunWorker {
		bucket, err := resolveBucketService(log, cfg)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		speech, err := gcp.NewSpeech(log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init speech client: %w", err)
		}
		ai, err := openai.NewClient(log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init openai client: %w", err)
		}
		queue, err := newQueue(log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init queue: %w", err)
		}

		ff := ffmpeg.NewRunner(log)
		processor := media.NewProcessor(log, ff, bucket, speech)
		enricher := enrich.NewEnricher(log, db, ai, videos, summaries, catalog, kg, search)
		a.worker = worker.New(log, queue, videos, assets, bucket, ff, processor, enricher, search)
	}

	if cfg.RunNotifier {
		mail, err := sendgrid.NewFromEnv(log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init mail client: %w", err)
		}
		queue, err := newQueue(log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init queue: %w", err)
		}
		a.notifier = notifier.New(log, queue, videos, mail)
	}

	return a, nil
}

func newGraph(ctx context.Context, log *logger.Logger) (*graph.VideoKG, error) {
	client, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		return nil, err
	}
	if client == nil {
		log.Warn("NEO4J_URI not set, graph lane disabled")
		return nil, nil
	}
	kg := graph.NewVideoKG(client, log)
	kg.EnsureConstraints(ctx)
	return kg, nil
}

func newQueue(log *logger.Logger) (*redisqueue.Service, error) {
	addr := envutil.GetEnv("REDIS_ADDR", "localhost:6379")
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, DialTimeout: 5 * time.Second})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return redisqueue.New(log, rdb), nil
}

// Start launches every enabled background loop on its own goroutine; Run
// (for the HTTP server) is a separate, blocking call the entrypoint makes
// afterwards on the main goroutine.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if a.worker != nil {
		go a.worker.Start(ctx)
	}
	if a.notifier != nil {
		go a.notifier.Start(ctx)
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app: HTTP server not enabled (RUN_SERVER=false)")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.tracerShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.tracerShutdown(shutdownCtx); err != nil && a.Log != nil {
			a.Log.Warn("otel tracer shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
