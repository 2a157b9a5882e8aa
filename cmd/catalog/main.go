package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ItemCatalog/internal/catalog"
	"ItemCatalog/internal/config"
	"ItemCatalog/pkg/kit"
)

const service = "catalog"

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := kit.NewLogger(service, cfg.Server.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg.Store, log)
	if err != nil {
		log.Fatal("open store failed", zap.Error(err), zap.String("driver", cfg.Store.Driver))
	}
	defer be.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	stats := catalog.NewStatsCache(be.store, be.detector, catalog.NewCacheMetrics(reg))
	startWatch(ctx, cfg.Watch, be, stats, log)

	s := &catalog.Server{
		Store: be.store,
		Stats: stats,
		Log:   log,
	}
	if cfg.Server.WriteLimit > 0 {
		s.WriteLimiter = kit.NewIPRateLimiter(cfg.Server.WriteLimit, cfg.Server.WriteWindow)
	}

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
	})

	if err := kit.RunHTTPServer(ctx, ":"+strconv.Itoa(cfg.Server.Port), h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

type backend struct {
	store    catalog.Store
	detector catalog.Detector
	file     *catalog.FileDetector
	close    func()
}

func openBackend(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (*backend, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		ps := catalog.NewPostgresStore(db)
		if err := ps.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &backend{store: ps, detector: ps, close: func() { _ = db.Close() }}, nil

	case "memory":
		ms := catalog.NewMemStore(catalog.DefaultItems()...)
		return &backend{store: ms, detector: ms, close: func() {}}, nil

	default:
		fs := catalog.NewFileStore(cfg.Path)
		if cfg.Seed {
			if err := fs.Seed(catalog.DefaultItems()); err != nil {
				return nil, err
			}
		}
		fd := catalog.NewFileDetector(cfg.Path, log)
		return &backend{store: fs, detector: fd, file: fd, close: func() {}}, nil
	}
}

func startWatch(ctx context.Context, cfg config.WatchConfig, be *backend, stats *catalog.StatsCache, log *zap.Logger) {
	mode := cfg.Mode
	if mode == "fsnotify" && be.file == nil {
		mode = "poll"
	}

	switch mode {
	case "fsnotify":
		if err := be.file.Watch(ctx, stats.Invalidate); err != nil {
			log.Warn("file watch unavailable, falling back to polling", zap.Error(err))
			catalog.PollWatch(ctx, be.detector, cfg.Interval, stats.Invalidate, log)
		}
	case "poll":
		catalog.PollWatch(ctx, be.detector, cfg.Interval, stats.Invalidate, log)
	default:
		log.Info("change push disabled; stats cache relies on per-request signal checks")
	}
}
