package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/blank-marketing/blank/internal/api"
	"github.com/blank-marketing/blank/internal/app/progression"
	"github.com/blank-marketing/blank/internal/domain"
	"github.com/blank-marketing/blank/internal/health"
	"github.com/blank-marketing/blank/internal/infra/catalog"
	"github.com/blank-marketing/blank/internal/infra/filestore"
	"github.com/blank-marketing/blank/internal/infra/scheduler"
	"github.com/blank-marketing/blank/internal/infra/sqlite"
)

// Daemon is the core Blank runtime. It wires together all services.
type Daemon struct {
	Config    Config
	Log       *zap.Logger
	DB        *sqlite.DB // nil unless the sqlite backend is selected
	Catalog   *catalog.Catalog
	Store     *progression.Store
	Hub       *api.Hub
	Server    *api.Server
	Scheduler *scheduler.Scheduler
	Health    *health.Checker

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New loads the configuration and creates a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, log)
}

// NewWithConfig creates a Daemon with the given configuration. Nothing runs
// until Serve is called, so CLI commands can use the store directly.
func NewWithConfig(cfg Config, log *zap.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	days, err := cfg.DayPolicy()
	if err != nil {
		return nil, err
	}
	flushEvery, err := cfg.FlushInterval()
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(cfg.Catalog.File)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	d := &Daemon{Config: cfg, Log: log, Catalog: cat}

	repo, pinger, err := d.openRepository()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := progression.New(ctx, progression.Options{
		Key:        cfg.Store.Key,
		Catalog:    cat,
		Repository: repo,
		Days:       days,
		Logger:     log,
	})
	if err != nil {
		d.closeDB()
		return nil, fmt.Errorf("open progression store: %w", err)
	}
	d.Store = store

	// Live feed
	d.Hub = api.NewHub(store, log)
	store.Subscribe(d.Hub)

	// API server
	d.Server = api.NewServer(store, d.Hub, log)
	d.Server.SetCORSOrigins(cfg.API.CORSOrigins)
	if cfg.Telemetry.Prometheus {
		d.Server.EnableMetrics()
	}

	// Health checker
	d.Health = health.NewChecker(pinger, store, cfg.Store.Dir, log)
	d.Server.SetHealth(d.Health)

	// Day rollover + write retry
	var marker scheduler.Marker
	if d.DB != nil {
		marker = d.DB
	}
	d.Scheduler = scheduler.NewScheduler(scheduler.Config{
		Location:      days.Location,
		RolloverHour:  days.CutoffHour,
		FlushInterval: flushEvery,
	}, store, marker, log)

	return d, nil
}

// openRepository opens the configured backend. Both return values are nil
// for the memory backend.
func (d *Daemon) openRepository() (domain.ProgressionRepository, health.Pinger, error) {
	switch d.Config.Store.Backend {
	case BackendSQLite:
		db, err := sqlite.Open(d.Config.Store.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		d.DB = db
		return db, db, nil
	case BackendFile:
		fs := filestore.New(d.Config.Store.Dir)
		return fs, fs, nil
	default:
		d.Log.Warn("memory backend: progression is lost on exit")
		return nil, nil, nil
	}
}

// Serve starts the background services and the HTTP server and blocks
// until ctx is cancelled or the process receives SIGINT/SIGTERM.
func (d *Daemon) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.Config.Addr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return d.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (d *Daemon) ServeListener(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)

	if err := d.Scheduler.Start(); err != nil {
		cancel()
		ln.Close()
		return err
	}

	httpServer := &http.Server{
		Handler:           d.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		d.Scheduler.Stop()
		d.Hub.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			d.Log.Warn("http shutdown", zap.Error(err))
		}
		d.Close()
	}()

	addr := ln.Addr().String()
	fmt.Printf("Blank serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}
	d.Log.Info("serving",
		zap.String("addr", addr),
		zap.String("backend", d.Config.Store.Backend),
		zap.String("key", d.Store.Key()))

	err := httpServer.Serve(ln)
	cancel()
	<-done
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close flushes any pending write and releases all daemon resources.
// It is safe to call more than once.
func (d *Daemon) Close() {
	d.closeOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		if d.Scheduler != nil {
			d.Scheduler.Stop()
		}
		if d.Hub != nil {
			d.Hub.Close()
		}
		if d.Store != nil && d.Store.Dirty() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := d.Store.Flush(ctx); err != nil {
				d.Log.Error("final flush failed, last changes are lost", zap.Error(err))
			}
			cancel()
		}
		d.closeDB()
		_ = d.Log.Sync()
	})
}

func (d *Daemon) closeDB() {
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
