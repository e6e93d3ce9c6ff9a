// Package daemon provides background service functionality.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/user/linkalert/internal/api"
	"github.com/user/linkalert/internal/engine"
	"github.com/user/linkalert/internal/logger"
	"github.com/user/linkalert/internal/notify"
	"github.com/user/linkalert/internal/source"
	"github.com/user/linkalert/internal/storage"
	"github.com/user/linkalert/internal/util"
)

// Daemon manages the background service.
type Daemon struct {
	config    *util.Config
	scheduler *Scheduler
	store     storage.Store
	engine    *engine.Engine
	apiServer *api.Server
	pidFile   string
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	startTime time.Time
	mu        sync.RWMutex
}

// New wires a daemon instance: storage, engine state, channels, the
// evaluation engine, and the introspection server.
func New(cfg *util.Config) (*Daemon, error) {
	store, err := storage.Open(storage.Options{
		Backend:     cfg.StorageBackend,
		DataDir:     cfg.DataDir,
		PostgresDSN: cfg.PostgresDSN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	state, err := buildStateStore(cfg, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	registry := notify.NewRegistry()
	registerChannels(registry, cfg.Channels)

	dispatcher := notify.NewDispatcher(registry, cfg.SendTimeout)
	health := engine.NewHealthMonitor(engine.HealthMonitorConfig{
		FailureThreshold: cfg.Health.FailureThreshold,
		AlertCooldown:    cfg.Health.AlertCooldown,
	})

	eng := engine.New(engine.Config{
		WorkerLimit:      cfg.WorkerLimit,
		StateTTL:         cfg.StateTTL,
		HealthChannels:   cfg.Health.Channels,
		HealthRecipients: cfg.Health.Recipients,
	}, source.New(cfg.Source), store, store, state, health, dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	scheduler := NewScheduler(ctx)

	return &Daemon{
		config:    cfg,
		scheduler: scheduler,
		store:     store,
		engine:    eng,
		apiServer: api.New(eng, store, scheduler, cfg.APIPort),
		pidFile:   filepath.Join(cfg.DataDir, "linkalert.pid"),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func buildStateStore(cfg *util.Config, store storage.Store) (engine.StateStore, error) {
	switch cfg.StateBackend {
	case "sqlite":
		sqlite, ok := store.(*storage.SQLiteStore)
		if !ok {
			return nil, fmt.Errorf("sqlite state backend requires the sqlite storage backend")
		}
		return storage.NewSQLiteStateStore(sqlite), nil
	case "memory", "":
		return engine.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}

// registerChannels wires every channel that has transport configuration.
// Unconfigured channels are simply absent from the registry, so rules
// naming them are skipped with a warning at dispatch time.
func registerChannels(registry *notify.Registry, cfg util.ChannelsConfig) {
	log := logger.WithComponent("daemon")

	if cfg.SendGridAPIKey != "" && cfg.EmailFrom != "" {
		registry.Register(notify.NewEmailChannel(cfg.SendGridAPIKey, cfg.EmailFrom))
	}
	if cfg.SlackWebhookURL != "" {
		registry.Register(notify.NewSlackChannel(cfg.SlackWebhookURL))
	}
	if cfg.TelegramToken != "" {
		registry.Register(notify.NewTelegramChannel(cfg.TelegramToken))
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic != "" {
		registry.Register(notify.NewKafkaChannel(cfg.KafkaBrokers, cfg.KafkaTopic))
	}

	log.Info().Strs("channels", registry.Names()).Msg("notification channels registered")
}

// Engine returns the evaluation engine, for one-shot invocations.
func (d *Daemon) Engine() *engine.Engine {
	return d.engine
}

// Store returns the persistence backend.
func (d *Daemon) Store() storage.Store {
	return d.store
}

// Start starts the daemon.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	log := logger.WithComponent("daemon")
	log.Info().Msg("daemon starting")

	d.registerJobs()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.scheduler.Run()
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.apiServer.Start(d.ctx); err != nil {
			log.Error().Err(err).Msg("introspection server stopped")
		}
	}()

	// The signal goroutine stays outside the wait group: it calls Stop,
	// which waits on the group, so counting it would deadlock a
	// signal-initiated shutdown until the stop timeout.
	go d.handleSignals()

	log.Info().Int("pid", os.Getpid()).Msg("daemon started")

	return nil
}

// Wait waits for the daemon to finish.
func (d *Daemon) Wait() {
	d.wg.Wait()
}

// Stop stops the daemon gracefully.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.mu.Unlock()

	log := logger.WithComponent("daemon")
	log.Info().Msg("daemon stopping")

	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("daemon stopped gracefully")
	case <-time.After(30 * time.Second):
		log.Warn().Msg("daemon stop timed out")
	}

	d.removePIDFile()
	if d.store != nil {
		d.store.Close()
	}

	return nil
}

func (d *Daemon) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log := logger.WithComponent("daemon")
		log.Info().Str("signal", sig.String()).Msg("received signal")
		d.Stop()
	case <-d.ctx.Done():
		return
	}
}

func (d *Daemon) writePIDFile() error {
	pid := os.Getpid()
	return os.WriteFile(d.pidFile, []byte(strconv.Itoa(pid)), 0644)
}

func (d *Daemon) removePIDFile() {
	os.Remove(d.pidFile)
}

// IsRunning returns whether the daemon is running.
func (d *Daemon) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// GetStatus returns the daemon status.
func (d *Daemon) GetStatus() *DaemonStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return &DaemonStatus{
		Running:   d.running,
		PID:       os.Getpid(),
		StartTime: d.startTime,
		Uptime:    time.Since(d.startTime),
		Jobs:      d.scheduler.GetJobStatuses(),
	}
}

// DaemonStatus holds the current daemon status.
type DaemonStatus struct {
	Running   bool
	PID       int
	StartTime time.Time
	Uptime    time.Duration
	Jobs      []JobStatus
}
