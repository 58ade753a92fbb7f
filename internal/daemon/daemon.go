package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"scenecast/internal/config"
	"scenecast/internal/logging"
	"scenecast/internal/preflight"
	"scenecast/internal/services"
	"scenecast/internal/workflow"
)

// CacheInfo is the read-only view of the transcript cache the daemon reports.
type CacheInfo interface {
	Path() string
	Count(ctx context.Context) (int, error)
}

// Daemon runs the API server around a single editing session and enforces
// single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	session *workflow.Session
	cache   CacheInfo
	checks  func(*config.Config) []preflight.Result

	lockPath string
	lock     *flock.Flock
	server   *apiServer

	running   atomic.Bool
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	jobs      sync.WaitGroup
	startedAt time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running             bool
	PID                 int
	LockFilePath        string
	TranscriptCachePath string
	CachedTranscripts   int
	StartedAt           time.Time
	Session             workflow.Snapshot
	Dependencies        []preflight.Result
}

// Option configures optional Daemon behavior.
type Option func(*Daemon)

// WithTranscriptCache reports cache statistics on the status endpoint.
func WithTranscriptCache(cache CacheInfo) Option {
	return func(d *Daemon) {
		d.cache = cache
	}
}

// WithDependencyChecks overrides the checks reported on the status endpoint.
func WithDependencyChecks(fn func(*config.Config) []preflight.Result) Option {
	return func(d *Daemon) {
		if fn != nil {
			d.checks = fn
		}
	}
}

// New constructs a daemon around session.
func New(cfg *config.Config, session *workflow.Session, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || session == nil {
		return nil, errors.New("daemon requires config and session")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		session:  session,
		checks:   preflight.CheckDirectories,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.server = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, prunes old logs and starts the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scenecast server instance is already running")
	}

	if dir := d.cfg.Paths.LogDir; dir != "" {
		if removed := logging.CleanupOldLogs(d.logger, dir, "*.log", d.cfg.Logging.RetentionDays, d.cfg.LogFilePath()); removed > 0 {
			d.logger.Info("old logs pruned", logging.Int("removed", removed))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.mu.Lock()
	d.ctx, d.cancel = runCtx, cancel
	d.startedAt = time.Now()
	d.mu.Unlock()
	d.running.Store(true)
	d.logger.Info("scenecast server started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldSessionID, d.session.ID()),
	)
	return nil
}

// Stop cancels in-flight collaborator calls, stops the API server and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()

	d.server.stop()
	d.jobs.Wait()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next start may report another instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("scenecast server stopped")
}

// Addr returns the API listener address once started.
func (d *Daemon) Addr() string {
	return d.server.addr()
}

// Session exposes the daemon's editing session.
func (d *Daemon) Session() *workflow.Session {
	return d.session
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	started := d.startedAt
	d.mu.Unlock()
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		StartedAt:    started,
		Session:      d.session.Snapshot(),
		Dependencies: d.checks(d.cfg),
	}
	if d.cache != nil {
		status.TranscriptCachePath = d.cache.Path()
		count, err := d.cache.Count(ctx)
		if err != nil {
			d.logger.Warn("failed to read transcript cache size", logging.Error(err))
		}
		status.CachedTranscripts = count
	}
	return status
}

// jobContext returns the context collaborator calls started through the API
// run under: the daemon's context while running, else a background context.
func (d *Daemon) jobContext() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx != nil {
		return d.ctx
	}
	return context.Background()
}

// runJob executes fn in the background; Stop waits for it to return.
func (d *Daemon) runJob(name string, fn func() error) {
	d.jobs.Add(1)
	go func() {
		defer d.jobs.Done()
		started := time.Now()
		err := fn()
		attrs := []logging.Attr{
			logging.String("job", name),
			logging.Duration("elapsed", time.Since(started)),
		}
		if err != nil {
			attrs = append(attrs, logging.String("outcome", services.UserMessage(err)))
			d.logger.Debug("background job failed", logging.Args(attrs...)...)
			return
		}
		d.logger.Debug("background job finished", logging.Args(attrs...)...)
	}()
}

// Wait blocks until background jobs started through the API have returned.
func (d *Daemon) Wait() {
	d.jobs.Wait()
}
