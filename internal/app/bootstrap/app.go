package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/agenda-platform/internal/appointments"
	"github.com/wolfman30/agenda-platform/internal/availability"
	"github.com/wolfman30/agenda-platform/internal/cache"
	"github.com/wolfman30/agenda-platform/internal/calendar"
	"github.com/wolfman30/agenda-platform/internal/catalog"
	appconfig "github.com/wolfman30/agenda-platform/internal/config"
	"github.com/wolfman30/agenda-platform/internal/conversation"
	"github.com/wolfman30/agenda-platform/internal/events"
	"github.com/wolfman30/agenda-platform/internal/observability/metrics"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

// App holds every service built from one Config.
type App struct {
	Config *appconfig.Config
	Logger *logging.Logger

	Pool  *pgxpool.Pool
	DB    *sql.DB
	Redis *redis.Client
	Cache cache.Cache

	Catalog      *catalog.Service
	Calendar     *calendar.Resolver
	Appointments *appointments.Service
	Availability *availability.Engine

	Sessions   conversation.SessionStore
	Transcript *conversation.TranscriptStore
	Machine    *conversation.Machine
	Queue      conversation.Queue
	Publisher  *conversation.Publisher
	Processed  conversation.ProcessedStore

	BookingMetrics      *metrics.BookingMetrics
	ConversationMetrics *metrics.ConversationMetrics
}

// Option adjusts Build.
type Option func(*buildOptions)

type buildOptions struct {
	registerer prometheus.Registerer
	queue      conversation.Queue
}

// WithRegisterer registers metrics somewhere other than the default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *buildOptions) { o.registerer = reg }
}

// WithQueue overrides the queue selected by CONVERSATION_QUEUE.
func WithQueue(q conversation.Queue) Option {
	return func(o *buildOptions) { o.queue = q }
}

// Build connects storage and wires the booking and chat services. Without a
// DATABASE_URL everything runs in memory with the demo catalog.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{Config: cfg, Logger: logger}
	var err error
	app.Pool, app.DB, err = BuildPostgres(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.Redis = BuildRedisClient(ctx, cfg, logger, true)
	app.Cache, err = BuildCache(cfg, app.Redis)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.BookingMetrics = metrics.NewBookingMetrics(o.registerer)
	app.ConversationMetrics = metrics.NewConversationMetrics(o.registerer)
	policy := RetryPolicy(cfg)
	loc := cfg.Location()
	occupancy := appointments.ParseOccupancy(cfg.SlotOccupancy)

	var (
		catalogRepo  catalog.Repository
		calendarRepo calendar.Repository
		bookingRepo  appointments.Repository
	)
	if app.Pool != nil {
		catalogRepo = catalog.NewPostgresRepository(app.DB)
		calendarRepo = calendar.NewPostgresRepository(app.Pool)
		bookingRepo = appointments.NewPostgresRepository(app.Pool)
		app.Processed = events.NewProcessedStore(app.Pool)
		app.Transcript = conversation.NewTranscriptStore(app.DB)
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory storage with demo data")
		mem := catalog.NewMemoryRepository()
		if err := catalog.SeedDemo(ctx, mem); err != nil {
			app.Close()
			return nil, err
		}
		catalogRepo = mem
		calendarRepo = calendar.NewMemoryRepository(calendar.StandardHours())
		bookingRepo = appointments.NewMemoryRepository()
		app.Processed = events.NewMemoryProcessedStore()
	}

	app.Catalog = catalog.NewService(catalogRepo,
		catalog.WithCache(app.Cache, cfg.CacheTTL),
		catalog.WithRetryPolicy(policy),
		catalog.WithLogger(logger.Component("catalog")),
	)
	app.Calendar = calendar.NewResolver(calendarRepo, loc,
		calendar.WithRetryPolicy(policy),
		calendar.WithLogger(logger.Component("calendar")),
	)
	app.Appointments = appointments.NewService(bookingRepo, app.Catalog,
		appointments.WithLocation(loc),
		appointments.WithBookingWindow(cfg.BookingWindow),
		appointments.WithOccupancy(occupancy),
		appointments.WithSchedule(app.Calendar, cfg.SlotInterval),
		appointments.WithCache(app.Cache),
		appointments.WithRetryPolicy(policy),
		appointments.WithMetrics(app.BookingMetrics),
		appointments.WithLogger(logger.Component("appointments")),
	)
	app.Availability = availability.NewEngine(app.Catalog, app.Calendar, app.Appointments,
		availability.WithOccupancy(occupancy),
		availability.WithSlotInterval(cfg.SlotInterval),
		availability.WithMetrics(app.BookingMetrics),
		availability.WithLogger(logger.Component("availability")),
	)

	switch cfg.SessionBackend {
	case "redis":
		if app.Redis == nil {
			app.Close()
			return nil, fmt.Errorf("bootstrap: redis session backend requires REDIS_ADDR")
		}
		app.Sessions = conversation.NewRedisSessionStore(app.Redis, cfg.SessionIdleTimeout)
	default:
		app.Sessions = conversation.NewMemorySessionStore(
			conversation.WithIdleTimeout(cfg.SessionIdleTimeout),
			conversation.WithStoreLogger(logger.Component("sessions")),
		)
	}

	app.Machine = conversation.NewMachine(app.Catalog, app.Availability, app.Appointments, app.Sessions,
		conversation.WithClinicName(cfg.ClinicName),
		conversation.WithDateHorizon(cfg.ChatDateHorizon),
		conversation.WithTranscript(app.Transcript),
		conversation.WithMetrics(app.ConversationMetrics),
		conversation.WithLogger(logger.Component("conversation")),
	)

	app.Queue = o.queue
	if app.Queue == nil {
		app.Queue, err = BuildQueue(ctx, cfg, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
	}
	app.Publisher = conversation.NewPublisher(app.Queue, logger.Component("publisher"))
	return app, nil
}

// NewWorker builds a queue consumer driving the app's state machine.
func (a *App) NewWorker(sender conversation.ReplySender) *conversation.Worker {
	if sender == nil {
		sender = conversation.NewLogReplySender(a.Logger.Component("outbound"))
	}
	retrying := conversation.NewRetrySender(sender, a.Logger.Component("outbound"))
	return conversation.NewWorker(a.Machine, a.Queue, a.Logger.Component("worker"),
		conversation.WithWorkerCount(a.Config.WorkerCount),
		conversation.WithReplySender(retrying),
		conversation.WithWorkerMetrics(a.ConversationMetrics),
	)
}

// RunMaintenance evicts idle in-memory sessions and old dedupe markers until
// ctx is done.
func (a *App) RunMaintenance(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	if mem, ok := a.Sessions.(*conversation.MemorySessionStore); ok {
		go mem.RunJanitor(ctx, interval)
	}
	purger, ok := a.Processed.(interface {
		PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
	})
	if !ok {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purger.PurgeBefore(ctx, time.Now().Add(-processedRetention))
			if err != nil {
				a.Logger.Warn("purge processed events failed", "error", err)
				continue
			}
			if n > 0 {
				a.Logger.Debug("purged processed events", "count", n)
			}
		}
	}
}

const processedRetention = 7 * 24 * time.Hour

// Close releases connections opened by Build.
func (a *App) Close() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}
