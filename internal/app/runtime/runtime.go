// Package runtime wires every component together and owns the process
// lifecycle.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"guardBot/internal/app/events"
	"guardBot/internal/app/router"
	"guardBot/internal/domain"
	"guardBot/internal/infrastructure/config"
	"guardBot/internal/infrastructure/persistence/memory"
	redisstore "guardBot/internal/infrastructure/persistence/redis"
	sqlitestorage "guardBot/internal/infrastructure/persistence/sqlite"
	"guardBot/internal/interface/adapters/gateway"
	ws "guardBot/internal/interface/api/ws"
	"guardBot/internal/interface/outs"
	"guardBot/internal/usecase/archive"
	"guardBot/internal/usecase/calls"
	"guardBot/internal/usecase/commands"
	"guardBot/internal/usecase/handle_message"
	"guardBot/internal/usecase/identity"
	"guardBot/internal/usecase/membership"
	"guardBot/internal/usecase/moderation"
	"guardBot/internal/usecase/notifications"
	"guardBot/internal/usecase/notify"
	"guardBot/internal/usecase/ratelimit"
	"guardBot/internal/usecase/settings"
	"guardBot/internal/usecase/status"
)

// Connection is the chat client: outbound calls, inbound events and a
// session loop. The gateway client is the production implementation.
type Connection interface {
	domain.Transport
	domain.EventSource
	Run(ctx context.Context) error
	Reconnect(ctx context.Context, reason int)
}

type Options struct {
	Config *config.Config
	Logger *slog.Logger
	// Storage and Connection override the ones built from Config.
	Storage    domain.Storage
	Connection Connection
	// DisableAdmin skips the admin HTTP server.
	DisableAdmin bool
}

type Runtime struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config
	logger *slog.Logger

	store    domain.Storage
	conn     Connection
	bus      *events.Bus
	router   *router.Router
	commands *commands.Router
	service  *commands.Service
	admin    *ws.Server
	started  time.Time

	group *errgroup.Group

	mu       sync.Mutex
	fatalErr error
	stopped  bool
}

func Start(ctx context.Context, opts Options) (*Runtime, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("runtime: nil config")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store := opts.Storage
	if store == nil {
		var err error
		store, err = openStorage(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	conn := opts.Connection
	if conn == nil {
		conn = gateway.New(gateway.Config{
			URL:    cfg.GatewayURL,
			Token:  cfg.GatewayToken,
			Logger: logger,
		})
	}

	runtimeCtx, cancel := context.WithCancel(ctx)
	started := time.Now()

	run := &Runtime{
		ctx:     runtimeCtx,
		cancel:  cancel,
		cfg:     cfg,
		logger:  logger.With("component", "runtime"),
		store:   store,
		conn:    conn,
		bus:     events.NewBus(logger),
		started: started,
	}

	if err := run.wire(logger); err != nil {
		cancel()
		store.Close()
		return nil, err
	}

	g, gctx := errgroup.WithContext(runtimeCtx)
	run.group = g

	g.Go(func() error {
		err := conn.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		notifications.NewEventLogger(logger).Run(gctx, run.bus)
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-run.router.Fatal():
			run.bus.Publish(events.TopicAppError, events.NewErrorDTO("connection", err))
			return err
		}
	})
	if !opts.DisableAdmin {
		g.Go(func() error {
			if err := run.admin.Start(gctx); err != nil {
				run.logger.Error("admin server error", "err", err)
			}
			return nil
		})
	}

	run.logger.Info("bot started", "bot", cfg.BotName, "prefixes", cfg.Prefixes, "storage", cfg.StorageDriver)
	return run, nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.Storage, error) {
	var base domain.Storage
	switch cfg.StorageDriver {
	case "memory":
		base = memory.NewStore()
	default:
		s, err := sqlitestorage.NewStore(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("runtime: %w", err)
		}
		base = s
	}

	if cfg.RedisURL == "" {
		return base, nil
	}
	warns, err := redisstore.NewWarnStore(ctx, cfg.RedisURL)
	if err != nil {
		base.Close()
		return nil, fmt.Errorf("runtime: %w", err)
	}
	logger.Info("warn counters kept in redis")
	return redisstore.WithWarns(base, warns), nil
}

func (r *Runtime) wire(logger *slog.Logger) error {
	cfg := r.cfg
	out := outs.New(r.conn)

	defaults := make(map[settings.Key]string, len(cfg.Features))
	for k, v := range cfg.Features {
		defaults[settings.Key(k)] = v
	}
	settingsSvc := settings.NewService(r.store, defaults, logger)

	composer := notify.NewComposer(notify.Config{
		BotName:        cfg.BotName,
		OwnerName:      cfg.OwnerName,
		NewsletterJID:  cfg.NewsletterJID,
		NewsletterName: cfg.NewsletterName,
		ThumbnailURL:   cfg.ThumbnailURL,
		SourceURL:      cfg.SourceURL,
	})

	msgArchive := archive.New(archive.Config{
		PerConversation:  cfg.ArchivePerConversation,
		MaxConversations: cfg.ArchiveMaxConversations,
	})

	resolver := identity.NewResolver(identity.Config{
		OwnerNumber: cfg.OwnerNumber,
		Developers:  cfg.DeveloperNumbers,
	}, r.store, logger)

	engine := &moderation.Engine{
		Logger:    logger,
		Policies:  moderation.DefaultPolicies(cfg.LinkMarkers, cfg.ImpersonationPrefixes, cfg.ImpersonationIDLength),
		Settings:  r.store,
		Warns:     r.store,
		Out:       out,
		Notices:   composer,
		WarnLimit: cfg.WarnCount,
	}

	parser := commands.NewParser(cfg.Prefixes)
	cmdRouter := commands.NewRouter(parser, commands.DefaultGuards(settingsSvc, settingsSvc, r.store, cfg.BotName, logger), out, logger)

	custom, err := commands.NewCustomCommandManager(r.ctx, r.store)
	if err != nil {
		return fmt.Errorf("runtime: custom commands: %w", err)
	}
	builtins := &commands.Builtins{
		Store:     r.store,
		Settings:  settingsSvc,
		Custom:    custom,
		Table:     cmdRouter.Table,
		Prefix:    parser.Primary(),
		BotName:   cfg.BotName,
		WarnLimit: cfg.WarnCount,
		Started:   r.started,
	}
	custom.SetReservedChecker(commands.NewTable(builtins.Commands()...).Has)
	custom.OnChange(func(ctx context.Context) { cmdRouter.Reload(ctx) })
	cmdRouter.SetSource(func(context.Context) []commands.Command {
		return append(builtins.Commands(), custom.Commands()...)
	})
	cmdRouter.Reload(r.ctx)

	introspector := &commands.Introspector{
		Logger:   logger,
		Out:      out,
		Settings: settingsSvc,
		Policies: r.store,
		Archive:  msgArchive,
		Table:    cmdRouter.Table,
		Started:  r.started,
	}

	replyGate := ratelimit.NewGate(cfg.ReplyInterval)
	likeGate := ratelimit.NewGate(cfg.StatusReactionInterval)

	pipeline, err := handle_message.NewInteractor(handle_message.Deps{
		Logger:       logger,
		Out:          out,
		Identity:     resolver,
		Archive:      msgArchive,
		Moderation:   engine,
		Router:       cmdRouter,
		Introspector: introspector,
		Status:       status.NewFeed(out, settingsSvc, likeGate, logger),
		Settings:     settingsSvc,
		Notices:      composer,
		Bus:          r.bus,
	})
	if err != nil {
		return fmt.Errorf("runtime: pipeline: %w", err)
	}

	r.commands = cmdRouter
	r.service = commands.NewService(builtins, custom)
	r.router = router.New(router.Config{
		Logger:     logger,
		Messages:   pipeline,
		Calls:      calls.NewHandler(out, settingsSvc, replyGate, logger),
		Membership: membership.NewHandler(out, r.store, composer, logger),
		OnOpen: func(ctx context.Context, selfID string) {
			table := cmdRouter.Reload(ctx)
			if !settingsSvc.Enabled(ctx, settings.KeyAnnounce) {
				return
			}
			payload := composer.Announcement(selfID, settingsSvc.Public(ctx), parser.Prefixes(), table.Len())
			out.Send(ctx, domain.BareID(selfID), payload, domain.SendOptions{}).Log(r.logger)
		},
		OnTransient: r.conn.Reconnect,
		OnState: func(state router.State, reason int, class router.Class) {
			r.bus.Publish(events.TopicConnection, events.NewConnectionDTO(string(state), reason, string(class), r.router.SelfID()))
		},
		MaxConcurrent: cfg.MaxConcurrent,
	})
	r.router.Attach(r.conn)

	r.admin = ws.NewServer(ws.Config{
		Addr:     cfg.MetricsListen,
		Logger:   logger,
		Commands: r.service,
		Events:   r.bus,
		Health:   r.Health,

		Token:          cfg.AdminToken,
		AllowedOrigins: cfg.AdminOrigins,
	})
	return nil
}

// Wait blocks until the runtime stops. It returns the error that stopped
// it, nil on a requested shutdown.
func (r *Runtime) Wait() error {
	err := r.group.Wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil && r.fatalErr == nil {
		r.fatalErr = err
	}
	return r.fatalErr
}

func (r *Runtime) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	r.mu.Unlock()

	r.cancel()
	waitErr := r.Wait()
	r.bus.Close()
	if err := r.store.Close(); err != nil {
		return fmt.Errorf("runtime: close storage: %w", err)
	}
	return waitErr
}

func (r *Runtime) Health() ws.Health {
	return ws.Health{
		Connection: string(r.router.State()),
		SelfID:     r.router.SelfID(),
		Uptime:     time.Since(r.started).Truncate(time.Second).String(),
	}
}

func (r *Runtime) Bus() *events.Bus {
	if r == nil {
		return nil
	}
	return r.bus
}

func (r *Runtime) CommandService() *commands.Service {
	if r == nil {
		return nil
	}
	return r.service
}

func (r *Runtime) Router() *router.Router {
	if r == nil {
		return nil
	}
	return r.router
}

func (r *Runtime) Config() *config.Config {
	if r == nil {
		return nil
	}
	return r.cfg
}
