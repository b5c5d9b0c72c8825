package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cgm/internal/auth"
	"cgm/internal/config"
	"cgm/internal/db"
	"cgm/internal/gatekeeper"
	httpserver "cgm/internal/http"
	"cgm/internal/notify"
	"cgm/internal/policy"
)

// Application wires together config, database connections, and HTTP server.
type Application struct {
	cfg    config.Config
	dbPool *db.Pool
	bus    *notify.Bus
	srv    *httpserver.Server
	log    *zap.Logger
}

// LoadPolicies applies the optional access file to cfg and returns the
// resulting authorization table.
func LoadPolicies(cfg *config.Config) (*policy.Table, error) {
	if cfg.AccessFile == "" {
		return policy.Default(), nil
	}
	access, err := config.LoadAccessFile(cfg.AccessFile)
	if err != nil {
		return nil, err
	}
	access.Apply(cfg)
	table, err := policy.New(access.Policies)
	if err != nil {
		return nil, fmt.Errorf("access file %s: %w", cfg.AccessFile, err)
	}
	return table, nil
}

func NewApplication(ctx context.Context, cfg config.Config, log *zap.Logger) (*Application, error) {
	if log == nil {
		log = zap.NewNop()
	}

	policies, err := LoadPolicies(&cfg)
	if err != nil {
		return nil, err
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	cookies := auth.NewCookieStore(cfg.SessionCookieName, cfg.SessionTTL, cfg.Production())
	resolver := auth.NewResolver(cookies, pool, cfg.LookupTimeout, log.Named("session"))
	service := auth.NewService(pool, auth.NewBcryptVerifier(cfg.BcryptCost), log.Named("auth"))
	gate := gatekeeper.New(
		gatekeeper.NewTable(cfg.LoginPath, cfg.ProtectedPaths),
		cookies, cfg.LoginPath, cfg.DefaultLandingPath, log.Named("gatekeeper"),
	)
	bus := notify.NewBus(notify.RealClock(), cfg.NotificationTTL)

	srv, err := httpserver.NewServer(cfg, httpserver.Deps{
		DB:       pool,
		Cookies:  cookies,
		Sessions: resolver,
		Auth:     service,
		Policies: policies,
		Gate:     gate,
		Bus:      bus,
	}, log.Named("http"))
	if err != nil {
		bus.Close()
		pool.Close()
		return nil, err
	}

	return &Application{
		cfg:    cfg,
		dbPool: pool,
		bus:    bus,
		srv:    srv,
		log:    log,
	}, nil
}

func (a *Application) Start() error {
	a.log.Info("starting HTTP server",
		zap.String("port", a.cfg.Port),
		zap.String("env", a.cfg.Environment),
		zap.Strings("protected_paths", a.cfg.ProtectedPaths),
	)
	return a.srv.Start()
}

func (a *Application) Shutdown(ctx context.Context) {
	if err := a.srv.Shutdown(ctx); err != nil {
		a.log.Warn("http shutdown", zap.Error(err))
	}
	if a.bus != nil {
		a.bus.Close()
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}
}
