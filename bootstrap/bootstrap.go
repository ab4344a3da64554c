// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Em-Cyborg/WAF-Service/adapters/clock"
	"github.com/Em-Cyborg/WAF-Service/adapters/gateway"
	"github.com/Em-Cyborg/WAF-Service/adapters/idgen"
	"github.com/Em-Cyborg/WAF-Service/adapters/memory"
	"github.com/Em-Cyborg/WAF-Service/adapters/metrics"
	"github.com/Em-Cyborg/WAF-Service/adapters/monitor"
	"github.com/Em-Cyborg/WAF-Service/adapters/sqlite"
	"github.com/Em-Cyborg/WAF-Service/app"
	"github.com/Em-Cyborg/WAF-Service/config"
	"github.com/Em-Cyborg/WAF-Service/ports"
	"github.com/Em-Cyborg/WAF-Service/web"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	DB         *sqlite.DB
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	holder       *config.Holder
	cron         *cron.Cron
	sessions     *app.SessionService
	sessionStore *memory.SessionStore
}

// New creates and initializes the application from the given config path.
// A missing file falls back to WAFCONSOLE_* environment variables.
func New(cfgPath string) (*App, error) {
	cfg, holder, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	logger := setupLogger(cfg.Logging)
	logger.Info().Msg("initializing waf console")

	a := &App{
		Logger: logger,
		Config: cfg,
		holder: holder,
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Msg("prometheus metrics enabled")
	}

	ledgerStore, err := a.initLedgerStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("init ledger store: %w", err)
	}

	monitorClient := monitor.NewClient(monitor.ClientConfig{
		BaseURL:        cfg.Monitor.URL,
		ControlTimeout: cfg.Monitor.ControlTimeout,
		TrafficTimeout: cfg.Monitor.TrafficTimeout,
	})
	paymentGateway := buildGateway(cfg.Gateway, logger)

	clk := clock.Real{}
	usage := app.NewUsageService(monitorClient, clk, logger)
	relay := app.NewRelayService(monitorClient, monitorClient, logger)
	ledger := app.NewLedgerService(ledgerStore, paymentGateway, idgen.UUID{}, clk, logger)
	a.sessionStore = memory.NewSessionStore()
	a.sessions = app.NewSessionService(a.sessionStore, clk, logger)

	handler := web.NewHandler(web.Deps{
		Usage:    usage,
		Relay:    relay,
		Ledger:   ledger,
		Sessions: a.sessions,
		Metrics:  a.Metrics,
		Logger:   logger,
	})

	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := a.initSweeper(cfg.Sessions.SweepSchedule); err != nil {
		return nil, fmt.Errorf("init session sweeper: %w", err)
	}

	if holder != nil {
		a.watchConfig()
	}

	return a, nil
}

func loadConfig(path string) (*config.Config, *config.Holder, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			holder, err := config.NewHolder(path, setupLogger(config.LoggingConfig{Level: "info", Format: "json"}))
			if err != nil {
				return nil, nil, err
			}
			return holder.Get(), holder, nil
		}
	}

	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, nil, nil
}

func (a *App) initLedgerStore(cfg *config.Config) (ports.LedgerStore, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
		a.DB = db
		a.Logger.Info().Str("dsn", cfg.Database.DSN).Msg("using sqlite ledger store")
		return sqlite.NewLedgerStore(db), nil
	default:
		a.Logger.Info().Msg("using in-memory ledger store")
		return memory.NewLedgerStore(), nil
	}
}

func buildGateway(cfg config.GatewayConfig, logger zerolog.Logger) ports.PaymentGateway {
	if cfg.Mode == "toss" {
		logger.Info().Msg("using toss payment gateway")
		return gateway.NewTossGateway(gateway.TossConfig{
			ClientKey: cfg.ClientKey,
			SecretKey: cfg.SecretKey,
			BaseURL:   cfg.BaseURL,
		})
	}
	logger.Warn().Msg("using dummy payment gateway, payments are simulated")
	return gateway.NewDummyGateway()
}

// initSweeper schedules periodic removal of expired sessions.
func (a *App) initSweeper(schedule string) error {
	a.cron = cron.New()
	_, err := a.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		removed, err := a.sessions.Sweep(ctx)
		if err != nil {
			a.Logger.Error().Err(err).Msg("session sweep failed")
			return
		}
		if a.Metrics != nil {
			if removed > 0 {
				a.Metrics.SessionsSwept.Add(float64(removed))
			}
			a.Metrics.SessionsActive.Set(float64(a.sessionStore.Len()))
		}
	})
	if err != nil {
		return err
	}
	a.Logger.Info().Str("schedule", schedule).Msg("session sweeper scheduled")
	return nil
}

func (a *App) watchConfig() {
	a.holder.OnChange(func(cfg *config.Config) {
		if a.Metrics != nil {
			a.Metrics.ConfigReloads.Inc()
		}
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	})
	if err := a.holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch unavailable")
	}
	a.holder.WatchSignals()
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	a.cron.Start()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", a.HTTPServer.Addr).Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.cron != nil {
		<-a.cron.Stop().Done()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.holder != nil {
		a.holder.Stop()
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
