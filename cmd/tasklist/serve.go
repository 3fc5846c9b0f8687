// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/tasklist/internal/auth"
	authpg "github.com/holomush/tasklist/internal/auth/postgres"
	"github.com/holomush/tasklist/internal/config"
	"github.com/holomush/tasklist/internal/logging"
	"github.com/holomush/tasklist/internal/mail"
	"github.com/holomush/tasklist/internal/observability"
	"github.com/holomush/tasklist/internal/store"
	"github.com/holomush/tasklist/internal/task"
	taskpg "github.com/holomush/tasklist/internal/task/postgres"
	"github.com/holomush/tasklist/internal/web"
)

// Pool is the database handle serve needs. *pgxpool.Pool satisfies it.
type Pool interface {
	store.Querier
	store.Pinger
	Close()
}

// ServeDeps contains injectable dependencies for the serve command.
// Nil fields use their default implementations.
type ServeDeps struct {
	// PoolFactory opens the database pool. Default: store.NewPool.
	PoolFactory func(ctx context.Context, url string) (Pool, error)

	// Notifier overrides the configured mail transport.
	Notifier auth.Notifier

	// Ready is closed once every listener is up; tests wait on it.
	Ready chan<- struct{}
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API, the metrics/health endpoint and the reset token
sweeper. Configuration comes from defaults, --config, TASKLIST_* environment
variables and the flags below, in increasing precedence.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	defaults := config.Defaults()
	cmd.Flags().String("env", defaults["env"].(string), "environment (development or production)")
	cmd.Flags().String("http-addr", defaults["http.addr"].(string), "API listen address")
	cmd.Flags().String("http-public-url", defaults["http.public_url"].(string), "public base URL used in emailed links")
	cmd.Flags().String("metrics-addr", defaults["metrics.addr"].(string), "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", defaults["log.format"].(string), "log format (json or text)")
	cmd.Flags().String("log-level", defaults["log.level"].(string), "minimum log level")
	cmd.Flags().String("database-url", "", "PostgreSQL URL")

	return cmd
}

// runServeWithDeps runs the service until ctx is done or a signal arrives.
func runServeWithDeps(ctx context.Context, cfg config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = func(ctx context.Context, url string) (Pool, error) {
			return store.NewPool(ctx, url)
		}
	}

	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}

	logger := logging.SetupLevel("tasklist", version, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level), nil)
	slog.SetDefault(logger)

	logger.Info("starting tasklist",
		"env", cfg.Env,
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	notifier := deps.Notifier
	if notifier == nil {
		notifier, err = newNotifier(cfg.Mail, logger)
		if err != nil {
			return err
		}
	}

	app, err := buildApp(cfg, pool, notifier, logger)
	if err != nil {
		return err
	}

	var sweeper *auth.ResetSweeper
	if cfg.Reset.SweepInterval > 0 {
		sweeper, err = auth.NewResetSweeper(app.resets, cfg.Reset.SweepInterval, logger)
		if err != nil {
			return oops.With("component", "sweeper").Wrap(err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer *observability.Server
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, store.Ready(pool),
			auth.RegisterMetrics, mail.RegisterMetrics)
		obsErrCh, obsErr := obsServer.Start()
		if obsErr != nil {
			return oops.With("operation", "start observability server").Wrap(obsErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	var metrics *observability.Metrics
	if obsServer != nil {
		metrics = obsServer.Metrics()
	}
	apiServer, err := web.NewServer(web.Config{
		Addr:         cfg.HTTP.Addr,
		CookieName:   cfg.Session.CookieName,
		SecureCookie: isHTTPS(cfg.HTTP.PublicURL),
		Development:  cfg.IsDevelopment(),
	}, app.auth, app.tasks,
		web.WithLogger(logger),
		web.WithMetrics(metrics),
		web.WithPurger(app.resets))
	if err != nil {
		stopObservability(obsServer, logger)
		return oops.With("operation", "create api server").Wrap(err)
	}
	apiErrCh, err := apiServer.Start()
	if err != nil {
		stopObservability(obsServer, logger)
		return oops.With("operation", "start api server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	if sweeper != nil {
		sweeper.Start(ctx)
	}

	cmd.Println("TaskList started")
	if deps.Ready != nil {
		close(deps.Ready)
	}

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	if sweeper != nil {
		sweeper.Stop()
	}
	if d, ok := notifier.(drainer); ok {
		if err := d.Wait(shutdownCtx); err != nil {
			logger.Warn("email deliveries still in flight at shutdown", "error", err)
		}
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// app holds the wired services.
// drainer is implemented by notifiers whose deliveries can outlive Send.
type drainer interface {
	Wait(ctx context.Context) error
}

type app struct {
	auth   *auth.Service
	tasks  *task.Service
	resets *auth.ResetTokenStore
}

func buildApp(cfg config.Config, db store.Querier, notifier auth.Notifier, logger *slog.Logger) (*app, error) {
	hasher := auth.NewArgon2idHasher()
	credentials, err := auth.NewCredentialStore(authpg.NewUserRepository(db), hasher, cfg.Password.Policy())
	if err != nil {
		return nil, oops.With("component", "credentials").Wrap(err)
	}
	sessions, err := auth.NewSessionTokenService(cfg.Session.Secret, cfg.Session.Expiry)
	if err != nil {
		return nil, oops.With("component", "sessions").Wrap(err)
	}
	resets, err := auth.NewResetTokenStore(authpg.NewResetTokenRepository(db), hasher, cfg.Reset.TTL)
	if err != nil {
		return nil, oops.With("component", "resets").Wrap(err)
	}
	authSvc, err := auth.NewService(credentials, sessions, resets, notifier, cfg.HTTP.PublicURL, auth.WithLogger(logger))
	if err != nil {
		return nil, oops.With("component", "auth").Wrap(err)
	}
	taskSvc, err := task.NewService(taskpg.NewTaskRepository(db))
	if err != nil {
		return nil, oops.With("component", "tasks").Wrap(err)
	}
	return &app{auth: authSvc, tasks: taskSvc, resets: resets}, nil
}

// newNotifier returns an SMTP notifier, or a logging stand-in when no mail
// host is configured.
func newNotifier(cfg config.MailConfig, logger *slog.Logger) (auth.Notifier, error) {
	if cfg.Host == "" {
		logger.Warn("mail.host is empty, emails will be logged and dropped")
		return mail.NewLogNotifier(logger), nil
	}
	n, err := mail.NewSMTPNotifier(mail.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
		Timeout:  cfg.Timeout,
		Retries:  cfg.Retries,
	}, mail.WithLogger(logger))
	if err != nil {
		return nil, oops.With("component", "mail").Wrap(err)
	}
	return n, nil
}

// monitorServerErrors cancels ctx when a server reports a serve error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}

func stopObservability(s *observability.Server, logger *slog.Logger) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

func shutdownTimeout(cfg config.Config) time.Duration {
	if cfg.HTTP.ShutdownTimeout > 0 {
		return cfg.HTTP.ShutdownTimeout
	}
	return 10 * time.Second
}

func isHTTPS(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme == "https"
}
