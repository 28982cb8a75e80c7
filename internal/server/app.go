// Package server wires the homevault components together and runs them:
// credential store, session manager, rate limiter, vault and the HTTP
// server. It also owns signal handling: SIGINT, SIGTERM and SIGQUIT stop
// the server gracefully, SIGHUP reloads the credentials.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/homevault/internal/common"
	"github.com/dmitrijs2005/homevault/internal/logging"
	"github.com/dmitrijs2005/homevault/internal/netx"
	"github.com/dmitrijs2005/homevault/internal/server/config"
	"github.com/dmitrijs2005/homevault/internal/server/credentials"
	"github.com/dmitrijs2005/homevault/internal/server/httpapi"
	"github.com/dmitrijs2005/homevault/internal/server/ratelimiter"
	"github.com/dmitrijs2005/homevault/internal/server/sessions"
	"github.com/dmitrijs2005/homevault/internal/server/vault"
)

const secretKeySize = 32

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	credentials *credentials.Store
	sessions    *sessions.Manager
	limiter     *ratelimiter.RateLimiter
	vault       *vault.Vault
	server      *httpapi.Server
}

// NewApp builds every component from c. Log output goes to logOut.
func NewApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	logger := logging.New(logOut, c.LogLevel)
	app := &App{config: c, logger: logger}

	source, err := app.credentialSource(ctx)
	if err != nil {
		return nil, err
	}

	store, err := credentials.NewStore(ctx, source, logger)
	if err != nil {
		app.closeDB()
		return nil, fmt.Errorf("credentials init error: %w", err)
	}

	limiter, err := ratelimiter.New(c.RateLimit, c.RateInterval, c.RateLimiterCapacity)
	if err != nil {
		app.closeDB()
		return nil, fmt.Errorf("rate limiter init error: %w", err)
	}

	v, err := vault.New(c.StorageDir, logger)
	if err != nil {
		app.closeDB()
		return nil, fmt.Errorf("vault init error: %w", err)
	}

	secret := []byte(c.SecretKey)
	if len(secret) == 0 {
		secret = common.GenerateRandByteArray(secretKeySize)
		logger.Info(ctx, "no secret key configured, sessions are signed with a per-process key")
	}

	app.credentials = store
	app.sessions = sessions.NewManager(c.SessionTTL)
	app.limiter = limiter
	app.vault = v
	app.server = httpapi.NewServer(httpapi.Options{
		Address:         c.EndpointAddr,
		SecretKey:       secret,
		SessionTTL:      c.SessionTTL,
		PagesDir:        c.PagesDir,
		StaticDir:       c.StaticDir,
		CertificateFile: c.CertificateFile,
		TLSCertFile:     c.TLSCertFile,
		TLSKeyFile:      c.TLSKeyFile,
		TrustProxy:      c.TrustProxy,
	}, logger, store, app.sessions, limiter, v)

	return app, nil
}

func (app *App) credentialSource(ctx context.Context) (credentials.Source, error) {
	if app.config.DatabaseDSN != "" {
		db, err := credentials.OpenPostgres(ctx, app.config.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.db = db
		return credentials.NewPostgresSource(db), nil
	}

	source, err := credentials.NewFileSource(app.config.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("credentials file init error: %w", err)
	}
	return source, nil
}

func (app *App) closeDB() {
	if app.db != nil {
		_ = app.db.Close()
	}
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigs:
				if sig == syscall.SIGHUP {
					app.reloadCredentials(ctx)
					continue
				}
				app.logger.Info(ctx, "Received signal, stopping", "signal", sig.String())
				cancelFunc()
				return
			}
		}
	}()
}

func (app *App) reloadCredentials(ctx context.Context) {
	if err := app.credentials.Reload(ctx); err != nil {
		app.logger.Error(ctx, "credentials reload failed, keeping previous table", "error", err)
		return
	}
	app.logger.Info(ctx, "credentials reloaded", "users", app.credentials.Len())
}

// sweep drops stale rate limiter entries and expired sessions every
// interval until ctx is done.
func (app *App) sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := app.limiter.Sweep(); n > 0 {
				app.logger.Debug(ctx, "rate limiter swept", "removed", n, "tracked", app.limiter.Len())
			}
			if n := app.sessions.Sweep(); n > 0 {
				app.logger.Debug(ctx, "sessions swept", "removed", n, "live", app.sessions.Len())
			}
		}
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return err
	}
	return nil
}

// Run serves until ctx is cancelled or a stop signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.closeDB()

	app.logger.Info(ctx, "Starting app...",
		"storage_dir", app.vault.Root(),
		"users", app.credentials.Len(),
	)

	if url, err := netx.AdvertisedURL(app.config.EndpointAddr, app.config.TLSCertFile != ""); err == nil {
		app.logger.Info(ctx, "Reachable on the local network", "url", url)
	} else {
		app.logger.Debug(ctx, "no LAN address to advertise", "error", err)
	}

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweep(ctx, app.limiter.Interval())
	}()

	err := app.startHTTPServer(ctx, cancelFunc)

	cancelFunc()
	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	return err
}
