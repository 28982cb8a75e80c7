// Package httpapi is the HTTP surface of homevault: login and session
// cookies, the per-client rate limit and the file routes backed by the
// vault.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/homevault/internal/logging"
	"github.com/dmitrijs2005/homevault/internal/server/credentials"
	"github.com/dmitrijs2005/homevault/internal/server/vault"
)

const shutdownTimeout = 10 * time.Second

// Sessions is the part of the session manager the handlers use.
type Sessions interface {
	Issue(username string) uint64
	Get(id uint64) (string, bool)
	Remove(id uint64)
}

// Limiter decides whether a client may make another request.
type Limiter interface {
	ShouldAllow(key string) bool
}

// FileVault is the set of per-user file operations behind /file.
type FileVault interface {
	List(ctx context.Context, username string) ([]string, error)
	ListTrash(ctx context.Context, username string) ([]string, error)
	Open(ctx context.Context, username, rel string) (*os.File, error)
	Write(ctx context.Context, username, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, username, rel string) (vault.DeleteOutcome, error)
	Rename(ctx context.Context, username, rel, newName string) error
	Move(ctx context.Context, username, oldRel, newRel string) error
	Usage(ctx context.Context) (vault.Usage, error)
}

// Options carries the settings the HTTP layer needs from the config.
type Options struct {
	Address         string
	SecretKey       []byte
	SessionTTL      time.Duration
	PagesDir        string
	StaticDir       string
	CertificateFile string
	TLSCertFile     string
	TLSKeyFile      string
	// TrustProxy makes the client address come from X-Forwarded-For /
	// X-Real-IP. Only enable it behind a reverse proxy that sets them.
	TrustProxy bool
}

type Server struct {
	opts     Options
	logger   logging.Logger
	creds    credentials.Verifier
	sessions Sessions
	limiter  Limiter
	vault    FileVault
}

func NewServer(opts Options, l logging.Logger, creds credentials.Verifier, sessions Sessions, limiter Limiter, v FileVault) *Server {
	return &Server{
		opts:     opts,
		logger:   l.With("module", "http_server"),
		creds:    creds,
		sessions: sessions,
		limiter:  limiter,
		vault:    v,
	}
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "HTTP server shutdown", "error", err)
		}
	}()

	var err error
	if s.opts.TLSCertFile != "" && s.opts.TLSKeyFile != "" {
		s.logger.Info(ctx, "Starting HTTPS server", "address", s.opts.Address)
		err = srv.ListenAndServeTLS(s.opts.TLSCertFile, s.opts.TLSKeyFile)
	} else {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Address)
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
