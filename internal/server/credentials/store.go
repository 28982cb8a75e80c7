// Package credentials loads username → password-hash records and verifies
// login attempts against them.
//
// Records are loaded once into memory and swapped wholesale on Reload, so a
// login never re-parses the backing store.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/homevault/internal/common"
	"github.com/dmitrijs2005/homevault/internal/cryptox"
	"github.com/dmitrijs2005/homevault/internal/logging"
)

// dummyHash is verified against when the username is unknown so that the
// response time does not tell a caller whether the user exists.
const dummyHash = "$argon2id$v=19$m=65536,t=1,p=4$aG9tZXZhdWx0LWR1bW15IQ$AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8"

// Verifier is what the HTTP layer needs from the store.
type Verifier interface {
	Verify(ctx context.Context, username, password string) bool
}

type Store struct {
	source Source
	logger logging.Logger

	mu      sync.RWMutex
	records []Record

	// verify is a seam for tests that need to count hash computations.
	verify func(password []byte, encoded string) (bool, error)
}

// NewStore builds a Store and performs the initial load from source.
func NewStore(ctx context.Context, source Source, logger logging.Logger) (*Store, error) {
	s := &Store{
		source: source,
		logger: logger.With("module", "credentials"),
		verify: cryptox.VerifyPassword,
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the source and replaces the in-memory table. On error
// the previous table stays in effect.
func (s *Store) Reload(ctx context.Context) error {
	records, err := s.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if seen[r.Username] {
			s.logger.Warn(ctx, "duplicate credential record, first one wins", "username", r.Username)
		}
		seen[r.Username] = true
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	s.logger.Info(ctx, "credentials loaded", "users", len(seen))
	return nil
}

// Len returns the number of loaded records, duplicates included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) lookup(username string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.Username == username {
			return r, true
		}
	}
	return Record{}, false
}

// Verify reports whether password is correct for username. Unknown users,
// wrong passwords and malformed stored hashes all yield false.
func (s *Store) Verify(ctx context.Context, username, password string) bool {
	pw := []byte(password)
	defer common.WipeByteArray(pw)

	record, found := s.lookup(username)
	if !found {
		_, _ = s.verify(pw, dummyHash)
		return false
	}

	ok, err := s.verify(pw, record.PasswordHash)
	if err != nil {
		if errors.Is(err, common.ErrMalformedHash) {
			s.logger.Error(ctx, "stored password hash is malformed", "username", username, "error", err)
		} else {
			s.logger.Error(ctx, "password verification failed", "username", username, "error", err)
		}
		return false
	}

	return ok
}
