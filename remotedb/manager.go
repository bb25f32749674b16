package remotedb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// EnvKey is the durable configuration key holding the remote database URL.
const EnvKey = "DATABASE_URL"

// Manager owns the single process-wide connection pool to the remote
// analytics database. The pool is absent until a URL is activated; dependents
// obtain it via Current and treat nil as "not configured".
type Manager struct {
	mu      sync.RWMutex
	db      *gorm.DB
	envPath string
	open    func(url string) (*gorm.DB, error)
	log     zerolog.Logger
}

// NewManager returns a manager persisting its configuration to envPath
// (default ".env"). No connection is attempted until Test or Activate.
func NewManager(envPath string) *Manager {
	if strings.TrimSpace(envPath) == "" {
		envPath = ".env"
	}
	return &Manager{
		envPath: envPath,
		open:    openRemote,
		log:     log.With().Str("component", "remotedb").Logger(),
	}
}

// normalizeURL rewrites the generic postgresql:// scheme to the postgres://
// scheme the pgx-backed driver expects.
func normalizeURL(url string) string {
	trimmed := strings.TrimSpace(url)
	if strings.HasPrefix(strings.ToLower(trimmed), "postgresql://") {
		return "postgres://" + trimmed[len("postgresql://"):]
	}
	return trimmed
}

func openRemote(url string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(normalizeURL(url)), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
}

func disposePool(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Test opens a throwaway pool for the given URL, runs a version round trip,
// and disposes the pool on every path. It never returns an error: all
// failures collapse to (false, "Connection failed: ...", nil).
func (m *Manager) Test(ctx context.Context, url string) (ok bool, message string, serverVersion *string) {
	db, err := m.open(url)
	if err != nil {
		disposePool(db)
		return false, fmt.Sprintf("Connection failed: %v", err), nil
	}
	defer disposePool(db)

	var version string
	if err := db.WithContext(ctx).Raw("SELECT version()").Scan(&version).Error; err != nil {
		return false, fmt.Sprintf("Connection failed: %v", err), nil
	}
	return true, "Connection successful", &version
}

// SaveURL durably persists the URL under DATABASE_URL in the env file,
// preserving every other line verbatim.
func (m *Manager) SaveURL(url string) error {
	return writeEnvKey(m.envPath, EnvKey, url)
}

// Activate replaces the live pool with one bound to the given URL. The old
// pool, if any, is fully disposed; readers never observe both.
func (m *Manager) Activate(url string) error {
	db, err := m.open(url)
	if err != nil {
		disposePool(db)
		return fmt.Errorf("remotedb: activate pool: %w", err)
	}

	m.mu.Lock()
	old := m.db
	m.db = db
	m.mu.Unlock()

	disposePool(old)
	m.log.Info().Msg("remote database pool activated")
	return nil
}

// Current returns the live pool, or nil when no URL has been activated. It
// never attempts a connection itself.
func (m *Manager) Current() *gorm.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// Status reads the durable configuration (not the live pool) and, when a URL
// is present, probes it with a fresh Test.
func (m *Manager) Status(ctx context.Context) (configured bool, reachable bool, message string) {
	url, err := readEnvKey(m.envPath, EnvKey)
	if err != nil || url == "" {
		return false, false, fmt.Sprintf("%s is not set in %s", EnvKey, m.envPath)
	}
	ok, msg, _ := m.Test(ctx, url)
	return true, ok, msg
}

// Shutdown disposes the live pool. Safe to call with no pool active, and
// safe to call more than once.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	old := m.db
	m.db = nil
	m.mu.Unlock()

	if old != nil {
		disposePool(old)
		m.log.Info().Msg("remote database pool disposed")
	}
}
