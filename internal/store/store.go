package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store holds the gorm handle and provides access to repositories.
type Store struct {
	db *gorm.DB
}

// Options configures Open.
type Options struct {
	// Logger receives gorm query logs. Nil disables query logging.
	Logger *slog.Logger
	// Verbose traces every query (used in dev).
	Verbose bool
}

// Open connects to the database named by dsn and runs auto-migration.
// postgres:// and postgresql:// URLs use the postgres driver; anything else
// is treated as a SQLite path, with an optional sqlite:// prefix.
func Open(dsn string, opts Options) (*Store, error) {
	dialector, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	gcfg := &gorm.Config{Logger: gormlogger.Discard}
	if opts.Logger != nil {
		level := gormlogger.Warn
		if opts.Verbose {
			level = gormlogger.Info
		}
		gcfg.Logger = slogGorm.New(
			slogGorm.WithHandler(opts.Logger.Handler()),
			slogGorm.WithTraceAll(),
			slogGorm.WithSlowThreshold(500*time.Millisecond),
		).LogMode(level)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if db.Dialector.Name() == "sqlite" {
		// One connection keeps pragmas and in-memory databases consistent
		// and serializes writers.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		if err := applyPragmas(db); err != nil {
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	return &Store{db: db}, nil
}

func dialectorFor(dsn string) (gorm.Dialector, error) {
	switch {
	case dsn == "":
		return nil, errors.New("empty database url")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(dsn), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		return sqlite.Open(path), nil
	default:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		return sqlite.Open(dsn), nil
	}
}

// DB returns the underlying gorm handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Reset deletes all learner data and the LLM event log. The catalog is kept.
func (s *Store) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{
			&QuestionAttempt{}, &UserProgress{}, &LearningSession{},
			&ChatMessage{}, &SystemNotification{}, &LLMRequestEvent{}, &User{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("delete %T: %w", m, err)
			}
		}
		return nil
	})
}

func (s *Store) Users() UserRepo                 { return &userRepo{db: s.db} }
func (s *Store) Sessions() SessionRepo           { return &sessionRepo{db: s.db} }
func (s *Store) Attempts() AttemptRepo           { return &attemptRepo{db: s.db} }
func (s *Store) Progress() ProgressRepo          { return &progressRepo{db: s.db} }
func (s *Store) Catalog() CatalogRepo            { return &catalogRepo{db: s.db} }
func (s *Store) Chat() ChatRepo                  { return &chatRepo{db: s.db} }
func (s *Store) Notifications() NotificationRepo { return &notificationRepo{db: s.db} }
func (s *Store) Events() EventRepo               { return &eventRepo{db: s.db} }
func (s *Store) Stats() StatsRepo                { return &statsRepo{db: s.db} }

// applyPragmas configures SQLite for concurrent access from bot goroutines.
func applyPragmas(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if err := db.Exec(p).Error; err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the SQLite file used when no database url is set:
// $XDG_DATA_HOME/riskbot/riskbot.db or ~/.local/share/riskbot/riskbot.db.
func DefaultDBPath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "riskbot", "riskbot.db"), nil
}

// ensureDir creates the parent directory of a SQLite path. In-memory and
// URI-style names are left alone.
func ensureDir(path string) error {
	if strings.HasPrefix(path, "file:") || strings.Contains(path, ":memory:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
