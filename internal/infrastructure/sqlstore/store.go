package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/application"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	LogLevel        string
}

// Store implements the repositories on a relational database through gorm.
type Store struct {
	db *gorm.DB
}

func Open(opts Options) (*Store, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverMySQL:
		dialector = mysql.Open(opts.DSN)
	case DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(opts.LogLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: connect %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: pool: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	s := &Store{db: db}
	if opts.AutoMigrate {
		if err := s.Migrate(context.Background()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// New wraps an already opened gorm handle.
func New(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Repositories() application.Repositories {
	return repositoriesFor(s.db, false)
}

// WithinTx runs fn in one database transaction. Ingredient rows touched through the
// transactional repositories are read with SELECT ... FOR UPDATE.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos application.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, repositoriesFor(tx, true))
	})
}

func repositoriesFor(db *gorm.DB, inTx bool) application.Repositories {
	return application.Repositories{
		Ingredients: &IngredientRepository{db: db, lock: inTx},
		Dishes:      &DishRepository{db: db},
		Carts:       &CartRepository{db: db},
		Orders:      &OrderRepository{db: db},
		Promos:      &PromoRepository{db: db},
	}
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func isNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

func isDuplicate(err error) bool { return errors.Is(err, gorm.ErrDuplicatedKey) }
