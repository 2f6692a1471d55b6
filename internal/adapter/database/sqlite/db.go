package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/simukti/sqldb-logger/logadapter/zerologadapter"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"go.opentelemetry.io/otel"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const DefaultDSN = "file:tasks?mode=memory&cache=shared"

type DB struct {
	*sql.DB
	QueryBuilder sq.StatementBuilderType
}

type Options struct {
	DSN    string
	DBName string
	// Logger receives every statement through sqldb-logger. Nil disables SQL logging.
	Logger *zerolog.Logger
}

// Open connects, applies the embedded migrations and returns a traced handle.
func Open(opts Options) (*DB, error) {
	if opts.DSN == "" {
		opts.DSN = DefaultDSN
	}
	if opts.DBName == "" {
		opts.DBName = "taskmanager"
	}

	sqlDB, err := otelsql.Open(DriverName, opts.DSN,
		otelsql.WithDBSystem("sqlite"),
		otelsql.WithDBName(opts.DBName),
		otelsql.WithTracerProvider(otel.GetTracerProvider()),
	)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db := sqlDB
	if opts.Logger != nil {
		db = sqldblogger.OpenDriver(opts.DSN, sqlDB.Driver(), zerologadapter.New(*opts.Logger),
			sqldblogger.WithSQLQueryAsMessage(true),
			sqldblogger.WithMinimumLevel(sqldblogger.LevelDebug),
		)
		sqlDB.Close()
	}

	if IsMemoryDSN(opts.DSN) {
		// a shared-cache memory database lives as long as one connection does
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{
		DB:           db,
		QueryBuilder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

func IsMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// RunMigrations applies the embedded schema. The migrate instance is not
// closed because that would close db as well.
func RunMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
