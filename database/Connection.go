package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/exaring/otelpgx"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/mattn/go-sqlite3"
)

// Driver represents a supported SQL driver.
type Driver string

const (
	PostgresDriver Driver = "postgres"
	MySQLDriver    Driver = "mysql"
	SQLiteDriver   Driver = "sqlite3"
)

func ParseDriver(input string) (Driver, error) {
	switch strings.ToLower(input) {
	case "postgres", "postgresql", "pgx":
		return PostgresDriver, nil
	case "mysql":
		return MySQLDriver, nil
	case "sqlite", "sqlite3":
		return SQLiteDriver, nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", input)
	}
}

type ConnectionString struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Options  map[string]string
}

type ConnectionPoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	EnableTelemetry bool // Enable OpenTelemetry tracing for database operations
}

func DefaultPoolConfig() *ConnectionPoolConfig {
	return &ConnectionPoolConfig{
		MaxOpenConns:    30,
		MaxIdleConns:    10,
		ConnMaxIdleTime: 5 * time.Minute,
		ConnMaxLifetime: 10 * time.Minute,
	}
}

// Config is the env-driven description of a connection.
type Config struct {
	Driver          string        `env:"DB_DRIVER" envDefault:"postgres"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"studio"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_NAME" envDefault:"studio"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"30"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"10m"`
	EnableTelemetry bool          `env:"DB_ENABLE_TELEMETRY" envDefault:"false"`
}

// LoadConfigFromEnv reads DB_* variables.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load database config: %w", err)
	}
	return cfg, nil
}

// NewConnectionFromConfig translates Config into an unopened Connection.
func NewConnectionFromConfig(cfg Config) (*Connection, error) {
	driver, err := ParseDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	options := map[string]string{}
	switch driver {
	case PostgresDriver:
		if cfg.SSLMode != "" {
			options["sslmode"] = cfg.SSLMode
		}
	case MySQLDriver:
		options["parseTime"] = "true"
	case SQLiteDriver:
		options["_foreign_keys"] = "on"
	}

	cs := NewConnectionString(cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, options)
	pool := NewConnectionPoolConfig(cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxIdleTime, cfg.ConnMaxLifetime)
	pool.EnableTelemetry = cfg.EnableTelemetry
	return NewConnection(driver, cs, pool)
}

type Connection struct {
	Driver           Driver
	ConnectionString *ConnectionString
	PoolConfig       *ConnectionPoolConfig
	DB               *sql.DB
	PgxPool          *pgxpool.Pool
}

func NewConnectionString(
	host, port, user, password, database string,
	options map[string]string,
) *ConnectionString {
	return &ConnectionString{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		Database: database,
		Options:  options,
	}
}

func NewConnectionPoolConfig(
	maxOpenConns int,
	maxIdleConns int,
	connMaxIdleTime time.Duration,
	connMaxLifetime time.Duration,
) *ConnectionPoolConfig {
	return &ConnectionPoolConfig{
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxIdleTime: connMaxIdleTime,
		ConnMaxLifetime: connMaxLifetime,
	}
}

func NewConnection(driver Driver, cs *ConnectionString, pool *ConnectionPoolConfig) (*Connection, error) {
	if cs == nil {
		return nil, errors.New("connection string cannot be nil")
	}
	if pool == nil {
		pool = DefaultPoolConfig()
	}
	return &Connection{
		Driver:           driver,
		ConnectionString: cs,
		PoolConfig:       pool,
	}, nil
}

// DSN renders the driver-specific connection string. Options are emitted
// in key order so the result is stable.
func (cs *ConnectionString) DSN(driver Driver) string {
	keys := make([]string, 0, len(cs.Options))
	for k := range cs.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	switch driver {
	case PostgresDriver:
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s",
			cs.Host, cs.Port, cs.User, cs.Password, cs.Database,
		)
		for _, k := range keys {
			dsn += fmt.Sprintf(" %s=%s", k, cs.Options[k])
		}
		return dsn
	case MySQLDriver:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", cs.User, cs.Password, cs.Host, cs.Port, cs.Database)
		return withQuery(dsn, keys, cs.Options)
	case SQLiteDriver:
		return withQuery(cs.Database, keys, cs.Options)
	default:
		return ""
	}
}

func withQuery(dsn string, keys []string, options map[string]string) string {
	if len(keys) == 0 {
		return dsn
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+options[k])
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(parts, "&")
}

func (c *Connection) Connect(ctx context.Context) error {
	dsn := c.ConnectionString.DSN(c.Driver)
	if dsn == "" {
		return fmt.Errorf("invalid or unsupported driver: %s", c.Driver)
	}

	if c.Driver == PostgresDriver {
		cfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return fmt.Errorf("failed to parse pgx DSN: %w", err)
		}

		cfg.MaxConns = int32(c.PoolConfig.MaxOpenConns)
		cfg.MaxConnIdleTime = c.PoolConfig.ConnMaxIdleTime
		cfg.MaxConnLifetime = c.PoolConfig.ConnMaxLifetime

		if c.PoolConfig.EnableTelemetry {
			cfg.ConnConfig.Tracer = otelpgx.NewTracer()
		}

		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create pgx pool: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("failed to ping pgx pool: %w", err)
		}

		c.PgxPool = pool
		return nil
	}

	db, err := sql.Open(string(c.Driver), dsn)
	if err != nil {
		return fmt.Errorf("failed to open DB using driver %s: %w", c.Driver, err)
	}

	db.SetMaxOpenConns(c.PoolConfig.MaxOpenConns)
	db.SetMaxIdleConns(c.PoolConfig.MaxIdleConns)
	db.SetConnMaxIdleTime(c.PoolConfig.ConnMaxIdleTime)
	db.SetConnMaxLifetime(c.PoolConfig.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping DB: %w", err)
	}

	c.DB = db
	return nil
}

func (c *Connection) Close() error {
	if c.PgxPool != nil {
		c.PgxPool.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

func (c *Connection) GetSQLDB() *sql.DB {
	return c.DB
}

func (c *Connection) GetPgxPool() *pgxpool.Pool {
	return c.PgxPool
}
