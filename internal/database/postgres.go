package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

type DB struct {
	Pool  *pgxpool.Pool
	store StoreConfig
}

func New(ctx context.Context, config Config) (*DB, error) {
	connString := config.ConnectionString()
	pgPool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to database: %v", models.ErrStoreUnavailable, err)
	}

	return &DB{
		Pool:  pgPool,
		store: DefaultStoreConfig(),
	}, nil
}

// NewWithBackoff connects and pings, retrying with exponential backoff.
func NewWithBackoff(ctx context.Context, config Config, maxRetries int) (*DB, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var err error
	for i := range maxRetries {
		if i > 0 {
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Info().Dur("backoff", backoff).Msg("Waiting before database retry")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		log.Info().Int("attempt", i+1).Int("max_retries", maxRetries).Msg("Connecting to database")

		var db *DB
		db, err = New(ctx, config)
		if err == nil {
			if err = db.Ping(ctx); err == nil {
				log.Info().Int("attempts_needed", i+1).Msg("Database connected")
				return db, nil
			}
			db.Close()
		}

		log.Warn().Err(err).Int("attempt", i+1).Msg("Database connection failed")
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// WithStore overrides the table and column names used by the queries.
func (db *DB) WithStore(store StoreConfig) *DB {
	db.store = store.withDefaults()
	return db
}

// ConnectionString builds a postgresql URL with escaped credentials.
func (c *Config) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	return nil
}

func (db *DB) Close() {
	db.Pool.Close()
}
