package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection
func NewDB(cfg Config, logger zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger.Info().Str("database", cfg.Database).Msg("Connected to PostgreSQL")

	return &DB{Pool: pool, logger: logger}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info().Msg("Database connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	db.logger.Info().Msg("Running database migrations...")

	migrations := []string{
		// Stock signals produced by the scoring pipeline
		`CREATE TABLE IF NOT EXISTS stock_signals (
			id SERIAL PRIMARY KEY,
			batch_id UUID NOT NULL,
			ticker VARCHAR(12) NOT NULL,
			company VARCHAR(200),
			sector VARCHAR(100),
			signal_type VARCHAR(10) NOT NULL,
			classification VARCHAR(20) NOT NULL,
			smart_score INTEGER NOT NULL,
			strength_score DECIMAL(8, 4) NOT NULL,
			confidence_score DECIMAL(8, 4) NOT NULL,
			quality_score DECIMAL(8, 4) NOT NULL,
			risk_score DECIMAL(8, 4) NOT NULL,
			score_1h DECIMAL(8, 4) NOT NULL,
			score_4h DECIMAL(8, 4) NOT NULL,
			score_1d DECIMAL(8, 4) NOT NULL,
			score_1w DECIMAL(8, 4) NOT NULL,
			current_price DECIMAL(16, 4) NOT NULL,
			daily_change_percent DECIMAL(10, 4) NOT NULL DEFAULT 0,
			entry_price DECIMAL(16, 4) NOT NULL,
			stop_loss DECIMAL(16, 4) NOT NULL,
			target_price DECIMAL(16, 4) NOT NULL,
			mode VARCHAR(10) NOT NULL DEFAULT 'live',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_signals_ticker ON stock_signals(ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_signals_batch ON stock_signals(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_signals_score ON stock_signals(smart_score)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_signals_created ON stock_signals(created_at)`,

		// Per-indicator breakdown, 28 rows per signal
		`CREATE TABLE IF NOT EXISTS signal_indicators (
			id SERIAL PRIMARY KEY,
			signal_id INTEGER NOT NULL REFERENCES stock_signals(id) ON DELETE CASCADE,
			indicator VARCHAR(30) NOT NULL,
			timeframe VARCHAR(4) NOT NULL,
			raw_value DECIMAL(20, 8),
			contribution DECIMAL(8, 4) NOT NULL DEFAULT 0,
			data_available BOOLEAN NOT NULL DEFAULT FALSE,
			metadata JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_indicators_signal ON signal_indicators(signal_id)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_indicators_name ON signal_indicators(indicator)`,

		// Closed positions traced back to the signal that opened them
		`CREATE TABLE IF NOT EXISTS signal_outcomes (
			id SERIAL PRIMARY KEY,
			signal_id INTEGER REFERENCES stock_signals(id) ON DELETE SET NULL,
			ticker VARCHAR(12) NOT NULL,
			signal_type VARCHAR(10) NOT NULL,
			classification VARCHAR(20) NOT NULL,
			smart_score INTEGER NOT NULL,
			entry_price DECIMAL(16, 4) NOT NULL,
			exit_price DECIMAL(16, 4) NOT NULL,
			pnl_percent DECIMAL(10, 4) NOT NULL,
			outcome_type VARCHAR(12) NOT NULL DEFAULT 'win',
			success BOOLEAN NOT NULL,
			holding_hours DECIMAL(10, 2) NOT NULL DEFAULT 0,
			market_regime VARCHAR(20),
			volatility_bucket VARCHAR(20),
			indicators JSONB,
			closed_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_outcomes_ticker ON signal_outcomes(ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_outcomes_closed ON signal_outcomes(closed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_outcomes_score ON signal_outcomes(smart_score)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	db.logger.Info().Msg("Database migrations completed")
	return nil
}
