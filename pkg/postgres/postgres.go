package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ds124wfegd/WB_L3/carrent/config"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithField("host", cfg.Host).Info("Successfully connected to PostgreSQL")
	return db, nil
}

// Migrations are idempotent and applied in order on every start.
var Migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,

	`CREATE TABLE IF NOT EXISTS cars (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL,
		brand VARCHAR(100) NOT NULL,
		model VARCHAR(100) NOT NULL,
		license_plate TEXT NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		price_per_day NUMERIC(12, 2) NOT NULL CHECK (price_per_day >= 0),
		has_gps BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		car_id UUID NOT NULL REFERENCES cars(id),
		requester_id UUID NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		base_price NUMERIC(12, 2) NOT NULL DEFAULT 0,
		excess_fee NUMERIC(12, 2) NOT NULL DEFAULT 0,
		platform_fee NUMERIC(12, 2) NOT NULL DEFAULT 0,
		platform_fee_percent NUMERIC(5, 2) NOT NULL,
		total_amount NUMERIC(12, 2) NOT NULL DEFAULT 0,
		is_paid BOOLEAN NOT NULL DEFAULT FALSE,
		approved_at TIMESTAMPTZ,
		trip_started_at TIMESTAMPTZ,
		start_latitude DOUBLE PRECISION,
		start_longitude DOUBLE PRECISION,
		actual_return_time TIMESTAMPTZ,
		cancelled_at TIMESTAMPTZ,
		cancelled_by VARCHAR(20),
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (start_time < end_time),
		CONSTRAINT bookings_no_overlap EXCLUDE USING gist (
			car_id WITH =,
			tstzrange(start_time, end_time, '[)') WITH &&
		) WHERE (status IN ('pending', 'approved', 'ready_for_pickup', 'ongoing'))
	)`,

	`CREATE TABLE IF NOT EXISTS inspection_schedules (
		id UUID PRIMARY KEY,
		car_id UUID NOT NULL REFERENCES cars(id),
		technician_id UUID NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		inspection_date TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY,
		kind VARCHAR(20) NOT NULL,
		car_id UUID NOT NULL REFERENCES cars(id),
		booking_id UUID UNIQUE REFERENCES bookings(id),
		inspection_schedule_id UUID UNIQUE REFERENCES inspection_schedules(id),
		owner_id UUID NOT NULL,
		counterparty_id UUID NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		owner_signature_date TIMESTAMPTZ,
		counterparty_signature_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id UUID PRIMARY KEY,
		booking_id UUID NOT NULL REFERENCES bookings(id),
		user_id UUID NOT NULL,
		direction VARCHAR(10) NOT NULL,
		amount NUMERIC(12, 2) NOT NULL CHECK (amount >= 0),
		reason VARCHAR(50) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		published_at TIMESTAMPTZ
	)`,

	// Indexes
	`CREATE INDEX IF NOT EXISTS idx_bookings_car_id ON bookings(car_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_requester_id ON bookings(requester_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_requester_cancelled ON bookings(requester_id, cancelled_at) WHERE status = 'cancelled'`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_unpublished ON ledger_entries(created_at) WHERE published_at IS NULL`,
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	for i, migration := range Migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", i, err)
		}
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}
