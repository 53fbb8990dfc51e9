package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"orderbook-observer/src/logger"
	"orderbook-observer/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresRecorder struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresRecorder(cfg *models.MConfig, log *logger.Logger) (*PostgresRecorder, error) {
	// Schema is named after the executable
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresRecorder{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresRecorder) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.recreateTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresRecorder initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresRecorder) recreateTables() error {
	query := fmt.Sprintf(`DROP TABLE IF EXISTS "%s"."book_frames";`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to drop book_frames: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE "%s"."book_frames" (
			session_id TEXT,
			sequence BIGINT,
			symbol TEXT,
			recorded_at BIGINT,
			feed_timestamp BIGINT,
			status TEXT,
			snapshot_received BOOLEAN,
			best_bid DOUBLE PRECISION,
			best_ask DOUBLE PRECISION,
			bids JSONB,
			asks JSONB,
			PRIMARY KEY (session_id, sequence)
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create book_frames: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresRecorder) SaveFrames(frames []models.MBookFrame) error {
	if len(frames) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO "%s"."book_frames" (session_id, sequence, symbol, recorded_at, feed_timestamp, status, snapshot_received, best_bid, best_ask, bids, asks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (session_id, sequence) DO NOTHING
	`, d.Schema))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range frames {
		r, err := toRow(f)
		if err != nil {
			return err
		}
		_, err = stmt.Exec(r.sessionID, r.sequence, r.symbol, r.recordedAt, r.feedTimestamp, r.status, r.snapshotReceived, r.bestBid, r.bestAsk, r.bids, r.asks)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresRecorder) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
