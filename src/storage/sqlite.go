package storage

import (
	"database/sql"
	"fmt"

	"orderbook-observer/src/logger"
	"orderbook-observer/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteRecorder struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteRecorder(cfg *models.MConfig, log *logger.Logger) *SQLiteRecorder {
	return &SQLiteRecorder{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteRecorder) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	// Recreate Tables
	return d.recreateTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteRecorder) recreateTables() error {
	if _, err := d.DB.Exec("DROP TABLE IF EXISTS book_frames"); err != nil {
		return fmt.Errorf("failed to drop book_frames: %w", err)
	}

	query := `
		CREATE TABLE book_frames (
			session_id TEXT,
			sequence INTEGER,
			symbol TEXT,
			recorded_at INTEGER,
			feed_timestamp INTEGER,
			status TEXT,
			snapshot_received INTEGER,
			best_bid REAL,
			best_ask REAL,
			bids TEXT,
			asks TEXT,
			PRIMARY KEY (session_id, sequence)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create book_frames: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteRecorder) SaveFrames(frames []models.MBookFrame) error {
	if len(frames) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO book_frames (session_id, sequence, symbol, recorded_at, feed_timestamp, status, snapshot_received, best_bid, best_ask, bids, asks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
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

func (d *SQLiteRecorder) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
