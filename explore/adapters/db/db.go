package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/Sarojini27-bose/memeverse/explore/core"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DB struct {
	log     *slog.Logger
	conn    *sqlx.DB
	driver  string
	address string
	now     func() time.Time
}

func New(log *slog.Logger, driver, address string) (*DB, error) {
	sqlDriver, err := sqlDriverName(driver)
	if err != nil {
		return nil, err
	}
	conn, err := sqlx.Connect(sqlDriver, address)
	if err != nil {
		log.Error("connection problem", "driver", driver, "address", address, "error", err)
		return nil, err
	}
	if driver == DriverSQLite {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}
	return &DB{log: log, conn: conn, driver: driver, address: address, now: time.Now}, nil
}

func (db *DB) Get(ctx context.Context, key core.Key) ([]byte, error) {
	if !key.Valid() {
		return nil, core.ErrBadArguments
	}
	var payload string
	err := db.conn.GetContext(ctx, &payload,
		db.conn.Rebind(`SELECT payload FROM snapshots WHERE kind = ? AND id = ?`),
		string(key.Kind), key.ID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return []byte(payload), nil
}

func (db *DB) Set(ctx context.Context, key core.Key, value []byte) error {
	if !key.Valid() {
		return core.ErrBadArguments
	}
	_, err := db.conn.ExecContext(ctx,
		db.conn.Rebind(`INSERT INTO snapshots (kind, id, payload, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT (kind, id) DO UPDATE
         SET payload = excluded.payload, updated_at = excluded.updated_at`),
		string(key.Kind), key.ID, string(value), db.now().UTC(),
	)
	return err
}

func (db *DB) Remove(ctx context.Context, key core.Key) error {
	if !key.Valid() {
		return core.ErrBadArguments
	}
	_, err := db.conn.ExecContext(ctx,
		db.conn.Rebind(`DELETE FROM snapshots WHERE kind = ? AND id = ?`),
		string(key.Kind), key.ID,
	)
	return err
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func sqlDriverName(driver string) (string, error) {
	switch driver {
	case DriverPostgres:
		return "pgx", nil
	case DriverSQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported store driver %q", driver)
	}
}
