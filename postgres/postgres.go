// Package postgres reads events straight from the Synapse PostgreSQL
// database.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/fwojciec/matrixctl"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ConnectTimeout bounds connection establishment.
const ConnectTimeout = 10 * time.Second

// DSN returns the connection URL for the Synapse database at host:port.
func DSN(cfg matrixctl.DatabaseConfig, host string, port int) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.SynapseUser, cfg.SynapsePassword),
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + cfg.SynapseDatabase,
	}
	q := url.Values{}
	q.Set("connect_timeout", strconv.Itoa(int(ConnectTimeout.Seconds())))
	q.Set("application_name", "matrixctl")
	u.RawQuery = q.Encode()
	return u.String()
}

// DB represents a PostgreSQL database connection.
type DB struct {
	db  *sql.DB
	dsn string
}

// NewDB creates a new DB instance for dsn.
func NewDB(dsn string) *DB {
	return &DB{dsn: dsn}
}

// Open opens the connection and verifies it.
func (db *DB) Open(ctx context.Context) error {
	conn, err := sql.Open("pgx", db.dsn)
	if err != nil {
		return matrixctl.Errorf(matrixctl.ECONFIG, "invalid database settings: %v", err)
	}

	// A single connection is all one invocation needs.
	conn.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return matrixctl.Errorf(matrixctl.ETRANSPORT, "cannot connect to the database: %v", err)
	}

	db.db = conn
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// WithTx runs fn in a read-only transaction. The transaction is committed
// when fn succeeds and rolled back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}
