// Package db is the durable store: users with delivery cursors,
// conversations, chat rooms and their message boxes, all in SQLite.
package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrDuplicateID = errors.New("duplicate message id")
	ErrValidation  = errors.New("invalid input")
)

// Bounded retry for write-write conflicts. Exhaustion surfaces to the
// caller instead of losing a write.
const (
	retryAttempts = 5
	retryBackoff  = 10 * time.Millisecond
)

type DB struct {
	conn *sql.DB
}

func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			fullname TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			last_received TEXT NOT NULL DEFAULT '0001-01-01T00:00:00',
			last_cleared TEXT NOT NULL DEFAULT '0001-01-01T00:00:00'
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user1 TEXT NOT NULL,
			user2 TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chatrooms (
			id TEXT PRIMARY KEY,
			path TEXT UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chatroom_participants (
			room_id TEXT NOT NULL,
			username TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (room_id, username)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			container_id TEXT NOT NULL,
			author TEXT NOT NULL,
			msg_id TEXT NOT NULL,
			text TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			UNIQUE (container_id, author, msg_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_container ON messages(container_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_users ON conversations(user1, user2)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// hashed derives the identity digest used for conversation, chat room and
// message box ids.
func hashed(s string) string {
	sum := sha256.Sum224([]byte(s))
	return hex.EncodeToString(sum[:])
}

func isBusy(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
	}
	return false
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// withRetry re-runs fn while it fails on lock contention, so concurrent
// writers against the same container converge instead of corrupting state.
func (db *DB) withRetry(fn func() error) error {
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = fn()
		if err == nil || !isBusy(err) {
			return err
		}
		time.Sleep(retryBackoff * time.Duration(attempt))
	}
	return err
}

// transact runs fn inside a transaction with conflict retry. The operation
// commits fully or not at all.
func (db *DB) transact(fn func(tx *sql.Tx) error) error {
	return db.withRetry(func() error {
		tx, err := db.conn.Begin()
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}
