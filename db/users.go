package db

import (
	"database/sql"
	"fmt"
	"regexp"

	"chatd/models"

	"golang.org/x/crypto/bcrypt"
)

// Usernames feed identity digests and wire payloads, so whitespace and
// control characters are rejected at registration.
var illegalUsername = regexp.MustCompile(`[\s/\\]`)

func validateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: empty username", ErrValidation)
	}
	if illegalUsername.MatchString(username) {
		return fmt.Errorf("%w: illegal characters in username %q", ErrValidation, username)
	}
	return nil
}

func (db *DB) Register(username, password string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.withRetry(func() error {
		_, err := db.conn.Exec(
			"INSERT INTO users (username, password) VALUES (?, ?)",
			username, string(hash),
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user %q already registered", ErrConflict, username)
		}
		return err
	})
}

// Authenticate never reveals whether the username exists: both an unknown
// user and a wrong password come back as plain false.
func (db *DB) Authenticate(username, password string) (bool, error) {
	var hash string
	err := db.conn.QueryRow(
		"SELECT password FROM users WHERE username = ?", username,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

func (db *DB) UserExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM users WHERE username = ?", username,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (db *DB) SetPassword(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.withRetry(func() error {
		result, err := db.conn.Exec(
			"UPDATE users SET password = ? WHERE username = ?",
			string(hash), username,
		)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: user %q", ErrNotFound, username)
		}
		return nil
	})
}

func (db *DB) GetUser(username string) (*models.User, error) {
	var u models.User
	err := db.conn.QueryRow(
		`SELECT username, fullname, status, last_received, last_cleared
		   FROM users WHERE username = ?`,
		username,
	).Scan(&u.Username, &u.Fullname, &u.Status, &u.LastReceived, &u.LastCleared)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, username)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *DB) SetFullname(username, fullname string) error {
	return db.withRetry(func() error {
		_, err := db.conn.Exec(
			"UPDATE users SET fullname = ? WHERE username = ?",
			fullname, username,
		)
		return err
	})
}

func (db *DB) SetStatus(username, status string) error {
	return db.withRetry(func() error {
		result, err := db.conn.Exec(
			"UPDATE users SET status = ? WHERE username = ?",
			status, username,
		)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: user %q", ErrNotFound, username)
		}
		return nil
	})
}

// AdvanceLastReceived moves the "last received" cursor forward. The guard in
// the WHERE clause makes the update monotonic: a stale watermark from a
// concurrent fetch never moves the cursor backwards. Timestamps are
// fixed-width UTC strings, so the string comparison is chronological.
func (db *DB) AdvanceLastReceived(username, watermark string) error {
	return db.withRetry(func() error {
		_, err := db.conn.Exec(
			"UPDATE users SET last_received = ? WHERE username = ? AND last_received < ?",
			watermark, username, watermark,
		)
		return err
	})
}

// AdvanceLastCleared is the monotonic update for the "last cleared" cursor.
func (db *DB) AdvanceLastCleared(username, watermark string) error {
	return db.withRetry(func() error {
		_, err := db.conn.Exec(
			"UPDATE users SET last_cleared = ? WHERE username = ? AND last_cleared < ?",
			watermark, username, watermark,
		)
		return err
	})
}
