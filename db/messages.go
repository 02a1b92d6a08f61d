package db

import (
	"fmt"
	"time"

	"chatd/models"
	"chatd/protocol"
)

// A message box is the (container, author) slice of the messages table:
// append-only, one box per author, so concurrent senders in the same
// container never contend on the same rows.

const idCollisionAttempts = 5

// AddMessage appends a message authored by author to the container's box.
// The id is derived from the timestamp; if two messages land on the same
// microsecond the insert retries with a freshly sampled timestamp instead
// of dropping the message, and only reports ErrDuplicateID once the retry
// budget is spent.
func (db *DB) AddMessage(containerID, author, text string) (*models.Message, error) {
	var msg *models.Message
	for attempt := 0; attempt < idCollisionAttempts; attempt++ {
		m, err := db.addMessageAt(containerID, author, text, time.Now().UTC())
		if err == nil {
			msg = m
			break
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		time.Sleep(time.Microsecond)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: container %s author %s", ErrDuplicateID, containerID, author)
	}
	return msg, nil
}

func (db *DB) addMessageAt(containerID, author, text string, t time.Time) (*models.Message, error) {
	msg := &models.Message{
		ID:          protocol.MessageID(t),
		ContainerID: containerID,
		Author:      author,
		Text:        text,
		Timestamp:   protocol.FormatDate(t),
	}

	err := db.withRetry(func() error {
		_, err := db.conn.Exec(
			"INSERT INTO messages (container_id, author, msg_id, text, timestamp) VALUES (?, ?, ?, ?, ?)",
			msg.ContainerID, msg.Author, msg.ID, msg.Text, msg.Timestamp,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// MessagesInWindow returns every message in the container with
// since < timestamp <= until, in ascending timestamp order. The half-open
// boundary lets a previous watermark be reused verbatim as the next lower
// bound. Bounds are fixed-width UTC strings; the SQL comparison is
// chronological.
func (db *DB) MessagesInWindow(containerID, since, until string) ([]models.Message, error) {
	rows, err := db.conn.Query(
		`SELECT container_id, author, msg_id, text, timestamp
		   FROM messages
		  WHERE container_id = ? AND timestamp > ? AND timestamp <= ?
		  ORDER BY timestamp ASC`,
		containerID, since, until,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ContainerID, &m.Author, &m.ID, &m.Text, &m.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
