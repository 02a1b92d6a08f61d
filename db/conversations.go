package db

import (
	"database/sql"
	"sort"
	"strings"

	"chatd/models"
)

// ConversationID builds the canonical pair id: the two username digests,
// sorted and joined. Order-independent, so both participants resolve the
// same container.
func ConversationID(userA, userB string) string {
	digests := []string{hashed(userA), hashed(userB)}
	sort.Strings(digests)
	return strings.Join(digests, ".")
}

// GetOrCreateConversation returns the single conversation for the unordered
// pair, creating it lazily on first contact. Idempotent.
func (db *DB) GetOrCreateConversation(userA, userB string) (*models.Conversation, error) {
	id := ConversationID(userA, userB)

	err := db.withRetry(func() error {
		_, err := db.conn.Exec(
			"INSERT OR IGNORE INTO conversations (id, user1, user2) VALUES (?, ?, ?)",
			id, userA, userB,
		)
		return err
	})
	if err != nil {
		return nil, err
	}

	return db.getConversation(id)
}

func (db *DB) getConversation(id string) (*models.Conversation, error) {
	var c models.Conversation
	err := db.conn.QueryRow(
		"SELECT id, user1, user2 FROM conversations WHERE id = ?", id,
	).Scan(&c.ID, &c.User1, &c.User2)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ConversationsFor returns every conversation the user is a member of.
func (db *DB) ConversationsFor(username string) ([]*models.Conversation, error) {
	rows, err := db.conn.Query(
		"SELECT id, user1, user2 FROM conversations WHERE user1 = ? OR user2 = ?",
		username, username,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.User1, &c.User2); err != nil {
			return nil, err
		}
		conversations = append(conversations, &c)
	}
	return conversations, rows.Err()
}
