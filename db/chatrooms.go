package db

import (
	"database/sql"
	"fmt"

	"chatd/models"
)

// ChatRoomID derives the room identity from its path. Rooms are
// path-addressed, not participant-addressed, so the id survives
// participant-list edits.
func ChatRoomID(path string) string {
	return hashed(path)
}

// CreateChatRoom creates a room with an ordered participant list.
// Re-creating an existing path is a conflict, never a silent overwrite.
func (db *DB) CreateChatRoom(path string, participants []string) (*models.ChatRoom, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty chat room path", ErrValidation)
	}
	id := ChatRoomID(path)

	err := db.transact(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			"INSERT INTO chatrooms (id, path) VALUES (?, ?)", id, path,
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: chat room %q already exists", ErrConflict, path)
			}
			return err
		}
		for i, p := range participants {
			if _, err := tx.Exec(
				"INSERT OR IGNORE INTO chatroom_participants (room_id, username, position) VALUES (?, ?, ?)",
				id, p, i,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return db.GetChatRoom(path)
}

func (db *DB) GetChatRoom(path string) (*models.ChatRoom, error) {
	room := &models.ChatRoom{ID: ChatRoomID(path)}
	err := db.conn.QueryRow(
		"SELECT path FROM chatrooms WHERE id = ?", room.ID,
	).Scan(&room.Path)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: chat room %q", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(
		"SELECT username FROM chatroom_participants WHERE room_id = ? ORDER BY position",
		room.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		room.Participants = append(room.Participants, p)
	}
	return room, rows.Err()
}

// AddParticipant appends a user to the room's participant list.
func (db *DB) AddParticipant(path, username string) error {
	id := ChatRoomID(path)
	return db.transact(func(tx *sql.Tx) error {
		if err := roomExists(tx, id, path); err != nil {
			return err
		}
		_, err := tx.Exec(
			`INSERT OR IGNORE INTO chatroom_participants (room_id, username, position)
			 VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM chatroom_participants WHERE room_id = ?))`,
			id, username, id,
		)
		return err
	})
}

// EditParticipants replaces the participant list wholesale.
func (db *DB) EditParticipants(path string, participants []string) error {
	id := ChatRoomID(path)
	return db.transact(func(tx *sql.Tx) error {
		if err := roomExists(tx, id, path); err != nil {
			return err
		}
		if _, err := tx.Exec(
			"DELETE FROM chatroom_participants WHERE room_id = ?", id,
		); err != nil {
			return err
		}
		for i, p := range participants {
			if _, err := tx.Exec(
				"INSERT OR IGNORE INTO chatroom_participants (room_id, username, position) VALUES (?, ?, ?)",
				id, p, i,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveChatRoom deletes the room, its participant list and every message
// box it owns. A second call reports not-found.
func (db *DB) RemoveChatRoom(path string) error {
	id := ChatRoomID(path)
	return db.transact(func(tx *sql.Tx) error {
		result, err := tx.Exec("DELETE FROM chatrooms WHERE id = ?", id)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: chat room %q", ErrNotFound, path)
		}
		if _, err := tx.Exec(
			"DELETE FROM chatroom_participants WHERE room_id = ?", id,
		); err != nil {
			return err
		}
		_, err = tx.Exec("DELETE FROM messages WHERE container_id = ?", id)
		return err
	})
}

// ChatRoomsFor returns the paths of every room the user participates in.
func (db *DB) ChatRoomsFor(username string) ([]string, error) {
	rows, err := db.conn.Query(
		`SELECT r.path
		   FROM chatrooms r
		   JOIN chatroom_participants p ON p.room_id = r.id
		  WHERE p.username = ?
		  ORDER BY r.path`,
		username,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

func roomExists(tx *sql.Tx, id, path string) error {
	var count int
	if err := tx.QueryRow(
		"SELECT COUNT(*) FROM chatrooms WHERE id = ?", id,
	).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: chat room %q", ErrNotFound, path)
	}
	return nil
}
