package models

// User is a registered account. The two cursor dates track fetch progress:
// LastReceived moves on every successful incremental fetch, LastCleared only
// when the caller explicitly closes a chat session.
type User struct {
	Username     string
	Fullname     string
	Status       string
	LastReceived string
	LastCleared  string
}

// Message is immutable once stored. Timestamp is the authoritative ordering
// key; ID is derived from the same instant.
type Message struct {
	ID          string
	ContainerID string
	Author      string
	Text        string
	Timestamp   string
}

// Conversation is a two-party message container with an order-independent
// identity.
type Conversation struct {
	ID    string
	User1 string
	User2 string
}

// Partner returns the other participant, or "" if username is not a member.
func (c *Conversation) Partner(username string) string {
	switch username {
	case c.User1:
		return c.User2
	case c.User2:
		return c.User1
	}
	return ""
}

// ChatRoom is a multi-party container addressed by a caller-chosen path.
// Identity is stable under participant edits.
type ChatRoom struct {
	ID           string
	Path         string
	Participants []string
}

// HasParticipant reports whether username is currently in the room.
func (r *ChatRoom) HasParticipant(username string) bool {
	for _, p := range r.Participants {
		if p == username {
			return true
		}
	}
	return false
}
