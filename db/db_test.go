package db

import (
	"errors"
	"os"
	"testing"
	"time"

	"chatd/protocol"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "chatd-test-*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tmpfile.Close()
	os.Remove(tmpfile.Name()) // SQLite recreates it

	database, err := New(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
		os.Remove(tmpfile.Name())
	})
	return database
}

func TestRegisterAndAuthenticate(t *testing.T) {
	database := setupTestDB(t)

	if err := database.Register("alice", "secret"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ok, err := database.Authenticate("alice", "secret")
	if err != nil || !ok {
		t.Fatalf("Authenticate with correct password = (%v, %v), want (true, nil)", ok, err)
	}

	ok, err = database.Authenticate("alice", "wrong")
	if err != nil || ok {
		t.Fatalf("Authenticate with wrong password = (%v, %v), want (false, nil)", ok, err)
	}

	// Unknown users fail identically to wrong passwords.
	ok, err = database.Authenticate("nobody", "secret")
	if err != nil || ok {
		t.Fatalf("Authenticate unknown user = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestRegisterValidation(t *testing.T) {
	database := setupTestDB(t)

	for _, username := range []string{"", "has space", "tab\tchar", "new\nline"} {
		if err := database.Register(username, "pw"); !errors.Is(err, ErrValidation) {
			t.Errorf("Register(%q) = %v, want ErrValidation", username, err)
		}
	}

	if err := database.Register("alice", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := database.Register("alice", "pw"); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate Register = %v, want ErrConflict", err)
	}
}

func TestSetPassword(t *testing.T) {
	database := setupTestDB(t)

	if err := database.SetPassword("ghost", "pw"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetPassword for unknown user = %v, want ErrNotFound", err)
	}

	database.Register("alice", "old")
	if err := database.SetPassword("alice", "new"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}

	if ok, _ := database.Authenticate("alice", "old"); ok {
		t.Error("old password still accepted")
	}
	if ok, _ := database.Authenticate("alice", "new"); !ok {
		t.Error("new password rejected")
	}
}

func TestConversationIdentitySymmetry(t *testing.T) {
	database := setupTestDB(t)

	c1, err := database.GetOrCreateConversation("alice", "bob")
	if err != nil {
		t.Fatalf("GetOrCreateConversation: %v", err)
	}
	c2, err := database.GetOrCreateConversation("bob", "alice")
	if err != nil {
		t.Fatalf("GetOrCreateConversation reversed: %v", err)
	}

	if c1.ID != c2.ID {
		t.Errorf("conversation ids differ: %q vs %q", c1.ID, c2.ID)
	}
	if ConversationID("alice", "bob") != ConversationID("bob", "alice") {
		t.Error("ConversationID is order-dependent")
	}

	// Exactly one container exists for the pair.
	conversations, err := database.ConversationsFor("alice")
	if err != nil {
		t.Fatalf("ConversationsFor: %v", err)
	}
	if len(conversations) != 1 {
		t.Fatalf("ConversationsFor(alice) = %d conversations, want 1", len(conversations))
	}
	if got := conversations[0].Partner("alice"); got != "bob" {
		t.Errorf("Partner = %q, want bob", got)
	}
}

func TestMessageOrderingAndUniqueIDs(t *testing.T) {
	database := setupTestDB(t)
	conversation, _ := database.GetOrCreateConversation("alice", "bob")

	for i := 0; i < 5; i++ {
		if _, err := database.AddMessage(conversation.ID, "alice", "hello"); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}

	msgs, err := database.MessagesInWindow(conversation.ID, protocol.NullDate, protocol.FormatDate(time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("MessagesInWindow: %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("got %d messages, want 5", len(msgs))
	}

	seen := map[string]bool{}
	for i := 1; i < len(msgs); i++ {
		if msgs[i-1].Timestamp > msgs[i].Timestamp {
			t.Errorf("messages out of order at %d: %q > %q", i, msgs[i-1].Timestamp, msgs[i].Timestamp)
		}
	}
	for _, m := range msgs {
		if seen[m.ID] {
			t.Errorf("duplicate message id %q", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestMessageIDCollisionRejected(t *testing.T) {
	database := setupTestDB(t)
	conversation, _ := database.GetOrCreateConversation("alice", "bob")

	at := time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)
	if _, err := database.addMessageAt(conversation.ID, "alice", "one", at); err != nil {
		t.Fatalf("addMessageAt: %v", err)
	}
	// Same author, same container, same microsecond.
	if _, err := database.addMessageAt(conversation.ID, "alice", "two", at); !isUniqueViolation(err) {
		t.Fatalf("colliding insert = %v, want a unique violation", err)
	}
	// A different author may share the instant: boxes are per author.
	if _, err := database.addMessageAt(conversation.ID, "bob", "three", at); err != nil {
		t.Fatalf("same instant in another box: %v", err)
	}
}

func TestWindowBoundary(t *testing.T) {
	database := setupTestDB(t)
	conversation, _ := database.GetOrCreateConversation("alice", "bob")

	base := time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)
	var stamps []string
	for i := 0; i < 3; i++ {
		m, err := database.addMessageAt(conversation.ID, "alice", "m", base.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("addMessageAt: %v", err)
		}
		stamps = append(stamps, m.Timestamp)
	}

	// since is exclusive: a message stamped exactly at since is skipped.
	// until is inclusive: a message stamped exactly at until is returned.
	msgs, err := database.MessagesInWindow(conversation.ID, stamps[0], stamps[1])
	if err != nil {
		t.Fatalf("MessagesInWindow: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Timestamp != stamps[1] {
		t.Fatalf("window (%q, %q] returned %d messages, want exactly the middle one", stamps[0], stamps[1], len(msgs))
	}
}

func TestCursorMonotonicity(t *testing.T) {
	database := setupTestDB(t)
	database.Register("alice", "pw")

	early := protocol.FormatDate(time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC))
	late := protocol.FormatDate(time.Date(2024, 3, 7, 13, 0, 0, 0, time.UTC))

	if err := database.AdvanceLastReceived("alice", late); err != nil {
		t.Fatalf("AdvanceLastReceived: %v", err)
	}
	// A stale watermark must not move the cursor backwards.
	if err := database.AdvanceLastReceived("alice", early); err != nil {
		t.Fatalf("AdvanceLastReceived stale: %v", err)
	}

	user, err := database.GetUser("alice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.LastReceived != late {
		t.Errorf("last_received = %q, want %q", user.LastReceived, late)
	}

	if err := database.AdvanceLastCleared("alice", early); err != nil {
		t.Fatalf("AdvanceLastCleared: %v", err)
	}
	user, _ = database.GetUser("alice")
	if user.LastCleared != early {
		t.Errorf("last_cleared = %q, want %q", user.LastCleared, early)
	}
}

func TestChatRoomLifecycle(t *testing.T) {
	database := setupTestDB(t)

	room, err := database.CreateChatRoom("/r", []string{"u1"})
	if err != nil {
		t.Fatalf("CreateChatRoom: %v", err)
	}
	if room.ID != ChatRoomID("/r") {
		t.Errorf("room id = %q, want the path digest", room.ID)
	}

	// Re-creating the same path is a conflict, not a silent overwrite.
	if _, err := database.CreateChatRoom("/r", nil); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate CreateChatRoom = %v, want ErrConflict", err)
	}

	if err := database.AddParticipant("/r", "u2"); err != nil {
		t.Fatalf("AddParticipant: %v", err)
	}
	room, _ = database.GetChatRoom("/r")
	if len(room.Participants) != 2 || room.Participants[0] != "u1" || room.Participants[1] != "u2" {
		t.Fatalf("participants = %v, want ordered [u1 u2]", room.Participants)
	}

	if err := database.EditParticipants("/r", []string{"u2", "u3"}); err != nil {
		t.Fatalf("EditParticipants: %v", err)
	}
	room, _ = database.GetChatRoom("/r")
	if len(room.Participants) != 2 || room.Participants[0] != "u2" {
		t.Fatalf("participants after edit = %v", room.Participants)
	}

	// Identity is stable under participant edits.
	if room.ID != ChatRoomID("/r") {
		t.Error("room identity changed across edits")
	}

	paths, err := database.ChatRoomsFor("u3")
	if err != nil {
		t.Fatalf("ChatRoomsFor: %v", err)
	}
	if len(paths) != 1 || paths[0] != "/r" {
		t.Fatalf("ChatRoomsFor(u3) = %v, want [/r]", paths)
	}
}

func TestRemoveChatRoom(t *testing.T) {
	database := setupTestDB(t)

	room, _ := database.CreateChatRoom("/r", []string{"u1"})
	if _, err := database.AddMessage(room.ID, "u1", "hi"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	if err := database.RemoveChatRoom("/r"); err != nil {
		t.Fatalf("RemoveChatRoom: %v", err)
	}

	// Removal cascades to the room's message boxes.
	msgs, err := database.MessagesInWindow(room.ID, protocol.NullDate, protocol.FormatDate(time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("MessagesInWindow: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("room messages survived removal: %d left", len(msgs))
	}

	// The second removal reports not-found.
	if err := database.RemoveChatRoom("/r"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second RemoveChatRoom = %v, want ErrNotFound", err)
	}

	if err := database.AddParticipant("/r", "u2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddParticipant on removed room = %v, want ErrNotFound", err)
	}
}
