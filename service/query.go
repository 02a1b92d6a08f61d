package service

import (
	"chatd/db"
	"chatd/models"
	"chatd/protocol"
)

// The query engine merges messages across conversation and room containers
// into a response keyed by the counterpart identity: the partner's username
// for conversations, the room path for rooms. The watermark is the maximum
// matched timestamp, reusable verbatim as the next query's lower bound
// because the window is half-open (since < t <= until).

// AllSelector selects every partner, or every room the user participates in.
const AllSelector = "*"

// GetMessages returns all messages visible to the user in the given window.
// Empty selectors yield an empty result without error. An unknown room is
// not-found; an unknown conversation is created on the fly, because
// conversations are identity-symmetric and rooms are not.
func (s *Service) GetMessages(username, password, partner string, rooms []string, since, until string) protocol.MessagesResponse {
	if !s.Authenticate(username, password) {
		return emptyMessages(authFail())
	}
	s.presence.ConfirmOnline(username)

	sinceStr, untilStr, err := s.resolveWindow(since, until)
	if err != nil {
		return emptyMessages(errorResponse(err))
	}
	return s.collect(username, partner, rooms, sinceStr, untilStr)
}

// GetNewMessages is the cursor-based fetch: the null date (or an empty
// string) means "since my last fetch", read from the persisted
// last_received cursor. On a non-empty result the cursor advances to the
// watermark; the advance is monotonic even under concurrent fetches.
func (s *Service) GetNewMessages(username, password, since string) protocol.MessagesResponse {
	if !s.Authenticate(username, password) {
		return emptyMessages(authFail())
	}
	s.presence.ConfirmOnline(username)

	user, err := s.db.GetUser(username)
	if err != nil {
		return emptyMessages(errorResponse(err))
	}

	sinceStr := user.LastReceived
	if since != "" && since != protocol.NullDate {
		t, err := protocol.ParseDate(since)
		if err != nil {
			return emptyMessages(errorResponse(err))
		}
		sinceStr = protocol.FormatDate(t)
	}

	resp := s.collect(username, AllSelector, []string{AllSelector}, sinceStr, protocol.FormatDate(s.now()))
	if resp.Status == protocol.StatusSuccess && resp.LastMsgDate != protocol.NullDate {
		if err := s.db.AdvanceLastReceived(username, resp.LastMsgDate); err != nil {
			return emptyMessages(errorResponse(err))
		}
	}
	return resp
}

// GetUnclearedMessages fetches everything since the last_cleared cursor.
// The cursor only advances when the caller opts in with clear=true, so a
// client can fetch for display without marking the chat session closed.
func (s *Service) GetUnclearedMessages(username, password, partner string, rooms []string, until string, clear bool) protocol.MessagesResponse {
	if !s.Authenticate(username, password) {
		return emptyMessages(authFail())
	}
	s.presence.ConfirmOnline(username)

	user, err := s.db.GetUser(username)
	if err != nil {
		return emptyMessages(errorResponse(err))
	}
	_, untilStr, err := s.resolveWindow("", until)
	if err != nil {
		return emptyMessages(errorResponse(err))
	}

	resp := s.collect(username, partner, rooms, user.LastCleared, untilStr)
	if clear && resp.Status == protocol.StatusSuccess && resp.LastMsgDate != protocol.NullDate {
		if err := s.db.AdvanceLastCleared(username, resp.LastMsgDate); err != nil {
			return emptyMessages(errorResponse(err))
		}
	}
	return resp
}

// resolveWindow normalizes the window bounds to storage format. The lower
// bound defaults to the null-date sentinel, the upper bound to now.
func (s *Service) resolveWindow(since, until string) (string, string, error) {
	sinceStr := protocol.NullDate
	if since != "" && since != protocol.NullDate {
		t, err := protocol.ParseDate(since)
		if err != nil {
			return "", "", err
		}
		sinceStr = protocol.FormatDate(t)
	}

	untilStr := protocol.FormatDate(s.now())
	if until != "" {
		t, err := protocol.ParseDate(until)
		if err != nil {
			return "", "", err
		}
		untilStr = protocol.FormatDate(t)
	}
	return sinceStr, untilStr, nil
}

func (s *Service) collect(username, partner string, rooms []string, since, until string) protocol.MessagesResponse {
	resp := protocol.MessagesResponse{
		Response:         success(),
		Messages:         map[string][]protocol.MessageEntry{},
		ChatRoomMessages: map[string][]protocol.MessageEntry{},
		LastMsgDate:      protocol.NullDate,
	}

	conversations, err := s.resolveConversations(username, partner)
	if err != nil {
		return emptyMessages(errorResponse(err))
	}
	paths, err := s.resolveRooms(username, rooms)
	if err != nil {
		return emptyMessages(errorResponse(err))
	}

	for _, conversation := range conversations {
		key := conversation.Partner(username)
		if key == "" {
			continue
		}
		entries, top, err := s.windowEntries(conversation.ID, since, until)
		if err != nil {
			return emptyMessages(errorResponse(err))
		}
		if len(entries) == 0 {
			continue
		}
		resp.Messages[key] = entries
		if top > resp.LastMsgDate {
			resp.LastMsgDate = top
		}
	}

	for _, path := range paths {
		entries, top, err := s.windowEntries(db.ChatRoomID(path), since, until)
		if err != nil {
			return emptyMessages(errorResponse(err))
		}
		if len(entries) == 0 {
			continue
		}
		resp.ChatRoomMessages[path] = entries
		if top > resp.LastMsgDate {
			resp.LastMsgDate = top
		}
	}

	return resp
}

// resolveConversations maps the partner selector to a conversation set:
// none, all, or a single partner (created eagerly if absent).
func (s *Service) resolveConversations(username, partner string) ([]*models.Conversation, error) {
	switch partner {
	case "":
		return nil, nil
	case AllSelector:
		return s.db.ConversationsFor(username)
	default:
		conversation, err := s.db.GetOrCreateConversation(username, partner)
		if err != nil {
			return nil, err
		}
		return []*models.Conversation{conversation}, nil
	}
}

// resolveRooms maps the room selector to a list of paths. Every explicitly
// named room must exist.
func (s *Service) resolveRooms(username string, rooms []string) ([]string, error) {
	if len(rooms) == 0 {
		return nil, nil
	}
	if len(rooms) == 1 && rooms[0] == AllSelector {
		return s.db.ChatRoomsFor(username)
	}
	for _, path := range rooms {
		if _, err := s.db.GetChatRoom(path); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

// windowEntries reads one container's boxes in the window. Rows come back
// sorted by timestamp, so the per-box order and the merged order coincide.
func (s *Service) windowEntries(containerID, since, until string) ([]protocol.MessageEntry, string, error) {
	msgs, err := s.db.MessagesInWindow(containerID, since, until)
	if err != nil {
		return nil, "", err
	}
	entries := make([]protocol.MessageEntry, 0, len(msgs))
	top := ""
	for _, m := range msgs {
		entries = append(entries, protocol.MessageEntry{m.Author, m.Text, m.Timestamp})
		if m.Timestamp > top {
			top = m.Timestamp
		}
	}
	return entries, top, nil
}

func emptyMessages(r protocol.Response) protocol.MessagesResponse {
	return protocol.MessagesResponse{
		Response:         r,
		Messages:         map[string][]protocol.MessageEntry{},
		ChatRoomMessages: map[string][]protocol.MessageEntry{},
		LastMsgDate:      protocol.NullDate,
	}
}
