package service

import (
	"fmt"
	"log"

	"chatd/protocol"
)

// SendMessage delivers a one-to-one message. The conversation is created
// lazily on first contact; the recipient must be registered. The returned
// last_msg_date is the stored timestamp of the new message, reusable as the
// lower bound of the sender's next fetch.
func (s *Service) SendMessage(username, password, fullname, recipient, text string) protocol.SendResponse {
	if !s.Authenticate(username, password) {
		return protocol.SendResponse{Response: authFail(), LastMsgDate: protocol.NullDate}
	}
	s.presence.ConfirmOnline(username)

	if recipient == "" {
		return protocol.SendResponse{
			Response:    protocol.Response{Status: protocol.StatusError, Error: "recipient required"},
			LastMsgDate: protocol.NullDate,
		}
	}
	registered, err := s.db.UserExists(recipient)
	if err != nil {
		return protocol.SendResponse{Response: errorResponse(err), LastMsgDate: protocol.NullDate}
	}
	if !registered {
		return protocol.SendResponse{
			Response:    protocol.Response{Status: protocol.StatusNotFound, Error: fmt.Sprintf("recipient %q is not registered", recipient)},
			LastMsgDate: protocol.NullDate,
		}
	}

	s.rememberFullname(username, fullname)

	conversation, err := s.db.GetOrCreateConversation(username, recipient)
	if err != nil {
		return protocol.SendResponse{Response: errorResponse(err), LastMsgDate: protocol.NullDate}
	}
	msg, err := s.db.AddMessage(conversation.ID, username, text)
	if err != nil {
		return protocol.SendResponse{Response: errorResponse(err), LastMsgDate: protocol.NullDate}
	}
	return protocol.SendResponse{Response: success(), LastMsgDate: msg.Timestamp}
}

// SendChatRoomMessage posts to a room's message box. Unknown rooms are
// not-found; posting without being a participant is an authorization
// failure, not an error.
func (s *Service) SendChatRoomMessage(username, password, fullname, path, text string) protocol.SendResponse {
	if !s.Authenticate(username, password) {
		return protocol.SendResponse{Response: authFail(), LastMsgDate: protocol.NullDate}
	}
	s.presence.ConfirmOnline(username)

	room, err := s.db.GetChatRoom(path)
	if err != nil {
		return protocol.SendResponse{Response: errorResponse(err), LastMsgDate: protocol.NullDate}
	}
	if !room.HasParticipant(username) {
		return protocol.SendResponse{Response: authFail(), LastMsgDate: protocol.NullDate}
	}

	s.rememberFullname(username, fullname)

	msg, err := s.db.AddMessage(room.ID, username, text)
	if err != nil {
		return protocol.SendResponse{Response: errorResponse(err), LastMsgDate: protocol.NullDate}
	}
	return protocol.SendResponse{Response: success(), LastMsgDate: msg.Timestamp}
}

func (s *Service) CreateChatRoom(username, password, path string, participants []string) protocol.Response {
	if !s.Authenticate(username, password) {
		return authFail()
	}
	if _, err := s.db.CreateChatRoom(path, participants); err != nil {
		return errorResponse(err)
	}
	return success()
}

func (s *Service) AddChatRoomParticipant(username, password, path, participant string) protocol.Response {
	if !s.Authenticate(username, password) {
		return authFail()
	}
	if participant == "" {
		return protocol.Response{Status: protocol.StatusError, Error: "participant required"}
	}
	if err := s.db.AddParticipant(path, participant); err != nil {
		return errorResponse(err)
	}
	return success()
}

func (s *Service) EditChatRoom(username, password, path string, participants []string) protocol.Response {
	if !s.Authenticate(username, password) {
		return authFail()
	}
	if err := s.db.EditParticipants(path, participants); err != nil {
		return errorResponse(err)
	}
	return success()
}

func (s *Service) RemoveChatRoom(username, password, path string) protocol.Response {
	if !s.Authenticate(username, password) {
		return authFail()
	}
	if err := s.db.RemoveChatRoom(path); err != nil {
		return errorResponse(err)
	}
	return success()
}

// rememberFullname refreshes the sender's display name. Best effort: a
// failure here must not abort the send.
func (s *Service) rememberFullname(username, fullname string) {
	if fullname == "" {
		return
	}
	if err := s.db.SetFullname(username, fullname); err != nil {
		log.Printf("service: set fullname for %s: %v", username, err)
	}
}
