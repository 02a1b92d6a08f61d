package server

import (
	"net/http"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	credentials
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, s.svc.Register(req.Username, req.Password))
}

type usernameRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleIsRegistered(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, s.svc.IsRegistered(req.Username))
}

func (s *Server) handleSetUserPassword(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, s.svc.SetUserPassword(req.Username, req.Password))
}

func (s *Server) handleConfirmAsOnline(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, s.svc.ConfirmAsOnline(req.Username))
}

type getOnlineUsersRequest struct{}

func (s *Server) handleGetOnlineUsers(w http.ResponseWriter, r *http.Request) {
	var req getOnlineUsersRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, s.svc.GetOnlineUsers())
}

type setStatusRequest struct {
	credentials
	Status string `json:"status"`
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, s.svc.SetStatus(req.Username, req.Password, req.Status))
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, s.svc.GetStatus(req.Username))
}

type sendMessageRequest struct {
	credentials
	Fullname  string `json:"fullname"`
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, s.svc.SendMessage(req.Username, req.Password, req.Fullname, req.Recipient, req.Text))
}

type sendRoomMessageRequest struct {
	credentials
	Fullname string `json:"fullname"`
	Room     string `json:"room"`
	Text     string `json:"text"`
}

func (s *Server) handleSendChatRoomMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRoomMessageRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, s.svc.SendChatRoomMessage(req.Username, req.Password, req.Fullname, req.Room, req.Text))
}

type chatRoomRequest struct {
	credentials
	Path         string   `json:"path"`
	Participants []string `json:"participants"`
}

func (s *Server) handleCreateChatRoom(w http.ResponseWriter, r *http.Request) {
	var req chatRoomRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, s.svc.CreateChatRoom(req.Username, req.Password, req.Path, req.Participants))
}

type addParticipantRequest struct {
	credentials
	Path        string `json:"path"`
	Participant string `json:"participant"`
}

func (s *Server) handleAddChatRoomParticipant(w http.ResponseWriter, r *http.Request) {
	var req addParticipantRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, s.svc.AddChatRoomParticipant(req.Username, req.Password, req.Path, req.Participant))
}

func (s *Server) handleEditChatRoom(w http.ResponseWriter, r *http.Request) {
	var req chatRoomRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, s.svc.EditChatRoom(req.Username, req.Password, req.Path, req.Participants))
}

type removeChatRoomRequest struct {
	credentials
	Path string `json:"path"`
}

func (s *Server) handleRemoveChatRoom(w http.ResponseWriter, r *http.Request) {
	var req removeChatRoomRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, s.svc.RemoveChatRoom(req.Username, req.Password, req.Path))
}

type getMessagesRequest struct {
	credentials
	Partner string   `json:"partner"`
	Rooms   []string `json:"rooms"`
	Since   string   `json:"since"`
	Until   string   `json:"until"`
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	var req getMessagesRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, s.svc.GetMessages(req.Username, req.Password, req.Partner, req.Rooms, req.Since, req.Until))
}

type getNewMessagesRequest struct {
	credentials
	Since string `json:"since"`
}

func (s *Server) handleGetNewMessages(w http.ResponseWriter, r *http.Request) {
	var req getNewMessagesRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, s.svc.GetNewMessages(req.Username, req.Password, req.Since))
}

type getUnclearedRequest struct {
	credentials
	Partner string   `json:"partner"`
	Rooms   []string `json:"rooms"`
	Until   string   `json:"until"`
	Clear   bool     `json:"clear"`
}

func (s *Server) handleGetUnclearedMessages(w http.ResponseWriter, r *http.Request) {
	var req getUnclearedRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, s.svc.GetUnclearedMessages(req.Username, req.Password, req.Partner, req.Rooms, req.Until, req.Clear))
}
