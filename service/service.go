// Package service implements the chat operations. Authentication and
// validation failures are absorbed here and turned into structured status
// responses; they never propagate to the transport layer as faults.
package service

import (
	"errors"
	"log"
	"time"

	"chatd/db"
	"chatd/presence"
	"chatd/protocol"
)

// UserStatuses are the settable presence moods. A user outside the online
// window reports Offline regardless of the stored value.
var UserStatuses = []string{"Available", "Chatty", "Away", "Busy"}

const StatusOffline = "Offline"

type Service struct {
	db       *db.DB
	presence *presence.Directory
	now      func() time.Time
}

func New(database *db.DB, directory *presence.Directory) *Service {
	return &Service{
		db:       database,
		presence: directory,
		now:      time.Now,
	}
}

// errorResponse maps storage errors to wire statuses. Unknown errors are
// logged and reported with a generic message.
func errorResponse(err error) protocol.Response {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return protocol.Response{Status: protocol.StatusNotFound, Error: err.Error()}
	case errors.Is(err, db.ErrValidation),
		errors.Is(err, db.ErrConflict),
		errors.Is(err, db.ErrDuplicateID),
		errors.Is(err, protocol.ErrInvalidDate),
		errors.Is(err, presence.ErrInvalidUsername):
		return protocol.Response{Status: protocol.StatusError, Error: err.Error()}
	default:
		log.Printf("service: internal error: %v", err)
		return protocol.Response{Status: protocol.StatusError, Error: "internal error"}
	}
}

func success() protocol.Response {
	return protocol.Response{Status: protocol.StatusSuccess}
}

func authFail() protocol.Response {
	return protocol.Response{Status: protocol.StatusAuthFail, Error: "authentication failed"}
}

// Authenticate checks credentials without leaking whether the username
// exists. Internal errors also come back false: a caller only ever sees a
// uniform pass/fail.
func (s *Service) Authenticate(username, password string) bool {
	ok, err := s.db.Authenticate(username, password)
	if err != nil {
		log.Printf("service: authenticate %q: %v", username, err)
		return false
	}
	return ok
}

func (s *Service) Register(username, password string) protocol.Response {
	if err := s.db.Register(username, password); err != nil {
		return errorResponse(err)
	}
	return success()
}

func (s *Service) IsRegistered(username string) protocol.RegisteredResponse {
	registered, err := s.db.UserExists(username)
	if err != nil {
		return protocol.RegisteredResponse{Response: errorResponse(err)}
	}
	return protocol.RegisteredResponse{Response: success(), IsRegistered: registered}
}

func (s *Service) SetUserPassword(username, password string) protocol.Response {
	if err := s.db.SetPassword(username, password); err != nil {
		return errorResponse(err)
	}
	return success()
}

func (s *Service) ConfirmAsOnline(username string) protocol.Response {
	if err := s.presence.ConfirmOnline(username); err != nil {
		return errorResponse(err)
	}
	return success()
}

func (s *Service) GetOnlineUsers() protocol.OnlineUsersResponse {
	return protocol.OnlineUsersResponse{
		Response:    success(),
		OnlineUsers: s.presence.OnlineUsers(),
	}
}

func (s *Service) SetStatus(username, password, status string) protocol.Response {
	if !s.Authenticate(username, password) {
		return authFail()
	}
	valid := false
	for _, st := range UserStatuses {
		if st == status {
			valid = true
			break
		}
	}
	if !valid {
		return protocol.Response{Status: protocol.StatusError, Error: "unknown status: " + status}
	}
	if err := s.db.SetStatus(username, status); err != nil {
		return errorResponse(err)
	}
	return success()
}

// GetStatus reports the user's mood while online, Offline otherwise.
func (s *Service) GetStatus(username string) protocol.UserStatusResponse {
	user, err := s.db.GetUser(username)
	if err != nil {
		return protocol.UserStatusResponse{Response: errorResponse(err)}
	}
	status := StatusOffline
	if s.presence.IsOnline(username) {
		status = user.Status
		if status == "" {
			status = UserStatuses[0]
		}
	}
	return protocol.UserStatusResponse{Response: success(), UserStatus: status}
}
