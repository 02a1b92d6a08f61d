// Package protocol defines the wire-level vocabulary of the chat service:
// status codes, the date grammar and the response envelopes returned by
// every operation.
package protocol

import (
	"errors"
	"regexp"
	"strconv"
	"time"
)

// Status codes returned in every response. Callers must check the status
// before trusting any payload field.
const (
	StatusSuccess  = 0
	StatusAuthFail = -1
	StatusTimeout  = 1
	StatusError    = 2
	StatusNotFound = 3
)

// NullDate is the sentinel returned when no message matched a query. It is
// also accepted as a lower bound meaning "from the beginning".
const NullDate = "0001-01-01T00:00:00"

// TimeLayout is the canonical storage and wire format for timestamps:
// ISO-8601 in UTC with microsecond precision and an explicit offset.
// Fixed width, so lexicographic order equals chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000-07:00"

// validDate matches the two timestamp shapes accepted on the wire:
// full microseconds with offset, or bare seconds.
var validDate = regexp.MustCompile(
	`^\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(\.\d{6}[+-]\d{2}:\d{2})?$`)

var ErrInvalidDate = errors.New("invalid date")

var parseLayouts = []string{
	TimeLayout,
	"2006-01-02 15:04:05.000000-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate validates s against the strict pattern and parses it. Dates
// without an offset are taken as UTC.
func ParseDate(s string) (time.Time, error) {
	if !validDate.MatchString(s) {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// FormatDate renders t in the canonical storage format.
func FormatDate(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// MessageID derives a message id from its timestamp. Ids sort naturally
// within a box and convert back to a float epoch for merging.
func MessageID(t time.Time) string {
	epoch := float64(t.UnixMicro()) / 1e6
	return "message." + strconv.FormatFloat(epoch, 'f', 6, 64)
}

// MessageEntry is one message on the wire: [author, text, timestamp].
type MessageEntry [3]string

// Response is the common envelope.
type Response struct {
	Status int    `json:"status"`
	Error  string `json:"error,omitempty"`
}

type RegisteredResponse struct {
	Response
	IsRegistered bool `json:"is_registered"`
}

type OnlineUsersResponse struct {
	Response
	OnlineUsers []string `json:"online_users"`
}

type UserStatusResponse struct {
	Response
	UserStatus string `json:"userstatus"`
}

type SendResponse struct {
	Response
	LastMsgDate string `json:"last_msg_date"`
}

type MessagesResponse struct {
	Response
	Messages         map[string][]MessageEntry `json:"messages"`
	ChatRoomMessages map[string][]MessageEntry `json:"chatroom_messages"`
	LastMsgDate      string                    `json:"last_msg_date"`
}
