// Package session implements the conversation that collects search
// parameters one step at a time and hands the finished filter to the
// search pipeline.
package session

import (
	"fmt"
	"time"

	"github.com/Rainelz/booko/internal/search"
)

// State is the current step of a conversation. The flow is linear; no
// state is ever revisited except by restarting from scratch.
type State string

const (
	StateAwaitOriginChoice State = "AWAIT_ORIGIN_CHOICE"
	StateAwaitAddress      State = "AWAIT_ADDRESS"
	StateAwaitLocation     State = "AWAIT_LOCATION"
	StateAwaitNames        State = "AWAIT_NAMES"
	StateAwaitDistance     State = "AWAIT_DISTANCE"
	StateAwaitPrice        State = "AWAIT_PRICE"
	StateAwaitHour         State = "AWAIT_HOUR"
	StateAwaitDates        State = "AWAIT_DATES"
)

// OriginChoice is the closed set of ways a search origin can be chosen.
type OriginChoice string

const (
	ChoiceAddress  OriginChoice = "address"
	ChoiceLocation OriginChoice = "location"
	ChoiceNames    OriginChoice = "names"
	ChoiceDefault  OriginChoice = "default"
)

// ParseOriginChoice validates callback data coming from the transport.
func ParseOriginChoice(s string) (OriginChoice, error) {
	switch OriginChoice(s) {
	case ChoiceAddress, ChoiceLocation, ChoiceNames, ChoiceDefault:
		return OriginChoice(s), nil
	}
	return "", fmt.Errorf("unknown origin choice %q", s)
}

// Session is one conversation in progress. It is owned by a single chat
// and discarded once the search runs or the user cancels.
type Session struct {
	ChatID    int64         `json:"chat_id"`
	State     State         `json:"state"`
	Filter    search.Filter `json:"filter"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func newSession(chatID int64, now time.Time) *Session {
	return &Session{
		ChatID:    chatID,
		State:     StateAwaitOriginChoice,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reply is the outbound payload an entry point hands back to the
// transport for rendering.
type Reply struct {
	Text           string
	Choices        []string // one-time reply keyboard row
	Inline         []InlineChoice
	RemoveKeyboard bool
}

// InlineChoice is a button of an inline keyboard.
type InlineChoice struct {
	Label string
	Data  string
}
