// Package activity reduces server and player event logs into uptime, session
// and concurrency metrics over a time window.
//
// Every reducer is a pure function of its input snapshot. The only wall-clock
// dependency is the Clock used to stop open sessions at "now" when a window
// ends in the future.
package activity

import (
	"errors"
	"fmt"
	"time"
)

const (
	HourMillis int64 = 60 * 60 * 1000
	DayMillis  int64 = 24 * HourMillis
)

// ErrInvalidWindow is returned when atfrom is after atto
var ErrInvalidWindow = errors.New("invalid window")

// InstanceEventKind is a state transition on the instance stream
type InstanceEventKind string

const (
	Started   InstanceEventKind = "STARTED"
	Stopped   InstanceEventKind = "STOPPED"
	Exception InstanceEventKind = "EXCEPTION"
)

// PlayerEventKind is a transition or payload event on the player stream
type PlayerEventKind string

const (
	Login  PlayerEventKind = "LOGIN"
	Logout PlayerEventKind = "LOGOUT"
	Death  PlayerEventKind = "DEATH"
	Chat   PlayerEventKind = "CHAT"
)

// InstanceEventKinds lists the events the instance reducer consumes
var InstanceEventKinds = []InstanceEventKind{Started, Stopped, Exception}

// SessionEventKinds lists the player events the player reducer consumes
var SessionEventKinds = []PlayerEventKind{Login, Logout}

// Window is the half-open range [AtFrom, AtTo) in epoch milliseconds
type Window struct {
	AtFrom int64 `json:"atfrom"`
	AtTo   int64 `json:"atto"`
}

// Validate checks that the window is not inverted
func (w Window) Validate() error {
	if w.AtFrom > w.AtTo {
		return fmt.Errorf("%w: atfrom %d is after atto %d", ErrInvalidWindow, w.AtFrom, w.AtTo)
	}
	return nil
}

// Span is the window length in milliseconds
func (w Window) Span() int64 {
	return w.AtTo - w.AtFrom
}

// Instance is a managed game server and the time it was created
type Instance struct {
	Name    string `json:"instance"`
	Created int64  `json:"created"`
}

// InstanceEvent is one row of the instance event stream
type InstanceEvent struct {
	At       int64             `json:"at"`
	Instance string            `json:"instance"`
	Event    InstanceEventKind `json:"event"`
}

// PlayerEvent is one row of the player event stream. Steamid and Text are
// optional payloads (steam id on LOGIN, cause on DEATH).
type PlayerEvent struct {
	At       int64           `json:"at"`
	Instance string          `json:"instance"`
	Player   string          `json:"player"`
	Event    PlayerEventKind `json:"event"`
	Steamid  string          `json:"steamid,omitempty"`
	Text     string          `json:"text,omitempty"`
}

// ChatRecord is one line of in-game chat
type ChatRecord struct {
	At       int64  `json:"at"`
	Instance string `json:"instance"`
	Player   string `json:"player"`
	Text     string `json:"text"`
}

// Meta echoes the query window with the time the result was produced
type Meta struct {
	AtFrom  int64 `json:"atfrom"`
	AtTo    int64 `json:"atto"`
	Created int64 `json:"created"`
}

// Clock supplies "now" to reducers so open sessions are not extended into the future
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock
var SystemClock Clock = systemClock{}

// FixedClock always returns the same instant
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// closeAt is the instant open sessions are closed against: atto, or now when
// atto lies in the future
func closeAt(w Window, clock Clock) int64 {
	if clock == nil {
		clock = SystemClock
	}
	return min(w.AtTo, clock.Now().UnixMilli())
}
