// Package chat merges chat lines with player session events into a single
// timeline and shapes it for display.
package chat

import (
	"gamewatch/internal/activity"
	"gamewatch/internal/timeutil"
	"time"
)

// Kind tags where a merged entry came from
type Kind string

const (
	KindChat  Kind = "chat"
	KindEvent Kind = "event"
)

// Entry is one line of the merged timeline
type Entry struct {
	At       int64                    `json:"at"`
	Kind     Kind                     `json:"kind"`
	Instance string                   `json:"instance"`
	Player   string                   `json:"player"`
	Steamid  string                   `json:"steamid,omitempty"`
	Event    activity.PlayerEventKind `json:"event,omitempty"`
	Text     string                   `json:"text,omitempty"`
}

// MergeResults interleaves two ascending streams into one ascending timeline.
// On equal timestamps the session event is placed before the chat line.
// CHAT kind events are skipped since chats already carries the text.
func MergeResults(chats []activity.ChatRecord, events []activity.PlayerEvent) []Entry {
	merged := make([]Entry, 0, len(chats)+len(events))

	i, j := 0, 0
	for i < len(chats) || j < len(events) {
		if j < len(events) && events[j].Event == activity.Chat {
			j++
			continue
		}
		if j < len(events) && (i >= len(chats) || events[j].At <= chats[i].At) {
			e := events[j]
			merged = append(merged, Entry{
				At:       e.At,
				Kind:     KindEvent,
				Instance: e.Instance,
				Player:   e.Player,
				Steamid:  e.Steamid,
				Event:    e.Event,
			})
			j++
			continue
		}
		c := chats[i]
		merged = append(merged, Entry{
			At:       c.At,
			Kind:     KindChat,
			Instance: c.Instance,
			Player:   c.Player,
			Text:     c.Text,
		})
		i++
	}

	return merged
}

// RowKind distinguishes hour headers from timeline lines
type RowKind string

const (
	RowHeader RowKind = "header"
	RowChat   RowKind = "chat"
	RowEvent  RowKind = "event"
)

const (
	hourLayout = "2006-01-02 15:00"
	timeLayout = "15:04:05"
)

// Row is a display line. Stripe flips between 0 and 1 each time the speaking
// player changes and restarts at 0 under every hour header.
type Row struct {
	Kind     RowKind                  `json:"kind"`
	At       int64                    `json:"at"`
	Hour     string                   `json:"hour,omitempty"`
	Time     string                   `json:"time,omitempty"`
	Instance string                   `json:"instance,omitempty"`
	Player   string                   `json:"player,omitempty"`
	Steamid  string                   `json:"steamid,omitempty"`
	Event    activity.PlayerEventKind `json:"event,omitempty"`
	Text     string                   `json:"text,omitempty"`
	Stripe   int                      `json:"stripe"`
}

// ExtractResults turns a merged timeline into display rows, rendering times in
// the zone selected by tz (UTC when empty).
func ExtractResults(merged []Entry, tz string) ([]Row, error) {
	loc := time.UTC
	if tz != "" {
		var err error
		if loc, err = timeutil.LoadZone(tz); err != nil {
			return nil, err
		}
	}

	rows := make([]Row, 0, len(merged))
	var (
		hour   string
		player string
		stripe int
	)
	for _, e := range merged {
		at := time.UnixMilli(e.At).In(loc)

		if h := at.Format(hourLayout); h != hour {
			hour, player, stripe = h, e.Player, 0
			rows = append(rows, Row{Kind: RowHeader, At: e.At, Hour: h})
		} else if e.Player != player {
			player = e.Player
			stripe ^= 1
		}

		kind := RowChat
		if e.Kind == KindEvent {
			kind = RowEvent
		}
		rows = append(rows, Row{
			Kind:     kind,
			At:       e.At,
			Time:     at.Format(timeLayout),
			Instance: e.Instance,
			Player:   e.Player,
			Steamid:  e.Steamid,
			Event:    e.Event,
			Text:     e.Text,
			Stripe:   stripe,
		})
	}

	return rows, nil
}
