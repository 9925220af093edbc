package chat

import (
	"errors"
	"gamewatch/internal/activity"
	"gamewatch/internal/timeutil"
	"testing"
	"time"
)

var base = time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC).UnixMilli()

func TestMergeResults(t *testing.T) {
	chats := []activity.ChatRecord{
		{At: 10, Instance: "i", Player: "a", Text: "hi"},
		{At: 20, Instance: "i", Player: "a", Text: "brb"},
		{At: 30, Instance: "i", Player: "b", Text: "gg"},
	}
	events := []activity.PlayerEvent{
		{At: 5, Instance: "i", Player: "a", Event: activity.Login, Steamid: "765"},
		{At: 7, Instance: "i", Player: "a", Event: activity.Chat, Text: "hi"},
		{At: 20, Instance: "i", Player: "b", Event: activity.Death},
		{At: 40, Instance: "i", Player: "a", Event: activity.Logout},
	}

	merged := MergeResults(chats, events)

	want := []struct {
		at   int64
		kind Kind
	}{
		{5, KindEvent}, {10, KindChat}, {20, KindEvent}, {20, KindChat}, {30, KindChat}, {40, KindEvent},
	}
	if len(merged) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(merged), len(want), merged)
	}
	for i, w := range want {
		if merged[i].At != w.at || merged[i].Kind != w.kind {
			t.Errorf("entry %d = %d/%s, want %d/%s", i, merged[i].At, merged[i].Kind, w.at, w.kind)
		}
	}
	if merged[0].Steamid != "765" || merged[0].Event != activity.Login {
		t.Errorf("event fields not carried: %+v", merged[0])
	}
	if merged[1].Text != "hi" {
		t.Errorf("chat text not carried: %+v", merged[1])
	}
}

func TestMergeResultsOneSided(t *testing.T) {
	if got := MergeResults(nil, nil); len(got) != 0 {
		t.Errorf("empty merge = %+v", got)
	}
	got := MergeResults([]activity.ChatRecord{{At: 1, Player: "a"}, {At: 2, Player: "b"}}, nil)
	if len(got) != 2 || got[0].At != 1 || got[1].At != 2 {
		t.Errorf("chat only merge = %+v", got)
	}
}

func TestExtractResultsStripes(t *testing.T) {
	minute := int64(60 * 1000)
	merged := []Entry{
		{At: base + minute, Kind: KindChat, Player: "a", Text: "one"},
		{At: base + 2*minute, Kind: KindChat, Player: "a", Text: "two"},
		{At: base + 3*minute, Kind: KindEvent, Player: "b", Event: activity.Login},
		{At: base + 4*minute, Kind: KindChat, Player: "a", Text: "three"},
		{At: base + activity.HourMillis + minute, Kind: KindChat, Player: "b", Text: "four"},
	}

	rows, err := ExtractResults(merged, "")
	if err != nil {
		t.Fatalf("ExtractResults() error = %v", err)
	}

	want := []struct {
		kind   RowKind
		label  string
		stripe int
	}{
		{RowHeader, "2024-03-10 00:00", 0},
		{RowChat, "00:01:00", 0},
		{RowChat, "00:02:00", 0},
		{RowEvent, "00:03:00", 1},
		{RowChat, "00:04:00", 0},
		{RowHeader, "2024-03-10 01:00", 0},
		{RowChat, "01:01:00", 0},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(rows), len(want), rows)
	}
	for i, w := range want {
		label := rows[i].Time
		if rows[i].Kind == RowHeader {
			label = rows[i].Hour
		}
		if rows[i].Kind != w.kind || label != w.label || rows[i].Stripe != w.stripe {
			t.Errorf("row %d = %s %q stripe %d, want %s %q stripe %d",
				i, rows[i].Kind, label, rows[i].Stripe, w.kind, w.label, w.stripe)
		}
	}
}

func TestExtractResultsZone(t *testing.T) {
	rows, err := ExtractResults([]Entry{{At: base, Kind: KindChat, Player: "a"}}, "+01:00")
	if err != nil {
		t.Fatalf("ExtractResults() error = %v", err)
	}
	if rows[0].Hour != "2024-03-10 01:00" || rows[1].Time != "01:00:00" {
		t.Errorf("rows = %+v, want times shifted by one hour", rows)
	}

	if _, err := ExtractResults(nil, "Nowhere/Land"); !errors.Is(err, timeutil.ErrInvalidZone) {
		t.Errorf("error = %v, want ErrInvalidZone", err)
	}
}
