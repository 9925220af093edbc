package criteria

import (
	"errors"
	"gamewatch/internal/activity"
	"gamewatch/internal/timeutil"
	"testing"
	"time"
)

var now = time.Date(2024, time.March, 10, 14, 25, 0, 0, time.UTC)

func millis(t time.Time) int64 { return t.UnixMilli() }

func TestResolve(t *testing.T) {
	day := 24 * time.Hour

	tests := []struct {
		name      string
		query     Query
		defaultTZ string
		want      activity.Window
		wantTZ    string
	}{
		{
			name:   "defaults to the last day",
			query:  Query{},
			want:   activity.Window{AtFrom: millis(now.Add(-day)), AtTo: millis(now)},
			wantTZ: "utc",
		},
		{
			name:   "range code reaches back from atto",
			query:  Query{AtFrom: "-7d"},
			want:   activity.Window{AtFrom: millis(now.Add(-7 * day)), AtTo: millis(now)},
			wantTZ: "utc",
		},
		{
			name:   "unsigned range code also reaches back",
			query:  Query{AtFrom: "2h", AtTo: "-1h"},
			want:   activity.Window{AtFrom: millis(now.Add(-3 * time.Hour)), AtTo: millis(now.Add(-time.Hour))},
			wantTZ: "utc",
		},
		{
			name:   "presets",
			query:  Query{AtFrom: "LM", AtTo: "TM"},
			want:   activity.Window{AtFrom: millis(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), AtTo: millis(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))},
			wantTZ: "utc",
		},
		{
			name:   "dates",
			query:  Query{AtFrom: "2024-03-09", AtTo: "2024-03-10 06:00", TZ: "utc"},
			want:   activity.Window{AtFrom: millis(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)), AtTo: millis(time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC))},
			wantTZ: "utc",
		},
		{
			name:   "millis",
			query:  Query{AtFrom: "1000", AtTo: "5000"},
			want:   activity.Window{AtFrom: 1000, AtTo: 5000},
			wantTZ: "utc",
		},
		{
			name:   "preset in an explicit zone",
			query:  Query{AtFrom: "LD", TZ: "+02:00"},
			want:   activity.Window{AtFrom: millis(time.Date(2024, 3, 9, 22, 0, 0, 0, time.UTC)), AtTo: millis(now)},
			wantTZ: "+02:00",
		},
		{
			name:      "default zone applies to dates",
			query:     Query{AtFrom: "2024-03-10", AtTo: "2024-03-10 12:00:00"},
			defaultTZ: "+01:00",
			want:      activity.Window{AtFrom: millis(time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)), AtTo: millis(time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC))},
			wantTZ:    "+01:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.query, now, tt.defaultTZ)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got.Window != tt.want {
				t.Errorf("Window = %+v, want %+v", got.Window, tt.want)
			}
			if got.TZ != tt.wantTZ {
				t.Errorf("TZ = %q, want %q", got.TZ, tt.wantTZ)
			}
		})
	}
}

func TestResolveCarriesSubjects(t *testing.T) {
	got, err := Resolve(Query{Instance: " alpha ", Player: "bob"}, now, "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Instance != "alpha" || got.Player != "bob" {
		t.Errorf("subjects = %q/%q", got.Instance, got.Player)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		wantErr error
	}{
		{name: "inverted", query: Query{AtFrom: "2024-03-11", AtTo: "2024-03-10"}, wantErr: activity.ErrInvalidWindow},
		{name: "bad zone", query: Query{TZ: "Nowhere/Land"}, wantErr: timeutil.ErrInvalidZone},
		{name: "bad atfrom", query: Query{AtFrom: "yesterday"}, wantErr: timeutil.ErrInvalidDate},
		{name: "bad atto", query: Query{AtTo: "10/03/2024"}, wantErr: timeutil.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Resolve(tt.query, now, ""); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
