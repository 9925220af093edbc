package activity

import "sort"

// OthersPlayer names the row CompactPlayers folds the tail of a ranking into
const OthersPlayer = "OTHERS"

// PlayerInput is everything the player reducer needs. LastKnown holds the most
// recent LOGIN/LOGOUT of each (instance, player) strictly before
// Window.AtFrom; Records are in-window events in ascending time order.
type PlayerInput struct {
	Window    Window
	Instances []Instance
	LastKnown []PlayerEvent
	Records   []PlayerEvent
}

// PlayerActivity is one player's share of an instance's activity
type PlayerActivity struct {
	Player    string  `json:"player"`
	Sessions  int     `json:"sessions"`
	Uptime    int64   `json:"uptime"`
	UptimePct float64 `json:"uptimepct"`
}

// Totals sums sessions and uptime across players
type Totals struct {
	Sessions int   `json:"sessions"`
	Uptime   int64 `json:"uptime"`
}

// PlayerSummary is the instance-wide rollup of player activity
type PlayerSummary struct {
	Total  Totals      `json:"total"`
	Unique int         `json:"unique"`
	Online OnlineRange `json:"online"`
}

// InstancePlayers is the player report of one instance
type InstancePlayers struct {
	Instance  string           `json:"instance"`
	Summary   PlayerSummary    `json:"summary"`
	Players   []PlayerActivity `json:"players"`
	Intervals IntervalReport   `json:"intervals"`
}

// PlayerReport is the player reducer output
type PlayerReport struct {
	Meta    Meta              `json:"meta"`
	Records []InstancePlayers `json:"records"`
}

type playerKey struct {
	instance string
	player   string
}

type playerEntry struct {
	player   string
	state    *instanceState
	from     int64
	at       int64
	event    PlayerEventKind
	sessions int
	uptime   int64
}

type instanceState struct {
	name      string
	from      int64
	online    *OnlineTracker
	intervals *IntervalTracker
	players   []*playerEntry
}

// ReducePlayers turns LOGIN/LOGOUT streams into per player session and uptime
// stats, per instance concurrency watermarks and bucketed interval reports.
// Instances without a single session are left out.
func ReducePlayers(in PlayerInput, clock Clock) (PlayerReport, error) {
	if err := in.Window.Validate(); err != nil {
		return PlayerReport{}, err
	}
	if clock == nil {
		clock = SystemClock
	}

	created := make(map[string]int64, len(in.Instances))
	for _, instance := range in.Instances {
		created[instance.Name] = instance.Created
	}

	var order []*instanceState
	states := make(map[string]*instanceState)
	stateOf := func(name string) *instanceState {
		if s, ok := states[name]; ok {
			return s
		}
		s := &instanceState{
			name:      name,
			from:      max(created[name], in.Window.AtFrom),
			online:    NewOnlineTracker(0),
			intervals: NewIntervalTracker(in.Window),
		}
		states[name] = s
		order = append(order, s)
		return s
	}

	// Instances listed by the caller keep their listing order in the output
	for _, instance := range in.Instances {
		stateOf(instance.Name)
	}

	// Players whose last event before the window was a LOGIN are online at AtFrom
	loggedIn := make(map[playerKey]bool, len(in.LastKnown))
	var known []playerKey
	for _, e := range in.LastKnown {
		if e.Event != Login && e.Event != Logout {
			continue
		}
		key := playerKey{instance: e.Instance, player: e.Player}
		if _, ok := loggedIn[key]; !ok {
			known = append(known, key)
		}
		loggedIn[key] = e.Event == Login
	}
	var alreadyOnline []playerKey
	for _, key := range known {
		if loggedIn[key] {
			alreadyOnline = append(alreadyOnline, key)
			stateOf(key.instance).online.Bump()
		}
	}

	entries := make(map[playerKey]*playerEntry)
	var replayed []*playerEntry
	entryOf := func(key playerKey) (*playerEntry, *instanceState) {
		s := stateOf(key.instance)
		if e, ok := entries[key]; ok {
			return e, s
		}
		e := &playerEntry{player: key.player, state: s, from: s.from}
		entries[key] = e
		replayed = append(replayed, e)
		s.players = append(s.players, e)
		return e, s
	}

	for _, r := range in.Records {
		if r.Event != Login && r.Event != Logout {
			continue
		}
		key := playerKey{instance: r.Instance, player: r.Player}
		entry, s := entryOf(key)

		if entry.event == "" {
			switch {
			case r.Event == Login && loggedIn[key]:
				// Already counted as online at the window start
				entry.sessions++
				entry.at, entry.event = entry.from, Login
				continue
			case r.Event == Login:
				entry.sessions++
				s.online.Login()
			case loggedIn[key]:
				entry.sessions++
				entry.uptime += max(r.At-entry.from, 0)
				s.intervals.Session(entry.from, r.At)
				s.online.Logout()
			}
			entry.at, entry.event = r.At, r.Event
			continue
		}

		if r.Event == entry.event {
			continue
		}
		if r.Event == Login {
			entry.sessions++
			s.online.Login()
		} else {
			entry.uptime += r.At - entry.at
			s.intervals.Session(entry.at, r.At)
			s.online.Logout()
		}
		entry.at, entry.event = r.At, r.Event
	}

	end := closeAt(in.Window, clock)
	for _, entry := range replayed {
		if entry.event == Login && end > entry.at {
			entry.uptime += end - entry.at
			entry.state.intervals.Session(entry.at, end)
		}
	}
	for _, key := range alreadyOnline {
		if _, seen := entries[key]; seen {
			continue
		}
		entry, s := entryOf(key)
		entry.sessions++
		if end > entry.from {
			entry.uptime += end - entry.from
			s.intervals.Session(entry.from, end)
		}
	}

	records := make([]InstancePlayers, 0, len(order))
	for _, s := range order {
		report := s.result()
		if report.Summary.Total.Sessions == 0 {
			continue
		}
		records = append(records, report)
	}

	return PlayerReport{
		Meta: Meta{
			AtFrom:  in.Window.AtFrom,
			AtTo:    in.Window.AtTo,
			Created: clock.Now().UnixMilli(),
		},
		Records: records,
	}, nil
}

func (s *instanceState) result() InstancePlayers {
	var total Totals
	unique := 0
	for _, p := range s.players {
		total.Sessions += p.sessions
		total.Uptime += p.uptime
		if p.sessions > 0 {
			unique++
		}
	}

	players := make([]PlayerActivity, 0, len(s.players))
	for _, p := range s.players {
		pct := 0.0
		if total.Uptime > 0 {
			pct = float64(p.uptime) / float64(total.Uptime)
		}
		players = append(players, PlayerActivity{
			Player:    p.player,
			Sessions:  p.sessions,
			Uptime:    p.uptime,
			UptimePct: pct,
		})
	}
	RankPlayers(players)

	return InstancePlayers{
		Instance: s.name,
		Summary: PlayerSummary{
			Total:  total,
			Unique: unique,
			Online: s.online.Result(),
		},
		Players:   players,
		Intervals: s.intervals.Results(),
	}
}

// RankPlayers sorts by uptime, highest first. Ties keep their current order.
func RankPlayers(players []PlayerActivity) {
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Uptime > players[j].Uptime
	})
}

// CompactPlayers keeps the top limit-1 players of a ranking and folds the rest
// into a single OTHERS row. The input is returned unchanged when it already
// fits in limit rows.
func CompactPlayers(players []PlayerActivity, limit int) []PlayerActivity {
	if limit <= 0 || limit >= len(players) {
		return players
	}

	compacted := make([]PlayerActivity, 0, limit)
	compacted = append(compacted, players[:limit-1]...)

	others := PlayerActivity{Player: OthersPlayer}
	for _, p := range players[limit-1:] {
		others.Sessions += p.Sessions
		others.Uptime += p.Uptime
		others.UptimePct += p.UptimePct
	}

	return append(compacted, others)
}
