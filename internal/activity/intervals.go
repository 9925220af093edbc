package activity

import "sort"

// Interval is one fixed-size bucket of a report window
type Interval struct {
	AtFrom   int64 `json:"atfrom"`
	AtTo     int64 `json:"atto"`
	Sessions int   `json:"sessions"`
	Uptime   int64 `json:"uptime"`
	Min      int   `json:"min"`
	Max      int   `json:"max"`
}

// IntervalReport is the bucketed breakdown of a window. Hours is the bucket
// granularity: 24 for daily buckets, 1 for hourly.
type IntervalReport struct {
	Hours     int        `json:"hours"`
	Intervals []Interval `json:"intervals"`
}

// boundary is one login or logout edge. instant marks the logout of a
// zero-length session.
type boundary struct {
	at      int64
	login   bool
	instant bool
}

// rank orders edges sharing a timestamp. Sessions are half-open, so logouts
// replay before logins, except an instant logout which follows its own login.
func (b boundary) rank() int {
	switch {
	case b.instant:
		return 2
	case b.login:
		return 1
	}
	return 0
}

type bucket struct {
	atfrom     int64
	atto       int64
	sessions   int
	uptime     int64
	boundaries []boundary
}

// IntervalTracker spreads sessions over hourly or daily buckets of a window
type IntervalTracker struct {
	size    int64
	buckets []*bucket
}

// NewIntervalTracker builds the buckets for w. Windows longer than a day get
// daily buckets, otherwise hourly. Buckets are laid out backwards from AtTo so
// the latest bucket is always whole; the earliest is cut at AtFrom.
func NewIntervalTracker(w Window) *IntervalTracker {
	size := HourMillis
	if w.Span() > DayMillis {
		size = DayMillis
	}

	var buckets []*bucket
	for atto := w.AtTo; atto > w.AtFrom; atto -= size {
		buckets = append(buckets, &bucket{atfrom: max(atto-size, w.AtFrom), atto: atto})
	}
	for i, j := 0, len(buckets)-1; i < j; i, j = i+1, j-1 {
		buckets[i], buckets[j] = buckets[j], buckets[i]
	}

	return &IntervalTracker{size: size, buckets: buckets}
}

// Session adds the login..logout session to every bucket it overlaps. A
// session crossing bucket edges contributes to each bucket it touches.
func (t *IntervalTracker) Session(login, logout int64) {
	if logout < login {
		return
	}
	for _, b := range t.buckets {
		switch {
		case login >= b.atfrom && logout <= b.atto && login < b.atto:
			b.boundaries = append(b.boundaries, boundary{at: login, login: true}, boundary{at: logout, instant: logout == login})
			b.uptime += logout - login
		case login < b.atfrom && logout > b.atfrom && logout <= b.atto:
			b.boundaries = append(b.boundaries, boundary{at: b.atfrom, login: true}, boundary{at: logout})
			b.uptime += logout - b.atfrom
		case login >= b.atfrom && login < b.atto && logout > b.atto:
			b.boundaries = append(b.boundaries, boundary{at: login, login: true})
			b.uptime += b.atto - login
		case login < b.atfrom && logout > b.atto:
			b.boundaries = append(b.boundaries, boundary{at: b.atfrom, login: true})
			b.uptime += b.atto - b.atfrom
		default:
			continue
		}
		b.sessions++
	}
}

// Results replays each bucket's boundaries through its own OnlineTracker
func (t *IntervalTracker) Results() IntervalReport {
	report := IntervalReport{
		Hours:     int(t.size / HourMillis),
		Intervals: make([]Interval, 0, len(t.buckets)),
	}

	for _, b := range t.buckets {
		sort.SliceStable(b.boundaries, func(i, j int) bool {
			if b.boundaries[i].at != b.boundaries[j].at {
				return b.boundaries[i].at < b.boundaries[j].at
			}
			return b.boundaries[i].rank() < b.boundaries[j].rank()
		})

		online := NewOnlineTracker(0)
		for _, bd := range b.boundaries {
			switch {
			case bd.login && bd.at == b.atfrom:
				online.Bump()
			case bd.login:
				online.Login()
			default:
				online.Logout()
			}
		}

		watermarks := online.Result()
		report.Intervals = append(report.Intervals, Interval{
			AtFrom:   b.atfrom,
			AtTo:     b.atto,
			Sessions: b.sessions,
			Uptime:   b.uptime,
			Min:      watermarks.Min,
			Max:      watermarks.Max,
		})
	}

	return report
}
