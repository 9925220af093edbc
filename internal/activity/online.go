package activity

// OnlineRange is the lowest and highest concurrency seen during a period
type OnlineRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// OnlineTracker counts concurrent sessions while transitions are replayed in
// time order and keeps min/max watermarks. Min <= current <= Max always holds.
type OnlineTracker struct {
	current int
	min     int
	max     int
}

// NewOnlineTracker seeds the tracker with a known concurrency
func NewOnlineTracker(initial int) *OnlineTracker {
	return &OnlineTracker{current: initial, min: initial, max: initial}
}

// Bump records a subject that was already online when the period started.
// The watermarks collapse to the new count since nothing has been observed yet.
func (t *OnlineTracker) Bump() {
	t.current++
	t.min = t.current
	t.max = t.current
}

func (t *OnlineTracker) Login() {
	t.current++
	t.max = max(t.max, t.current)
}

func (t *OnlineTracker) Logout() {
	t.current--
	t.min = min(t.min, t.current)
}

// Current is the live count
func (t *OnlineTracker) Current() int {
	return t.current
}

// Result is the immutable watermark snapshot
func (t *OnlineTracker) Result() OnlineRange {
	return OnlineRange{Min: t.min, Max: t.max}
}
