package activity

import "sort"

// InstanceInput is everything the instance reducer needs. LastKnown holds the
// most recent event of each instance strictly before Window.AtFrom; Records
// are the in-window events in ascending time order.
type InstanceInput struct {
	Window    Window
	Instances []Instance
	LastKnown []InstanceEvent
	Records   []InstanceEvent
}

// InstanceActivity is the availability of one instance over the window
type InstanceActivity struct {
	Instance  string  `json:"instance"`
	Created   int64   `json:"created"`
	Sessions  int     `json:"sessions"`
	Uptime    int64   `json:"uptime"`
	Range     int64   `json:"range"`
	Available float64 `json:"available"`
}

// InstanceReport is the instance reducer output, ranked by uptime
type InstanceReport struct {
	Meta    Meta               `json:"meta"`
	Records []InstanceActivity `json:"records"`
}

type instanceEntry struct {
	instance Instance
	from     int64
	at       int64
	event    InstanceEventKind
	sessions int
	uptime   int64
}

// ReduceInstances turns STARTED/STOPPED/EXCEPTION streams into per instance
// uptime, session counts and availability.
//
// An instance that was already running at AtFrom has its uptime counted from
// AtFrom (or its creation time if later). The real start lies before the
// queried history, so this is an approximation and not a bug.
func ReduceInstances(in InstanceInput, clock Clock) (InstanceReport, error) {
	if err := in.Window.Validate(); err != nil {
		return InstanceReport{}, err
	}
	if clock == nil {
		clock = SystemClock
	}

	lastKnown := make(map[string]InstanceEventKind, len(in.LastKnown))
	for _, e := range in.LastKnown {
		lastKnown[e.Instance] = e.Event
	}

	entries := make(map[string]*instanceEntry, len(in.Instances))
	order := make([]*instanceEntry, 0, len(in.Instances))
	for _, instance := range in.Instances {
		if _, dup := entries[instance.Name]; dup {
			continue
		}
		entry := &instanceEntry{instance: instance, from: max(instance.Created, in.Window.AtFrom)}
		entries[instance.Name] = entry
		order = append(order, entry)
	}

	for _, r := range in.Records {
		entry, ok := entries[r.Instance]
		if !ok {
			continue
		}

		if entry.event == "" {
			if r.Event == Started && lastKnown[r.Instance] == Started {
				// Still running from before the window
				entry.sessions++
				entry.at, entry.event = entry.from, Started
				continue
			}
			if r.Event == Started {
				entry.sessions++
			} else if lastKnown[r.Instance] == Started {
				entry.sessions++
				entry.uptime += max(r.At-entry.from, 0)
			}
			entry.at, entry.event = r.At, r.Event
			continue
		}

		if r.Event == entry.event {
			continue
		}
		if r.Event == Started {
			entry.sessions++
		} else if entry.event == Started {
			entry.uptime += r.At - entry.at
		}
		entry.at, entry.event = r.At, r.Event
	}

	end := closeAt(in.Window, clock)
	records := make([]InstanceActivity, 0, len(order))
	for _, entry := range order {
		_, known := lastKnown[entry.instance.Name]
		if entry.event == "" && !known {
			continue
		}

		switch {
		case entry.event == "" && lastKnown[entry.instance.Name] == Started:
			entry.sessions++
			entry.uptime += max(end-entry.from, 0)
		case entry.event == Started:
			entry.uptime += max(end-entry.at, 0)
		}

		span := max(in.Window.AtTo-entry.from, 0)
		available := 0.0
		if span > 0 {
			available = float64(entry.uptime) / float64(span)
		}

		records = append(records, InstanceActivity{
			Instance:  entry.instance.Name,
			Created:   entry.instance.Created,
			Sessions:  entry.sessions,
			Uptime:    entry.uptime,
			Range:     span,
			Available: available,
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Uptime > records[j].Uptime
	})

	return InstanceReport{
		Meta: Meta{
			AtFrom:  in.Window.AtFrom,
			AtTo:    in.Window.AtTo,
			Created: clock.Now().UnixMilli(),
		},
		Records: records,
	}, nil
}
