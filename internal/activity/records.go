package activity

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedRecord is returned when a positional row cannot be decoded
var ErrMalformedRecord = errors.New("malformed record")

// Row is a positional tuple as returned by the store API
type Row []json.RawMessage

// DecodeInstances reads [instance, created] rows
func DecodeInstances(rows []Row) ([]Instance, error) {
	instances := make([]Instance, 0, len(rows))
	for i, row := range rows {
		if len(row) < 1 {
			return nil, fmt.Errorf("%w: instance row %d has %d fields", ErrMalformedRecord, i, len(row))
		}
		name, err := row.str(0)
		if err != nil {
			return nil, fmt.Errorf("instance row %d: %w", i, err)
		}
		var created int64
		if len(row) > 1 {
			if created, err = row.millis(1); err != nil {
				return nil, fmt.Errorf("instance row %d: %w", i, err)
			}
		}
		instances = append(instances, Instance{Name: name, Created: created})
	}
	return instances, nil
}

// DecodeInstanceEvents reads [at, instance, event] rows
func DecodeInstanceEvents(rows []Row) ([]InstanceEvent, error) {
	events := make([]InstanceEvent, 0, len(rows))
	for i, row := range rows {
		if len(row) < 3 {
			return nil, fmt.Errorf("%w: instance event row %d has %d fields", ErrMalformedRecord, i, len(row))
		}
		at, err := row.millis(0)
		if err != nil {
			return nil, fmt.Errorf("instance event row %d: %w", i, err)
		}
		instance, err := row.str(1)
		if err != nil {
			return nil, fmt.Errorf("instance event row %d: %w", i, err)
		}
		event, err := row.str(2)
		if err != nil {
			return nil, fmt.Errorf("instance event row %d: %w", i, err)
		}
		events = append(events, InstanceEvent{At: at, Instance: instance, Event: InstanceEventKind(event)})
	}
	return events, nil
}

// DecodePlayerEvents reads [at, instance, player, event, steamid?, text?] rows
func DecodePlayerEvents(rows []Row) ([]PlayerEvent, error) {
	events := make([]PlayerEvent, 0, len(rows))
	for i, row := range rows {
		if len(row) < 4 {
			return nil, fmt.Errorf("%w: player event row %d has %d fields", ErrMalformedRecord, i, len(row))
		}
		var (
			e   PlayerEvent
			err error
		)
		if e.At, err = row.millis(0); err != nil {
			return nil, fmt.Errorf("player event row %d: %w", i, err)
		}
		if e.Instance, err = row.str(1); err != nil {
			return nil, fmt.Errorf("player event row %d: %w", i, err)
		}
		if e.Player, err = row.str(2); err != nil {
			return nil, fmt.Errorf("player event row %d: %w", i, err)
		}
		event, err := row.str(3)
		if err != nil {
			return nil, fmt.Errorf("player event row %d: %w", i, err)
		}
		e.Event = PlayerEventKind(event)
		if e.Steamid, err = row.optionalStr(4); err != nil {
			return nil, fmt.Errorf("player event row %d: %w", i, err)
		}
		if e.Text, err = row.optionalStr(5); err != nil {
			return nil, fmt.Errorf("player event row %d: %w", i, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// DecodeChatRecords reads [at, instance, player, text] rows
func DecodeChatRecords(rows []Row) ([]ChatRecord, error) {
	chats := make([]ChatRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) < 4 {
			return nil, fmt.Errorf("%w: chat row %d has %d fields", ErrMalformedRecord, i, len(row))
		}
		var (
			c   ChatRecord
			err error
		)
		if c.At, err = row.millis(0); err != nil {
			return nil, fmt.Errorf("chat row %d: %w", i, err)
		}
		if c.Instance, err = row.str(1); err != nil {
			return nil, fmt.Errorf("chat row %d: %w", i, err)
		}
		if c.Player, err = row.str(2); err != nil {
			return nil, fmt.Errorf("chat row %d: %w", i, err)
		}
		if c.Text, err = row.optionalStr(3); err != nil {
			return nil, fmt.Errorf("chat row %d: %w", i, err)
		}
		chats = append(chats, c)
	}
	return chats, nil
}

func (r Row) millis(i int) (int64, error) {
	if string(r[i]) == "null" {
		return 0, fmt.Errorf("%w: field %d is null", ErrMalformedRecord, i)
	}
	var whole int64
	if err := json.Unmarshal(r[i], &whole); err == nil {
		return whole, nil
	}
	var f float64
	if err := json.Unmarshal(r[i], &f); err != nil {
		return 0, fmt.Errorf("%w: field %d is not a timestamp: %s", ErrMalformedRecord, i, string(r[i]))
	}
	return int64(f), nil
}

func (r Row) str(i int) (string, error) {
	var s *string
	if err := json.Unmarshal(r[i], &s); err != nil || s == nil {
		return "", fmt.Errorf("%w: field %d is not a string: %s", ErrMalformedRecord, i, string(r[i]))
	}
	return *s, nil
}

func (r Row) optionalStr(i int) (string, error) {
	if i >= len(r) {
		return "", nil
	}
	var s *string
	if err := json.Unmarshal(r[i], &s); err != nil {
		return "", fmt.Errorf("%w: field %d is not a string: %s", ErrMalformedRecord, i, string(r[i]))
	}
	if s == nil {
		return "", nil
	}
	return *s, nil
}
