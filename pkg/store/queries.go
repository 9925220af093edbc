package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"gamewatch/internal/activity"
	"net/url"
	"strconv"
	"strings"
)

const (
	instancesEndpoint      = "/store/instance"
	instanceEventsEndpoint = "/store/instance/event"
	playerEventsEndpoint   = "/store/player/event"
	chatEndpoint           = "/store/player/chat"
)

// Criteria narrows a store query to a window and optionally one instance or player
type Criteria struct {
	AtFrom   int64
	AtTo     int64
	Instance string
	Player   string
}

// Values encodes the criteria as query parameters. Instance and player names
// are sent as unpadded URL-safe base64.
func (c Criteria) Values() url.Values {
	q := url.Values{}
	q.Set("atfrom", strconv.FormatInt(c.AtFrom, 10))
	q.Set("atto", strconv.FormatInt(c.AtTo, 10))
	if c.Instance != "" {
		q.Set("instance", encodeName(c.Instance))
	}
	if c.Player != "" {
		q.Set("player", encodeName(c.Player))
	}
	return q
}

// before asks for the latest event of each subject strictly before AtFrom
func (c Criteria) before() url.Values {
	q := c.Values()
	q.Del("atfrom")
	q.Set("atto", strconv.FormatInt(c.AtFrom, 10))
	q.Set("atgroup", "max")
	return q
}

func encodeName(name string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(name))
}

func joinEvents[T ~string](events []T) string {
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = string(e)
	}
	return strings.Join(parts, ",")
}

// decodeRows accepts either a bare array of rows or {"records": [...]}
func decodeRows(body []byte) ([]activity.Row, error) {
	var rows []activity.Row
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("error unmarshaling rows: %w", err)
		}
		return rows, nil
	}

	var wrapped struct {
		Records []activity.Row `json:"records"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("error unmarshaling rows: %w", err)
	}
	return wrapped.Records, nil
}

func (c *Client) rows(ctx context.Context, endpoint string, query url.Values) ([]activity.Row, error) {
	body, err := c.get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}
	return decodeRows(body)
}

// Instances lists managed instances with their creation time
func (c *Client) Instances(ctx context.Context) ([]activity.Instance, error) {
	rows, err := c.rows(ctx, instancesEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error getting instances: %w", err)
	}
	return activity.DecodeInstances(rows)
}

// InstanceEvents returns in-window lifecycle events in ascending time order
func (c *Client) InstanceEvents(ctx context.Context, criteria Criteria) ([]activity.InstanceEvent, error) {
	q := criteria.Values()
	q.Set("events", joinEvents(activity.InstanceEventKinds))

	rows, err := c.rows(ctx, instanceEventsEndpoint, q)
	if err != nil {
		return nil, fmt.Errorf("error getting instance events: %w", err)
	}
	return activity.DecodeInstanceEvents(rows)
}

// LastInstanceEvents returns the latest lifecycle event of each instance before the window
func (c *Client) LastInstanceEvents(ctx context.Context, criteria Criteria) ([]activity.InstanceEvent, error) {
	q := criteria.before()
	q.Set("events", joinEvents(activity.InstanceEventKinds))

	rows, err := c.rows(ctx, instanceEventsEndpoint, q)
	if err != nil {
		return nil, fmt.Errorf("error getting last instance events: %w", err)
	}
	return activity.DecodeInstanceEvents(rows)
}

// PlayerEvents returns in-window player events of the given kinds
func (c *Client) PlayerEvents(ctx context.Context, criteria Criteria, events []activity.PlayerEventKind) ([]activity.PlayerEvent, error) {
	q := criteria.Values()
	if len(events) > 0 {
		q.Set("events", joinEvents(events))
	}

	rows, err := c.rows(ctx, playerEventsEndpoint, q)
	if err != nil {
		return nil, fmt.Errorf("error getting player events: %w", err)
	}
	return activity.DecodePlayerEvents(rows)
}

// LastPlayerEvents returns the latest LOGIN or LOGOUT of each player before the window
func (c *Client) LastPlayerEvents(ctx context.Context, criteria Criteria) ([]activity.PlayerEvent, error) {
	q := criteria.before()
	q.Set("events", joinEvents(activity.SessionEventKinds))

	rows, err := c.rows(ctx, playerEventsEndpoint, q)
	if err != nil {
		return nil, fmt.Errorf("error getting last player events: %w", err)
	}
	return activity.DecodePlayerEvents(rows)
}

// Chats returns in-window chat lines
func (c *Client) Chats(ctx context.Context, criteria Criteria) ([]activity.ChatRecord, error) {
	rows, err := c.rows(ctx, chatEndpoint, criteria.Values())
	if err != nil {
		return nil, fmt.Errorf("error getting chat: %w", err)
	}
	return activity.DecodeChatRecords(rows)
}
