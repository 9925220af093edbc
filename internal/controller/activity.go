package controller

import (
	"context"
	"errors"
	"fmt"
	"gamewatch/internal/activity"
	"gamewatch/internal/cache"
	"gamewatch/internal/chat"
	"gamewatch/internal/criteria"
	"gamewatch/pkg/store"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrUpstream wraps failures talking to the store
var ErrUpstream = errors.New("store unavailable")

// ActivitySource is the slice of the store API the reports read from
type ActivitySource interface {
	Instances(ctx context.Context) ([]activity.Instance, error)
	InstanceEvents(ctx context.Context, criteria store.Criteria) ([]activity.InstanceEvent, error)
	LastInstanceEvents(ctx context.Context, criteria store.Criteria) ([]activity.InstanceEvent, error)
	PlayerEvents(ctx context.Context, criteria store.Criteria, events []activity.PlayerEventKind) ([]activity.PlayerEvent, error)
	LastPlayerEvents(ctx context.Context, criteria store.Criteria) ([]activity.PlayerEvent, error)
	Chats(ctx context.Context, criteria store.Criteria) ([]activity.ChatRecord, error)
}

// ActivityController fetches event streams and reduces them into reports
type ActivityController interface {
	InstanceActivity(ctx context.Context, c criteria.Criteria) (*activity.InstanceReport, error)
	PlayerActivity(ctx context.Context, c criteria.Criteria) (*activity.PlayerReport, error)
	ChatLog(ctx context.Context, c criteria.Criteria) ([]chat.Row, error)
}

type activityController struct {
	source   ActivitySource
	cache    cache.Cache
	cacheTTL time.Duration
	clock    activity.Clock
}

// NewActivityController wires a source and cache. Reports over windows that
// already ended are cached for cacheTTL; a nil cache disables caching.
func NewActivityController(source ActivitySource, c cache.Cache, cacheTTL time.Duration, clock activity.Clock) ActivityController {
	if clock == nil {
		clock = activity.SystemClock
	}
	return &activityController{
		source:   source,
		cache:    c,
		cacheTTL: cacheTTL,
		clock:    clock,
	}
}

func toStore(c criteria.Criteria) store.Criteria {
	return store.Criteria{
		AtFrom:   c.Window.AtFrom,
		AtTo:     c.Window.AtTo,
		Instance: c.Instance,
		Player:   c.Player,
	}
}

func upstream(err error) error {
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}

func cacheKey(kind string, c criteria.Criteria) string {
	return fmt.Sprintf("activity:%s:%d:%d:%s:%s:%s", kind, c.Window.AtFrom, c.Window.AtTo, c.Instance, c.Player, c.TZ)
}

// cached serves closed windows from the cache, computing and storing on a miss
func cached[T any](ctx context.Context, ac *activityController, kind string, c criteria.Criteria, compute func() (T, error)) (T, error) {
	closed := c.Window.AtTo <= ac.clock.Now().UnixMilli()
	if ac.cache == nil || ac.cacheTTL <= 0 || !closed {
		return compute()
	}

	key := cacheKey(kind, c)
	var hit T
	err := cache.GetJSON(ctx, ac.cache, key, &hit)
	if err == nil {
		cacheLookups.WithLabelValues(kind, "hit").Inc()
		return hit, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Warn().Err(err).Str("key", key).Msg("Report cache read failed")
	}
	cacheLookups.WithLabelValues(kind, "miss").Inc()

	result, err := compute()
	if err != nil {
		return result, err
	}
	if err := cache.SetJSON(ctx, ac.cache, key, result, ac.cacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Report cache write failed")
	}
	return result, nil
}

func filterInstances(instances []activity.Instance, name string) []activity.Instance {
	if name == "" {
		return instances
	}
	for _, instance := range instances {
		if instance.Name == name {
			return []activity.Instance{instance}
		}
	}
	return []activity.Instance{{Name: name}}
}

func (ac *activityController) InstanceActivity(ctx context.Context, c criteria.Criteria) (*activity.InstanceReport, error) {
	return cached(ctx, ac, "instances", c, func() (*activity.InstanceReport, error) {
		var in activity.InstanceInput
		in.Window = c.Window
		sc := toStore(c)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			instances, err := ac.source.Instances(gctx)
			in.Instances = filterInstances(instances, c.Instance)
			return err
		})
		g.Go(func() error {
			var err error
			in.LastKnown, err = ac.source.LastInstanceEvents(gctx, sc)
			return err
		})
		g.Go(func() error {
			var err error
			in.Records, err = ac.source.InstanceEvents(gctx, sc)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, upstream(err)
		}

		start := time.Now()
		report, err := activity.ReduceInstances(in, ac.clock)
		if err != nil {
			return nil, err
		}

		log.Debug().
			Int("instances", len(in.Instances)).
			Int("records", len(in.Records)).
			Dur("reduce_duration", time.Since(start)).
			Msg("Reduced instance activity")
		return &report, nil
	})
}

func (ac *activityController) PlayerActivity(ctx context.Context, c criteria.Criteria) (*activity.PlayerReport, error) {
	return cached(ctx, ac, "players", c, func() (*activity.PlayerReport, error) {
		var in activity.PlayerInput
		in.Window = c.Window
		sc := toStore(c)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			instances, err := ac.source.Instances(gctx)
			in.Instances = filterInstances(instances, c.Instance)
			return err
		})
		g.Go(func() error {
			var err error
			in.LastKnown, err = ac.source.LastPlayerEvents(gctx, sc)
			return err
		})
		g.Go(func() error {
			var err error
			in.Records, err = ac.source.PlayerEvents(gctx, sc, activity.SessionEventKinds)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, upstream(err)
		}

		start := time.Now()
		report, err := activity.ReducePlayers(in, ac.clock)
		if err != nil {
			return nil, err
		}

		log.Debug().
			Int("instances", len(report.Records)).
			Int("records", len(in.Records)).
			Dur("reduce_duration", time.Since(start)).
			Msg("Reduced player activity")
		return &report, nil
	})
}

var chatEventKinds = []activity.PlayerEventKind{activity.Login, activity.Logout, activity.Death}

func (ac *activityController) ChatLog(ctx context.Context, c criteria.Criteria) ([]chat.Row, error) {
	return cached(ctx, ac, "chat", c, func() ([]chat.Row, error) {
		var (
			chats  []activity.ChatRecord
			events []activity.PlayerEvent
		)
		sc := toStore(c)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			chats, err = ac.source.Chats(gctx, sc)
			return err
		})
		g.Go(func() error {
			var err error
			events, err = ac.source.PlayerEvents(gctx, sc, chatEventKinds)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, upstream(err)
		}

		return chat.ExtractResults(chat.MergeResults(chats, events), c.TZ)
	})
}
