package main

import (
	"context"
	"flag"
	"fmt"
	"gamewatch/internal/activity"
	"gamewatch/internal/config"
	"gamewatch/internal/controller"
	"gamewatch/internal/criteria"
	"gamewatch/internal/model"
	"gamewatch/internal/render"
	"gamewatch/pkg/store"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	kind      model.ReportKind
	query     criteria.Query
	limit     int
	intervals bool
}

func main() {
	var (
		configPath = flag.String("config", "config/config.json", "path to the JSON config file")
		kind       = flag.String("kind", string(model.ReportInstances), "report kind: instances, players or chat")
		atfrom     = flag.String("atfrom", criteria.DefaultRange, "window start: date, millis, preset or range code")
		atto       = flag.String("atto", "", "window end: date, millis, preset or range code (default now)")
		tz         = flag.String("tz", "", "timezone for dates and output (default from config)")
		instance   = flag.String("instance", "", "limit the report to one instance")
		player     = flag.String("player", "", "limit the report to one player")
		limit      = flag.Int("limit", -1, "players shown per instance before folding into OTHERS (default from config)")
		intervals  = flag.Bool("intervals", false, "print the bucketed breakdown of each instance in player reports")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg.Logging)

	opts := options{
		kind: model.ReportKind(*kind),
		query: criteria.Query{
			AtFrom:   *atfrom,
			AtTo:     *atto,
			TZ:       *tz,
			Instance: *instance,
			Player:   *player,
		},
		limit:     *limit,
		intervals: *intervals,
	}
	if opts.limit < 0 {
		opts.limit = cfg.Report.CompactLimit
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	storeClient := store.New(cfg.Store.APIKey, cfg.Store.BaseURL, cfg.Store.Timeout(), cfg.Store.RequestsPerMinute)
	defer storeClient.Close()

	ac := controller.NewActivityController(storeClient, nil, 0, activity.SystemClock)
	if err := run(ctx, os.Stdout, ac, opts, time.Now(), cfg.Report.Timezone); err != nil {
		fmt.Fprintln(os.Stderr, "report:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, ac controller.ActivityController, opts options, now time.Time, defaultTZ string) error {
	if !opts.kind.Valid() {
		return fmt.Errorf("unknown report kind %q", opts.kind)
	}

	c, err := criteria.Resolve(opts.query, now, defaultTZ)
	if err != nil {
		return err
	}

	switch opts.kind {
	case model.ReportInstances:
		report, err := ac.InstanceActivity(ctx, c)
		if err != nil {
			return err
		}
		return render.Instances(w, *report, c.TZ)

	case model.ReportPlayers:
		report, err := ac.PlayerActivity(ctx, c)
		if err != nil {
			return err
		}
		if err := render.Players(w, *report, c.TZ, opts.limit); err != nil {
			return err
		}
		if !opts.intervals {
			return nil
		}
		for _, r := range report.Records {
			fmt.Fprintf(w, "\n%s by %dh:\n", r.Instance, r.Intervals.Hours)
			if err := render.Intervals(w, r.Intervals, c.TZ); err != nil {
				return err
			}
		}
		return nil

	default:
		rows, err := ac.ChatLog(ctx, c)
		if err != nil {
			return err
		}
		meta := activity.Meta{AtFrom: c.Window.AtFrom, AtTo: c.Window.AtTo}
		if err := render.Window(w, meta, c.TZ); err != nil {
			return err
		}
		return render.Chat(w, rows)
	}
}

func setupLogger(config config.LoggingConfig) {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Reports go to stdout, keep logs on stderr
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if config.Format == "json" {
		log.Logger = zerolog.New(os.Stderr)
	}
	log.Logger = log.With().Timestamp().Logger()
}
