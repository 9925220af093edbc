// Package render prints activity reports as fixed-width text tables for chat
// and terminal output.
package render

import (
	"fmt"
	"gamewatch/internal/activity"
	"gamewatch/internal/chat"
	"gamewatch/internal/model"
	"gamewatch/internal/timeutil"
	"io"

	"github.com/rodaine/table"
)

// Window prints the report window as "from .. to (duration)"
func Window(w io.Writer, meta activity.Meta, tz string) error {
	from, err := timeutil.ShortISODateTimeString(meta.AtFrom, tz)
	if err != nil {
		return err
	}
	to, err := timeutil.ShortISODateTimeString(meta.AtTo, tz)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s .. %s (%s)\n", from, to, timeutil.HumanDuration(meta.AtTo-meta.AtFrom, "dhm"))
	return err
}

// Instances prints one row per instance, ranked as given
func Instances(w io.Writer, report activity.InstanceReport, tz string) error {
	if err := Window(w, report.Meta, tz); err != nil {
		return err
	}
	if len(report.Records) == 0 {
		_, err := fmt.Fprintln(w, "No instance activity.")
		return err
	}

	t := table.New("Instance", "Sessions", "Uptime", "Available").WithWriter(w)
	for _, r := range report.Records {
		t.AddRow(r.Instance, r.Sessions, timeutil.HumanDuration(r.Uptime, "dhm"), timeutil.Percent(r.Available))
	}
	t.Print()
	return nil
}

// Players prints a summary line and a player table per instance. A positive
// limit folds the tail of each ranking into an OTHERS row.
func Players(w io.Writer, report activity.PlayerReport, tz string, limit int) error {
	if err := Window(w, report.Meta, tz); err != nil {
		return err
	}
	if len(report.Records) == 0 {
		_, err := fmt.Fprintln(w, "No player activity.")
		return err
	}

	for _, r := range report.Records {
		s := r.Summary
		if _, err := fmt.Fprintf(w, "\n%s: %d players, %d sessions, %s played, online %d..%d\n",
			r.Instance, s.Unique, s.Total.Sessions, timeutil.HumanDuration(s.Total.Uptime, "hm"),
			s.Online.Min, s.Online.Max); err != nil {
			return err
		}

		t := table.New("Player", "Sessions", "Uptime", "Share").WithWriter(w)
		for _, p := range activity.CompactPlayers(r.Players, limit) {
			t.AddRow(p.Player, p.Sessions, timeutil.HumanDuration(p.Uptime, "hm"), timeutil.Percent(p.UptimePct))
		}
		t.Print()
	}
	return nil
}

// Intervals prints the bucketed breakdown of one instance
func Intervals(w io.Writer, report activity.IntervalReport, tz string) error {
	t := table.New("From", "Sessions", "Uptime", "Online").WithWriter(w)
	for _, i := range report.Intervals {
		from, err := timeutil.ShortISODateTimeString(i.AtFrom, tz)
		if err != nil {
			return err
		}
		t.AddRow(from, i.Sessions, timeutil.HumanDuration(i.Uptime, "hm"), fmt.Sprintf("%d..%d", i.Min, i.Max))
	}
	t.Print()
	return nil
}

// Chat prints display rows, one hour header line per bucket
func Chat(w io.Writer, rows []chat.Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No chat.")
		return err
	}

	for _, r := range rows {
		var err error
		switch r.Kind {
		case chat.RowHeader:
			_, err = fmt.Fprintf(w, "## %s\n", r.Hour)
		case chat.RowEvent:
			_, err = fmt.Fprintf(w, "%s  * %s %s\n", r.Time, r.Player, r.Event)
		default:
			_, err = fmt.Fprintf(w, "%s  %s: %s\n", r.Time, r.Player, r.Text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Report prints a stored report of any kind
func Report(w io.Writer, report *model.Report, limit int) error {
	tz := report.Criteria.Timezone
	switch {
	case report.Instances != nil:
		return Instances(w, *report.Instances, tz)
	case report.Players != nil:
		return Players(w, *report.Players, tz, limit)
	case report.Kind == model.ReportChat:
		meta := activity.Meta{AtFrom: report.Criteria.AtFrom, AtTo: report.Criteria.AtTo}
		if err := Window(w, meta, tz); err != nil {
			return err
		}
		return Chat(w, report.Chat)
	}
	return fmt.Errorf("report %s has no %s data", report.ID.Hex(), report.Kind)
}
