// Package digest selects the rows for one scheduled send and renders the
// email body. The schedule partitions each day into windows between fixed
// cut hours; a send picks up exactly the rows scraped since the previous
// cut, so consecutive sends never overlap and never skip rows.
package digest

import (
	"fmt"
	"sort"
	"time"

	"prensa/internal/config"
)

// OutOfScheduleLabel marks an invocation outside every send window.
const OutOfScheduleLabel = "Fuera de horario"

// Window is one half-open send interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
	Label string
}

// IsZero reports whether the window is the out-of-schedule sentinel.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Schedule computes send windows from the configured cut hours.
type Schedule struct {
	cuts            []int
	toleranceBefore int
	toleranceAfter  int
	weekdayLookback map[string]int
	skipWeekends    bool
	loc             *time.Location
}

// NewSchedule builds a schedule in the given location. Cut hours are kept
// in ascending order regardless of configuration order.
func NewSchedule(cfg config.ScheduleConfig, loc *time.Location) (*Schedule, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cuts := append([]int(nil), cfg.Cuts...)
	sort.Ints(cuts)

	return &Schedule{
		cuts:            cuts,
		toleranceBefore: cfg.ToleranceBefore,
		toleranceAfter:  cfg.ToleranceAfter,
		weekdayLookback: cfg.WeekdayLookback,
		skipWeekends:    cfg.SkipWeekends,
		loc:             loc,
	}, nil
}

// Window returns the send window matching now. A run on a skipped weekend
// or away from every cut hour gets the zero window with the out-of-schedule
// label, which callers treat as "nothing to send", not as an error.
//
// The window ending at the day's first cut starts at the previous day's
// last cut, stretched further back by the weekday lookback so a Monday send
// covers the weekend.
func (s *Schedule) Window(now time.Time) Window {
	now = now.In(s.loc)

	if s.skipWeekends && (now.Weekday() == time.Saturday || now.Weekday() == time.Sunday) {
		return Window{Label: OutOfScheduleLabel}
	}

	for i, cut := range s.cuts {
		if now.Hour() < cut-s.toleranceBefore || now.Hour() >= cut+s.toleranceAfter {
			continue
		}

		end := time.Date(now.Year(), now.Month(), now.Day(), cut, 0, 0, 0, s.loc)

		if i > 0 {
			prev := s.cuts[i-1]
			start := time.Date(now.Year(), now.Month(), now.Day(), prev, 0, 0, 0, s.loc)

			return Window{
				Start: start,
				End:   end,
				Label: fmt.Sprintf("%02d:00 - %02d:00", prev, cut),
			}
		}

		days := s.lookbackDays(now.Weekday())
		last := s.cuts[len(s.cuts)-1]
		from := now.AddDate(0, 0, -days)
		start := time.Date(from.Year(), from.Month(), from.Day(), last, 0, 0, 0, s.loc)

		label := fmt.Sprintf("%02d:00 (día anterior) - %02d:00", last, cut)
		if days > 1 {
			label = fmt.Sprintf("%02d:00 (hace %d días) - %02d:00", last, days, cut)
		}

		return Window{Start: start, End: end, Label: label}
	}

	return Window{Label: OutOfScheduleLabel}
}

func (s *Schedule) lookbackDays(day time.Weekday) int {
	if n, ok := s.weekdayLookback[day.String()]; ok && n > 0 {
		return n
	}

	return 1
}
