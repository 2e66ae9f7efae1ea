package recur

import (
	"fmt"
	"sort"
	"time"

	"github.com/mfserna/taskcycle/internal/domain"
)

// DefaultMaxOccurrences is the hard safety cap on a single expansion.
// Exceeding it surfaces ErrGenerationOverflow even when the rule itself
// is bounded.
const DefaultMaxOccurrences = 1000

// defaultHorizonYears bounds expansion when neither the rule nor the
// caller supplies an end, guaranteeing termination.
const defaultHorizonYears = 1

// Span is one concrete occurrence: the start of its calendar date through
// end of day.
type Span struct {
	Start time.Time
	End   time.Time
}

// Options bounds a single expansion.
type Options struct {
	// EndBound is an inclusive generator-level horizon, combined with
	// the rule's own EndDate by taking the earlier of the two.
	EndBound *time.Time
	// Exclude lists dates to skip. Skipped dates do not consume the
	// rule's count.
	Exclude []time.Time
	// MaxOccurrences overrides DefaultMaxOccurrences when positive.
	MaxOccurrences int
}

// Generate expands a rule into its ordered occurrence spans, starting at
// start. The sequence is finite and restartable: the same inputs always
// reproduce the same spans.
//
// Weekly rules with custom days honor Interval on week wrap: after the
// last listed weekday the cursor jumps Interval weeks ahead to the first
// listed one. (The behavior this engine replaced stepped a single week
// regardless of the interval; that was a defect.)
func Generate(start time.Time, rule domain.RecurrenceRule, opts Options) ([]Span, error) {
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule: %w", err)
	}

	start = DateOnly(start)
	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	maxOcc := opts.MaxOccurrences
	if maxOcc <= 0 {
		maxOcc = DefaultMaxOccurrences
	}

	bound := effectiveBound(start, rule, opts.EndBound)

	excluded := make(map[string]struct{}, len(opts.Exclude))
	for _, d := range opts.Exclude {
		excluded[dayKey(d)] = struct{}{}
	}

	var spans []Span
	cand := start
	step := 0
	for {
		if rule.Count != nil && len(spans) >= *rule.Count {
			break
		}
		if bound != nil && cand.After(*bound) {
			break
		}
		if _, skip := excluded[dayKey(cand)]; !skip {
			if len(spans) >= maxOcc {
				return nil, fmt.Errorf("%w: more than %d occurrences from %s",
					ErrGenerationOverflow, maxOcc, start.Format(dateLayout))
			}
			spans = append(spans, Span{Start: cand, End: EndOfDay(cand)})
		}
		step++
		cand = next(start, cand, rule, interval, step)
	}
	return spans, nil
}

// effectiveBound picks the inclusive end of expansion: the earlier of the
// rule's EndDate and the caller's bound, or a one-year default horizon
// when the rule is count-less and the caller supplied nothing.
func effectiveBound(start time.Time, rule domain.RecurrenceRule, endBound *time.Time) *time.Time {
	var bound *time.Time
	if rule.EndDate != nil {
		b := DateOnly(*rule.EndDate)
		bound = &b
	}
	if endBound != nil {
		b := DateOnly(*endBound)
		if bound == nil || b.Before(*bound) {
			bound = &b
		}
	}
	if bound == nil && rule.Count == nil {
		b := start.AddDate(defaultHorizonYears, 0, 0)
		bound = &b
	}
	return bound
}

// next computes the candidate after cur. step counts stepping rounds from
// start, letting month- and year-anchored frequencies keep the original
// day-of-month (so a Jan 31 monthly series visits Feb 29 and returns to
// Mar 31 instead of drifting).
func next(start, cur time.Time, rule domain.RecurrenceRule, interval, step int) time.Time {
	switch rule.Frequency {
	case domain.FreqWeekly:
		if len(rule.CustomDays) == 0 {
			return cur.AddDate(0, 0, 7*interval)
		}
		return nextListedWeekday(cur, rule.CustomDays, interval)
	case domain.FreqMonthly:
		return monthAnchored(start, step*interval)
	case domain.FreqYearly:
		if len(rule.CustomMonths) == 0 {
			return yearAnchored(start, step*interval)
		}
		return nextListedMonth(cur, rule.CustomMonths, start.Day())
	default:
		// daily, and custom's interval-in-days sub-mode
		return cur.AddDate(0, 0, interval)
	}
}

// nextListedWeekday advances to the next weekday in the sorted set that is
// later in the current week, wrapping to the first listed weekday interval
// weeks ahead when none remains.
func nextListedWeekday(cur time.Time, customDays []int, interval int) time.Time {
	days := append([]int(nil), customDays...)
	sort.Ints(days)
	wd := int(cur.Weekday())
	for _, d := range days {
		if d > wd {
			return cur.AddDate(0, 0, d-wd)
		}
	}
	return cur.AddDate(0, 0, (7-wd)+days[0]+7*(interval-1))
}

// monthAnchored returns start shifted by months whole months, keeping the
// anchor day where it exists and rolling back to the target month's last
// day where it does not.
func monthAnchored(start time.Time, months int) time.Time {
	total := int(start.Month()) - 1 + months
	year := start.Year() + total/12
	month := time.Month(total%12 + 1)
	day := start.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// yearAnchored returns start shifted by whole years, same month and day,
// falling back to day 28 when the combination is invalid (Feb 29 anchors
// in non-leap years).
func yearAnchored(start time.Time, years int) time.Time {
	year := start.Year() + years
	day := start.Day()
	if day > daysIn(year, start.Month()) {
		day = 28
	}
	return time.Date(year, start.Month(), day, 0, 0, 0, 0, time.UTC)
}

// nextListedMonth advances to the next listed month in the current year,
// wrapping to the first listed month of the following year, matching the
// anchor day with the same day-28 fallback.
func nextListedMonth(cur time.Time, customMonths []int, anchorDay int) time.Time {
	months := append([]int(nil), customMonths...)
	sort.Ints(months)
	year := cur.Year()
	cm := int(cur.Month()) - 1
	target := -1
	for _, m := range months {
		if m > cm {
			target = m
			break
		}
	}
	if target < 0 {
		target = months[0]
		year++
	}
	month := time.Month(target + 1)
	day := anchorDay
	if day > daysIn(year, month) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
