package domain

import (
	"fmt"
	"time"
)

// RecurrenceRule is the value object describing how a master task repeats.
// It has no identity; masters embed it by value. At most one of Count and
// EndDate may be set; when neither is set the series is unbounded and the
// caller of the generator must supply a horizon.
type RecurrenceRule struct {
	Frequency Frequency
	Interval  int // every N units, minimum 1
	Count     *int
	EndDate   *time.Time

	// CustomDays restricts weekly rules to a set of weekdays (0 = Sunday).
	CustomDays []int
	// CustomMonths restricts yearly rules to a set of months (0 = January).
	CustomMonths []int
}

// Validate checks structural invariants of the rule.
func (r *RecurrenceRule) Validate() error {
	if !ValidFrequencies[string(r.Frequency)] {
		return fmt.Errorf("unknown frequency %q", r.Frequency)
	}
	if r.Interval < 1 {
		return fmt.Errorf("interval must be at least 1, got %d", r.Interval)
	}
	if r.Count != nil && r.EndDate != nil {
		return fmt.Errorf("count and end date are mutually exclusive")
	}
	if r.Count != nil && *r.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", *r.Count)
	}
	if len(r.CustomDays) > 0 && r.Frequency != FreqWeekly {
		return fmt.Errorf("custom days are only valid with weekly frequency")
	}
	for _, d := range r.CustomDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("custom day index %d out of range 0-6", d)
		}
	}
	if len(r.CustomMonths) > 0 && r.Frequency != FreqYearly {
		return fmt.Errorf("custom months are only valid with yearly frequency")
	}
	for _, m := range r.CustomMonths {
		if m < 0 || m > 11 {
			return fmt.Errorf("custom month index %d out of range 0-11", m)
		}
	}
	return nil
}

// Bounded reports whether the rule carries its own termination condition.
func (r *RecurrenceRule) Bounded() bool {
	return r.Count != nil || r.EndDate != nil
}
