package recur

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mfserna/taskcycle/internal/domain"
)

// Rule string grammar: semicolon-separated KEY=VALUE tokens.
//
//	FREQ=DAILY|WEEKLY|MONTHLY|YEARLY|CUSTOM
//	INTERVAL=<int>                      (omitted when 1)
//	COUNT=<int>                         (mutually exclusive with UNTIL)
//	UNTIL=<YYYY-MM-DD>                  (inclusive)
//	BYDAY=SU,MO,TU,WE,TH,FR,SA          (weekly only)
//	BYMONTH=1..12 or JAN..DEC           (yearly only)
//
// Unknown keys are ignored for forward compatibility. Unrecognized BYDAY
// and BYMONTH tokens are dropped silently; that is the documented wire
// behavior, not an error.

var dayCodes = []string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

var dayIndex = map[string]int{
	"SU": 0, "MO": 1, "TU": 2, "WE": 3, "TH": 4, "FR": 5, "SA": 6,
}

var monthIndex = map[string]int{
	"JAN": 0, "FEB": 1, "MAR": 2, "APR": 3, "MAY": 4, "JUN": 5,
	"JUL": 6, "AUG": 7, "SEP": 8, "OCT": 9, "NOV": 10, "DEC": 11,
}

// EncodeRule renders a rule as its textual form. Default values are not
// emitted, so EncodeRule(DecodeRule(s)) reproduces s modulo token order
// and normalization.
func EncodeRule(r domain.RecurrenceRule) string {
	parts := []string{"FREQ=" + strings.ToUpper(string(r.Frequency))}
	if r.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(r.Interval))
	}
	if r.Count != nil {
		parts = append(parts, "COUNT="+strconv.Itoa(*r.Count))
	}
	if r.EndDate != nil {
		parts = append(parts, "UNTIL="+r.EndDate.Format(dateLayout))
	}
	if len(r.CustomDays) > 0 {
		days := append([]int(nil), r.CustomDays...)
		sort.Ints(days)
		codes := make([]string, 0, len(days))
		for _, d := range days {
			if d >= 0 && d <= 6 {
				codes = append(codes, dayCodes[d])
			}
		}
		parts = append(parts, "BYDAY="+strings.Join(codes, ","))
	}
	if len(r.CustomMonths) > 0 {
		months := append([]int(nil), r.CustomMonths...)
		sort.Ints(months)
		nums := make([]string, 0, len(months))
		for _, m := range months {
			nums = append(nums, strconv.Itoa(m+1))
		}
		parts = append(parts, "BYMONTH="+strings.Join(nums, ","))
	}
	return strings.Join(parts, ";")
}

// DecodeRule parses a rule string. It fails with ErrMalformedRule when
// FREQ is missing, unrecognized, or when COUNT and UNTIL are both set.
// Recoverable problems (bad INTERVAL, unknown tokens) fall back to
// defaults instead of failing.
func DecodeRule(s string) (domain.RecurrenceRule, error) {
	rule := domain.RecurrenceRule{Interval: 1}
	seenFreq := false

	for _, token := range strings.Split(s, ";") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		key, value, found := strings.Cut(token, "=")
		if !found {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "FREQ":
			freq := strings.ToLower(value)
			if !domain.ValidFrequencies[freq] {
				return domain.RecurrenceRule{}, fmt.Errorf("%w: unknown frequency %q", ErrMalformedRule, value)
			}
			rule.Frequency = domain.Frequency(freq)
			seenFreq = true
		case "INTERVAL":
			if n, err := strconv.Atoi(value); err == nil && n >= 1 {
				rule.Interval = n
			}
		case "COUNT":
			if n, err := strconv.Atoi(value); err == nil && n >= 0 {
				c := n
				rule.Count = &c
			}
		case "UNTIL":
			if t, ok := parseUntil(value); ok {
				rule.EndDate = &t
			}
		case "BYDAY":
			rule.CustomDays = parseDayCodes(value)
		case "BYMONTH":
			rule.CustomMonths = parseMonthTokens(value)
		}
		// Unknown keys fall through silently.
	}

	if !seenFreq {
		return domain.RecurrenceRule{}, fmt.Errorf("%w: missing FREQ", ErrMalformedRule)
	}
	if rule.Count != nil && rule.EndDate != nil {
		return domain.RecurrenceRule{}, fmt.Errorf("%w: COUNT and UNTIL are mutually exclusive", ErrMalformedRule)
	}
	return rule, nil
}

func parseUntil(value string) (time.Time, bool) {
	for _, layout := range []string{dateLayout, time.RFC3339, "20060102"} {
		if t, err := time.Parse(layout, value); err == nil {
			return DateOnly(t), true
		}
	}
	return time.Time{}, false
}

func parseDayCodes(value string) []int {
	var days []int
	seen := map[int]bool{}
	for _, code := range strings.Split(value, ",") {
		code = strings.ToUpper(strings.TrimSpace(code))
		idx, ok := dayIndex[code]
		if !ok || seen[idx] {
			continue
		}
		seen[idx] = true
		days = append(days, idx)
	}
	sort.Ints(days)
	return days
}

func parseMonthTokens(value string) []int {
	var months []int
	seen := map[int]bool{}
	for _, token := range strings.Split(value, ",") {
		token = strings.ToUpper(strings.TrimSpace(token))
		idx := -1
		if n, err := strconv.Atoi(token); err == nil && n >= 1 && n <= 12 {
			idx = n - 1
		} else if m, ok := monthIndex[token]; ok {
			idx = m
		}
		if idx < 0 || seen[idx] {
			continue
		}
		seen[idx] = true
		months = append(months, idx)
	}
	sort.Ints(months)
	return months
}
