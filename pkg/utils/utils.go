package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatCurrency renders an amount of paise as whole rupees with Indian
// digit grouping, e.g. 123456700 -> "₹12,34,567". Stored amounts stay
// integer paise everywhere; the divide and round happen only here at the
// display boundary.
func FormatCurrency(paise int64) string {
	rupees := decimal.NewFromInt(paise).
		Div(decimal.NewFromInt(100)).
		Round(0)

	negative := rupees.IsNegative()
	digits := rupees.Abs().String()

	grouped := groupIndian(digits)
	if negative {
		return "-₹" + grouped
	}
	return "₹" + grouped
}

// groupIndian applies en-IN digit grouping: the last three digits form one
// group, everything before that groups in pairs.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	groups = append(groups, tail)

	return strings.Join(groups, ",")
}

// IsDateOverdue checks if a due date has passed
func IsDateOverdue(dueDate time.Time, now time.Time) bool {
	return now.After(dueDate)
}

// FormatRelativeTime renders how long ago something happened, falling back
// to a plain date past thirty days.
func FormatRelativeTime(t time.Time, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return t.Format("January 2, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
