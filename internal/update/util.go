package update

import (
	"strings"
	"time"
)

func levelFromError(isErr bool) string {
	if isErr {
		return "error"
	}
	return "info"
}

func escapeAppleScript(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func clampCursor(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	if cursor >= n {
		return n - 1
	}
	return cursor
}

func formatDue(due, now time.Time) string {
	if due.IsZero() {
		return "-"
	}
	days := int(due.Sub(now).Hours() / 24)
	switch {
	case due.Before(now):
		return "overdue"
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	default:
		return due.Format("Mon Jan 2")
	}
}
