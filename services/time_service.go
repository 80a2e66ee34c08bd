package services

import "time"

// FormatToday renders t the way the function descriptions quote today's date,
// e.g. "September 6, 2023".
func FormatToday(t time.Time) string {
	return t.Format("January 2, 2006")
}
