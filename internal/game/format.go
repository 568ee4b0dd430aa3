package game

import "fmt"

// FormatDuration renders a match duration in whole minutes as "2t 15m" or
// "45m" ("t" for hours). Unknown or zero durations render as "-".
func FormatDuration(minutes *int) string {
	if minutes == nil || *minutes == 0 {
		return "-"
	}
	hours := *minutes / 60
	mins := *minutes % 60
	if hours > 0 {
		return fmt.Sprintf("%dt %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// FormatMatchTime renders elapsed in-match seconds as M:SS, or H:MM:SS once
// past an hour.
func FormatMatchTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hrs := seconds / 3600
	mins := (seconds % 3600) / 60
	secs := seconds % 60
	if hrs > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hrs, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}
