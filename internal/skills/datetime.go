package skills

import (
	"fmt"
	"log"
	"strings"
	"time"
)

var timezones = map[string]string{
	"berlin":      "Europe/Berlin",
	"wien":        "Europe/Vienna",
	"zürich":      "Europe/Zurich",
	"london":      "Europe/London",
	"new york":    "America/New_York",
	"los angeles": "America/Los_Angeles",
	"tokyo":       "Asia/Tokyo",
	"sydney":      "Australia/Sydney",
	"moscow":      "Europe/Moscow",
	"moskau":      "Europe/Moscow",
	"dubai":       "Asia/Dubai",
	"paris":       "Europe/Paris",
	"rom":         "Europe/Rome",
}

const defaultTimezone = "Europe/Berlin"

var germanWeekdays = map[time.Weekday]string{
	time.Monday:    "Montag",
	time.Tuesday:   "Dienstag",
	time.Wednesday: "Mittwoch",
	time.Thursday:  "Donnerstag",
	time.Friday:    "Freitag",
	time.Saturday:  "Samstag",
	time.Sunday:    "Sonntag",
}

var germanMonths = map[time.Month]string{
	time.January:   "Januar",
	time.February:  "Februar",
	time.March:     "März",
	time.April:     "April",
	time.May:       "Mai",
	time.June:      "Juni",
	time.July:      "Juli",
	time.August:    "August",
	time.September: "September",
	time.October:   "Oktober",
	time.November:  "November",
	time.December:  "Dezember",
}

type DateTimeResult struct {
	Type      Kind   `json:"type"`
	Location  string `json:"location"`
	Timezone  string `json:"timezone"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Timestamp string `json:"timestamp"`
}

// DateTime resolves a free-text location to a timezone via the fixed lookup
// table and formats the current time there, German-style.
func (s *Service) DateTime(location string) DateTimeResult {
	tz := defaultTimezone
	if location != "" {
		if mapped, ok := timezones[strings.ToLower(location)]; ok {
			tz = mapped
		}
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("[skill:datetime] load %s failed: %v", tz, err)
		loc = time.UTC
	}
	now := time.Now().In(loc)

	display := location
	if display == "" {
		display = "Lokal"
	}

	return DateTimeResult{
		Type:     KindDateTime,
		Location: display,
		Timezone: tz,
		Date: fmt.Sprintf("%s, %d. %s %d",
			germanWeekdays[now.Weekday()], now.Day(), germanMonths[now.Month()], now.Year()),
		Time:      now.Format("15:04:05"),
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}
