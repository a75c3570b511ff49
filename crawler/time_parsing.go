package crawler

import (
	"strings"
	"time"
	"unicode/utf8"
)

// UpstreamLocation is the zone the upstream prints its timestamps in
var UpstreamLocation = time.FixedZone("KST", 9*60*60)

func UpstreamNow() time.Time {
	return time.Now().In(UpstreamLocation)
}

// ParseTime reads the upstream's relative and absolute timestamps. The layout is picked by length,
// dates without a time of day land at 23:59:59, and anything unreadable falls back to now.
func ParseTime(text string, now time.Time) time.Time {
	text = strings.TrimSpace(text)
	loc := now.Location()
	parse := func(layout string) (time.Time, bool) {
		t, err := time.ParseInLocation(layout, text, loc)
		return t, err == nil
	}
	withYear := func(t time.Time) time.Time {
		return time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
	}
	endOfDay := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, loc)
	}

	length := utf8.RuneCountInString(text)
	hasColon := strings.Index(text, ":") > 0
	switch {
	case length == 0:
		return now
	case length <= 5:
		if hasColon {
			if t, ok := parse("15:04"); ok {
				return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, loc)
			}
		} else if t, ok := parse("1.2"); ok {
			return endOfDay(withYear(t))
		}
	case length <= 11:
		if hasColon {
			if t, ok := parse("1.2 15:04"); ok {
				return withYear(t)
			}
		} else {
			if t, ok := parse("06.1.2"); ok {
				return endOfDay(t)
			}
			if t, ok := parse("2006.1.2"); ok {
				return endOfDay(t)
			}
		}
	case length <= 16:
		if strings.Count(text, ".") >= 2 {
			if t, ok := parse("2006.1.2 15:04"); ok {
				return t
			}
		} else if t, ok := parse("1.2 15:04:05"); ok {
			return withYear(t)
		}
	default:
		if strings.Contains(text, ".") {
			if t, ok := parse("2006.1.2 15:04:05"); ok {
				return t
			}
		} else if t, ok := parse("2006-1-2 15:04:05"); ok {
			return t
		}
	}
	return now
}
