package conversation

import "time"

// Japan does not observe daylight saving time.
var jst = time.FixedZone("JST", 9*60*60)

func currentTimeNote(now time.Time) string {
	return "CurrentTime(JST): " + now.In(jst).Format(time.RFC3339)
}

func seasonLabel(month time.Month) string {
	switch month {
	case time.March, time.April, time.May:
		return "春"
	case time.June, time.July, time.August:
		return "夏"
	case time.September, time.October, time.November:
		return "秋"
	default:
		return "冬"
	}
}

func slotForHour(hour int) slot {
	switch {
	case hour >= 5 && hour <= 8:
		return slot{name: "morning", timeLabel: "朝"}
	case hour >= 9 && hour <= 15:
		return slot{name: "day", timeLabel: "昼"}
	case hour >= 16 && hour <= 18:
		return slot{name: "evening", timeLabel: "夕方"}
	default:
		return slot{name: "night", timeLabel: "夜"}
	}
}
