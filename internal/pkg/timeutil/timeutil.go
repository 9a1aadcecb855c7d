package timeutil

import "time"

func NowUnix() int64 {
	return time.Now().Unix()
}

// ParseSchedule accepts RFC3339 and the browser datetime-local layout; the
// latter carries no zone and is read as UTC.
func ParseSchedule(value string) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05"}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, value, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
