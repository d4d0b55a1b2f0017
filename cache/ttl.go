package cache

import "time"

// Common entry lifetimes.
const (
	TTLMinute      = time.Minute
	TTLTwoMinutes  = 2 * time.Minute
	TTLFiveMinutes = 5 * time.Minute
	TTLHour        = time.Hour
	TTLDay         = 24 * time.Hour
	TTLTwoDays     = 2 * 24 * time.Hour
	TTLWeek        = 7 * 24 * time.Hour
	TTLMonth       = 4 * 7 * 24 * time.Hour
)
