package memberauth

import "time"

// IsWithinThresholdPeriod reports whether t falls inside the trailing window
// described by pattern, a time.ParseDuration string such as "24h".
func IsWithinThresholdPeriod(t time.Time, pattern string) (bool, error) {
	duration, err := time.ParseDuration(pattern)
	if err != nil {
		return false, err
	}

	threshold := time.Now().Add(-duration)

	return t.After(threshold), nil
}

// IsOutsideThresholdPeriod reports the opposite: t is older than the window.
func IsOutsideThresholdPeriod(t time.Time, pattern string) (bool, error) {
	valid, err := IsWithinThresholdPeriod(t, pattern)
	if err != nil {
		return false, err
	}

	return !valid, nil
}
