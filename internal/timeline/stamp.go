package timeline

import (
	"strconv"
	"strings"
	"time"
)

// StampLayout is the fixed-width YYYYMMDDHHMM layout of every timestamp.
// Lexicographic order of stamps equals chronological order.
const StampLayout = "200601021504"

// ParseStamp parses a YYYYMMDDHHMM stamp as UTC.
func ParseStamp(s string) (time.Time, error) {
	if len(s) != len(StampLayout) {
		return time.Time{}, Error.New("timestamp %q is not %d digits", s, len(StampLayout))
	}
	t, err := time.Parse(StampLayout, s)
	if err != nil {
		return time.Time{}, Error.Wrap(err)
	}
	return t, nil
}

// FormatStamp renders t in StampLayout.
func FormatStamp(t time.Time) string {
	return t.UTC().Format(StampLayout)
}

// yearStart returns Jan 1 00:00 of the stamp's year.
func yearStart(s string) string {
	return s[:4] + "01010000"
}

// isYearEndMidnight reports whether s is Dec 31 00:00 of some year.
func isYearEndMidnight(s string) bool {
	return s[4:] == "12310000"
}

// nextYearStart returns Jan 1 00:00 of the year after the stamp's year.
func nextYearStart(s string) (string, error) {
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return "", Error.New("timestamp %q has no year: %v", s, err)
	}
	return strconv.Itoa(year+1) + "01010000", nil
}

// Resolution is the fixed sampling cadence of a site record.
type Resolution string

const (
	HalfHourly Resolution = "HH"
	Hourly     Resolution = "HR"
)

// ParseResolution accepts the short codes (HH, HR) and their spelled-out
// names, case-insensitively.
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hh", "half-hourly", "halfhourly", "30m":
		return HalfHourly, nil
	case "hr", "hourly", "60m":
		return Hourly, nil
	default:
		return "", ErrUnknownResolution.New("%q", s)
	}
}

// Step is the duration of one timestep.
func (r Resolution) Step() time.Duration {
	switch r {
	case HalfHourly:
		return 30 * time.Minute
	case Hourly:
		return time.Hour
	default:
		return 0
	}
}

// Steps returns the number of timesteps covering rg.
func (r Resolution) Steps(rg Range) (int, error) {
	step := r.Step()
	if step == 0 {
		return 0, ErrUnknownResolution.New("%q", string(r))
	}
	start, err := ParseStamp(rg.Start)
	if err != nil {
		return 0, err
	}
	end, err := ParseStamp(rg.End)
	if err != nil {
		return 0, err
	}
	d := end.Sub(start)
	if d%step != 0 {
		return 0, Error.New("range %s is not a whole number of %s steps", rg, step)
	}
	return int(d / step), nil
}
