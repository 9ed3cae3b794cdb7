package convert

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

var isoDuration = regexp.MustCompile(
	`^(-)?P(?:(\d+(?:\.\d+)?)Y)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)W)?(?:(\d+(?:\.\d+)?)D)?` +
		`(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// isoUnits are the lengths of the ISO-8601 designators in match order.
// Years and months have no fixed length; 365 and 30 days are used.
var isoUnits = []time.Duration{365 * day, 30 * day, 7 * day, day, time.Hour, time.Minute, time.Second}

// ParseDuration parses an ISO-8601 duration ("P1DT2H", "-PT0.5S") or a Go
// duration string ("1h30m").
func ParseDuration(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	m := isoDuration.FindStringSubmatch(strings.ToUpper(s))
	if m == nil {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, false
		}
		return d, true
	}
	// "P" and "PT" alone carry no component
	if strings.TrimLeft(strings.ToUpper(s), "-PT") == "" {
		return 0, false
	}

	var total float64
	for i, unit := range isoUnits {
		part := m[i+2]
		if part == "" {
			continue
		}
		n, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, false
		}
		total += n * float64(unit)
	}
	if total > math.MaxInt64 {
		return 0, false
	}
	d := time.Duration(math.Round(total))
	if m[1] == "-" {
		d = -d
	}
	return d, true
}

// FormatDuration renders d as an ISO-8601 duration using days, hours,
// minutes and seconds only, so that ParseDuration returns d exactly.
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}

	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	b.WriteByte('P')

	days := d / day
	d -= days * day
	if days > 0 {
		b.WriteString(strconv.FormatInt(int64(days), 10))
		b.WriteByte('D')
	}
	if d == 0 {
		return b.String()
	}

	b.WriteByte('T')
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute

	if hours > 0 {
		b.WriteString(strconv.FormatInt(int64(hours), 10))
		b.WriteByte('H')
	}
	if minutes > 0 {
		b.WriteString(strconv.FormatInt(int64(minutes), 10))
		b.WriteByte('M')
	}
	if d > 0 {
		secs := strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
		b.WriteString(secs)
		b.WriteByte('S')
	}
	return b.String()
}
