package video

import (
	"regexp"
	"strconv"
)

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISO8601Duration converts durations like PT1H2M3S to seconds. The
// second return value is false for anything that is not a duration.
func ParseISO8601Duration(d string) (int, bool) {
	if d == "" || d == "P" || d == "PT" {
		return 0, false
	}
	m := isoDuration.FindStringSubmatch(d)
	if m == nil {
		return 0, false
	}

	var parts [4]int
	for i := range parts {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, false
		}
		parts[i] = n
	}
	return parts[0]*86400 + parts[1]*3600 + parts[2]*60 + parts[3], true
}
