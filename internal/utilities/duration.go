package utilities

import (
	"strconv"
	"strings"
	"time"
)

// Parse reads a duration such as "5m" or "250ms". A bare integer is taken
// as seconds.
func Parse(s string) (time.Duration, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return 0, &time.ParseError{Layout: "duration", Value: s, Message: "empty duration"}
	}
	if secs, err := strconv.ParseInt(in, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(in)
}
