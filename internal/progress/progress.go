// Package progress parses worker progress messages into unit counts.
package progress

import (
	"regexp"
	"strconv"
)

var pattern = regexp.MustCompile(`Progress: (\d+)/(\d+)`)

// Parse extracts the completed/total pair from a message of the form
// "Progress: <completed>/<total>". ok is false when the message does not
// match; callers treat such messages as plain log lines.
func Parse(message string) (completed, total int, ok bool) {
	m := pattern.FindStringSubmatch(message)
	if m == nil {
		return 0, 0, false
	}
	completed, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	total, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return completed, total, true
}
