package rate_limiter

import (
	"regexp"
	"strconv"
)

var leadingInteger = regexp.MustCompile(`^\s*(-?\d+)`)

type Decision struct {
	Allowed bool   `json:"allowed"`
	Key     string `json:"key"`
	Count   int64  `json:"count"` // value stored after this request, or the blocking value when rejected
	Limit   int    `json:"limit"`
}

func (d Decision) Remaining() int64 {
	if remaining := int64(d.Limit) - d.Count; remaining > 0 {
		return remaining
	}
	return 0
}

// parseCount reads the leading integer of a stored counter, so "3.5" and
// "3abc" both count as 3. Missing, unparseable or negative values are zero.
func parseCount(value string) int64 {
	match := leadingInteger.FindStringSubmatch(value)
	if match == nil {
		return 0
	}
	count, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || count < 0 {
		return 0
	}
	return count
}
