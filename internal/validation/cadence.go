package validation

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// ParseCadence parses a reminder cadence such as "1,3,7" into sorted,
// de-duplicated day offsets between 1 and 60.
func ParseCadence(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	seen := make(map[int]bool, len(parts))
	var days []int

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 60 {
			return nil, errors.New("cadence entries must be whole days between 1 and 60")
		}
		if !seen[n] {
			seen[n] = true
			days = append(days, n)
		}
	}

	if len(days) == 0 {
		return nil, errors.New("cadence must contain at least one day")
	}

	sort.Ints(days)
	return days, nil
}
