package quote

import "fmt"

// Range is a named historical lookback window. Only the enumerated windows
// are supported; there are no custom date ranges.
type Range string

const (
	Range1D  Range = "1d"
	Range5D  Range = "5d"
	Range1Mo Range = "1mo"
	Range3Mo Range = "3mo"
	Range6Mo Range = "6mo"
	Range1Y  Range = "1y"
)

var rangeDays = map[Range]int{
	Range1D:  1,
	Range5D:  5,
	Range1Mo: 30,
	Range3Mo: 90,
	Range6Mo: 180,
	Range1Y:  365,
}

// ParseRange validates a range name.
func ParseRange(s string) (Range, error) {
	r := Range(s)
	if _, ok := rangeDays[r]; !ok {
		return "", fmt.Errorf("unknown range %q", s)
	}
	return r, nil
}

// Days is the lookback duration in calendar days.
func (r Range) Days() int { return rangeDays[r] }

// Points is the number of points in a full series for this range,
// one per calendar day, inclusive of today.
func (r Range) Points() int { return rangeDays[r] + 1 }
