package grading

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Band maps a minimum percentage to a letter grade.
type Band struct {
	Letter     string
	MinPercent float64
}

// Scale converts a percentage into a letter grade and pass/fail flag.
// The thresholds are institution policy, supplied by configuration.
type Scale struct {
	Bands       []Band // sorted by MinPercent descending
	PassPercent float64
}

// DefaultScale is a conventional A-F scale with a 60% pass mark.
func DefaultScale() Scale {
	return Scale{
		Bands: []Band{
			{Letter: "A", MinPercent: 90},
			{Letter: "B", MinPercent: 80},
			{Letter: "C", MinPercent: 70},
			{Letter: "D", MinPercent: 60},
			{Letter: "F", MinPercent: 0},
		},
		PassPercent: 60,
	}
}

// ParseScale reads a spec like "A:90,B:80,C:70,D:60,F:0".
func ParseScale(spec string, passPercent float64) (Scale, error) {
	var bands []Band
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return Scale{}, fmt.Errorf("bad grade band %q", part)
		}
		min, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return Scale{}, fmt.Errorf("bad grade band %q: %w", part, err)
		}
		bands = append(bands, Band{Letter: strings.TrimSpace(kv[0]), MinPercent: min})
	}
	if len(bands) == 0 {
		return Scale{}, fmt.Errorf("empty grade scale %q", spec)
	}
	sort.Slice(bands, func(i, j int) bool { return bands[i].MinPercent > bands[j].MinPercent })
	return Scale{Bands: bands, PassPercent: passPercent}, nil
}

func (s Scale) Letter(pct float64) string {
	for _, b := range s.Bands {
		if pct >= b.MinPercent {
			return b.Letter
		}
	}
	if n := len(s.Bands); n > 0 {
		return s.Bands[n-1].Letter
	}
	return ""
}

func (s Scale) Passed(pct float64) bool { return pct >= s.PassPercent }
