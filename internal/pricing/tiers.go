package pricing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTiers reads a policy such as "24h=100,12h=75,2h=50". An empty string
// yields DefaultTiers.
func ParseTiers(s string) ([]Tier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return append([]Tier(nil), DefaultTiers...), nil
	}
	var tiers []Tier
	for _, part := range strings.Split(s, ",") {
		notice, pct, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTiers, part)
		}
		d, err := time.ParseDuration(strings.TrimSpace(notice))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTiers, part, err)
		}
		p, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimSpace(pct), "%"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTiers, part, err)
		}
		tiers = append(tiers, Tier{MinNotice: d, Percent: p})
	}
	return tiers, nil
}
