package lazyload

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abihf/lazy-loader/query"
)

// ErrInvalidPriority is returned when parsing an unknown priority name.
var ErrInvalidPriority = errors.New("lazyload: invalid priority")

// Priority decides how long a query waits before it may fetch and which cache
// policy it gets. The zero value is PriorityMedium.
type Priority uint8

const (
	PriorityMedium Priority = iota
	PriorityHigh
	PriorityLow
)

// Priorities returns every tier from the most to the least urgent.
func Priorities() []Priority {
	return []Priority{PriorityHigh, PriorityMedium, PriorityLow}
}

var (
	priorityNames = map[Priority]string{
		PriorityHigh:   "high",
		PriorityMedium: "medium",
		PriorityLow:    "low",
	}

	priorityDelays = map[Priority]time.Duration{
		PriorityHigh:   0,
		PriorityMedium: 100 * time.Millisecond,
		PriorityLow:    300 * time.Millisecond,
	}
)

// ParsePriority parses "high", "medium" or "low", ignoring case.
func ParsePriority(s string) (Priority, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for p, n := range priorityNames {
		if n == name {
			return p, nil
		}
	}
	return PriorityMedium, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Priority(%d)", uint8(p))
}

func (p Priority) IsValid() bool {
	_, ok := priorityNames[p]
	return ok
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPriority, uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Delay is the base wait before a query of this tier is enabled. Unknown
// values behave like PriorityMedium.
func (p Priority) Delay() time.Duration {
	if d, ok := priorityDelays[p]; ok {
		return d
	}
	return priorityDelays[PriorityMedium]
}

// CachePolicy is the cache configuration a tier applies to its queries.
type CachePolicy struct {
	StaleTime      time.Duration
	Retry          int
	RefetchOnFocus bool
}

// Policy returns the cache policy of the tier. High priority data goes stale
// after a minute, retries three times and refetches on focus; everything else
// stays fresh for five minutes and retries once.
func (p Priority) Policy() CachePolicy {
	if p == PriorityHigh {
		return CachePolicy{
			StaleTime:      time.Minute,
			Retry:          3,
			RefetchOnFocus: true,
		}
	}
	return CachePolicy{
		StaleTime: 5 * time.Minute,
		Retry:     1,
	}
}

// Options converts the policy to observer options.
func (c CachePolicy) Options(enabled bool) query.Options {
	return query.Options{
		Enabled:              enabled,
		StaleTime:            c.StaleTime,
		Retry:                c.Retry,
		RefetchOnWindowFocus: c.RefetchOnFocus,
	}
}
