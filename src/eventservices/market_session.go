package eventservices

import (
	"time"

	log "github.com/sirupsen/logrus"
)

type MarketSessionPhase string

const (
	MarketSessionWeekend  MarketSessionPhase = "weekend"
	MarketSessionCore     MarketSessionPhase = "core"
	MarketSessionExtended MarketSessionPhase = "extended"
	MarketSessionClosed   MarketSessionPhase = "closed"
)

// MarketSessionClock classifies the current exchange session phase and
// derives the default cache TTL from it. All boundaries are evaluated in
// exchange time (America/New_York).
type MarketSessionClock struct {
	location *time.Location

	// Now is swappable so tests can pin the clock.
	Now func() time.Time
}

func NewMarketSessionClock() *MarketSessionClock {
	location, err := time.LoadLocation("America/New_York")
	if err != nil {
		log.Fatalf("failed to load location America/New_York: %v", err)
	}

	return &MarketSessionClock{
		location: location,
		Now:      time.Now,
	}
}

func (c *MarketSessionClock) Phase(t time.Time) MarketSessionPhase {
	local := t.In(c.location)

	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return MarketSessionWeekend
	}

	minutes := local.Hour()*60 + local.Minute()

	// core 09:30-16:00, extended 16:00-20:00
	switch {
	case minutes >= 9*60+30 && minutes < 16*60:
		return MarketSessionCore
	case minutes >= 16*60 && minutes < 20*60:
		return MarketSessionExtended
	default:
		return MarketSessionClosed
	}
}

// DefaultTTL returns the cache TTL for the current session phase. Quotes are
// stalest-tolerable on weekends and churn fastest during core hours.
func (c *MarketSessionClock) DefaultTTL() time.Duration {
	switch c.Phase(c.Now()) {
	case MarketSessionWeekend:
		return 300 * time.Second
	case MarketSessionCore:
		return 60 * time.Second
	case MarketSessionExtended:
		return 120 * time.Second
	default:
		return 180 * time.Second
	}
}
