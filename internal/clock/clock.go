package clock

import (
	"time"

	"github.com/smallbiznis/autobazaar/internal/config"
	"go.uber.org/fx"
)

// Clock abstracts wall-clock reads so expiry and refresh decisions can be tested.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	loc *time.Location
}

func NewSystemClock(loc *time.Location) *SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return &SystemClock{loc: loc}
}

func (c *SystemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *SystemClock) Location() *time.Location {
	return c.loc
}

var Module = fx.Module("clock",
	fx.Provide(
		fx.Annotate(provideSystemClock, fx.As(new(Clock))),
	),
)

func provideSystemClock(cfg config.Config) *SystemClock {
	return NewSystemClock(cfg.Location())
}
