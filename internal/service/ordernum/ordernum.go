// Package ordernum produces the short human-facing order number, a
// token a customer can read over a phone call, distinct from the
// primary key.
package ordernum

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const defaultPrefix = "NVS"

// Generator derives order numbers from a monotonic clock: a fixed
// prefix plus the last six digits of unix milliseconds. Collisions in
// the same millisecond window are possible but tolerated; the store's
// unique index catches the rare hit.
type Generator struct {
	prefix string
	now    func() time.Time
}

type option func(*Generator)

// WithClock injects the time source, for deterministic tests.
func WithClock(now func() time.Time) option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithPrefix overrides the configured prefix.
func WithPrefix(prefix string) option {
	return func(g *Generator) {
		g.prefix = prefix
	}
}

// NewGenerator builds a generator with the configured prefix.
func NewGenerator(opts ...option) *Generator {
	prefix := viper.GetString("orders.number_prefix")
	if prefix == "" {
		prefix = defaultPrefix
	}

	g := &Generator{
		prefix: prefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Next returns a fresh order number. Generated exactly once per order
// at creation; never regenerated by updates.
func (g *Generator) Next() string {
	return fmt.Sprintf("%s%06d", g.prefix, g.now().UnixMilli()%1_000_000)
}
