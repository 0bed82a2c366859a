// Package metrics tracks the relay's six monotonic request counters and
// renders them in the plain-text exposition format served at
// /_tcrelay/metrics. Counters use relaxed atomic semantics: no ordering
// is guaranteed or required across counters.
package metrics

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// Counters holds the six independently-advanced request counters.
type Counters struct {
	requests atomic.Uint64
	hits     atomic.Uint64
	misses   atomic.Uint64
	cached   atomic.Uint64
	deletes  atomic.Uint64
	notFound atomic.Uint64
}

// New returns a zeroed set of counters.
func New() *Counters {
	return &Counters{}
}

func (c *Counters) IncRequests() { c.requests.Add(1) }
func (c *Counters) IncHits()     { c.hits.Add(1) }
func (c *Counters) IncMisses()   { c.misses.Add(1) }
func (c *Counters) IncCached()   { c.cached.Add(1) }
func (c *Counters) IncDeletes()  { c.deletes.Add(1) }
func (c *Counters) IncNotFound() { c.notFound.Add(1) }

// Render produces the exact exposition text:
//
//	requests <n>
//	hits <n>
//	misses <n>
//	cached <n>
//	deletes <n>
//	not_found <n>
//
// each line terminated by a single LF.
func (c *Counters) Render() string {
	var b strings.Builder
	line := func(name string, v uint64) {
		b.WriteString(name)
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(v, 10))
		b.WriteByte('\n')
	}
	line("requests", c.requests.Load())
	line("hits", c.hits.Load())
	line("misses", c.misses.Load())
	line("cached", c.cached.Load())
	line("deletes", c.deletes.Load())
	line("not_found", c.notFound.Load())
	return b.String()
}
