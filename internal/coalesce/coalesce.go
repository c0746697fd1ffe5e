// Package coalesce replaces periodic UI refresh with event-driven batching:
// registry events are collapsed per lane inside tiered micro-grace windows,
// and every publish regenerates state from the live snapshot.
package coalesce

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bronvakt/bronvakt/internal/bridges"
	"github.com/bronvakt/bronvakt/internal/clock"
	"github.com/bronvakt/bronvakt/internal/domain"
)

// Significance tiers and their micro-grace windows.
type Significance int

const (
	SigImmediate Significance = iota // under-bridge, final passed
	SigHigh                          // critical status changes
	SigModerate                      // vessel add/remove, ETA change
	SigLow                           // background refresh
)

const (
	graceHigh       = 15 * time.Millisecond
	graceHighJoined = 10 * time.Millisecond // tightened when joining a batch
	graceModerate   = 25 * time.Millisecond
	graceLow        = 40 * time.Millisecond

	watchdogInterval = 90 * time.Second
)

// GlobalLane is used when relevant vessels do not share a single target.
const GlobalLane = "global"

// LaneFor maps a vessel event onto its batching lane.
func LaneFor(ev domain.Event) string {
	if ev.Vessel.TargetBridge == bridges.Klaffbron || ev.Vessel.TargetBridge == bridges.Stridsbergsbron {
		return ev.Vessel.TargetBridge
	}
	return GlobalLane
}

// SignificanceFor classifies a registry event.
func SignificanceFor(ev domain.Event) Significance {
	switch ev.Kind {
	case domain.VesselStatusChanged:
		switch ev.Vessel.Status {
		case domain.StatusUnderBridge, domain.StatusPassed:
			return SigImmediate
		default:
			return SigHigh
		}
	case domain.VesselEntered, domain.VesselRemoved:
		return SigModerate
	case domain.GPSHoldSet, domain.GPSJumpDetected:
		return SigModerate
	default:
		return SigLow
	}
}

func grace(sig Significance, joining bool) time.Duration {
	switch sig {
	case SigImmediate:
		return 0
	case SigHigh:
		if joining {
			return graceHighJoined
		}
		return graceHigh
	case SigModerate:
		return graceModerate
	default:
		return graceLow
	}
}

type laneState int

const (
	laneIdle laneState = iota
	laneScheduled
	lanePublishing
)

type lane struct {
	state     laneState
	version   uint64 // bumped on every event
	published uint64 // version covered by the last publish
	scheduled uint64 // version the pending timer was armed for
	deadline  time.Time
	timer     clock.Timer
	rerun     bool
}

// Coalescer owns the lane timers and version counters. The publish callback
// must regenerate everything it sends from current state; strings are never
// merged.
type Coalescer struct {
	clk        clock.Clock
	publish    func()
	hasVessels func() bool

	mu          sync.Mutex
	lanes       map[string]*lane
	lastPublish time.Time
	watchdog    clock.Timer
	stopped     bool
}

func New(clk clock.Clock, publish func(), hasVessels func() bool) *Coalescer {
	return &Coalescer{
		clk:        clk,
		publish:    publish,
		hasVessels: hasVessels,
		lanes:      make(map[string]*lane),
	}
}

// Start arms the watchdog.
func (c *Coalescer) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPublish = c.clk.Now()
	c.armWatchdogLocked()
}

// Stop cancels all timers. Idempotent.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.watchdog != nil {
		c.watchdog.Stop()
	}
	for _, l := range c.lanes {
		if l.timer != nil {
			l.timer.Stop()
		}
	}
}

// Notify records an event on a lane and (re)schedules its publish.
func (c *Coalescer) Notify(laneKey string, sig Significance) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	l := c.lanes[laneKey]
	if l == nil {
		l = &lane{}
		c.lanes[laneKey] = l
	}
	l.version++

	switch l.state {
	case lanePublishing:
		// In-flight protection: remember to run again once done.
		l.rerun = true
		c.mu.Unlock()
		return
	case laneScheduled:
		// Joining an existing batch: high significance may preempt the
		// window down to its tightened grace.
		d := grace(sig, true)
		newDeadline := c.clk.Now().Add(d)
		if newDeadline.Before(l.deadline) {
			if l.timer != nil {
				l.timer.Stop()
			}
			l.deadline = newDeadline
			l.scheduled = l.version
			l.timer = c.clk.AfterFunc(d, func() { c.fire(laneKey) })
		} else {
			l.scheduled = l.version
		}
		c.mu.Unlock()
		return
	}

	d := grace(sig, false)
	l.state = laneScheduled
	l.scheduled = l.version
	l.deadline = c.clk.Now().Add(d)
	l.timer = c.clk.AfterFunc(d, func() { c.fire(laneKey) })
	c.mu.Unlock()
}

func (c *Coalescer) fire(laneKey string) {
	c.mu.Lock()
	l := c.lanes[laneKey]
	if l == nil || c.stopped {
		c.mu.Unlock()
		return
	}
	// Stale schedule: a later publish already covered this version.
	if l.published >= l.scheduled && l.version == l.published {
		l.state = laneIdle
		c.mu.Unlock()
		return
	}
	l.state = lanePublishing
	version := l.version
	c.mu.Unlock()

	c.publish()

	c.mu.Lock()
	c.lastPublish = c.clk.Now()
	l.published = version
	if l.rerun || l.version > version {
		// Events arrived during the publish; run again shortly.
		l.rerun = false
		l.state = laneScheduled
		l.scheduled = l.version
		l.deadline = c.clk.Now().Add(graceModerate)
		l.timer = c.clk.AfterFunc(graceModerate, func() { c.fire(laneKey) })
	} else {
		l.state = laneIdle
	}
	c.mu.Unlock()
}

func (c *Coalescer) armWatchdogLocked() {
	if c.stopped {
		return
	}
	c.watchdog = c.clk.AfterFunc(watchdogInterval, func() {
		c.mu.Lock()
		idle := c.clk.Now().Sub(c.lastPublish) >= watchdogInterval
		starving := idle && c.hasVessels != nil && c.hasVessels()
		c.armWatchdogLocked()
		c.mu.Unlock()
		if starving {
			slog.Debug("coalescer watchdog refresh")
			c.Notify(GlobalLane, SigLow)
		}
	})
}
