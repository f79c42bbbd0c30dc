package framework

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the default cycle period.
const DefaultInterval = 10 * time.Millisecond

// Loop runs registered controllers once per cycle in priority order.
type Loop struct {
	Interval time.Duration

	lock        sync.Mutex
	controllers [PriorityLevels][]Controller
	runners     []Runnable
	tick        uint32

	wakeUpCh chan struct{}
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type cycle struct {
	loop          *Loop
	ctx           context.Context
	time          time.Time
	tick          uint32
	priorityLevel int
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval, wakeUpCh: make(chan struct{}, 1)}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers at a priority level. Controllers
// which are also Runnable are started with the loop.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnable implementions started with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.lock.Lock()
	l.runners = append(l.runners, runnables...)
	l.lock.Unlock()
	return l
}

// Tick returns the count of completed cycles.
func (l *Loop) Tick() uint32 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.tick
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	l.lock.Lock()
	runners := append([]Runnable(nil), l.runners...)
	l.lock.Unlock()
	runner := NewRunnerWith(ctx)
	runner.Go(runners...)
	defer runner.Wait()

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Cycle(ctx)
		case <-l.wakeUpCh:
			l.Cycle(ctx)
		}
	}
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail() {
	if err := l.Run(context.TODO()); err != nil && err != context.Canceled {
		log.Fatalln(err)
	}
}

// TriggerNext schedules a cycle immediately.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// Cycle runs all controllers once. Run calls it periodically, tests and
// simulations may call it directly.
func (l *Loop) Cycle(ctx context.Context) {
	l.lock.Lock()
	l.tick++
	c := &cycle{loop: l, ctx: ctx, time: time.Now(), tick: l.tick}
	var levels [PriorityLevels][]Controller
	for i := range l.controllers {
		levels[i] = l.controllers[i]
	}
	l.lock.Unlock()
	for i, ctls := range levels {
		c.priorityLevel = i
		for _, ctl := range ctls {
			if err := ctl.Control(c); err != nil {
				glog.Errorf("controller error: %v", err)
			}
		}
	}
}

func (c *cycle) Context() context.Context {
	return c.ctx
}

func (c *cycle) Time() time.Time {
	return c.time
}

func (c *cycle) Tick() uint32 {
	return c.tick
}

func (c *cycle) PriorityLevel() int {
	return c.priorityLevel
}

func (c *cycle) TriggerNext() {
	c.loop.TriggerNext()
}
