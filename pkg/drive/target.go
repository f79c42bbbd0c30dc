// Package drive holds the velocity target of the drive node and a
// simulated four-wheel mecanum plant which follows it.
package drive

import (
	"fmt"
	"sync"
)

// Velocity is a body velocity: vx, vy in m/s and phi in rad/s.
type Velocity struct {
	VX, VY, Phi float32
}

// String implements Stringer.
func (v Velocity) String() string {
	return fmt.Sprintf("vx=%.3f vy=%.3f phi=%.3f", v.VX, v.VY, v.Phi)
}

// Target is the velocity target shared between the command interpreter
// and the drive loop.
type Target struct {
	lock sync.RWMutex
	v    Velocity
}

// Set replaces the target.
func (t *Target) Set(v Velocity) {
	t.lock.Lock()
	t.v = v
	t.lock.Unlock()
}

// Get returns the target.
func (t *Target) Get() Velocity {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.v
}
