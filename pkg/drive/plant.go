package drive

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	fx "github.com/robotalks/omnilink/pkg/framework"
)

// Wheel indices.
const (
	FrontLeft = iota
	FrontRight
	RearLeft
	RearRight
	WheelCount
)

// Geometry of a mecanum chassis.
type Geometry struct {
	// WheelRadius in m.
	WheelRadius float64
	// HalfLength and HalfWidth are the wheel contact offsets from the
	// center in m.
	HalfLength float64
	HalfWidth  float64
}

// Kinematics maps body velocity to wheel speeds and back.
type Kinematics struct {
	geometry Geometry
	inverse  mgl64.Mat4x3
}

// NewKinematics creates Kinematics for a geometry.
func NewKinematics(g Geometry) *Kinematics {
	r, k := g.WheelRadius, g.HalfLength+g.HalfWidth
	return &Kinematics{
		geometry: g,
		inverse: mgl64.Mat4x3FromCols(
			mgl64.Vec4{1, 1, 1, 1}.Mul(1/r),
			mgl64.Vec4{-1, 1, 1, -1}.Mul(1/r),
			mgl64.Vec4{-k, k, -k, k}.Mul(1/r),
		),
	}
}

// WheelSpeeds returns the wheel speeds in rad/s for a body velocity.
func (k *Kinematics) WheelSpeeds(v Velocity) [WheelCount]float64 {
	w := k.inverse.Mul3x1(mgl64.Vec3{float64(v.VX), float64(v.VY), float64(v.Phi)})
	return [WheelCount]float64{w[0], w[1], w[2], w[3]}
}

// BodyVelocity returns the body velocity for wheel speeds, the least
// squares solution when the wheels disagree.
func (k *Kinematics) BodyVelocity(w [WheelCount]float64) Velocity {
	r, l := k.geometry.WheelRadius, k.geometry.HalfLength+k.geometry.HalfWidth
	v := k.inverse.Transpose().Mul4x1(mgl64.Vec4{w[0], w[1], w[2], w[3]})
	return Velocity{
		VX:  float32(v[0] * r * r / 4),
		VY:  float32(v[1] * r * r / 4),
		Phi: float32(v[2] * r * r / (4 * l * l)),
	}
}

// PlantConfig configures a Plant.
type PlantConfig struct {
	Geometry Geometry
	// MaxWheelAccel in rad/s^2 limits how fast wheel speeds follow.
	MaxWheelAccel float64
	// Motor current model in A: Idle + PerSpeed*|w| + PerAccel*|dw/dt|.
	IdleCurrent     float64
	CurrentPerSpeed float64
	CurrentPerAccel float64
	// FullScaleCurrent maps to the top 12-bit code.
	FullScaleCurrent float64
}

// DefaultPlantConfig is a small mecanum rover.
var DefaultPlantConfig = PlantConfig{
	Geometry:         Geometry{WheelRadius: 0.04, HalfLength: 0.1, HalfWidth: 0.12},
	MaxWheelAccel:    60,
	IdleCurrent:      0.05,
	CurrentPerSpeed:  0.02,
	CurrentPerAccel:  0.01,
	FullScaleCurrent: 5,
}

// Plant simulates four acceleration-limited wheel motors following a
// Target.
type Plant struct {
	Config     PlantConfig
	Target     *Target
	kinematics *Kinematics

	lock     sync.Mutex
	speeds   [WheelCount]float64
	accels   [WheelCount]float64
	lastTime time.Time
}

// NewPlant creates a Plant following target.
func NewPlant(conf PlantConfig, target *Target) *Plant {
	return &Plant{Config: conf, Target: target, kinematics: NewKinematics(conf.Geometry)}
}

// AddToLoop implements LoopAdder.
func (p *Plant) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvActuate, p)
}

// Control implements Controller.
func (p *Plant) Control(cc fx.ControlContext) error {
	now := cc.Time()
	p.lock.Lock()
	dt := 0.0
	if !p.lastTime.IsZero() {
		dt = now.Sub(p.lastTime).Seconds()
	}
	p.lastTime = now
	p.lock.Unlock()
	p.Advance(dt)
	return nil
}

// Advance moves the wheel speeds towards the target by dt seconds.
func (p *Plant) Advance(dt float64) {
	desired := p.kinematics.WheelSpeeds(p.Target.Get())
	p.lock.Lock()
	defer p.lock.Unlock()
	for i := range p.speeds {
		diff := desired[i] - p.speeds[i]
		if dt <= 0 {
			p.accels[i] = 0
			continue
		}
		if maxStep := p.Config.MaxWheelAccel * dt; p.Config.MaxWheelAccel > 0 && math.Abs(diff) > maxStep {
			diff = math.Copysign(maxStep, diff)
		}
		p.speeds[i] += diff
		p.accels[i] = diff / dt
	}
}

// MotorSpeeds returns the wheel speeds in rad/s.
func (p *Plant) MotorSpeeds() [WheelCount]float32 {
	p.lock.Lock()
	defer p.lock.Unlock()
	var speeds [WheelCount]float32
	for i, w := range p.speeds {
		speeds[i] = float32(w)
	}
	return speeds
}

// Velocity estimates the body velocity from the wheel speeds.
func (p *Plant) Velocity() Velocity {
	p.lock.Lock()
	speeds := p.speeds
	p.lock.Unlock()
	return p.kinematics.BodyVelocity(speeds)
}

// CurrentCode returns the 12-bit code of the estimated current of a motor.
func (p *Plant) CurrentCode(wheel int) uint16 {
	p.lock.Lock()
	w, a := p.speeds[wheel], p.accels[wheel]
	p.lock.Unlock()
	c := p.Config
	current := c.IdleCurrent + c.CurrentPerSpeed*math.Abs(w) + c.CurrentPerAccel*math.Abs(a)
	if c.FullScaleCurrent <= 0 {
		return 0
	}
	code := math.Round(current / c.FullScaleCurrent * 4095)
	if code > 4095 {
		code = 4095
	}
	return uint16(code)
}

// CurrentSensor is the blocking analog reading of one motor current.
type CurrentSensor struct {
	Plant *Plant
	Wheel int
}

// Read performs a conversion.
func (s CurrentSensor) Read(ctx context.Context) (uint16, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.Plant.CurrentCode(s.Wheel), nil
}

// CurrentSensors returns the current sensors of all motors.
func (p *Plant) CurrentSensors() [WheelCount]CurrentSensor {
	var sensors [WheelCount]CurrentSensor
	for i := range sensors {
		sensors[i] = CurrentSensor{Plant: p, Wheel: i}
	}
	return sensors
}
