// Package assembler builds command and telemetry packets once per
// control cycle and hands them to the link.
package assembler

// Mapper maps a converter code to a signed magnitude with a dead band
// around the center.
type Mapper struct {
	Center    float32
	FullScale float32
	DeadZone  float32
}

// DefaultMapper fits a 12-bit converter.
var DefaultMapper = Mapper{Center: 2048, FullScale: 4095, DeadZone: 150}

// Map maps raw to [-maxMagnitude, maxMagnitude]. Codes inside the dead
// band map to 0, outside it the value grows linearly from the band edge
// to the rail.
func (m Mapper) Map(raw uint32, maxMagnitude float32, invert bool) float32 {
	val := float32(raw)
	upper, lower := m.Center+m.DeadZone, m.Center-m.DeadZone
	var r float32
	switch {
	case val > upper:
		r = (val - upper) / (m.FullScale - upper)
	case val < lower:
		r = (val - lower) / lower
	default:
		return 0
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	r *= maxMagnitude
	if invert {
		r = -r
	}
	return r
}
