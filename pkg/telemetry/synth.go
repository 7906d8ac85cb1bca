package telemetry

import (
	"errors"
	"fmt"
	"math"
)

const (
	StageOnPad        = "on_pad"
	StageIgnition     = "engine_ignition"
	StageFirstBurn    = "first_stage_burn"
	StageSeparation   = "stage_separation"
	StageSecondBurn   = "second_stage_burn"
	StageOrbitalCoast = "orbital_coast"
)

// MaxSamples caps a single SampleRange call.
const MaxSamples = 2000

const (
	standardGravity     = 9.80665
	ignitionLead        = 3.0
	secondStageExponent = 1.5
	maxQHalfWidth       = 12.0
)

// Sample is one synthesized telemetry snapshot.
type Sample struct {
	MissionTime  float64 `json:"missionTime"`
	Vehicle      string  `json:"vehicle"`
	Altitude     float64 `json:"altitude"`
	Velocity     float64 `json:"velocity"`
	Acceleration float64 `json:"acceleration"`
	GForce       float64 `json:"gForce"`
	Throttle     float64 `json:"throttle"`
	Stage        string  `json:"stage"`
	Propellant   float64 `json:"propellant"`
}

// SampleAt synthesizes telemetry at mission time t for the named vehicle.
// It is a pure function of its arguments.
func SampleAt(t float64, vehicle string) Sample {
	p, _ := LookupProfile(vehicle)
	return p.Sample(t)
}

// Sample synthesizes telemetry at mission time t for this profile.
func (p Profile) Sample(t float64) Sample {
	accel := p.acceleration(t)
	return Sample{
		MissionTime:  t,
		Vehicle:      p.ID,
		Altitude:     round(p.altitude(t), 1),
		Velocity:     round(p.velocity(t), 1),
		Acceleration: round(accel, 2),
		GForce:       round(accel/standardGravity, 2),
		Throttle:     round(p.throttle(t), 1),
		Stage:        p.stage(t),
		Propellant:   round(clamp(p.propellant(t), 0, 100), 1),
	}
}

// SampleRange produces samples at start, start+step, ... up to and including
// end. Each sample is computed independently, so repeated calls with the same
// arguments yield the same sequence.
func SampleRange(start, end, step float64, vehicle string) ([]Sample, error) {
	if math.IsNaN(start) || math.IsNaN(end) || math.IsNaN(step) {
		return nil, errors.New("telemetry range contains NaN")
	}
	if step <= 0 {
		return nil, fmt.Errorf("telemetry step must be positive, got %v", step)
	}
	if end < start {
		return nil, fmt.Errorf("telemetry range end %v before start %v", end, start)
	}
	steps := math.Floor((end - start) / step)
	if steps+1 > MaxSamples {
		return nil, fmt.Errorf("telemetry range yields %.0f samples, max %d", steps+1, MaxSamples)
	}
	count := int(steps) + 1
	p, _ := LookupProfile(vehicle)
	out := make([]Sample, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, p.Sample(start+float64(i)*step))
	}
	return out, nil
}

// altitude is a concave function of the distance flown along the trajectory.
// Its slope with respect to distance starts at 1 (vertical ascent) and falls
// to 0 at SECO, so the climb rate never exceeds the speed. The climb tops out
// at OrbitalAltitude, or at the total distance flown if that is shorter.
func (p Profile) altitude(t float64) float64 {
	total := p.distance(p.SECO)
	if t <= 0 || total <= 0 {
		return 0
	}
	top := math.Min(p.OrbitalAltitude, total)
	x := math.Min(p.distance(t)/total, 1)
	return top * (1 - math.Pow(1-x, total/top))
}

// distance is the integral of velocity from T-0 to t.
func (p Profile) distance(t float64) float64 {
	ignition := p.SecondStageIgnition()
	firstStage := p.SeparationVelocity * p.MECO / (p.FirstStageExponent + 1)
	switch {
	case t <= 0:
		return 0
	case t < p.MECO:
		return firstStage * math.Pow(t/p.MECO, p.FirstStageExponent+1)
	case t < ignition:
		return firstStage + p.SeparationVelocity*(t-p.MECO)
	}
	coast := p.SeparationVelocity * p.SeparationCoast
	span := p.SECO - ignition
	u := math.Min((t-ignition)/span, 1)
	gain := (p.OrbitalVelocity - p.SeparationVelocity) * span / (secondStageExponent + 1) * math.Pow(u, secondStageExponent+1)
	secondStage := p.SeparationVelocity*span*u + gain
	if t <= p.SECO {
		return firstStage + coast + secondStage
	}
	return firstStage + coast + secondStage + p.OrbitalVelocity*(t-p.SECO)
}

func (p Profile) velocity(t float64) float64 {
	ignition := p.SecondStageIgnition()
	switch {
	case t <= 0:
		return 0
	case t < p.MECO:
		return p.SeparationVelocity * math.Pow(t/p.MECO, p.FirstStageExponent)
	case t < ignition:
		return p.SeparationVelocity
	case t < p.SECO:
		u := (t - ignition) / (p.SECO - ignition)
		return p.SeparationVelocity + (p.OrbitalVelocity-p.SeparationVelocity)*math.Pow(u, secondStageExponent)
	default:
		return p.OrbitalVelocity
	}
}

func (p Profile) acceleration(t float64) float64 {
	ignition := p.SecondStageIgnition()
	switch {
	case t <= 0:
		return 0
	case t < p.MECO:
		k := p.FirstStageExponent
		return p.SeparationVelocity * k / p.MECO * math.Pow(t/p.MECO, k-1)
	case t < ignition:
		return 0
	case t < p.SECO:
		span := p.SECO - ignition
		u := (t - ignition) / span
		return (p.OrbitalVelocity - p.SeparationVelocity) * secondStageExponent / span * math.Pow(u, secondStageExponent-1)
	default:
		return 0
	}
}

// throttle dips to MaxQThrottle around max-Q with a cosine-squared bucket.
func (p Profile) throttle(t float64) float64 {
	switch {
	case t < 0, t >= p.SECO:
		return 0
	case t >= p.MECO && t < p.SecondStageIgnition():
		return 0
	}
	d := math.Abs(t - p.MaxQ)
	if d >= maxQHalfWidth {
		return 100
	}
	c := math.Cos(math.Pi * d / (2 * maxQHalfWidth))
	return 100 - (100-p.MaxQThrottle)*c*c
}

// propellant reports the remaining load of the stage currently in use.
func (p Profile) propellant(t float64) float64 {
	ignition := p.SecondStageIgnition()
	burned := 100 - p.ResidualPropellant
	switch {
	case t <= 0:
		return 100
	case t < p.MECO:
		return 100 - burned*t/p.MECO
	case t < ignition:
		return 100
	case t < p.SECO:
		return 100 - burned*(t-ignition)/(p.SECO-ignition)
	default:
		return p.ResidualPropellant
	}
}

func (p Profile) stage(t float64) string {
	switch {
	case t < -ignitionLead:
		return StageOnPad
	case t < 0:
		return StageIgnition
	case t < p.MECO:
		return StageFirstBurn
	case t < p.SecondStageIgnition():
		return StageSeparation
	case t < p.SECO:
		return StageSecondBurn
	default:
		return StageOrbitalCoast
	}
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
