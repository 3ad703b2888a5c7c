package core

const (
	// Fixed simulation step, in seconds.
	DefaultPhysicsStep float64 = 1.0 / 60.0
	// Upper bound of steps taken by a single Advance call.
	DefaultMaxPhysicsSteps int = 10
)

// PhysicsAccumulator banks elapsed wall time and spends it in fixed steps.
//
// When an Advance call hits the step cap the carry can stay above one step;
// that backlog is kept for the next call rather than simulated at once.
type PhysicsAccumulator struct {
	step     float64
	maxSteps int
	carry    float64
}

func NewPhysicsAccumulator(step float64, maxSteps int) *PhysicsAccumulator {
	if step <= 0 {
		step = DefaultPhysicsStep
	}
	if maxSteps <= 0 {
		maxSteps = DefaultMaxPhysicsSteps
	}
	return &PhysicsAccumulator{
		step:     step,
		maxSteps: maxSteps,
	}
}

// Advance adds elapsed seconds to the carry and runs fn once per consumed
// step, with a DeltaTime of exactly one step. It returns the number of steps.
func (p *PhysicsAccumulator) Advance(elapsed float64, fn func(dt DeltaTime)) int {
	if elapsed > 0 {
		p.carry += elapsed
	}
	steps := 0
	for p.carry > p.step && steps < p.maxSteps {
		p.carry -= p.step
		fn(NewDeltaTime(p.step))
		steps++
	}
	return steps
}

// Carry returns the simulation time not yet consumed.
func (p *PhysicsAccumulator) Carry() float64 {
	return p.carry
}

func (p *PhysicsAccumulator) Step() float64 {
	return p.step
}

func (p *PhysicsAccumulator) MaxSteps() int {
	return p.maxSteps
}
