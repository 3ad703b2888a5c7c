package core

// DeltaTime wraps an elapsed duration in seconds. It is built fresh for every
// callback and never mutated.
type DeltaTime struct {
	seconds float64
}

func NewDeltaTime(seconds float64) DeltaTime {
	return DeltaTime{seconds: seconds}
}

// Seconds returns the elapsed time, clamped to be non-negative.
func (d DeltaTime) Seconds() float64 {
	if d.seconds < 0 {
		return 0
	}
	return d.seconds
}

func (d DeltaTime) Milliseconds() float64 {
	return d.Seconds() * 1000.0
}

func (d DeltaTime) Microseconds() float64 {
	return d.Seconds() * 1_000_000.0
}
