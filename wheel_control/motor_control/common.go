package control

// DriveInterface is the narrow surface the controller needs from the
// physical drive: one actuation command and one state poll. Both are
// fire-and-forget from the control loop's point of view.
type DriveInterface interface {
	// SetDutyCycle ships a normalized duty command in [-1, 1].
	SetDutyCycle(duty float64) error
	// RequestState asks the drive for its next state sample.
	RequestState() error
}

// ClampFloat clamps value between min and max
func ClampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
