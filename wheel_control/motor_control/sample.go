package control

// Sample is one decoded state report from the drive. It is a closed set
// of variants; ingestion matches on the concrete type and silently
// ignores kinds it does not handle.
type Sample interface {
	isSample()
}

// ValuesSample carries the drive's periodic state report.
type ValuesSample struct {
	MotorCurrent  float64 // A
	VelocityERPM  float64 // electrical RPM
	PositionCount int32   // hall pulse counter, wraps in hardware
	Duty          float64
	InputVoltage  float64
}

func (ValuesSample) isSample() {}

// FaultSample reports a firmware fault condition. It never feeds the
// control law; the controller only logs it.
type FaultSample struct {
	Code uint8
	Name string
}

func (FaultSample) isSample() {}
