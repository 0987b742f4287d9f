package control

import (
	"errors"
	"math"

	"vesc-drive-core/utils"
)

// velocityEpsilon is the at-rest threshold: commanded velocities below it
// force zero duty and re-arm the position resync.
const velocityEpsilon = 0.0001

// WheelController closes a velocity loop around a single drive using a
// hybrid position/velocity PID. It tracks a continuously advancing target
// pulse count (position-domain error) and substitutes the velocity error
// from the counter-derivative estimator for the classic D term.
//
// All state is owned by the tick goroutine; neither Tick nor UpdateSensor
// is reentrant, and they must not run concurrently.
type WheelController struct {
	cfg   ControllerConfig
	drive DriveInterface
	log   *utils.Logger
	est   VelocityEstimator

	// reset requests a resync of the target to the current count on the
	// next control step. Armed at startup, on pulse discontinuities, and
	// whenever the commanded velocity settles near zero.
	reset bool

	targetVelocity float64 // rad/s, commanded

	targetPulse  float64
	err          float64
	errDt        float64
	errInteg     float64
	errIntegPrev float64

	positionPulse     float64
	prevPositionPulse float64

	positionSens float64 // rad, monotonic accumulator
	velocitySens float64 // rad/s, from the estimator
	effortSens   float64 // Nm
	velocityRPM  float64 // mechanical RPM as reported by the drive
	lastDuty     float64
}

// NewWheelController wires the controller to its drive. A nil drive is
// unrecoverable: there is nothing to actuate, so construction fails and
// the caller is expected to terminate.
func NewWheelController(cfg ControllerConfig, drive DriveInterface, log *utils.Logger) (*WheelController, error) {
	if drive == nil {
		return nil, errors.New("wheel controller requires a drive interface")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &WheelController{
		cfg:   cfg,
		drive: drive,
		log:   log,
		reset: true,
	}

	log.Info("[Motor Gains] P: %f, I: %f, D: %f", cfg.Kp, cfg.Ki, cfg.Kd)
	log.Info("[Motor Gains] I clamp: %f, Antiwindup: %v", cfg.IClamp, cfg.Antiwindup)

	return c, nil
}

// Control runs one step of the velocity loop and emits a duty command.
// currentPulse is the raw hardware counter; reset snaps the target to it
// and clears all accumulated state first.
func (c *WheelController) Control(targetVelocity, currentPulse float64, reset bool) {
	polePairs := float64(c.cfg.MotorPolePairs)
	countDeviationLimit := polePairs

	if reset {
		c.targetPulse = currentPulse
		c.err = 0.0
		c.errDt = 0.0
		c.errInteg = 0.0
		c.errIntegPrev = 0.0
		c.est.Estimate(currentPulse, true)
	} else {
		// convert rad/s to pulse counts per tick
		c.targetPulse += targetVelocity * polePairs / (2 * math.Pi) / c.cfg.ControlRate
	}

	// Keep the target consistent with a hardware counter that wraps.
	if c.targetPulse > float64(math.MaxInt64) {
		c.targetPulse += float64(math.MinInt64)
	} else if c.targetPulse < float64(math.MinInt64) {
		c.targetPulse += float64(math.MaxInt64)
	}

	// Bound how far the target may run ahead of the measured count,
	// independent of the anti-windup below.
	if c.targetPulse-currentPulse > countDeviationLimit {
		c.targetPulse = currentPulse + countDeviationLimit
	} else if c.targetPulse-currentPulse < -countDeviationLimit {
		c.targetPulse = currentPulse - countDeviationLimit
	}

	c.velocitySens = c.est.Estimate(currentPulse, false) * 2.0 * math.Pi / polePairs * c.cfg.ControlRate
	c.errDt = targetVelocity - c.velocitySens
	c.err = c.targetPulse - currentPulse
	c.errIntegPrev = c.errInteg
	c.errInteg += c.err / c.cfg.ControlRate

	duty := c.cfg.Kp*c.err + c.cfg.Ki*c.errInteg + c.cfg.Kd*c.errDt

	if c.cfg.Antiwindup {
		// Conditional integration: while saturated, refuse any integral
		// growth in the saturating direction.
		if duty > c.cfg.DutyLimiter {
			duty = c.cfg.DutyLimiter
			if c.errInteg > c.errIntegPrev {
				c.errInteg = c.errIntegPrev
				duty = c.cfg.Kp*c.err + c.cfg.Ki*c.errInteg + c.cfg.Kd*c.errDt
			}
		} else if duty < -c.cfg.DutyLimiter {
			duty = -c.cfg.DutyLimiter
			if c.errInteg < c.errIntegPrev {
				c.errInteg = c.errIntegPrev
				duty = c.cfg.Kp*c.err + c.cfg.Ki*c.errInteg + c.cfg.Kd*c.errDt
			}
		}
		// The i-term contribution alone is clamped as well.
		if c.cfg.Ki*c.errInteg > c.cfg.IClamp {
			c.errInteg = c.cfg.IClamp / c.cfg.Ki
		} else if c.cfg.Ki*c.errInteg < -c.cfg.IClamp {
			c.errInteg = -c.cfg.IClamp / c.cfg.Ki
		}
	}

	duty = ClampFloat(duty, -c.cfg.DutyLimiter, c.cfg.DutyLimiter)

	// Dead-band: a drive commanded to hold still gets exactly zero, not
	// whatever residual the PID computed.
	if math.Abs(targetVelocity) < velocityEpsilon {
		duty = 0.0
	}

	c.lastDuty = duty
	if err := c.drive.SetDutyCycle(duty); err != nil {
		c.log.Error("set duty cycle failed: %v", err)
	}
}

// Tick is the fixed-rate entry point, invoked once per control period by
// the external scheduler (a real ticker, or a test driving it directly).
func (c *WheelController) Tick() {
	polePairs := float64(c.cfg.MotorPolePairs)

	diff := c.positionPulse - c.prevPositionPulse
	if math.Abs(diff) > polePairs/4 {
		// A jump past a quarter revolution's worth of counts in one tick
		// is a missed sample or counter glitch, not motion. Drop the
		// delta and resynchronize.
		c.log.Warn("pulse discontinuity (%.0f counts), resynchronizing", diff)
		diff = 0
		c.reset = true
	}
	c.positionSens += diff / polePairs * 2.0 * math.Pi

	c.Control(c.targetVelocity, c.positionPulse, c.reset)

	if err := c.drive.RequestState(); err != nil {
		c.log.Error("request state failed: %v", err)
	}

	// At-rest hysteresis: evaluated after the control step, so it
	// governs the next tick. The one-tick delay debounces the
	// stop-to-move transition.
	c.reset = math.Abs(c.targetVelocity) < velocityEpsilon
}

// UpdateSensor ingests one decoded drive sample. Only Values samples
// touch controller state; faults are logged, anything else is ignored.
// Must not run concurrently with Tick.
func (c *WheelController) UpdateSensor(s Sample) {
	switch v := s.(type) {
	case ValuesSample:
		c.velocityRPM = v.VelocityERPM / float64(c.cfg.MotorPolePairs)
		c.prevPositionPulse = c.positionPulse
		c.positionPulse = float64(v.PositionCount)
		c.effortSens = v.MotorCurrent * c.cfg.TorqueConst / c.cfg.GearRatio // unit: Nm or N
	case FaultSample:
		c.log.Warn("drive fault: %s (%d)", v.Name, v.Code)
	default:
		// other sample kinds carry no wheel state
	}
}

// SetTargetVelocity updates the velocity reference (rad/s).
func (c *WheelController) SetTargetVelocity(velocity float64) {
	c.targetVelocity = velocity
}

// SetGains updates the PID gains.
func (c *WheelController) SetGains(kp, ki, kd float64) {
	c.cfg.Kp = kp
	c.cfg.Ki = ki
	c.cfg.Kd = kd
	c.log.Info("Gains set to P: %f, I: %f, D: %f", kp, ki, kd)
}

// SetIClamp updates the integral contribution clamp.
func (c *WheelController) SetIClamp(iClamp float64) {
	c.cfg.IClamp = iClamp
	c.log.Info("I clamp is set to %f", iClamp)
}

// SetDutyLimiter updates the duty output limit.
func (c *WheelController) SetDutyLimiter(limit float64) {
	c.cfg.DutyLimiter = limit
	c.log.Info("Duty limiter is set to %f", limit)
}

// SetAntiwindup enables or disables the anti-windup logic.
func (c *WheelController) SetAntiwindup(enabled bool) {
	c.cfg.Antiwindup = enabled
	c.log.Info("Antiwindup is set to %v", enabled)
}

// SetControlRate updates the control rate (Hz). The external scheduler
// must be reconfigured to match.
func (c *WheelController) SetControlRate(rate float64) {
	c.cfg.ControlRate = rate
	c.log.Info("Control rate is set to %f", rate)
}

// SetGearRatio updates the gear ratio used for effort estimation.
func (c *WheelController) SetGearRatio(gearRatio float64) {
	c.cfg.GearRatio = gearRatio
	c.log.Info("Gear ratio is set to %f", gearRatio)
}

// SetTorqueConst updates the torque constant (Nm/A).
func (c *WheelController) SetTorqueConst(torqueConst float64) {
	c.cfg.TorqueConst = torqueConst
	c.log.Info("Torque constant is set to %f", torqueConst)
}

// SetMotorPolePairs updates the pole-pair count relating pulse counts to
// mechanical revolutions.
func (c *WheelController) SetMotorPolePairs(polePairs int) {
	c.cfg.MotorPolePairs = polePairs
	c.log.Info("The number of motor pole pairs is set to %d", polePairs)
}

// GetPosition returns the accumulated wheel position (rad).
func (c *WheelController) GetPosition() float64 { return c.positionSens }

// GetVelocity returns the estimated wheel velocity (rad/s).
func (c *WheelController) GetVelocity() float64 { return c.velocitySens }

// GetEffort returns the estimated wheel effort (Nm).
func (c *WheelController) GetEffort() float64 { return c.effortSens }

// GetVelocityRPM returns the drive-reported mechanical RPM.
func (c *WheelController) GetVelocityRPM() float64 { return c.velocityRPM }

// GetDuty returns the last emitted duty command.
func (c *WheelController) GetDuty() float64 { return c.lastDuty }

// Diagnostics contains controller internals for monitoring
type Diagnostics struct {
	TargetPulse float64
	Error       float64
	Integral    float64
	P           float64
	I           float64
	D           float64
}

// GetDiagnostics returns current controller state for logging/debugging
func (c *WheelController) GetDiagnostics() Diagnostics {
	return Diagnostics{
		TargetPulse: c.targetPulse,
		Error:       c.err,
		Integral:    c.errInteg,
		P:           c.cfg.Kp * c.err,
		I:           c.cfg.Ki * c.errInteg,
		D:           c.cfg.Kd * c.errDt,
	}
}
