package main

import (
	"context"
	"fmt"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"

	"vesc-drive-core/utils"
	control "vesc-drive-core/wheel_control/motor_control"
)

type RunnerConfig struct {
	Transport    string // "serial" or "can"
	Port         string
	BaudRate     int
	Interface    string
	MapPath      string
	MotorPath    string
	ScenarioPath string
}

type Runner struct {
	cfg       RunnerConfig
	log       *utils.Logger
	scen      Scenario
	motorCfg  control.ControllerConfig
	transport DriveTransport
	ctrl      *control.WheelController
}

func NewRunner(ctx context.Context, cfg RunnerConfig, log *utils.Logger) (*Runner, error) {
	motorCfg, err := control.LoadControllerConfig(cfg.MotorPath)
	if err != nil {
		return nil, fmt.Errorf("load motor config: %w", err)
	}

	scen, err := LoadScenario(cfg.ScenarioPath)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}

	var transport DriveTransport
	switch cfg.Transport {
	case "serial":
		transport, err = NewSerialTransport(cfg.Port, cfg.BaudRate, log.Named("serial"))
	case "can":
		transport, err = NewCANTransport(ctx, cfg.Interface, cfg.MapPath, log.Named("can"))
	default:
		return nil, fmt.Errorf("unknown transport %q (want serial or can)", cfg.Transport)
	}
	if err != nil {
		return nil, err
	}

	// A controller without a drive is unrecoverable; the caller exits.
	ctrl, err := control.NewWheelController(motorCfg, transport, log.Named("wheel_control"))
	if err != nil {
		_ = transport.Close()
		return nil, err
	}

	return &Runner{
		cfg:       cfg,
		log:       log,
		scen:      scen,
		motorCfg:  motorCfg,
		transport: transport,
		ctrl:      ctrl,
	}, nil
}

func (r *Runner) Close() {
	if r.transport != nil {
		_ = r.transport.Close()
	}
}

func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("Starting control loop: scenario=%s duration=%.2fs rate=%.1fHz pole_pairs=%d transport=%s",
		r.scen.Meta.Name, r.scen.Timing.DurationS, r.motorCfg.ControlRate,
		r.motorCfg.MotorPolePairs, r.cfg.Transport)

	period := time.Duration(float64(time.Second) / r.motorCfg.ControlRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	start := time.Now()
	endAfter := time.Duration(r.scen.Timing.DurationS * float64(time.Second))

	// RX goroutine decodes transport traffic; all controller state stays
	// owned by this loop.
	rxChan := make(chan control.Sample, 100)
	rxErr := make(chan error, 1)
	go func() {
		rxErr <- r.transport.Run(ctx, rxChan)
	}()

	velocityAvg := movingaverage.New(6)
	lastRxTime := time.Now()
	var ticks uint64

	for {
		select {
		case <-ctx.Done():
			r.log.Warn("Context canceled; stopping control loop")
			r.stopDrive()
			r.log.Info("Completed run. ticks=%d", ticks)
			return ctx.Err()

		case err := <-rxErr:
			if err != nil {
				r.stopDrive()
				return fmt.Errorf("drive feed: %w", err)
			}

		case sample := <-rxChan:
			// Ingest before the next control step reads the pulse count.
			r.ctrl.UpdateSensor(sample)
			lastRxTime = time.Now()

		case now := <-ticker.C:
			elapsed := now.Sub(start)
			if elapsed > endAfter {
				r.stopDrive()
				r.log.Info("Completed run. ticks=%d", ticks)
				return nil
			}

			rxAge := now.Sub(lastRxTime)
			if rxAge > 500*time.Millisecond {
				r.log.Warn("No drive feedback for %.1f ms", rxAge.Seconds()*1000)
			}

			target := EvalTargetVelocity(&r.scen, elapsed.Seconds())
			r.ctrl.SetTargetVelocity(target)
			r.ctrl.Tick()
			ticks++

			velocityAvg.Add(r.ctrl.GetVelocity())
			if ticks%uint64(r.scen.Timing.LogEveryN) == 0 {
				diag := r.ctrl.GetDiagnostics()
				r.log.Debug("t=%.2f target=%.2f vel=%.2f (avg %.2f) duty=%.3f err=%.3f P=%.4f I=%.4f D=%.4f effort=%.2f",
					elapsed.Seconds(), target, r.ctrl.GetVelocity(), velocityAvg.Avg(),
					r.ctrl.GetDuty(), diag.Error, diag.P, diag.I, diag.D, r.ctrl.GetEffort())
			}
		}
	}
}

// stopDrive commands zero duty so the wheel is never left spinning after
// the loop exits.
func (r *Runner) stopDrive() {
	if err := r.transport.SetDutyCycle(0.0); err != nil {
		r.log.Error("stop drive: %v", err)
	}
}
