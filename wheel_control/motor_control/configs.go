package control

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ControllerConfig holds the wheel controller parameters. Immutable once
// handed to the controller; the dedicated setters rebuild derived state.
type ControllerConfig struct {
	Kp             float64 `yaml:"kp" json:"kp"`
	Ki             float64 `yaml:"ki" json:"ki"`
	Kd             float64 `yaml:"kd" json:"kd"`
	IClamp         float64 `yaml:"i_clamp" json:"i_clamp"`
	DutyLimiter    float64 `yaml:"duty_limiter" json:"duty_limiter"`
	Antiwindup     bool    `yaml:"antiwindup" json:"antiwindup"`
	ControlRate    float64 `yaml:"control_rate" json:"control_rate"` // Hz
	MotorPolePairs int     `yaml:"motor_pole_pairs" json:"motor_pole_pairs"`
	GearRatio      float64 `yaml:"gear_ratio" json:"gear_ratio"`
	TorqueConst    float64 `yaml:"torque_const" json:"torque_const"` // Nm/A
}

// DefaultControllerConfig returns the stock motor gains.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Kp:             0.005,
		Ki:             0.005,
		Kd:             0.0025,
		IClamp:         0.2,
		DutyLimiter:    1.0,
		Antiwindup:     true,
		ControlRate:    50.0,
		MotorPolePairs: 7,
		GearRatio:      1.0,
		TorqueConst:    1.0,
	}
}

// LoadControllerConfig reads parameters from a YAML file. Keys absent
// from the file keep their defaults.
func LoadControllerConfig(path string) (ControllerConfig, error) {
	cfg := DefaultControllerConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return ControllerConfig{}, fmt.Errorf("read motor config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ControllerConfig{}, fmt.Errorf("parse motor config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return ControllerConfig{}, err
	}
	return cfg, nil
}

func (c ControllerConfig) Validate() error {
	if c.ControlRate <= 0 {
		return fmt.Errorf("invalid control_rate: %f", c.ControlRate)
	}
	if c.MotorPolePairs <= 0 {
		return fmt.Errorf("invalid motor_pole_pairs: %d", c.MotorPolePairs)
	}
	if c.DutyLimiter <= 0 || c.DutyLimiter > 1.0 {
		return fmt.Errorf("invalid duty_limiter: %f", c.DutyLimiter)
	}
	if c.GearRatio <= 0 {
		return fmt.Errorf("invalid gear_ratio: %f", c.GearRatio)
	}
	return nil
}
