package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// Scenario defines a velocity command profile for a run
type Scenario struct {
	Meta     ScenarioMeta      `json:"meta"`
	Timing   ScenarioTiming    `json:"timing"`
	Defaults VelocityCmd       `json:"defaults"`
	Segments []ScenarioSegment `json:"segments"`
}

// ScenarioMeta contains scenario metadata
type ScenarioMeta struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	Description string `json:"description"`
}

// ScenarioTiming defines timing parameters
type ScenarioTiming struct {
	DurationS float64 `json:"duration_s"`
	LogEveryN int     `json:"log_every_n,omitempty"`
}

// ScenarioSegment holds the commanded velocity for a time window
type ScenarioSegment struct {
	T0            float64 `json:"t0"`
	T1            float64 `json:"t1"`
	VelocityRadPS float64 `json:"velocity_radps"`
	Comment       string  `json:"comment,omitempty"`
}

// VelocityCmd is the command applied outside any segment
type VelocityCmd struct {
	VelocityRadPS float64 `json:"velocity_radps"`
}

// LoadScenario loads a scenario from JSON file
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read file: %w", err)
	}

	var scen Scenario
	if err := json.Unmarshal(data, &scen); err != nil {
		return Scenario{}, fmt.Errorf("unmarshal: %w", err)
	}

	if scen.Timing.DurationS <= 0 {
		return Scenario{}, fmt.Errorf("invalid duration_s: %f", scen.Timing.DurationS)
	}
	if scen.Timing.LogEveryN <= 0 {
		scen.Timing.LogEveryN = 100
	}
	for i, seg := range scen.Segments {
		if seg.T1 >= 0 && seg.T1 < seg.T0 {
			return Scenario{}, fmt.Errorf("segment %d: t1 %f before t0 %f", i, seg.T1, seg.T0)
		}
	}

	return scen, nil
}

// EvalTargetVelocity evaluates the scenario at time t and returns the
// commanded velocity in rad/s
func EvalTargetVelocity(scen *Scenario, t float64) float64 {
	for _, seg := range scen.Segments {
		t1 := seg.T1
		if t1 < 0 {
			t1 = scen.Timing.DurationS
		}
		if t >= seg.T0 && t < t1 {
			return seg.VelocityRadPS
		}
	}
	return scen.Defaults.VelocityRadPS
}
