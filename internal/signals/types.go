package signals

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Layer identifies the measurement layer a signal came from
type Layer string

const (
	LayerDeterministic Layer = "deterministic"
	LayerPerceptual    Layer = "perceptual"
	LayerCognitive     Layer = "cognitive"
)

// Layers lists every layer in precedence order. A later layer wins when two
// layers supply the same signal name.
var Layers = []Layer{LayerDeterministic, LayerPerceptual, LayerCognitive}

// Valid reports whether l is one of the known layers
func (l Layer) Valid() bool {
	switch l {
	case LayerDeterministic, LayerPerceptual, LayerCognitive:
		return true
	}
	return false
}

const (
	UnitScore   = "score"
	UnitBoolean = "boolean"
)

// Reading is one raw measurement as delivered by a collaborator. It decodes
// from either a bare number/bool or an object with value, unit and confidence.
type Reading struct {
	Value      float64 `json:"value" yaml:"value"`
	Unit       string  `json:"unit,omitempty" yaml:"unit,omitempty"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Bare returns a reading with full confidence and the default unit
func Bare(v float64) Reading {
	return Reading{Value: v, Unit: UnitScore, Confidence: 1.0}
}

// UnmarshalJSON accepts 42, true, or {"value": 42, "unit": "px", "confidence": 0.8}
func (r *Reading) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("empty signal reading")
	}

	if data[0] != '{' {
		v, err := decodeScalar(data)
		if err != nil {
			return err
		}
		*r = Bare(v)
		return nil
	}

	var raw struct {
		Value      json.RawMessage `json:"value"`
		Unit       string          `json:"unit"`
		Confidence *float64        `json:"confidence"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid signal reading: %w", err)
	}
	if len(raw.Value) == 0 {
		return fmt.Errorf("signal reading has no value")
	}

	v, err := decodeScalar(raw.Value)
	if err != nil {
		return err
	}

	r.Value = v
	r.Unit = raw.Unit
	if r.Unit == "" {
		r.Unit = UnitScore
	}
	r.Confidence = 1.0
	if raw.Confidence != nil {
		r.Confidence = *raw.Confidence
	}
	return nil
}

func decodeScalar(data []byte) (float64, error) {
	switch string(data) {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("signal value must be numeric or boolean: %w", err)
	}
	return v, nil
}

// Signal is a normalized, immutable measurement of one aspect of a creative
type Signal struct {
	Name       string  `json:"name" yaml:"name"`
	Value      float64 `json:"value" yaml:"value"`
	Layer      Layer   `json:"layer" yaml:"layer"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Unit       string  `json:"unit" yaml:"unit"`
}

// LayerReadings maps signal name to reading for a single layer
type LayerReadings map[string]Reading

// Input carries the raw readings of all three layers
type Input struct {
	Deterministic LayerReadings `json:"deterministic,omitempty" yaml:"deterministic,omitempty"`
	Perceptual    LayerReadings `json:"perceptual,omitempty" yaml:"perceptual,omitempty"`
	Cognitive     LayerReadings `json:"cognitive,omitempty" yaml:"cognitive,omitempty"`
}

// Layer returns the readings for the given layer
func (in Input) Layer(l Layer) LayerReadings {
	switch l {
	case LayerDeterministic:
		return in.Deterministic
	case LayerPerceptual:
		return in.Perceptual
	case LayerCognitive:
		return in.Cognitive
	}
	return nil
}

// Flatten returns a name to value view of the raw readings in the given
// layers, or all layers when none are named. Later layers override earlier
// ones, matching registry precedence.
func (in Input) Flatten(layers ...Layer) map[string]float64 {
	if len(layers) == 0 {
		layers = Layers
	}
	out := make(map[string]float64)
	for _, l := range layers {
		for name, r := range in.Layer(l) {
			out[name] = r.Value
		}
	}
	return out
}
