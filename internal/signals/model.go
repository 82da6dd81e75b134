package signals

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

// sigmoid overflow guard: |z| at or beyond this short-circuits
const sigmoidOverflow = 88.0

// LogisticModel is an immutable logistic-regression scorer over the
// canonical feature vector. Construct once; never mutated afterwards.
type LogisticModel struct {
	weights [FeatureCount]float64
	bias    float64
}

// NewLogisticModel copies the given parameters into an immutable model
func NewLogisticModel(weights [FeatureCount]float64, bias float64) *LogisticModel {
	return &LogisticModel{weights: weights, bias: bias}
}

// DefaultModel returns the compiled-in weights
func DefaultModel() *LogisticModel {
	return NewLogisticModel([FeatureCount]float64{
		featURLLength:        0.8,
		featHostLength:       0.6,
		featDigitRatio:       2.5,
		featLeetSubstitution: 4.0,
		featSubdomainCount:   1.2,
		featIPHost:           3.0,
		featAtSymbol:         2.5,
		featHTTPS:            -1.5,
		featPathDepth:        0.5,
		featQueryLength:      0.5,
		featHyphenCount:      1.5,
		featHostEntropy:      0.8,
		featKeywordCount:     4.0,
		featPunycode:         2.0,
		featRiskyTLD:         2.5,
	}, -2.8)
}

// Predict returns the phishing probability for a feature vector,
// always strictly inside (0,1). Features are clamped to [-10,10]
// before the dot product so hostile vectors cannot overflow.
func (m *LogisticModel) Predict(f FeatureVector) float64 {
	z := m.bias
	for i, v := range f {
		if v > 10 {
			v = 10
		} else if v < -10 {
			v = -10
		}
		z += v * m.weights[i]
	}
	if z >= sigmoidOverflow {
		return 1 - 1e-7
	}
	if z <= -sigmoidOverflow {
		return 1e-7
	}
	p := 1.0 / (1.0 + math.Exp(-z))
	if p <= 0 {
		return 1e-7
	}
	if p >= 1 {
		return 1 - 1e-7
	}
	return p
}

type weightFile struct {
	Bias    float64   `json:"bias"`
	Weights []float64 `json:"weights"`
}

// LoadModelWeights parses external weight JSON, rejecting anything
// that does not carry exactly FeatureCount finite weights and a finite
// bias. Untrusted weights are never trusted blindly.
func LoadModelWeights(data []byte) (*LogisticModel, error) {
	const maxWeightJSON = 100 * 1024
	if len(data) > maxWeightJSON {
		return nil, fmt.Errorf("weight file too large: %d bytes", len(data))
	}
	var wf weightFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse weight JSON: %w", err)
	}
	if len(wf.Weights) != FeatureCount {
		return nil, fmt.Errorf("expected %d weights, got %d", FeatureCount, len(wf.Weights))
	}
	if math.IsNaN(wf.Bias) || math.IsInf(wf.Bias, 0) {
		return nil, fmt.Errorf("bias is not finite")
	}
	var w [FeatureCount]float64
	for i, v := range wf.Weights {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("weight %d is not finite", i)
		}
		w[i] = v
	}
	return NewLogisticModel(w, wf.Bias), nil
}

// LoadModelWeightsOrDefault falls back to the compiled-in model on any
// validation failure.
func LoadModelWeightsOrDefault(data []byte) *LogisticModel {
	m, err := LoadModelWeights(data)
	if err != nil {
		log.Warn().Err(err).Msg("rejecting external model weights, using defaults")
		return DefaultModel()
	}
	return m
}
