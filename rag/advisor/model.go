package advisor

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/sweetpotato0/govassist/rag/intent"
	"github.com/sweetpotato0/govassist/service"
)

//go:embed default_model.json
var defaultModel []byte

// LogisticModel is a one-vs-rest logistic regression over the one-hot
// service and intent features. Coef has one row per class; each row has one
// weight per feature, services first.
type LogisticModel struct {
	Services  []string    `json:"services"`
	Intents   []string    `json:"intents"`
	Classes   []string    `json:"classes"`
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

var _ Scorer = (*LogisticModel)(nil)

// DefaultModel returns the weights shipped with the binary.
func DefaultModel() *LogisticModel {
	m, err := ParseModel(defaultModel)
	if err != nil {
		panic(fmt.Sprintf("embedded advisor model: %v", err))
	}
	return m
}

// LoadModel reads model weights from a JSON file.
func LoadModel(path string) (*LogisticModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read advisor model: %w", err)
	}
	return ParseModel(data)
}

// ParseModel decodes and validates model weights. The feature and class
// layouts must match service.All and intent.All exactly.
func ParseModel(data []byte) (*LogisticModel, error) {
	var m LogisticModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode advisor model: %w", err)
	}

	services := service.All()
	intents := intent.All()
	if !sameLayout(m.Services, services) {
		return nil, fmt.Errorf("service layout %v does not match %v", m.Services, services)
	}
	if !sameLayout(m.Intents, intents) || !sameLayout(m.Classes, intents) {
		return nil, fmt.Errorf("intent layout %v/%v does not match %v", m.Intents, m.Classes, intents)
	}

	features := len(services) + len(intents)
	if len(m.Coef) != len(intents) || len(m.Intercept) != len(intents) {
		return nil, fmt.Errorf("expected %d classes, got %d coefficient rows and %d intercepts",
			len(intents), len(m.Coef), len(m.Intercept))
	}
	for i, row := range m.Coef {
		if len(row) != features {
			return nil, fmt.Errorf("class %s: expected %d weights, got %d", m.Classes[i], features, len(row))
		}
	}
	return &m, nil
}

// Score returns the probability of every class in intent.All order.
func (m *LogisticModel) Score(serviceVec, intentVec []float64) []float64 {
	x := slices.Concat(serviceVec, intentVec)
	probs := make([]float64, len(m.Coef))
	for i, row := range m.Coef {
		z := m.Intercept[i]
		for j := 0; j < len(row) && j < len(x); j++ {
			z += row[j] * x[j]
		}
		probs[i] = 1 / (1 + math.Exp(-z))
	}
	return probs
}

func sameLayout[T ~string](got []string, want []T) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != string(want[i]) {
			return false
		}
	}
	return true
}
