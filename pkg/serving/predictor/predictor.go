package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/synaptica-ai/vitals/pkg/common/models"
	"github.com/synaptica-ai/vitals/pkg/ml/linear"
)

const defaultThreshold = 0.5

// Artifact is the on-disk model. Encoders hold the category list each
// categorical feature was trained with; a category's code is its index.
type Artifact struct {
	Model struct {
		Type         string              `json:"type"`
		Algorithm    string              `json:"algorithm"`
		Version      string              `json:"version"`
		FeatureNames []string            `json:"feature_names"`
		Weights      linear.Weights      `json:"weights"`
		Threshold    float64             `json:"threshold"`
		Encoders     map[string][]string `json:"encoders"`
	} `json:"model"`
}

func (a Artifact) validate() error {
	if len(a.Model.FeatureNames) == 0 {
		return errors.New("artifact missing feature names")
	}
	if len(a.Model.Weights.Coefficients) != len(a.Model.FeatureNames) {
		return fmt.Errorf("artifact has %d coefficients for %d features",
			len(a.Model.Weights.Coefficients), len(a.Model.FeatureNames))
	}
	if a.Model.Threshold < 0 || a.Model.Threshold >= 1 {
		return fmt.Errorf("artifact threshold %v outside [0,1)", a.Model.Threshold)
	}
	return nil
}

type Result struct {
	HighRisk      bool      `json:"high_risk"`
	Probabilities []float64 `json:"probabilities"`
	Confidence    float64   `json:"confidence"`
	Version       string    `json:"version"`
}

type ModelInfo struct {
	Type         string   `json:"type"`
	Algorithm    string   `json:"algorithm"`
	Version      string   `json:"version"`
	FeatureNames []string `json:"feature_names"`
	Threshold    float64  `json:"threshold"`
}

// Predictor serves a single artifact file. The parsed artifact is cached and
// re-read only when the file's modification time changes.
type Predictor struct {
	path   string
	cached cachedArtifact
	mu     sync.RWMutex
}

type cachedArtifact struct {
	artifact Artifact
	modTime  int64
	loaded   bool
}

func NewPredictor(path string) *Predictor {
	return &Predictor{path: path}
}

// Load reads the artifact eagerly so a missing model is reported at startup.
func (p *Predictor) Load() error {
	_, err := p.loadArtifact()
	return err
}

func (p *Predictor) Info() (ModelInfo, error) {
	artifact, err := p.loadArtifact()
	if err != nil {
		return ModelInfo{}, err
	}
	return ModelInfo{
		Type:         artifact.Model.Type,
		Algorithm:    artifact.Model.Algorithm,
		Version:      artifact.Model.Version,
		FeatureNames: append([]string(nil), artifact.Model.FeatureNames...),
		Threshold:    threshold(artifact),
	}, nil
}

// Score encodes a raw feature row with the shipped encoders and runs the model.
func (p *Predictor) Score(features map[string]interface{}) (Result, error) {
	artifact, err := p.loadArtifact()
	if err != nil {
		return Result{}, err
	}

	sample := make([]float64, len(artifact.Model.FeatureNames))
	for idx, name := range artifact.Model.FeatureNames {
		value, ok := features[name]
		if !ok || value == nil {
			return Result{}, fmt.Errorf("%w: missing feature %s", ErrModelUnavailable, name)
		}
		encoded, err := encode(name, value, artifact.Model.Encoders[name])
		if err != nil {
			return Result{}, err
		}
		sample[idx] = encoded
	}

	probs, err := linear.Probabilities(artifact.Model.Weights, sample)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	high := probs[1] >= threshold(artifact)
	confidence := probs[0]
	if high {
		confidence = probs[1]
	}
	return Result{
		HighRisk:      high,
		Probabilities: probs,
		Confidence:    confidence,
		Version:       artifact.Model.Version,
	}, nil
}

// Classify scores the visit once against the current artifact.
func (p *Predictor) Classify(ctx context.Context, visit models.Visit) (bool, []float64, error) {
	res, err := p.Score(FeatureRow(visit))
	if err != nil {
		return false, nil, err
	}
	return res.HighRisk, res.Probabilities, nil
}

func (p *Predictor) loadArtifact() (Artifact, error) {
	info, err := os.Stat(filepath.Clean(p.path))
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	mod := info.ModTime().UnixNano()

	p.mu.RLock()
	cached := p.cached
	p.mu.RUnlock()
	if cached.loaded && cached.modTime == mod {
		return cached.artifact, nil
	}

	content, err := os.ReadFile(filepath.Clean(p.path))
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return Artifact{}, fmt.Errorf("%w: decode artifact: %v", ErrModelUnavailable, err)
	}
	if err := artifact.validate(); err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	p.mu.Lock()
	p.cached = cachedArtifact{artifact: artifact, modTime: mod, loaded: true}
	p.mu.Unlock()
	return artifact, nil
}

func threshold(a Artifact) float64 {
	if a.Model.Threshold == 0 {
		return defaultThreshold
	}
	return a.Model.Threshold
}
