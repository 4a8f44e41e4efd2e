package ml

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"time"
)

// ErrNoBundle indicates no trained model bundle has been persisted yet.
var ErrNoBundle = errors.New("ml: no trained model bundle available")

// TrainedModelBundle is an immutable snapshot of one training run: both
// classifiers, the scaler fit on that run's training split, the feature order
// they were trained with and the creation timestamp that identifies the
// bundle. A new training run always produces a new bundle; persisted bundles
// are never mutated.
type TrainedModelBundle struct {
	Forest       *RandomForest
	Logistic     *LogisticRegression
	Scaler       *Scaler
	FeatureNames []string
	CreatedAt    time.Time
}

// Key returns the storage key for this bundle. Keys sort lexicographically in
// creation order, so "latest" is always the last key.
func (b *TrainedModelBundle) Key() string {
	return fmt.Sprintf("%s.%09d", b.CreatedAt.UTC().Format("20060102-150405"), b.CreatedAt.Nanosecond())
}

// Encode serializes the bundle to an opaque binary blob. No format guarantee
// is made beyond DecodeBundle round-tripping it.
func (b *TrainedModelBundle) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBundle deserializes a bundle blob produced by Encode.
func DecodeBundle(data []byte) (*TrainedModelBundle, error) {
	var b TrainedModelBundle
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &b, nil
}

// BundleStore persists immutable model bundles keyed by creation timestamp.
// Latest returns ErrNoBundle when nothing has been persisted.
type BundleStore interface {
	Save(b *TrainedModelBundle) (string, error)
	Latest() (*TrainedModelBundle, error)
}
