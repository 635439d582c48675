package segmentation

import (
	"fmt"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
	"github.com/deepcode-labs/deepcode/internal/segmentation/digest"
	"github.com/deepcode-labs/deepcode/internal/segmentation/fixed"
	"github.com/deepcode-labs/deepcode/internal/segmentation/structural"
)

// RegisterDefaults registers the built-in segmenters and processors.
func RegisterDefaults(r *Registry) {
	r.RegisterSegmenter(structural.Name, buildStructural)
	r.RegisterSegmenter(fixed.Name, buildFixed)
	r.RegisterProcessor(digest.Name, buildDigest)
}

// NewFromConfig builds the pipeline selected by cfg: the configured segmenter
// followed by the digest processor.
func NewFromConfig(cfg *domain.PipelineConfig) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)

	name := cfg.Segmenter
	if name == "" {
		name = domain.DefaultSegmenter
	}
	seg, err := r.BuildSegmenter(name, map[string]any{"lookback_chars": cfg.LookbackChars})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	dp, err := r.BuildProcessor(digest.Name, map[string]any{"max_chars": cfg.DigestMaxChars})
	if err != nil {
		return nil, err
	}
	return NewPipeline(seg, dp), nil
}

// buildStructural supports:
//   - lookback_chars (int): boundary search window (default: 10000)
func buildStructural(cfg map[string]any) (driven.Segmenter, error) {
	var opts []structural.Option
	if n, ok := getIntFromConfig(cfg, "lookback_chars"); ok {
		opts = append(opts, structural.WithLookback(n))
	}
	return structural.New(opts...), nil
}

func buildFixed(_ map[string]any) (driven.Segmenter, error) {
	return fixed.New(), nil
}

// buildDigest supports:
//   - max_chars (int): digest length bound (default: 2000)
func buildDigest(cfg map[string]any) (driven.SegmentProcessor, error) {
	var opts []digest.Option
	if n, ok := getIntFromConfig(cfg, "max_chars"); ok {
		opts = append(opts, digest.WithMaxChars(n))
	}
	return digest.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
