package segmentation

import (
	"fmt"
	"sort"

	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
)

// SegmenterBuilder creates a Segmenter from generic config.
// Config is a map of strategy-specific settings parsed from user config.
type SegmenterBuilder func(cfg map[string]any) (driven.Segmenter, error)

// ProcessorBuilder creates a SegmentProcessor from generic config.
type ProcessorBuilder func(cfg map[string]any) (driven.SegmentProcessor, error)

// Registry maps strategy and processor names to their builders.
// It allows dynamic construction of pipelines from configuration.
type Registry struct {
	segmenters map[string]SegmenterBuilder
	processors map[string]ProcessorBuilder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		segmenters: make(map[string]SegmenterBuilder),
		processors: make(map[string]ProcessorBuilder),
	}
}

// RegisterSegmenter adds a segmenter builder.
// Name should match the segmenter's Name() return value.
func (r *Registry) RegisterSegmenter(name string, builder SegmenterBuilder) {
	r.segmenters[name] = builder
}

// RegisterProcessor adds a processor builder.
func (r *Registry) RegisterProcessor(name string, builder ProcessorBuilder) {
	r.processors[name] = builder
}

// BuildSegmenter creates a segmenter by name with the given config.
func (r *Registry) BuildSegmenter(name string, cfg map[string]any) (driven.Segmenter, error) {
	builder, ok := r.segmenters[name]
	if !ok {
		return nil, fmt.Errorf("unknown segmenter: %s", name)
	}
	return builder(cfg)
}

// BuildProcessor creates a processor by name with the given config.
func (r *Registry) BuildProcessor(name string, cfg map[string]any) (driven.SegmentProcessor, error) {
	builder, ok := r.processors[name]
	if !ok {
		return nil, fmt.Errorf("unknown processor: %s", name)
	}
	return builder(cfg)
}

// Has returns true if a segmenter with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.segmenters[name]
	return ok
}

// Names returns all registered segmenter names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.segmenters))
	for name := range r.segmenters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
