// Package domain defines the core business entities for deepcode.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Normalised input text with source metadata
//   - Segment: An offset-tracked slice of a Document
//   - AgentRequest / AgentResult: The uniform agent contract
//   - KnowledgeGraph: Deduplicated entities merged across segments and stages
//   - PipelineRun / RunReport: The unit of work and its outcome
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
