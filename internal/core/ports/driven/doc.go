// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Agent: A remote specialised agent reachable over MCP
//   - AgentRegistry: Resolves agents by stable ID
//   - Segmenter: Splits documents into segments
//   - SegmentStore: Document and segment persistence
//   - RunStore: Pipeline run persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - InvocationLogger: Records agent invocations. Without it nothing is logged.
//   - Metrics: Records gateway and orchestrator metrics.
//   - ArtifactSink: Writes generated artifacts. Without it artifacts stay in the run result.
//   - Normaliser / NormaliserRegistry: Converts raw input to documents.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
