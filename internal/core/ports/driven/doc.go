// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ContentSource: The authoritative listing of published posts (Ghost)
//   - IndexStore: The remote vector collection (Chroma)
//
// # Optional Interfaces
//
//   - EmbeddingService: Used inside the index store adapter; the core
//     never touches vectors directly
//   - SyncStateStore: Durable last-success persistence. When nil, a
//     restart simply forces a full scan
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
