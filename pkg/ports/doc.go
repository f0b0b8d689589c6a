/*
Package ports defines the driven ports (interfaces) for the accessibility bridge.

These interfaces decouple the sync engine from the remote accessibility
service and from the host framework, allowing the engine to run against an
in-process recorder, a Redis stream or a WebSocket peer.

# Key Interfaces

  - Transport: Carries node updates, deletions, commits and semantic events to the remote service.
  - Delegate: Receives framework actions and semantics mode changes from the bridge.
  - OwnerLocker: Ensures a single bridge instance publishes a given tree.
*/
package ports
