/*
Package domain contains the core models of the a11ybridge engine.

It defines both vocabularies the engine translates between: the framework's
raw semantics nodes (flags, actions, geometry, child orderings) and the remote
assistive-technology service's wire nodes (roles, states, attributes, remote
actions). It also holds the geometry primitives used for screen-space hit
testing. The package is pure and free of I/O.

# Key Entities

  - SemanticsNode: a framework snapshot of one accessible element.
  - WireNode: the remote encoding of a node, built per update and never stored.
  - Mat4 / Rect: column-major 4x4 transforms and axis-aligned rectangles.
  - SyncHooks: observability callbacks fired by the sync driver.
*/
package domain
